package cache

import (
	"fmt"
	"strconv"
	"strings"

	e "github.com/ledgerline/ledgerline/errors"
)

// NeverObserved is the reserved sentinel for "no value has ever been
// successfully observed". It is returned to callers as-is and must never be
// interpreted as a real balance.
const NeverObserved int64 = -1

// recordDelimiter joins the three fields into the single-line text payload.
const recordDelimiter = ","

// Record is the only persisted entity: the cache/backoff state for the one
// logical value being cached. It lives in two places, the shared store and
// the fallback file, which are kept logically consistent by Policy.
type Record struct {
	// RetryAfter is the unix second before which remote calls are
	// disallowed.
	RetryAfter int64
	// LastLookup is the unix second of the most recent successful or
	// attempted remote call.
	LastLookup int64
	// LastValue is the most recent successfully observed value, in minor
	// currency units, or NeverObserved.
	LastValue int64
}

// Encode renders the record as its single-line text payload.
func (r Record) Encode() []byte {
	return []byte(fmt.Sprintf(
		"%d%s%d%s%d",
		r.RetryAfter, recordDelimiter,
		r.LastLookup, recordDelimiter,
		r.LastValue,
	))
}

// ParseRecord decodes a payload read from either the shared store or the
// fallback file. Trailing NULs from the fixed-capacity store and any
// surrounding whitespace are trimmed first. A wrong field count, an empty
// payload and non-numeric fields are all the same condition: MalformedRecord.
func ParseRecord(payload []byte) (Record, error) {
	text := strings.TrimSpace(strings.TrimRight(string(payload), "\x00"))
	if text == "" {
		return Record{}, e.New(
			"cache.ParseRecord",
			e.MalformedRecord,
			"empty record",
		)
	}

	fields := strings.Split(text, recordDelimiter)
	if len(fields) != 3 {
		return Record{}, e.New(
			"cache.ParseRecord",
			e.MalformedRecord,
			fmt.Sprintf("expected 3 fields, got %d", len(fields)),
		)
	}

	var values [3]int64
	for i, field := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return Record{}, e.New(
				"cache.ParseRecord",
				e.MalformedRecord,
				fmt.Sprintf("field %d is not an integer: %q", i, field),
			)
		}
		values[i] = v
	}

	return Record{
		RetryAfter: values[0],
		LastLookup: values[1],
		LastValue:  values[2],
	}, nil
}
