package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	e "github.com/ledgerline/ledgerline/errors"
)

// State describes how a returned value relates to the remote source of
// truth.
type State string

const (
	// StateFresh means the record is younger than the minimum inter-call
	// interval, or was just refreshed by a successful remote call.
	StateFresh State = "fresh"
	// StateStale means the record is old enough that a remote call was
	// permitted.
	StateStale State = "stale"
	// StateBackoff means the upstream mandated a cool-down that has not yet
	// elapsed; remote calls are forbidden regardless of staleness.
	StateBackoff State = "backoff"
)

// ValueStore is the primary record location: the raw byte contract of a
// fixed-capacity shared segment. *shm.Store satisfies it; tests substitute
// an in-memory implementation.
type ValueStore interface {
	Put(payload []byte) error
	Read() []byte
	Clear()
}

// Fetcher is the remote fetch collaborator. A successful call returns the
// observed value in minor currency units and the unix second it was
// observed. A rate-limit rejection is reported as a RemoteRateLimited error
// carrying the upstream retry-after hint; timeouts and other failures map to
// RemoteTimeout and RemoteUnavailable.
type Fetcher interface {
	FetchBalance(ctx context.Context) (value int64, observedAt int64, err error)
}

// Result is what callers of GetValue receive.
type Result struct {
	Value       int64
	State       State
	Warning     string
	WaitSeconds int64
}

// Policy owns the cached-lookup decision procedure and the persistence of
// its outcome to the shared store (primary) and the fallback file
// (secondary, durable).
type Policy struct {
	store       ValueStore // nil means degraded file-only operation
	filePath    string
	fetcher     Fetcher
	minInterval int64
	locker      Locker

	now func() time.Time
}

// NewPolicy builds a policy over the given store and fallback file. A nil
// store degrades to file-only operation; a nil locker means no inter-process
// coordination (last-writer-wins).
func NewPolicy(
	store ValueStore,
	filePath string,
	fetcher Fetcher,
	minSecsBetweenCalls int64,
	locker Locker,
) *Policy {
	if locker == nil {
		locker = NopLocker{}
	}
	return &Policy{
		store:       store,
		filePath:    filePath,
		fetcher:     fetcher,
		minInterval: minSecsBetweenCalls,
		locker:      locker,
		now:         time.Now,
	}
}

// Bootstrap guarantees a well-formed record exists in at least one of the
// two locations, synthesising (now, now, NeverObserved) into both when
// neither holds one. Called once at process start; the same recovery chain
// also runs on every read, so a record scribbled over at runtime heals
// itself.
func (p *Policy) Bootstrap() Record {
	return p.load(p.now().Unix())
}

// GetValue runs the decision procedure for one "get current value" request:
// serve fresh from cache, honour a backoff, or call the remote and persist
// the outcome.
//
// The returned error is non-nil in exactly two cases: the remote failed
// while no value has ever been observed (NoDataYet), and configuration-level
// persistence failures (PayloadTooLarge). Transient remote failures with a
// cached value in hand are absorbed into a degraded Result with a warning.
func (p *Policy) GetValue(ctx context.Context) (Result, error) {
	if err := p.locker.Lock(); err != nil {
		glog.Warningf("advisory lock unavailable, proceeding unlocked: %v", err)
	} else {
		defer func() {
			if err := p.locker.Unlock(); err != nil {
				glog.Warningf("advisory unlock: %v", err)
			}
		}()
	}

	now := p.now().Unix()
	rec := p.load(now)

	// A synthetic record is never fresh: until a value has been observed
	// there is nothing worth serving, so the interval gate only applies to
	// real observations.
	if rec.LastValue != NeverObserved && now-rec.LastLookup < p.minInterval {
		return Result{
			Value:       rec.LastValue,
			State:       StateFresh,
			Warning:     "served from cache, remote call skipped",
			WaitSeconds: p.minInterval - (now - rec.LastLookup),
		}, nil
	}

	if now < rec.RetryAfter {
		return Result{
			Value:       rec.LastValue,
			State:       StateBackoff,
			Warning:     "rate limited, serving stale value",
			WaitSeconds: rec.RetryAfter - now,
		}, nil
	}

	value, observedAt, err := p.fetcher.FetchBalance(ctx)
	if err == nil {
		fresh := Record{
			RetryAfter: observedAt,
			LastLookup: observedAt,
			LastValue:  value,
		}
		if perr := p.persist(fresh, true); perr != nil {
			return Result{}, perr
		}
		return Result{
			Value: value,
			State: StateFresh,
		}, nil
	}

	if e.CodeOf(err) == e.RemoteRateLimited {
		retryAfter := e.RetryAfterOf(err)
		backoff := Record{
			RetryAfter: now + retryAfter,
			LastLookup: now,
			LastValue:  rec.LastValue,
		}
		// The file keeps the last genuinely observed state; only the shared
		// copy carries the backoff. In file-only operation the file is the
		// only place the backoff can live.
		if perr := p.persist(backoff, p.store == nil); perr != nil {
			return Result{}, perr
		}
		return Result{
			Value:       rec.LastValue,
			State:       StateBackoff,
			Warning:     "rate limited, serving stale value",
			WaitSeconds: retryAfter,
		}, nil
	}

	// Timeout, network error, malformed response: leave persisted state
	// alone and degrade.
	glog.Warningf("remote lookup failed: %v", err)

	if rec.LastValue == NeverObserved {
		result := Result{
			Value: NeverObserved,
			State: StateStale,
		}
		return result, e.New(
			"cache.GetValue",
			e.NoDataYet,
			"no balance has been observed yet and the remote lookup failed",
		)
	}

	return Result{
		Value:   rec.LastValue,
		State:   StateStale,
		Warning: fmt.Sprintf("remote lookup failed, serving last known value: %v", err),
	}, nil
}

// load returns a well-formed record, trying the shared store first, the
// fallback file second, and synthesising one into both as a last resort.
func (p *Policy) load(now int64) Record {
	if p.store != nil {
		rec, err := ParseRecord(p.store.Read())
		if err == nil {
			return rec
		}
		if glog.V(2) {
			glog.Infof("shared record unusable, trying fallback file: %v", err)
		}
	}

	if payload, err := os.ReadFile(p.filePath); err == nil {
		rec, perr := ParseRecord(payload)
		if perr == nil {
			// Re-seed the shared copy from the durable one.
			p.writeStore(rec)
			return rec
		}
		glog.Warningf("fallback file %s unusable: %v", p.filePath, perr)
	}

	rec := Record{RetryAfter: now, LastLookup: now, LastValue: NeverObserved}
	if err := p.persist(rec, true); err != nil {
		glog.Errorf("bootstrap persist: %v", err)
	}
	return rec
}

// persist writes the record to the shared store and, when durable is set,
// to the fallback file as well.
func (p *Policy) persist(rec Record, durable bool) error {
	if err := p.writeStore(rec); err != nil {
		return err
	}
	if durable {
		if err := os.WriteFile(p.filePath, rec.Encode(), 0644); err != nil {
			// File-write failures degrade durability but not availability.
			glog.Errorf("write fallback file %s: %v", p.filePath, err)
		}
	}
	return nil
}

func (p *Policy) writeStore(rec Record) error {
	if p.store == nil {
		return nil
	}
	return p.store.Put(rec.Encode())
}
