package bank

import (
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Statement CSV column positions in the upstream download format.
const (
	counterPartyColumn = 1
	referenceColumn    = 2
	amountColumn       = 4
)

// maskedCell replaces counter-party and reference when the caller has not
// supplied the detail password.
const maskedCell = "#"

// Cashflow summarises one statement's credits and debits. Amounts are in
// major currency units (pounds) as the upstream statement reports them.
type Cashflow struct {
	Credits      []float64
	Debits       []float64
	TotalCredits float64
	TotalDebits  float64
	Net          float64
}

// ParseStatement decodes the upstream CSV into rows, header included.
// Transaction rows can have a ragged field count, so no per-record length is
// enforced.
func ParseStatement(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse statement csv: %v", err)
	}
	return rows, nil
}

// MaskRows blanks the counter-party and reference columns of every row,
// header included, so transaction details are hidden from unauthenticated
// viewers. The input rows are not modified.
func MaskRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		masked := make([]string, len(row))
		copy(masked, row)
		if len(masked) > counterPartyColumn {
			masked[counterPartyColumn] = maskedCell
		}
		if len(masked) > referenceColumn {
			masked[referenceColumn] = maskedCell
		}
		out[i] = masked
	}
	return out
}

// ComputeCashflow splits the statement's transactions into credits and
// debits and totals each side, rounding to two decimal places. The header
// row is skipped; rows without a numeric amount are ignored.
func ComputeCashflow(rows [][]string) Cashflow {
	cf := Cashflow{
		Credits: []float64{},
		Debits:  []float64{},
	}

	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) <= amountColumn {
			continue
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(row[amountColumn]), 64)
		if err != nil {
			continue
		}
		if amount < 0 {
			cf.Debits = append(cf.Debits, amount)
		} else {
			cf.Credits = append(cf.Credits, amount)
		}
	}

	cf.TotalCredits = round2(sum(cf.Credits))
	cf.TotalDebits = round2(sum(cf.Debits))
	cf.Net = round2(cf.TotalCredits + cf.TotalDebits)

	return cf
}

func sum(vs []float64) float64 {
	var total float64
	for _, v := range vs {
		total += v
	}
	return total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
