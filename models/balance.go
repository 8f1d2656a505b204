package models

import "encoding/json"

// BalanceType is the balance payload served by GET /, mirroring the shape
// the dashboard frontend consumes: the raw minor-unit amount plus a
// human-readable rendering, annotated with how the value relates to the
// upstream.
type BalanceType struct {
	Balance              int64  `json:"balance"`
	BalanceHumanReadable string `json:"balance-human-readable"`
	CacheState           string `json:"cache-state"`
	Warning              string `json:"warning,omitempty"`
	WaitSeconds          int64  `json:"wait-seconds,omitempty"`
}

// AvailablePeriodsType wraps the upstream statement-period listing, passed
// through untouched.
type AvailablePeriodsType struct {
	Periods json.RawMessage `json:"periods"`
}

// CashflowType is the payload served by GET /cashflow-this-month.
type CashflowType struct {
	Cashflow                  float64    `json:"cashflow"`
	CashflowHumanReadable     string     `json:"cashflow-human-readable"`
	TotalCredits              float64    `json:"total-credits"`
	TotalCreditsHumanReadable string     `json:"total-credits-human-readable"`
	TotalDebits               float64    `json:"total-debits"`
	TotalDebitsHumanReadable  string     `json:"total-debits-human-readable"`
	Credits                   []float64  `json:"credits"`
	Debits                    []float64  `json:"debits"`
	Statement                 [][]string `json:"statement"`
}
