package controller

import (
	"time"

	"github.com/ledgerline/ledgerline/bank"
	"github.com/ledgerline/ledgerline/cache"
)

var (
	policy         *cache.Policy
	client         *bank.Client
	detailPassword string
)

// Init wires the controllers to their collaborators. It is the
// responsibility of whatever constructed the cache policy and upstream
// client (usually main, shortly after reading the config file) to call this
// before the server starts.
func Init(p *cache.Policy, c *bank.Client, statementDetailPassword string) {
	policy = p
	client = c
	detailPassword = statementDetailPassword
}

// currentMonthRange returns the default statement window: the first day of
// the current month through today, as YYYY-MM-DD.
func currentMonthRange(now time.Time) (string, string) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start.Format("2006-01-02"), now.Format("2006-01-02")
}
