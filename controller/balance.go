package controller

import (
	"context"
	"net/http"

	"github.com/golang/glog"

	"github.com/ledgerline/ledgerline/bank"
	"github.com/ledgerline/ledgerline/cache"
	e "github.com/ledgerline/ledgerline/errors"
	"github.com/ledgerline/ledgerline/models"
)

// BalanceController is a web controller
type BalanceController struct{}

// BalanceHandler is a web handler
func BalanceHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeContext(r, w)

	ctl := BalanceController{}

	switch c.Request.Method {
	case "OPTIONS":
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Allow", "OPTIONS, GET")
		w.WriteHeader(http.StatusOK)
		return
	case "GET":
		ctl.Read(c)
	default:
		c.RespondWithErrorMessage(
			"method not allowed",
			http.StatusMethodNotAllowed,
		)
		return
	}
}

// Read handles GET
func (ctl *BalanceController) Read(c *models.Context) {
	result, err := policy.GetValue(c.Request.Context())
	if err != nil {
		switch e.CodeOf(err) {
		case e.NoDataYet:
			c.RespondWithErrorMessage(
				"no balance data is available yet; the upstream could not be reached",
				http.StatusServiceUnavailable,
			)
		default:
			glog.Errorf("policy.GetValue() %+v", err)
			c.RespondWithErrorMessage(
				"balance lookup failed",
				http.StatusInternalServerError,
			)
		}
		return
	}

	payload := models.BalanceType{
		Balance:     result.Value,
		CacheState:  string(result.State),
		Warning:     result.Warning,
		WaitSeconds: result.WaitSeconds,
	}
	if result.Value != cache.NeverObserved {
		payload.BalanceHumanReadable = bank.FormatMinorUnits(result.Value)
	}

	c.RespondWithData(payload)
}

// WarmBalance is run on a schedule so that an idle dashboard still finds a
// recent value in the shared record. The policy's own fresh/backoff gating
// applies, so warming never violates the upstream rate limit.
func WarmBalance() {
	if policy == nil {
		return
	}
	if _, err := policy.GetValue(context.Background()); err != nil && e.CodeOf(err) != e.NoDataYet {
		glog.Warningf("balance warm: %v", err)
	}
}
