package controller

import (
	"net/http"

	"github.com/golang/glog"

	e "github.com/ledgerline/ledgerline/errors"
	"github.com/ledgerline/ledgerline/models"
)

// StatementPeriodsController is a web controller
type StatementPeriodsController struct{}

// StatementPeriodsHandler is a web handler
func StatementPeriodsHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeContext(r, w)

	ctl := StatementPeriodsController{}

	switch c.Request.Method {
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
func (ctl *StatementPeriodsController) Read(c *models.Context) {
	periods, err := client.AvailablePeriods(c.Request.Context())
	if err != nil {
		respondWithUpstreamError(c, err)
		return
	}

	c.RespondWithData(models.AvailablePeriodsType{Periods: periods})
}

// respondWithUpstreamError maps an upstream proxy failure onto a client
// response. Statement data has no stale fallback record the way the balance
// does, so these surface directly.
func respondWithUpstreamError(c *models.Context, err error) {
	switch e.CodeOf(err) {
	case e.RemoteRateLimited:
		c.RespondWithErrorMessage(
			"upstream rate limited, try again later",
			http.StatusTooManyRequests,
		)
	case e.RemoteTimeout:
		c.RespondWithErrorMessage(
			"upstream timed out",
			http.StatusGatewayTimeout,
		)
	default:
		glog.Errorf("upstream request %+v", err)
		c.RespondWithErrorMessage(
			"upstream request failed",
			http.StatusBadGateway,
		)
	}
}
