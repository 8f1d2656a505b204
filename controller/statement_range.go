package controller

import (
	"net/http"

	"github.com/golang/glog"

	"github.com/ledgerline/ledgerline/bank"
	"github.com/ledgerline/ledgerline/models"
)

// StatementRangeController is a web controller
type StatementRangeController struct{}

// StatementRangeHandler is a web handler
func StatementRangeHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeContext(r, w)

	ctl := StatementRangeController{}

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

// Read handles GET. Without the detail password the counter-party and
// reference columns are masked and the rows are returned as JSON; with it,
// the raw upstream CSV comes back untouched.
func (ctl *StatementRangeController) Read(c *models.Context) {
	q := c.Request.URL.Query()

	start := q.Get("start")
	end := q.Get("end")
	if start == "" || end == "" {
		start, end = currentMonthRange(c.StartTime)
	}

	text, err := client.StatementCSV(c.Request.Context(), start, end)
	if err != nil {
		respondWithUpstreamError(c, err)
		return
	}

	if detailPassword != "" && q.Get("detail_password") == detailPassword {
		c.RespondWithCSV(text)
		return
	}

	rows, err := bank.ParseStatement(text)
	if err != nil {
		glog.Errorf("bank.ParseStatement() %+v", err)
		c.RespondWithErrorMessage(
			"upstream statement could not be parsed",
			http.StatusBadGateway,
		)
		return
	}

	c.RespondWithData(bank.MaskRows(rows))
}
