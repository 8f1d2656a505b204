package controller

import (
	"net/http"

	"github.com/golang/glog"

	"github.com/ledgerline/ledgerline/bank"
	"github.com/ledgerline/ledgerline/models"
)

// CashflowController is a web controller
type CashflowController struct{}

// CashflowHandler is a web handler
func CashflowHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeContext(r, w)

	ctl := CashflowController{}

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
func (ctl *CashflowController) Read(c *models.Context) {
	start, end := currentMonthRange(c.StartTime)

	text, err := client.StatementCSV(c.Request.Context(), start, end)
	if err != nil {
		respondWithUpstreamError(c, err)
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

	cf := bank.ComputeCashflow(rows)

	c.RespondWithData(models.CashflowType{
		Cashflow:                  cf.Net,
		CashflowHumanReadable:     bank.FormatPounds(cf.Net),
		TotalCredits:              cf.TotalCredits,
		TotalCreditsHumanReadable: bank.FormatPounds(cf.TotalCredits),
		TotalDebits:               cf.TotalDebits,
		TotalDebitsHumanReadable:  bank.FormatPounds(cf.TotalDebits),
		Credits:                   cf.Credits,
		Debits:                    cf.Debits,
		Statement:                 bank.MaskRows(rows),
	})
}
