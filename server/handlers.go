package server

import (
	"net/http"

	"github.com/ledgerline/ledgerline/controller"
)

var (
	handlers = map[string]func(http.ResponseWriter, *http.Request){
		"/": controller.BalanceHandler,

		"/statement/available-periods":    controller.StatementPeriodsHandler,
		"/statement/downloadForDateRange": controller.StatementRangeHandler,

		"/cashflow-this-month": controller.CashflowHandler,
	}

	notFoundHandler = controller.NotFoundHandler
)
