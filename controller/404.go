package controller

import (
	"net/http"

	"github.com/ledgerline/ledgerline/models"
)

// NotFoundHandler is a web handler
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeContext(r, w)
	c.RespondWithNotFound()
}
