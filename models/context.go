package models

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
)

// Context carries one inbound request through a controller.
type Context struct {
	Request        *http.Request
	ResponseWriter http.ResponseWriter
	RouteVars      map[string]string
	StartTime      time.Time
	IP             net.IP
}

// ErrorResponse is the envelope for error replies.
type ErrorResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// MakeContext builds the request context for a controller.
func MakeContext(
	request *http.Request,
	responseWriter http.ResponseWriter,
) *Context {
	c := new(Context)
	c.Request = request
	c.ResponseWriter = responseWriter
	c.RouteVars = mux.Vars(request)
	c.StartTime = time.Now()
	c.IP = GetRequestIP(request)

	return c
}

// GetRequestIP returns the IP address of the requester
func GetRequestIP(request *http.Request) net.IP {
	host, _, _ := net.SplitHostPort(request.RemoteAddr)
	return net.ParseIP(host)
}

// RespondWithData writes data as the JSON response body with HTTP 200.
func (c *Context) RespondWithData(data interface{}) error {
	return c.RespondWithStatusedData(data, http.StatusOK)
}

// RespondWithStatusedData writes data as the JSON response body with the
// given status code.
func (c *Context) RespondWithStatusedData(data interface{}, statusCode int) error {
	output, err := json.Marshal(data)
	if err != nil {
		glog.Errorf("json.Marshal(data) %+v", err)
		http.Error(
			c.ResponseWriter,
			err.Error(),
			http.StatusInternalServerError,
		)
		return err
	}

	return c.WriteResponse(output, "application/json", statusCode)
}

// RespondWithErrorMessage writes the error envelope with the given status
// code.
func (c *Context) RespondWithErrorMessage(message string, statusCode int) error {
	output, err := json.Marshal(ErrorResponse{
		Status: statusCode,
		Error:  message,
	})
	if err != nil {
		glog.Errorf("json.Marshal(ErrorResponse) %+v", err)
		http.Error(
			c.ResponseWriter,
			err.Error(),
			http.StatusInternalServerError,
		)
		return err
	}

	return c.WriteResponse(output, "application/json", statusCode)
}

// RespondWithCSV writes raw CSV as the response body.
func (c *Context) RespondWithCSV(body string) error {
	return c.WriteResponse([]byte(body), "text/csv", http.StatusOK)
}

// RespondWithNotFound writes a standard 404 error.
func (c *Context) RespondWithNotFound() error {
	return c.RespondWithErrorMessage("not found", http.StatusNotFound)
}

// WriteResponse sets the response headers and writes the body. The dashboard
// frontend is served from another origin, so cross-origin reads are allowed
// on everything.
func (c *Context) WriteResponse(
	output []byte,
	contentType string,
	statusCode int,
) error {
	// Prevent content type detection, a.k.a. sniffing
	c.ResponseWriter.Header().Set("Content-Type", contentType)
	c.ResponseWriter.Header().Set("X-Content-Type-Options", "nosniff")
	c.ResponseWriter.Header().Set("Access-Control-Allow-Origin", "*")

	// Prevent chunking
	c.ResponseWriter.Header().Set("Content-Length", strconv.Itoa(len(output)))

	c.ResponseWriter.WriteHeader(statusCode)
	_, err := c.ResponseWriter.Write(output)

	if glog.V(2) {
		glog.Infof(
			"%s %s %d in %s",
			c.Request.Method,
			c.Request.URL.Path,
			statusCode,
			time.Since(c.StartTime),
		)
	}

	return err
}
