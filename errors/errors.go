package errors

/*
* Error codes convey detailed failure conditions internally and, where
* appropriate, to clients. They are grouped by how the rest of the system is
* expected to react: configuration-level errors are fatal and propagate to the
* caller, operational remote errors are absorbed and converted into a degraded
* response, and record corruption is recovered locally and never surfaced.
 */

const (
	// Configuration-level, fatal, surfaced immediately.
	// The shared store could neither be created nor attached.
	StoreUnavailable ErrCode = 1
	// A payload exceeded the fixed capacity of the shared store.
	PayloadTooLarge ErrCode = 2

	// Recovered locally, never surfaced.
	// A record in the shared store or fallback file failed to parse.
	MalformedRecord ErrCode = 3

	// Expected operational conditions, served as stale data plus a warning.
	RemoteUnavailable ErrCode = 4
	RemoteRateLimited ErrCode = 5
	RemoteTimeout     ErrCode = 6

	// The remote failed and no value has ever been observed.
	NoDataYet ErrCode = 7
)

// ErrCode is the taxonomy of internal failure conditions.
type ErrCode uint8

// Error implements the error interface and carries the failure taxonomy
// alongside the function that raised it.
type Error struct {
	Function          string  `json:"-"`
	Code              ErrCode `json:"errorCode"`
	Message           string  `json:"errorDetail"`
	RetryAfterSeconds int64   `json:"retryAfterSeconds,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// New returns an error tagged with the given code.
func New(function string, code ErrCode, message string) error {
	return &Error{
		Function: function,
		Code:     code,
		Message:  message,
	}
}

// RateLimited returns a RemoteRateLimited error carrying the upstream's
// retry-after hint.
func RateLimited(function string, retryAfterSeconds int64, message string) error {
	return &Error{
		Function:          function,
		Code:              RemoteRateLimited,
		Message:           message,
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// CodeOf returns the ErrCode attached to err, or 0 if err was not raised by
// this package.
func CodeOf(err error) ErrCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return 0
}

// RetryAfterOf returns the retry-after hint attached to err, or 0.
func RetryAfterOf(err error) int64 {
	if e, ok := err.(*Error); ok {
		return e.RetryAfterSeconds
	}
	return 0
}
