// Package apperrors implements the application error type used across the
// service. Errors form chains: a package declares root errors once, then
// derives request-specific errors from them with New/Msg/Err. Each error
// carries an HTTP status code so the transport layer can map failures
// without inspecting error strings.
package apperrors

// Error is the application error interface. It extends the standard error
// interface with chaining, status codes, and message expansion. All derivation
// methods return a new Error and never mutate the receiver.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // derives a fresh error using current as template
	Msg(msg string) Error                  // derives an error with message, wrapping the original
	MsgErr(msg string, err ...error) Error // derives an error with message and extra wrapped errors
	Err(err ...error) Error                // derives an error with additional wrapped errors
	SetExpandError(bool) Error             // controls whether ErrorAll includes wrapped errors
	SetStatusCode(int) Error               // sets the HTTP status code
	StatusCode() int                       // returns the HTTP status code
	ErrorAll() string                      // full message including wrapped errors
	UnwrapAll() []error                    // all wrapped errors
}
