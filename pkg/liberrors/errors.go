// Package liberrors contains errors returned by the library.
package liberrors

import (
	"fmt"
)

// ErrServerClosed is returned by operations performed after Close().
type ErrServerClosed struct{}

// Error implements the error interface.
func (e ErrServerClosed) Error() string {
	return "server is closed"
}

// ErrConfInvalid is a configuration error detected at load time.
type ErrConfInvalid struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrConfInvalid) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// ErrConfDuplicatePath is returned when two streams share a mount path.
type ErrConfDuplicatePath struct {
	Path string
}

// Error implements the error interface.
func (e ErrConfDuplicatePath) Error() string {
	return fmt.Sprintf("duplicate mount path: %s", e.Path)
}

// ErrConfUnsupportedCodec is returned when a stream declares a codec
// the server cannot instantiate.
type ErrConfUnsupportedCodec struct {
	Path  string
	Codec string
}

// Error implements the error interface.
func (e ErrConfUnsupportedCodec) Error() string {
	return fmt.Sprintf("unsupported codec %q on mount path %s", e.Codec, e.Path)
}

// ErrStreamNotFound is returned when a mount path is not registered.
type ErrStreamNotFound struct {
	Path string
}

// Error implements the error interface.
func (e ErrStreamNotFound) Error() string {
	return fmt.Sprintf("stream not found: %s", e.Path)
}

// ErrSessionNotFound is returned when a session id is unknown.
type ErrSessionNotFound struct {
	ID string
}

// Error implements the error interface.
func (e ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session not found: %s", e.ID)
}

// ErrStreamInUse is returned when a session requests a non-shared
// stream that is already bound to another session.
type ErrStreamInUse struct {
	Path string
}

// Error implements the error interface.
func (e ErrStreamInUse) Error() string {
	return fmt.Sprintf("stream is not shared and already in use: %s", e.Path)
}

// ErrInvalidState is returned when a session command is received
// in a state that does not allow it.
type ErrInvalidState struct {
	AllowedList []fmt.Stringer
	State       fmt.Stringer
}

// Error implements the error interface.
func (e ErrInvalidState) Error() string {
	return fmt.Sprintf("must be in state %v, while is in state %v",
		e.AllowedList, e.State)
}

// ErrSourceUnavailable is returned when a frame source cannot produce
// frames anymore. It is scoped to one stream.
type ErrSourceUnavailable struct {
	Path    string
	Wrapped error
}

// Error implements the error interface.
func (e ErrSourceUnavailable) Error() string {
	return fmt.Sprintf("source unavailable on %s: %v", e.Path, e.Wrapped)
}

// Unwrap returns the wrapped error.
func (e ErrSourceUnavailable) Unwrap() error {
	return e.Wrapped
}

// ErrEncoderInit is returned when an encoder stage cannot be created.
// It is scoped to one stream.
type ErrEncoderInit struct {
	Codec   string
	Wrapped error
}

// Error implements the error interface.
func (e ErrEncoderInit) Error() string {
	return fmt.Sprintf("encoder initialization failed (%s): %v", e.Codec, e.Wrapped)
}

// Unwrap returns the wrapped error.
func (e ErrEncoderInit) Unwrap() error {
	return e.Wrapped
}

// ErrTransportFailure is returned when writing to a session transport
// fails. It tears down the owning session only.
type ErrTransportFailure struct {
	Wrapped error
}

// Error implements the error interface.
func (e ErrTransportFailure) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Wrapped)
}

// Unwrap returns the wrapped error.
func (e ErrTransportFailure) Unwrap() error {
	return e.Wrapped
}
