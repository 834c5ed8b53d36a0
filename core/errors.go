package core

import "errors"

var (
	// ErrNotFound is matched by every not-found ClientError.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedMethod is matched by every unsupported-operation ClientError.
	ErrUnsupportedMethod = errors.New("the method sent is not supported")
	// ErrUnknownMethod reports an inbound frame whose method tag is not part of the protocol.
	ErrUnknownMethod = errors.New("unknown method")
)

// ClientErrorKind discriminates dispatch failures that are safe to show to a client.
type ClientErrorKind string

const (
	KindNotFound          ClientErrorKind = "NotFound"
	KindUnsupportedMethod ClientErrorKind = "UnsupportedMethod"
)

// ClientError is a typed dispatch failure. HTTP adapters map the kind to a status
// code; websocket sessions send it back as an error frame.
type ClientError struct {
	Kind    ClientErrorKind `json:"kind"`
	Message string          `json:"message"`
}

func (e *ClientError) Error() string { return e.Message }

// Unwrap lets errors.Is match the kind sentinels.
func (e *ClientError) Unwrap() error {
	switch e.Kind {
	case KindNotFound:
		return ErrNotFound
	case KindUnsupportedMethod:
		return ErrUnsupportedMethod
	default:
		return nil
	}
}

// NewNotFound builds a not-found failure with the given message.
func NewNotFound(message string) *ClientError {
	return &ClientError{Kind: KindNotFound, Message: message}
}

// NewUnsupported builds the failure returned for protocol variants without an implementation.
func NewUnsupported() *ClientError {
	return &ClientError{Kind: KindUnsupportedMethod, Message: "The method sent is not supported"}
}

// AsClientError extracts a ClientError from an error chain.
func AsClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
