package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden means the service refused the caller's authorization.
	ErrForbidden = errors.New("forbidden")
	// ErrUnexpectedResponse covers bodies and statuses the client cannot interpret.
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// MessageResponse is the body the service sends with confirmations and
// validation errors.
type MessageResponse struct {
	Message string `json:"message"`
}

// ServiceError carries a structured error message from the service. The
// message is meant to be shown to the user as is.
type ServiceError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: service returned %d: %s", e.Op, e.StatusCode, e.Message)
}

// TransportError wraps network failures and undecodable responses.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
