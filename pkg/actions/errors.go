package actions

import (
	"errors"
	"net/http"
)

// Kind classifies an ActionError.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindNotFound     Kind = "NOT_FOUND"
	KindUpstream     Kind = "UPSTREAM_ERROR"
	KindInternal     Kind = "INTERNAL_ERROR"
)

// ActionError is a structured error raised by the dispatch pipeline or a handler.
// Status is the HTTP-style code surfaced in the envelope.
type ActionError struct {
	Kind    Kind        `json:"kind"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Validation reports missing or malformed input.
func Validation(message string) *ActionError {
	return &ActionError{Kind: KindValidation, Message: message, Status: http.StatusBadRequest}
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized() *ActionError {
	return &ActionError{Kind: KindUnauthorized, Message: "Unauthorized", Status: http.StatusUnauthorized}
}

// NotFound reports an unresolved action or resource.
func NotFound(message string, details interface{}) *ActionError {
	return &ActionError{Kind: KindNotFound, Message: message, Status: http.StatusNotFound, Details: details}
}

// Upstream reports a failure of an external service called from a handler.
func Upstream(message string, err error) *ActionError {
	return &ActionError{Kind: KindUpstream, Message: message, Status: http.StatusBadGateway, Err: err}
}

// Internal wraps any other failure.
func Internal(message string, err error) *ActionError {
	return &ActionError{Kind: KindInternal, Message: message, Status: http.StatusInternalServerError, Err: err}
}

// AsActionError unwraps err into an *ActionError when one is present in the chain.
func AsActionError(err error) (*ActionError, bool) {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
