package util

import (
	"errors"
	"fmt"
)

// Error codes for the ticket workflow.
const (
	CodeRateLimited        = "RATE_LIMITED"
	CodeAlreadyActive      = "ALREADY_ACTIVE"
	CodeNotAuthorized      = "NOT_AUTHORIZED"
	CodeNotATicketChannel  = "NOT_A_TICKET_CHANNEL"
	CodeNotFound           = "NOT_FOUND"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeExternalCallFailed = "EXTERNAL_CALL_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// DomainError standardizes application errors. Message is safe to show to
// the end user; Err carries the underlying cause for logs.
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, Details: details}
}

func NewRateLimited(message string, details map[string]any) error {
	return NewDomainError(CodeRateLimited, message, details)
}

func NewAlreadyActive(message string, details map[string]any) error {
	return NewDomainError(CodeAlreadyActive, message, details)
}

func NewNotAuthorized(message string) error {
	return NewDomainError(CodeNotAuthorized, message, nil)
}

func NewNotATicketChannel(message string) error {
	return NewDomainError(CodeNotATicketChannel, message, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: details,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, details)
}

func NewExternalCallFailed(message string, err error) error {
	return &DomainError{
		Code:    CodeExternalCallFailed,
		Message: message,
		Err:     err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:    CodeInternalError,
		Message: "something went wrong handling your request",
		Err:     err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:    CodeInternalError,
		Message: "something went wrong handling your request",
		Err:     err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
