package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the chat dispatcher and the HTTP console.
const (
	CodeValidation       = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidCode      = "INVALID_CODE"
	CodeAlreadyRedeemed  = "ALREADY_REDEEMED"
	CodeTicketAnswered   = "TICKET_ANSWERED"
	CodeNoTicketSelected = "NO_TICKET_SELECTED"
	CodeOperatorSender   = "OPERATOR_SENDER"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeConflict         = "CONFLICT"
	CodeTransport        = "TRANSPORT_ERROR"
	CodeStore            = "STORE_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
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
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewInvalidCode reports an unknown reward code.
func NewInvalidCode(code string) error {
	return NewDomainError(CodeInvalidCode, "invalid reward code", http.StatusNotFound, map[string]any{"code": code})
}

// NewAlreadyDone reports an action that was already applied once.
func NewAlreadyDone(code, message string, details map[string]any) error {
	return NewDomainError(code, message, http.StatusConflict, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewForbidden carries no detail about why access was refused.
func NewForbidden() error {
	return NewDomainError(CodeForbidden, "access denied", http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewNoTicketSelected() error {
	return NewDomainError(CodeNoTicketSelected, "no ticket selected", http.StatusConflict, nil)
}

// NewOperatorSender reports an operator trying to open a ticket.
func NewOperatorSender() error {
	return NewDomainError(CodeOperatorSender, "operators cannot open tickets", http.StatusConflict, nil)
}

func NewTransportError(err error) error {
	return &DomainError{
		Code:       CodeTransport,
		Message:    "message delivery failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewStoreError(err error) error {
	return &DomainError{
		Code:       CodeStore,
		Message:    "storage failure",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
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
	if errors.Is(err, sql.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

// IsFailure reports errors that must be surfaced as a generic failure notice
// and logged, as opposed to errors explained to the user.
func IsFailure(err error) bool {
	domainErr := ToDomainError(err)
	if domainErr == nil {
		return false
	}
	switch domainErr.Code {
	case CodeTransport, CodeStore, CodeInternal:
		return true
	}
	return false
}
