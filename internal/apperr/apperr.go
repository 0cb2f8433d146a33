// Package apperr defines the error taxonomy shared by handlers,
// services and the realtime layer. Every failure a client can observe
// maps to a stable machine-readable code plus a human message; clients
// branch on the code, never on the message.
package apperr

import (
	"errors"
	"net/http"
)

const (
	CodeNotFound             = "NOT_FOUND"
	CodeAccessDenied         = "ACCESS_DENIED"
	CodeEditDenied           = "EDIT_DENIED"
	CodeRelationAccessDenied = "RELATION_ACCESS_DENIED"
	CodeAlreadyRelated       = "COMPONENTS_ALREADY_RELATED_TO_NOTE"
	CodeSourceNotPublic      = "SOURCE_NOTE_NOT_PUBLIC"
	CodeInvalidState         = "INVALID_STATE"
	CodeConflict             = "CONFLICT"
	CodeUnauthenticated      = "UNAUTHENTICATED"
	CodeBadRequest           = "BAD_REQUEST"
)

type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message, http.StatusNotFound)
}

// AccessDenied is the visibility failure: the caller may not even see
// the note.
func AccessDenied(message string) *Error {
	return New(CodeAccessDenied, message, http.StatusForbidden)
}

// EditDenied is the editability failure: the caller can view the note
// but may not mutate it. Kept distinct from AccessDenied so clients
// can tell the two apart.
func EditDenied(message string) *Error {
	return New(CodeEditDenied, message, http.StatusForbidden)
}

// RelationAccessDenied fires when an embedded block is unreachable
// because its source note is no longer public.
func RelationAccessDenied(message string) *Error {
	return New(CodeRelationAccessDenied, message, http.StatusBadRequest)
}

func AlreadyRelated(message string) *Error {
	return New(CodeAlreadyRelated, message, http.StatusBadRequest)
}

func SourceNotPublic(message string) *Error {
	return New(CodeSourceNotPublic, message, http.StatusBadRequest)
}

func InvalidState(message string) *Error {
	return New(CodeInvalidState, message, http.StatusBadRequest)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message, http.StatusConflict)
}

func Unauthenticated(message string) *Error {
	return New(CodeUnauthenticated, message, http.StatusUnauthorized)
}

func BadRequest(message string) *Error {
	return New(CodeBadRequest, message, http.StatusBadRequest)
}

// From extracts an *Error if err carries one.
func From(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusOf resolves the HTTP status for any error; unrecognized errors
// are treated as internal faults.
func StatusOf(err error) int {
	if appErr, ok := From(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
