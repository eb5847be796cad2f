package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
var New = errors.New

// Error kinds. Every failure that crosses the HTTP boundary is classified as
// exactly one of these.
var (
	ErrAuthentication = errors.New("unauthorized")
	ErrAuthorization  = errors.New("insufficient_permissions")
	ErrForbidden      = errors.New("forbidden")
	ErrValidation     = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrConflict       = errors.New("conflict")
	ErrServerError    = errors.New("server_error")
)

// Descriptions default error description per kind
var Descriptions = map[error]string{
	ErrAuthentication: "Invalid token",
	ErrAuthorization:  "Insufficient permissions",
	ErrForbidden:      "Forbidden",
	ErrValidation:     "The request is missing a required parameter or is otherwise malformed",
	ErrNotFound:       "Resource not found",
	ErrConflict:       "Resource already exists",
	ErrServerError:    "Something went wrong",
}

// StatusCodes response http status code per kind
var StatusCodes = map[error]int{
	ErrAuthentication: http.StatusUnauthorized,
	ErrAuthorization:  http.StatusForbidden,
	ErrForbidden:      http.StatusForbidden,
	ErrValidation:     http.StatusBadRequest,
	ErrNotFound:       http.StatusNotFound,
	ErrConflict:       http.StatusConflict,
	ErrServerError:    http.StatusInternalServerError,
}

// kinds in classification order
var kinds = []error{
	ErrAuthentication,
	ErrAuthorization,
	ErrForbidden,
	ErrValidation,
	ErrNotFound,
	ErrConflict,
	ErrServerError,
}

// Error is a classified failure. Description is safe to show to callers,
// Cause is for server-side logs only.
type Error struct {
	Kind        error
	Description string
	Cause       error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Wrap classifies cause as kind with a caller-safe description.
func Wrap(kind error, description string, cause error) *Error {
	return &Error{Kind: kind, Description: description, Cause: cause}
}

// AuthenticationError no, invalid or expired credential, or an unknown principal
func AuthenticationError(description string) error {
	return &Error{Kind: ErrAuthentication, Description: description}
}

// AuthorizationError known principal without the required permissions or roles
func AuthorizationError(description string) error {
	return &Error{Kind: ErrAuthorization, Description: description}
}

// ForbiddenError known and permitted principal that does not own the resource
func ForbiddenError(description string) error {
	return &Error{Kind: ErrForbidden, Description: description}
}

// ValidationError malformed input
func ValidationError(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Description: fmt.Sprintf(format, args...)}
}

// NotFoundError missing resource
func NotFoundError(description string) error {
	return &Error{Kind: ErrNotFound, Description: description}
}

// ConflictError unique constraint would be violated
func ConflictError(description string) error {
	return &Error{Kind: ErrConflict, Description: description}
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return errors.As(err, target) }

// Response error response
type Response struct {
	Error       error
	Description string
	StatusCode  int
}

// ResponseFor translates err into the response a caller is allowed to see.
// Errors that carry no known kind become a generic server error.
func ResponseFor(err error) Response {
	if err == nil {
		return Response{}
	}
	kind := ErrServerError
	desc := ""
	var e *Error
	if errors.As(err, &e) {
		if _, ok := StatusCodes[e.Kind]; ok {
			kind = e.Kind
			desc = e.Description
		}
	} else {
		for _, k := range kinds {
			if errors.Is(err, k) {
				kind = k
				break
			}
		}
	}
	if desc == "" || kind == ErrServerError {
		desc = Descriptions[kind]
	}
	return Response{
		Error:       kind,
		Description: desc,
		StatusCode:  StatusCodes[kind],
	}
}
