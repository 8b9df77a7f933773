// Package apperr defines the domain error taxonomy surfaced by the API.
// Services return *Error values for expected failures; anything else is
// treated as an internal error by the HTTP layer.
package apperr

import "errors"

type Error struct {
	Status  int                    `json:"-"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// As unwraps err into *Error, or returns nil if err is not a domain error.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func NotFound(resource string) *Error {
	return &Error{Status: 404, Code: "NOT_FOUND", Message: resource + " not found"}
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "Access forbidden"
	}
	return &Error{Status: 403, Code: "FORBIDDEN", Message: message}
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "Unauthorized access"
	}
	return &Error{Status: 401, Code: "UNAUTHORIZED", Message: message}
}

// QuotaExceeded carries used/limit style details so clients can render
// "N remaining" and distinguish the response from hard errors.
func QuotaExceeded(message string, details map[string]interface{}) *Error {
	return &Error{Status: 429, Code: "QUOTA_EXCEEDED", Message: message, Details: details}
}

func BadRequest(message string) *Error {
	return &Error{Status: 400, Code: "BAD_REQUEST", Message: message}
}

func Validation(message string) *Error {
	return &Error{Status: 400, Code: "VALIDATION_ERROR", Message: message}
}

func Conflict(message string) *Error {
	return &Error{Status: 409, Code: "CONFLICT", Message: message}
}

func PaymentFailed(message string) *Error {
	return &Error{Status: 402, Code: "PAYMENT_FAILED", Message: message}
}
