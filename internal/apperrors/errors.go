package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a domain error with a stable machine-readable code.
// StatusCode is a hint for the HTTP boundary; the core never writes
// wire responses itself.
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap exposes the internal cause for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// WithDetails attaches structured details to the error.
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Error codes shared with API clients.
const (
	CodeAppError         = "app_error"
	CodeNotFound         = "not_found"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeValidation       = "validation_error"
	CodeDatabase         = "database_error"
	CodeConflict         = "conflict"
	CodePlanNotFound     = "plan_not_found"
	CodeActivityNotFound = "activity_not_found"
	CodeInviteNotFound   = "invite_not_found"
	CodeUserNotFound     = "user_not_found"
	CodeNotOrganizer     = "not_plan_organizer"
	CodeNotAuthorized    = "user_not_authorized"
	CodeInviteExpired    = "invite_expired"
)

// New creates an AppError with an explicit code and status.
func New(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

// Wrap attaches an underlying cause to a new AppError.
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode, Internal: err}
}

// Unauthorized means the caller could not be identified at all.
func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

// Validation reports malformed or out-of-range input. Details should
// list every rejected field, not just the first one.
func Validation(message string, details interface{}) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// Database wraps a persistence layer failure. The raw cause is kept as
// detail and never leaked to clients directly.
func Database(err error) *AppError {
	return Wrap(err, CodeDatabase, "database operation failed", http.StatusInternalServerError)
}

// Conflict reports a concurrent-modification conflict that survived retries.
func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

// --- Domain-specific constructors ---

func PlanNotFound(planID string) *AppError {
	return New(CodePlanNotFound, fmt.Sprintf("plan %q not found", planID), http.StatusNotFound).
		WithDetails(map[string]string{"plan_id": planID})
}

func ActivityNotFound(activityID string) *AppError {
	return New(CodeActivityNotFound, fmt.Sprintf("activity %q not found", activityID), http.StatusNotFound).
		WithDetails(map[string]string{"activity_id": activityID})
}

func InviteNotFound(inviteID string) *AppError {
	return New(CodeInviteNotFound, fmt.Sprintf("invitation %q not found", inviteID), http.StatusNotFound).
		WithDetails(map[string]string{"invite_id": inviteID})
}

func UserNotFound(userID string) *AppError {
	return New(CodeUserNotFound, fmt.Sprintf("user %q not found", userID), http.StatusNotFound).
		WithDetails(map[string]string{"user_id": userID})
}

// NotPlanOrganizer means the action is reserved for the plan's organizer.
func NotPlanOrganizer() *AppError {
	return New(CodeNotOrganizer, "only the organizer of the plan can perform this action", http.StatusForbidden)
}

// UserNotAuthorized means the caller holds no role on the plan that
// permits the action.
func UserNotAuthorized(userID string) *AppError {
	return New(CodeNotAuthorized, fmt.Sprintf("user %q is not authorized to perform this action", userID), http.StatusForbidden).
		WithDetails(map[string]string{"user_id": userID})
}

func InviteExpired() *AppError {
	return New(CodeInviteExpired, "this invitation link has expired", http.StatusForbidden)
}

// IsCode reports whether err is (or wraps) an *AppError carrying the
// given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
