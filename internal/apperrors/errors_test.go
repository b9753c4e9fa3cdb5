package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := Database(cause)

	if !errors.Is(err, cause) {
		t.Error("Database should wrap its cause")
	}
	if err.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", err.StatusCode)
	}

	// The cause shows up in the message for logs.
	if got := err.Error(); got != "database operation failed: connection reset" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsCode(t *testing.T) {
	err := PlanNotFound("abc123")

	if !IsCode(err, CodePlanNotFound) {
		t.Error("IsCode should match the carried code")
	}
	if IsCode(err, CodeUserNotFound) {
		t.Error("IsCode must not match a different code")
	}

	// Matching survives further wrapping.
	wrapped := fmt.Errorf("handling request: %w", err)
	if !IsCode(wrapped, CodePlanNotFound) {
		t.Error("IsCode should unwrap")
	}

	if IsCode(errors.New("plain"), CodePlanNotFound) {
		t.Error("IsCode must be false for non-AppErrors")
	}
	if IsCode(nil, CodePlanNotFound) {
		t.Error("IsCode must be false for nil")
	}
}

func TestConstructorsCarryStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code string
		want int
	}{
		{"not organizer", NotPlanOrganizer(), CodeNotOrganizer, http.StatusForbidden},
		{"not authorized", UserNotAuthorized("u1"), CodeNotAuthorized, http.StatusForbidden},
		{"invite expired", InviteExpired(), CodeInviteExpired, http.StatusForbidden},
		{"activity not found", ActivityNotFound("a1"), CodeActivityNotFound, http.StatusNotFound},
		{"conflict", Conflict("raced"), CodeConflict, http.StatusConflict},
		{"validation", Validation("bad", nil), CodeValidation, http.StatusBadRequest},
		{"unauthorized", Unauthorized("no token"), CodeUnauthorized, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.StatusCode != tt.want {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.want)
			}
		})
	}
}
