package errors

import (
	"errors"
	"fmt"
	"testing"
)

type policyErr struct{ msg string }

func (e *policyErr) Error() string { return e.msg }

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "resource not found"},
			want: "resource not found",
		},
		{
			name: "error with cause",
			err:  &AppError{Code: ErrCodeTransport, Message: "query accounts", Cause: errors.New("dial tcp: refused")},
			want: "query accounts: dial tcp: refused",
		},
		{
			name: "blocked shows only the reason",
			err:  Blocked(&policyErr{msg: "Please sign in with Google."}),
			want: "Please sign in with Google.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBlocked_KeepsCauseReachable(t *testing.T) {
	cause := &policyErr{msg: "nope"}
	err := fmt.Errorf("pre-login: %w", Blocked(cause))

	if !IsBlocked(err) {
		t.Fatalf("IsBlocked() = false, want true")
	}
	var pe *policyErr
	if !errors.As(err, &pe) || pe != cause {
		t.Fatalf("errors.As did not reach the policy error")
	}
	if Blocked(nil) != nil {
		t.Fatalf("Blocked(nil) should be nil")
	}
}

func TestTransport(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transportf(cause, "find account by email %s", "a@b.c")
	if !IsTransport(err) {
		t.Fatalf("IsTransport() = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not preserved")
	}
	if !err.Retryable() {
		t.Fatalf("transport errors should be retryable")
	}
	if Transport(nil, "op") != nil {
		t.Fatalf("Transport(nil) should be nil")
	}
	if !IsTransport(&AppError{Code: ErrCodeTimeout}) {
		t.Fatalf("timeouts count as transport")
	}
}

func TestRetryable(t *testing.T) {
	if Blocked(errors.New("x")).Retryable() {
		t.Errorf("blocks must not be retryable")
	}
	if Validation("bad").Retryable() {
		t.Errorf("validation must not be retryable")
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("email", "email is required")
	if err.Code != ErrCodeValidation || err.Field != "email" {
		t.Errorf("unexpected error: %+v", err)
	}
}

func TestWrap_NilError(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Errorf("Wrap(nil) should return nil")
	}
	if Wrapf(nil, ErrCodeInternal, "x %d", 1) != nil {
		t.Errorf("Wrapf(nil) should return nil")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"app error", NotFound("x"), ErrCodeNotFound},
		{"wrapped app error", fmt.Errorf("ctx: %w", Conflict("x")), ErrCodeConflict},
		{"plain error", errors.New("x"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"blocked", Blocked(errors.New("Please sign in with Google.")), "Please sign in with Google."},
		{"validation", Validation("email is required"), "email is required"},
		{"not found", Wrap(errors.New("no rows"), ErrCodeNotFound, "account not found"), "account not found"},
		{"transport", Transport(errors.New("boom"), "query"), "Sign-in is temporarily unavailable. Please try again."},
		{"plain", errors.New("secret detail"), "An unexpected error occurred."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
