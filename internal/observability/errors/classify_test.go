package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
)

type stubErr struct{}

func (*stubErr) Error() string { return "stub" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"app transport", fmt.Errorf("x: %w", apperrors.Transport(errors.New("boom"), "query")), "transport"},
		{"app blocked", apperrors.Blocked(errors.New("no")), "blocked"},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{
			"aws api error",
			fmt.Errorf("link: %w", &smithy.GenericAPIError{Code: "TooManyRequestsException", Message: "slow down"}),
			"aws_too_many_requests_exception",
		},
		{"concrete type", fmt.Errorf("wrap: %w", &stubErr{}), "errors_stuberr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
