package dynamo

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"

	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
)

// mapErr classifies SDK failures. Throttling, service faults and network
// errors become transport errors so callers can retry the trigger.
func mapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, op)
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.ErrCodeCanceled, op)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException", "ValidationException", "AccessDeniedException",
			"UnrecognizedClientException":
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, op)
		}
		if apiErr.ErrorFault() == smithy.FaultClient && !throttled(apiErr.ErrorCode()) {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, op)
		}
	}
	return apperrors.Transport(err, op)
}

func throttled(code string) bool {
	switch code {
	case "ProvisionedThroughputExceededException", "ThrottlingException",
		"RequestLimitExceeded", "TransactionConflictException", "TransactionInProgressException",
		"TransactionCanceledException":
		return true
	}
	return false
}
