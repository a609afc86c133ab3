package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/aws/smithy-go"

	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
)

// Classify returns a low-cardinality error class for metric labels and log fields.
//
// Order: application error code, context expiry, AWS API error code
// (e.g. "aws_too_many_requests_exception"), then the innermost concrete type name.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case apperrors.GetCode(err) != "":
		return string(apperrors.GetCode(err))
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	}

	var apiErr smithy.APIError
	if goerrors.As(err, &apiErr) && apiErr.ErrorCode() != "" {
		return "aws_" + snake(apiErr.ErrorCode())
	}

	return typeName(innermost(err))
}

func innermost(err error) error {
	for {
		next := goerrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.String() == "" {
		return "unknown"
	}
	return strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
}

// snake converts CamelCase API codes to snake_case.
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
