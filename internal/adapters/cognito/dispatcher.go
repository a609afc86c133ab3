package cognito

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

// Trigger source prefixes routed by Dispatcher.
const (
	SourcePreSignUp          = "PreSignUp_"
	SourcePreAuthentication  = "PreAuthentication_"
	SourcePostAuthentication = "PostAuthentication_"
	SourcePostConfirmSignUp  = "PostConfirmation_ConfirmSignUp"
	SourceTokenGeneration    = "TokenGeneration_"
)

// ErrMalformedEvent is returned when the payload is not a user pool trigger event.
var ErrMalformedEvent = errors.New("malformed user pool trigger event")

// Linker is the account-linking entry point set a Dispatcher routes to.
// *service.LinkingService implements it.
type Linker interface {
	PreRegistration(ctx context.Context, ev ports.TriggerEvent) (ports.TriggerResult, error)
	PreLogin(ctx context.Context, ev ports.TriggerEvent) (ports.TriggerResult, error)
	PostLogin(ctx context.Context, ev ports.TriggerEvent) ports.TriggerResult
	PostRegistration(ctx context.Context, ev ports.TriggerEvent) (ports.TriggerResult, error)
	TokenGeneration(ctx context.Context, ev ports.TriggerEvent) ports.TriggerResult
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Linker Linker // Required
	Logger *slog.Logger
}

// Dispatcher decodes raw user pool trigger events, routes them by trigger
// source and writes the result back into the event's response.
type Dispatcher struct {
	linker Linker
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. Panics if Linker is nil.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.Linker == nil {
		panic("cognito: Linker is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{linker: opts.Linker, logger: logger.With("component", "trigger_dispatcher")}
}

// envelope is the part of every user pool trigger event the dispatcher reads.
type envelope struct {
	events.CognitoEventUserPoolsHeader
	Request struct {
		UserAttributes map[string]string `json:"userAttributes"`
		ClientMetadata map[string]string `json:"clientMetadata"`
		ValidationData map[string]string `json:"validationData"`
	} `json:"request"`
}

func (e envelope) triggerEvent() ports.TriggerEvent {
	md := make(map[string]string, len(e.Request.ClientMetadata)+len(e.Request.ValidationData))
	for k, v := range e.Request.ValidationData {
		md[k] = v
	}
	for k, v := range e.Request.ClientMetadata {
		md[k] = v
	}
	attrs := e.Request.UserAttributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	return ports.TriggerEvent{
		Source:         e.TriggerSource,
		UserPoolID:     e.UserPoolID,
		Username:       e.UserName,
		Attributes:     attrs,
		ClientMetadata: md,
	}
}

// Handle processes one trigger event and returns the event to hand back to
// Cognito. Blocked attempts return an ErrCodeBlocked AppError whose message is
// shown to the user. Unknown trigger sources are echoed back unchanged.
func (d *Dispatcher) Handle(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, ErrMalformedEvent.Error())
	}
	if env.TriggerSource == "" {
		return nil, apperrors.Wrap(ErrMalformedEvent, apperrors.ErrCodeValidation, "triggerSource is required")
	}

	ev := env.triggerEvent()
	logger := d.logger.With("trigger_source", ev.Source, "user_pool_id", ev.UserPoolID)
	src := ev.Source

	switch {
	case strings.HasPrefix(src, SourcePreSignUp):
		if _, err := d.linker.PreRegistration(ctx, ev); err != nil {
			return nil, err
		}
	case strings.HasPrefix(src, SourcePreAuthentication):
		if _, err := d.linker.PreLogin(ctx, ev); err != nil {
			return nil, err
		}
	case strings.HasPrefix(src, SourcePostAuthentication):
		d.linker.PostLogin(ctx, ev)
	case strings.HasPrefix(src, SourcePostConfirmSignUp):
		if _, err := d.linker.PostRegistration(ctx, ev); err != nil {
			return nil, err
		}
	case strings.HasPrefix(src, SourceTokenGeneration):
		res := d.linker.TokenGeneration(ctx, ev)
		return withTokenClaims(raw, res.Attributes)
	default:
		logger.DebugContext(ctx, "ignoring unhandled trigger source")
	}
	return raw, nil
}

// withTokenClaims sets response.claimsOverrideDetails.claimsToAddOrOverride,
// leaving every other field of the event as received.
func withTokenClaims(raw json.RawMessage, claims map[string]string) (json.RawMessage, error) {
	if len(claims) == 0 {
		return raw, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, ErrMalformedEvent.Error())
	}
	resp, err := json.Marshal(events.CognitoEventUserPoolsPreTokenGenResponse{
		ClaimsOverrideDetails: events.ClaimsOverrideDetails{ClaimsToAddOrOverride: claims},
	})
	if err != nil {
		return nil, fmt.Errorf("encode token claims: %w", err)
	}
	doc["response"] = resp
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode trigger response: %w", err)
	}
	return out, nil
}

// LambdaHandler adapts Handle for lambda.Start. Errors are logged in full and
// reduced to their user-facing message, which Cognito displays verbatim.
func (d *Dispatcher) LambdaHandler() func(context.Context, json.RawMessage) (json.RawMessage, error) {
	return func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
		out, err := d.Handle(ctx, raw)
		if err == nil {
			return out, nil
		}
		if apperrors.IsBlocked(err) {
			d.logger.InfoContext(ctx, "trigger blocked", "error", err)
		} else {
			d.logger.ErrorContext(ctx, "trigger failed", "error", err, "code", apperrors.GetCode(err))
		}
		return nil, errors.New(apperrors.UserMessage(err))
	}
}
