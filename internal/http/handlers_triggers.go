package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
)

// TriggerDispatcher processes a raw user pool trigger event.
// *cognito.Dispatcher implements it.
type TriggerDispatcher interface {
	Handle(ctx context.Context, raw json.RawMessage) (json.RawMessage, error)
}

// TriggerHandlers serves the trigger endpoint, which accepts the same payload
// Cognito sends to a Lambda trigger and returns the event to hand back.
type TriggerHandlers struct {
	Dispatcher TriggerDispatcher
	Logger     *slog.Logger
}

// Handle processes POST /v1/triggers.
func (h *TriggerHandlers) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_body", Err: err})
		return
	}
	if !json.Valid(body) {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: errInvalidJSON})
		return
	}

	out, err := h.Dispatcher.Handle(r.Context(), body)
	if err != nil {
		h.logErr(r, err)
		WriteAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		h.log().DebugContext(r.Context(), "trigger response write failed",
			"error", err, "request_id", RequestIDFromContext(r.Context()))
	}
}

func (h *TriggerHandlers) log() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *TriggerHandlers) logErr(r *http.Request, err error) {
	logger := h.log()
	attrs := []any{"error", err, "code", apperrors.GetCode(err), "request_id", RequestIDFromContext(r.Context())}
	if apperrors.IsBlocked(err) || apperrors.IsValidation(err) {
		logger.InfoContext(r.Context(), "trigger rejected", attrs...)
		return
	}
	logger.ErrorContext(r.Context(), "trigger failed", attrs...)
}
