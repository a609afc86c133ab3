package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type echoDispatcher struct{}

func (echoDispatcher) Handle(_ context.Context, raw json.RawMessage) (json.RawMessage, error) {
	return raw, nil
}

// brokenWriter accepts headers but fails every body write, like a dropped client.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestTriggerHandlers_LogsResponseWriteFailure(t *testing.T) {
	var logs bytes.Buffer
	h := &TriggerHandlers{
		Dispatcher: echoDispatcher{},
		Logger:     slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	w := brokenWriter{httptest.NewRecorder()}

	h.Handle(w, httptest.NewRequest(http.MethodPost, "/v1/triggers", strings.NewReader(`{"triggerSource":"x"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, logs.String(), "trigger response write failed")
	assert.Contains(t, logs.String(), "broken pipe")
}
