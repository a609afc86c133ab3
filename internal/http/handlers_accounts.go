package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/domain/linking"
	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
)

var errInvalidJSON = errors.New("request body is not valid JSON")

// AccountAdmin is the operator API over stored accounts.
// *service.AccountAdminService implements it.
type AccountAdmin interface {
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	GetByID(ctx context.Context, id string) (*account.Account, error)
	LinkMethod(ctx context.Context, id string, p account.Provider) (*account.Account, error)
}

// DecisionEvaluator runs the linking policy without side effects.
// *service.LinkingService implements it.
type DecisionEvaluator interface {
	Evaluate(ctx context.Context, email string, p account.Provider, phase linking.Phase) (linking.Decision, *account.Account, error)
}

// AccountHandlers serves the read-mostly account endpoints.
type AccountHandlers struct {
	Admin     AccountAdmin
	Evaluator DecisionEvaluator
}

// Lookup handles GET /v1/accounts?email=.
func (h *AccountHandlers) Lookup(w http.ResponseWriter, r *http.Request) {
	acct, err := h.Admin.GetByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, acct)
}

// Get handles GET /v1/accounts/{id}.
func (h *AccountHandlers) Get(w http.ResponseWriter, r *http.Request) {
	acct, err := h.Admin.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, acct)
}

type linkMethodRequest struct {
	Provider string `json:"provider"`
}

// LinkMethod handles POST /v1/accounts/{id}/methods.
func (h *AccountHandlers) LinkMethod(w http.ResponseWriter, r *http.Request) {
	var req linkMethodRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	p, err := account.ParseProvider(req.Provider)
	if err != nil {
		WriteAppError(w, apperrors.ValidationField("provider", err.Error()))
		return
	}
	acct, err := h.Admin.LinkMethod(r.Context(), r.PathValue("id"), p)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, acct)
}

type evaluateRequest struct {
	Email    string `json:"email"`
	Provider string `json:"provider"`
	Phase    string `json:"phase"`
}

type evaluateResponse struct {
	Decision linking.Decision `json:"decision"`
	Account  *account.Account `json:"account,omitempty"`
}

// Evaluate handles POST /v1/decisions, a dry run of the linking policy.
func (h *AccountHandlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	p, err := account.ParseProvider(req.Provider)
	if err != nil {
		WriteAppError(w, apperrors.ValidationField("provider", err.Error()))
		return
	}
	phase, err := linking.ParsePhase(req.Phase)
	if err != nil {
		WriteAppError(w, apperrors.ValidationField("phase", err.Error()))
		return
	}
	d, acct, err := h.Evaluator.Evaluate(r.Context(), req.Email, p, phase)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, evaluateResponse{Decision: d, Account: acct})
}
