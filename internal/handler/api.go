package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/investoai/onboarding-api/internal/model"
	"github.com/investoai/onboarding-api/internal/normalize"
	"github.com/investoai/onboarding-api/internal/service"
)

// OnboardingService is what the handlers need from the service layer.
// Declared here (consumer side) so tests can substitute a mock.
type OnboardingService interface {
	SyncUser(ctx context.Context, clerkID, email string) (*model.User, bool, error)
	CheckUser(ctx context.Context, clerkID string) (*model.User, error)
	FormStatus(ctx context.Context, clerkID string) (bool, error)
	UserStatus(ctx context.Context, clerkID string) service.UserStatus
	SubmitForm(ctx context.Context, clerkID string, raw normalize.Raw) (*model.FormRecord, error)
	InvestmentData(ctx context.Context, clerkID string) (json.RawMessage, error)
}

// APIHandler translates the onboarding HTTP boundary to service calls.
type APIHandler struct {
	svc    OnboardingService
	logger *slog.Logger
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(svc OnboardingService, logger *slog.Logger) *APIHandler {
	return &APIHandler{svc: svc, logger: logger}
}

// HandleTest is the health probe.
//
// HTTP: GET /test
func (h *APIHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API is working"})
}

// HandleInvestment serves the stored analysis document.
//
// HTTP: GET /investment/{clerkID}
// 404 when the user, their record, or a successful analysis is absent.
func (h *APIHandler) HandleInvestment(w http.ResponseWriter, r *http.Request) {
	clerkID := chi.URLParam(r, "clerkID")

	doc, err := h.svc.InvestmentData(r.Context(), clerkID)
	if err != nil {
		writeError(w, err)
		return
	}

	// The document goes out verbatim — it was stored exactly as the engine
	// produced it.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// HandleCheckUser reports whether a user row exists.
//
// HTTP: GET /check-user/{clerkID}
// Always 200 — an unknown user is {"exists":false,"user":null}, not an error.
func (h *APIHandler) HandleCheckUser(w http.ResponseWriter, r *http.Request) {
	clerkID := chi.URLParam(r, "clerkID")

	user, err := h.svc.CheckUser(r.Context(), clerkID)
	if err != nil {
		if isNotFound(err) {
			writeJSON(w, http.StatusOK, map[string]any{"exists": false, "user": nil})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"exists": true, "user": user})
}

type syncUserRequest struct {
	ClerkID string `json:"clerkId"`
	Email   string `json:"email"`
}

// HandleSyncUser finds or creates the user row for a signed-in identity.
//
// HTTP: POST /sync-user {"clerkId":..., "email":...}
// 400 when either field is missing — and no row is created.
func (h *APIHandler) HandleSyncUser(w http.ResponseWriter, r *http.Request) {
	var req syncUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid sync-user JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	user, existed, err := h.svc.SyncUser(r.Context(), req.ClerkID, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"exists":  existed,
		"user":    user,
	})
}

// HandleFormStatus reports whether the user completed the questionnaire.
//
// HTTP: GET /check-form-status/{clerkID}
// 404 for an unknown user.
func (h *APIHandler) HandleFormStatus(w http.ResponseWriter, r *http.Request) {
	clerkID := chi.URLParam(r, "clerkID")

	has, err := h.svc.FormStatus(r.Context(), clerkID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"hasFilledForm": has})
}

// HandleUserStatus drives the post-sign-in redirect.
//
// HTTP: GET /check-user-status/{clerkID}
// Always 200 — the service degrades internal failures to redirectTo "/".
func (h *APIHandler) HandleUserStatus(w http.ResponseWriter, r *http.Request) {
	clerkID := chi.URLParam(r, "clerkID")
	writeJSON(w, http.StatusOK, h.svc.UserStatus(r.Context(), clerkID))
}

type submitFormRequest struct {
	ClerkID  string        `json:"clerkId"`
	FormData normalize.Raw `json:"formData"`
}

// HandleSubmitForm runs the submission pipeline.
//
// HTTP: POST /submit-form {"clerkId":..., "formData":{...}}
// 400 missing fields, 404 unknown user, otherwise 200 with the persisted
// record — whose api_out_json is null when the analysis engine was down.
func (h *APIHandler) HandleSubmitForm(w http.ResponseWriter, r *http.Request) {
	var req submitFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid submit-form JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	record, err := h.svc.SubmitForm(r.Context(), req.ClerkID, req.FormData)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"formDetails": record,
	})
}

// HandleNotFound is the fallback for unmatched routes.
func (h *APIHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
}
