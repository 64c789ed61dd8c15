package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investoai/onboarding-api/internal/apperror"
	"github.com/investoai/onboarding-api/internal/handler"
	"github.com/investoai/onboarding-api/internal/model"
	"github.com/investoai/onboarding-api/internal/normalize"
	"github.com/investoai/onboarding-api/internal/service"
)

// MockService lets each test script the service layer per method.
type MockService struct {
	SyncUserFn       func(clerkID, email string) (*model.User, bool, error)
	CheckUserFn      func(clerkID string) (*model.User, error)
	FormStatusFn     func(clerkID string) (bool, error)
	UserStatusFn     func(clerkID string) service.UserStatus
	SubmitFormFn     func(clerkID string, raw normalize.Raw) (*model.FormRecord, error)
	InvestmentDataFn func(clerkID string) (json.RawMessage, error)
}

func (m *MockService) SyncUser(_ context.Context, clerkID, email string) (*model.User, bool, error) {
	return m.SyncUserFn(clerkID, email)
}
func (m *MockService) CheckUser(_ context.Context, clerkID string) (*model.User, error) {
	return m.CheckUserFn(clerkID)
}
func (m *MockService) FormStatus(_ context.Context, clerkID string) (bool, error) {
	return m.FormStatusFn(clerkID)
}
func (m *MockService) UserStatus(_ context.Context, clerkID string) service.UserStatus {
	return m.UserStatusFn(clerkID)
}
func (m *MockService) SubmitForm(_ context.Context, clerkID string, raw normalize.Raw) (*model.FormRecord, error) {
	return m.SubmitFormFn(clerkID, raw)
}
func (m *MockService) InvestmentData(_ context.Context, clerkID string) (json.RawMessage, error) {
	return m.InvestmentDataFn(clerkID)
}

// newTestRouter mounts the handler on the same route table the server uses,
// so path parameters resolve exactly as in production.
func newTestRouter(svc handler.OnboardingService) http.Handler {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	h := handler.NewAPIHandler(svc, logger)

	r := chi.NewRouter()
	r.Get("/test", h.HandleTest)
	r.Get("/investment/{clerkID}", h.HandleInvestment)
	r.Get("/check-user/{clerkID}", h.HandleCheckUser)
	r.Post("/sync-user", h.HandleSyncUser)
	r.Get("/check-form-status/{clerkID}", h.HandleFormStatus)
	r.Get("/check-user-status/{clerkID}", h.HandleUserStatus)
	r.Post("/submit-form", h.HandleSubmitForm)
	r.NotFound(h.HandleNotFound)
	return r
}

func TestHandleTest(t *testing.T) {
	router := newTestRouter(&MockService{})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"API is working"}`, rr.Body.String())
}

func TestHandleInvestment(t *testing.T) {
	t.Run("stored document served verbatim", func(t *testing.T) {
		router := newTestRouter(&MockService{
			InvestmentDataFn: func(clerkID string) (json.RawMessage, error) {
				assert.Equal(t, "user_1", clerkID)
				return json.RawMessage(`{"review_schedule":"quarterly"}`), nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/investment/user_1", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"review_schedule":"quarterly"}`, rr.Body.String())
	})

	t.Run("absent data is 404", func(t *testing.T) {
		router := newTestRouter(&MockService{
			InvestmentDataFn: func(clerkID string) (json.RawMessage, error) {
				return nil, apperror.NotFound("investment data", clerkID)
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/investment/user_1", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		var body handler.ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "not_found", body.Error)
	})
}

func TestHandleCheckUser_UnknownUserIsNotAnError(t *testing.T) {
	router := newTestRouter(&MockService{
		CheckUserFn: func(clerkID string) (*model.User, error) {
			return nil, apperror.NotFound("user", clerkID)
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/check-user/user_nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"exists":false,"user":null}`, rr.Body.String())
}

func TestHandleSyncUser(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router := newTestRouter(&MockService{
			SyncUserFn: func(clerkID, email string) (*model.User, bool, error) {
				return &model.User{ID: "u1", ClerkID: clerkID, Email: email}, false, nil
			},
		})

		body := `{"clerkId":"user_1","email":"jo@example.com"}`
		req := httptest.NewRequest(http.MethodPost, "/sync-user", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, false, resp["exists"])
	})

	t.Run("missing email is 400", func(t *testing.T) {
		called := false
		router := newTestRouter(&MockService{
			SyncUserFn: func(clerkID, email string) (*model.User, bool, error) {
				called = true
				return nil, false, apperror.ValidationFailed("email", "email is required")
			},
		})

		body := `{"clerkId":"user_1"}`
		req := httptest.NewRequest(http.MethodPost, "/sync-user", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.True(t, called, "validation lives in the service, the handler just maps it")
	})

	t.Run("malformed JSON is 400", func(t *testing.T) {
		router := newTestRouter(&MockService{})

		req := httptest.NewRequest(http.MethodPost, "/sync-user", bytes.NewBufferString(`{"clerkId":`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleFormStatus(t *testing.T) {
	router := newTestRouter(&MockService{
		FormStatusFn: func(clerkID string) (bool, error) {
			if clerkID == "user_1" {
				return true, nil
			}
			return false, apperror.NotFound("user", clerkID)
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/check-form-status/user_1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"hasFilledForm":true}`, rr.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/check-form-status/user_2", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleUserStatus_AlwaysOK(t *testing.T) {
	router := newTestRouter(&MockService{
		UserStatusFn: func(clerkID string) service.UserStatus {
			return service.UserStatus{Exists: false, HasFilledForm: false, RedirectTo: "/form"}
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/check-user-status/user_nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"exists":false,"hasFilledForm":false,"redirectTo":"/form"}`, rr.Body.String())
}

func TestHandleSubmitForm(t *testing.T) {
	t.Run("success with null analysis", func(t *testing.T) {
		router := newTestRouter(&MockService{
			SubmitFormFn: func(clerkID string, raw normalize.Raw) (*model.FormRecord, error) {
				assert.Equal(t, "34", raw.Str("age"))
				return &model.FormRecord{
					ID:     "f1",
					UserID: "u1",
					Age:    34,
					// engine was down; record persisted anyway
					AnalysisResult: nil,
				}, nil
			},
		})

		body := `{"clerkId":"user_1","formData":{"age":"34"}}`
		req := httptest.NewRequest(http.MethodPost, "/submit-form", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Success     bool `json:"success"`
			FormDetails struct {
				APIOutJSON json.RawMessage `json:"api_out_json"`
			} `json:"formDetails"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "null", string(resp.FormDetails.APIOutJSON))
	})

	t.Run("unknown user is 404", func(t *testing.T) {
		router := newTestRouter(&MockService{
			SubmitFormFn: func(clerkID string, raw normalize.Raw) (*model.FormRecord, error) {
				return nil, apperror.NotFound("user", clerkID)
			},
		})

		body := `{"clerkId":"user_nope","formData":{}}`
		req := httptest.NewRequest(http.MethodPost, "/submit-form", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("missing fields is 400", func(t *testing.T) {
		router := newTestRouter(&MockService{
			SubmitFormFn: func(clerkID string, raw normalize.Raw) (*model.FormRecord, error) {
				return nil, apperror.ValidationFailed("formData", "formData is required")
			},
		})

		req := httptest.NewRequest(http.MethodPost, "/submit-form", bytes.NewBufferString(`{"clerkId":"user_1"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUnmatchedRoute(t *testing.T) {
	router := newTestRouter(&MockService{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"message":"Not Found"}`, rr.Body.String())
}
