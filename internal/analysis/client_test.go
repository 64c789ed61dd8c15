package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investoai/onboarding-api/internal/apperror"
	"github.com/investoai/onboarding-api/internal/normalize"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestAnalyze_Success(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"review_schedule":"quarterly"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())
	doc, err := c.Analyze(context.Background(), normalize.Normalize(normalize.Raw{
		"age": "34",
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"review_schedule":"quarterly"}`, string(doc))

	// The engine must receive the strict contract, not the raw form.
	var sent map[string]any
	require.NoError(t, json.Unmarshal(captured, &sent))
	assert.Equal(t, 34.0, sent["age"])
	assert.Contains(t, sent, "existing_debts")
}

func TestAnalyze_Non2xxIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())
	doc, err := c.Analyze(context.Background(), normalize.Submission{})
	assert.Nil(t, doc)
	assert.True(t, errors.Is(err, apperror.ErrUpstream), "got %v", err)
}

func TestAnalyze_TransportFailureIsUpstreamError(t *testing.T) {
	// Point at a server that's already gone.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, testLogger())
	_, err := c.Analyze(context.Background(), normalize.Submission{})
	assert.True(t, errors.Is(err, apperror.ErrUpstream), "got %v", err)
}

func TestAnalyze_InvalidJSONBodyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer srv.Close()

	c := New(srv.URL, testLogger())
	_, err := c.Analyze(context.Background(), normalize.Submission{})
	assert.True(t, errors.Is(err, apperror.ErrUpstream), "got %v", err)
}
