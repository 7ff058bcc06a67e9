package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadlab/engage/internal/contact"
	"github.com/leadlab/engage/internal/engagement"
)

type stubCRM struct{ got []contact.Submission }

func (s *stubCRM) CreateContact(ctx context.Context, sub contact.Submission) error {
	s.got = append(s.got, sub)
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *stubCRM, *engagement.DataLayer) {
	t.Helper()
	crm := &stubCRM{}
	layer := engagement.NewDataLayer()
	mux := SetupRoutes(Handlers{
		Contact: contact.NewHandler(crm, nil),
		Events:  NewEventsHandler(layer),
	})
	return mux, crm, layer
}

func TestHealthRoute(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/submit-contact", nil)
	req.Header.Set("Origin", "https://www.leadlab.io")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestSubmitContactThroughRouter(t *testing.T) {
	mux, crm, _ := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"message": "Tell me about your services.",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submit-contact", bytes.NewReader(body))
	req.Header.Set("Origin", "https://www.leadlab.io")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Contact form submitted successfully", resp.Message)

	require.Len(t, crm.got, 1)
	assert.Equal(t, "jane@example.com", crm.got[0].Email)
}

func TestEventsThroughRouter(t *testing.T) {
	mux, _, layer := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events",
		bytes.NewBufferString(`{"visitor_id":"v-1","event":"nav_click","event_label":"Services"}`))
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 1, layer.Len())
	assert.Equal(t, engagement.EventNavClick, layer.Snapshot()[0].Event)
}

func TestBeaconThroughRouter(t *testing.T) {
	mux, _, layer := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/beacon?visitor_id=v-1&event=scroll_depth", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))
	assert.Equal(t, 1, layer.Len())
}

func TestUnknownRoute(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nothing-here", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
