package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/miwamasa/smolagentUIWrapper/storage"
)

func TestHandleTranscript_RejectsBadRequests(t *testing.T) {
	store := storage.NewTranscriptStore(nil, 0, zap.NewNop())

	rec := httptest.NewRecorder()
	HandleTranscript(rec, httptest.NewRequest(http.MethodPost, "/transcript?session_id=s1", nil), store)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	HandleTranscript(rec, httptest.NewRequest(http.MethodGet, "/transcript", nil), store)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No redis configured: the endpoint reports itself unavailable.
	rec = httptest.NewRecorder()
	HandleTranscript(rec, httptest.NewRequest(http.MethodGet, "/transcript?session_id=s1", nil), store)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
