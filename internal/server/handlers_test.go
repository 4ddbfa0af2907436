package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullstate/largeworld/internal/config"
	"github.com/nullstate/largeworld/internal/events"
	"github.com/nullstate/largeworld/internal/stats"
)

func withRunIDParam(req *http.Request, runID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("runID", runID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandleSubmitRejectsEmptyBody(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	cfg := &config.ServiceConfig{DataDir: t.TempDir()}
	h := NewRunHandlers(bus, cfg, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	h.HandleSubmit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSubmitRejectsInvalidConfiguration(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	cfg := &config.ServiceConfig{DataDir: t.TempDir()}
	h := NewRunHandlers(bus, cfg, zerolog.Nop())

	body, _ := json.Marshal(submitRequest{InputBody: "not a valid input line"})
	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	h.HandleSubmit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSubmitAcceptsValidConfigurationAndStartsRun(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	cfg := &config.ServiceConfig{DataDir: t.TempDir()}
	h := NewRunHandlers(bus, cfg, zerolog.Nop())

	completed := make(chan struct{}, 1)
	bus.Subscribe(events.RunCompleted, func(e *events.Event) {
		select {
		case completed <- struct{}{}:
		default:
		}
	})

	input := "N:6\nS:4\nE:10\nK:2\nr:2\nnum_periods:2\ni:4\n"
	body, _ := json.Marshal(submitRequest{InputBody: input})
	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	h.HandleSubmit(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Contains(t, resp.DBPath, resp.RunID)

	select {
	case <-completed:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not complete in time")
	}
}

func TestHandleStatsReturns404ForUnknownRun(t *testing.T) {
	cfg := &config.ServiceConfig{DataDir: t.TempDir()}
	h := NewRunHandlers(events.NewBus(zerolog.Nop()), cfg, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/runs/does-not-exist/stats", nil)
	req = withRunIDParam(req, "does-not-exist")
	rec := httptest.NewRecorder()
	h.HandleStats(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStatsReturnsSummaryForCompletedRun(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	cfg := &config.ServiceConfig{DataDir: t.TempDir()}
	h := NewRunHandlers(bus, cfg, zerolog.Nop())

	completed := make(chan struct{}, 1)
	bus.Subscribe(events.RunCompleted, func(e *events.Event) {
		select {
		case completed <- struct{}{}:
		default:
		}
	})

	input := "N:6\nS:4\nE:10\nK:2\nr:2\nnum_periods:1\ni:3\n"
	body, _ := json.Marshal(submitRequest{InputBody: input})
	submitReq := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewBuffer(body))
	submitRec := httptest.NewRecorder()
	h.HandleSubmit(submitRec, submitReq)
	require.Equal(t, http.StatusAccepted, submitRec.Code)

	var resp submitResponse
	require.NoError(t, json.Unmarshal(submitRec.Body.Bytes(), &resp))

	select {
	case <-completed:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not complete in time")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.RunID+"/stats", nil)
	req = withRunIDParam(req, resp.RunID)
	rec := httptest.NewRecorder()
	h.HandleStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var summary stats.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, resp.RunID, summary.RunID)
}
