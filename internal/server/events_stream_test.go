package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullstate/largeworld/internal/events"
)

// syncRecorder wraps httptest.NewRecorder so a test goroutine can safely poll
// the response body while the handler writes to it from its own goroutine.
type syncRecorder struct {
	mu  sync.Mutex
	rec *httptest.ResponseRecorder
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{rec: httptest.NewRecorder()}
}

func (s *syncRecorder) Header() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Header()
}

func (s *syncRecorder) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Write(b)
}

func (s *syncRecorder) WriteHeader(statusCode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.WriteHeader(statusCode)
}

func (s *syncRecorder) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.Flush()
}

func (s *syncRecorder) body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Body.String()
}

func (s *syncRecorder) code() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Code
}

func TestEventsStreamSendsConnectedMessageThenClosesOnContextDone(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	h := NewEventsStreamHandler(bus, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events/stream", nil).WithContext(ctx)
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(rec.body(), `"type":"connected"`)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after context cancellation")
	}

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestEventsStreamForwardsPublishedEventsMatchingFilter(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	h := NewEventsStreamHandler(bus, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events/stream?types=RUN_STARTED&run_id=run-x", nil).WithContext(ctx)
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(rec.body(), `"type":"connected"`)
	}, 2*time.Second, 10*time.Millisecond)

	bus.Emit(events.PeriodStarted, "engine", "run-x", nil)       // filtered out, not RUN_STARTED
	bus.Emit(events.RunStarted, "engine", "run-other", nil)      // filtered out, wrong run id
	bus.Emit(events.RunStarted, "engine", "run-x", map[string]interface{}{"seed": 1})

	require.Eventually(t, func() bool {
		return strings.Contains(rec.body(), `"type":"RUN_STARTED"`)
	}, 2*time.Second, 10*time.Millisecond)

	assert.NotContains(t, rec.body(), `"type":"PERIOD_STARTED"`)
	assert.NotContains(t, rec.body(), `"run_id":"run-other"`)

	cancel()
	<-done
}

func TestEventsStreamRejectsNonGET(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	h := NewEventsStreamHandler(bus, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/events/stream", nil)
	rec := newSyncRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.code())
}
