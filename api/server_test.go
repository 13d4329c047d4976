package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/evihealth/evi/internal/log"
	"github.com/evihealth/evi/internal/session"
	"github.com/evihealth/evi/internal/tools"
)

// stubModel returns scripted responses in order and errors once the
// script runs out.
type stubModel struct {
	mu        sync.Mutex
	responses []*session.ModelResponse
	calls     int
}

func (m *stubModel) Generate(_ context.Context, _ *session.ModelRequest) (*session.ModelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// steadyModel always answers with the same text; used when a test needs an
// unbounded number of turns.
type steadyModel struct{}

func (steadyModel) Generate(_ context.Context, _ *session.ModelRequest) (*session.ModelResponse, error) {
	return &session.ModelResponse{Text: "ok"}, nil
}

func scripted(texts ...string) *stubModel {
	m := &stubModel{}
	for _, text := range texts {
		m.responses = append(m.responses, &session.ModelResponse{Text: text})
	}
	return m
}

func newTestServer(t *testing.T, model session.Model) (*Server, *session.Store) {
	t.Helper()
	store, err := session.NewStore(session.Config{
		Model:    model,
		Registry: tools.NewRegistry(),
		Logger:   log.NewNop(),
		Limiter:  rate.NewLimiter(rate.Inf, 1),
		Sleep:    func(time.Duration) {},
	})
	require.NoError(t, err)
	return NewServer(store, log.NewNop(), []string{"*"}), store
}

func TestServerRoutes(t *testing.T) {
	srv, _ := newTestServer(t, scripted())
	handler := srv.Handler()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodGet, "/api/chat", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/profile", http.StatusOK},
		{http.MethodGet, "/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			require.Equal(t, tt.status, w.Code)
		})
	}
}

func TestServerRunShutsDownOnCancel(t *testing.T) {
	srv, _ := newTestServer(t, scripted())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
