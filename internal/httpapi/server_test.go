package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/domain"
	"MarketPulse/internal/infrastructure/queue"
	"MarketPulse/internal/notify"
	"MarketPulse/internal/ports"
)

type fakeNotifications struct {
	status  domain.NotificationStatus
	testErr error
	tests   int
}

func (f *fakeNotifications) Status() domain.NotificationStatus { return f.status }

func (f *fakeNotifications) SendTest(context.Context) error {
	f.tests++
	return f.testErr
}

type closedQueue struct{ ports.TaskQueue }

func (closedQueue) Enqueue(context.Context, domain.Task) error { return queue.ErrClosed }

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	srv := NewServer(queue.NewChannelQueue(1), &fakeNotifications{}, nil)

	rec, body := do(t, srv.Routes(), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestScrapeEnqueuesTask(t *testing.T) {
	q := queue.NewChannelQueue(1)
	srv := NewServer(q, &fakeNotifications{}, nil)

	rec, body := do(t, srv.Routes(), http.MethodPost, "/api/scrape")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "Scraping job started successfully", body["message"])

	require.NoError(t, q.Close())
	var queued []domain.Task
	require.NoError(t, q.Consume(context.Background(), func(_ context.Context, task domain.Task) domain.Outcome {
		queued = append(queued, task)
		return domain.Outcome{}
	}))
	require.Len(t, queued, 1)
	assert.Equal(t, domain.TaskScrape, queued[0].Kind)
	assert.Equal(t, queued[0].ID, body["task_id"])
}

func TestScrapeEnqueueFailure(t *testing.T) {
	srv := NewServer(closedQueue{}, &fakeNotifications{}, nil)

	rec, body := do(t, srv.Routes(), http.MethodPost, "/api/scrape")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["error"], "Failed to start scraping job")
}

func TestScrapeRequiresPost(t *testing.T) {
	srv := NewServer(queue.NewChannelQueue(1), &fakeNotifications{}, nil)

	rec, _ := do(t, srv.Routes(), http.MethodGet, "/api/scrape")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNotificationStatus(t *testing.T) {
	n := &fakeNotifications{status: domain.NotificationStatus{Enabled: true, RecipientsCount: 2, ConfidenceThreshold: 0.7}}
	srv := NewServer(queue.NewChannelQueue(1), n, nil)

	rec, body := do(t, srv.Routes(), http.MethodGet, "/api/notifications/status")
	require.Equal(t, http.StatusOK, rec.Code)
	cfg, ok := body["config_status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2.0, cfg["recipients_count"])
	assert.Equal(t, 0.7, cfg["confidence_threshold"])
}

func TestNotificationTest(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"sent", nil, http.StatusOK, "Test email sent successfully"},
		{"incomplete", notify.ErrConfigurationIncomplete, http.StatusBadRequest, "Email configuration incomplete"},
		{"transport error", errors.New("status 401"), http.StatusInternalServerError, "Failed to send test email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &fakeNotifications{testErr: tt.err}
			srv := NewServer(queue.NewChannelQueue(1), n, nil)

			rec, body := do(t, srv.Routes(), http.MethodPost, "/api/notifications/test")
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, 1, n.tests)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(queue.NewChannelQueue(1), &fakeNotifications{}, nil)

	rec, _ := do(t, srv.Routes(), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
