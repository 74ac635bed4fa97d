// Package httpapi exposes the manual trigger and operational endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"MarketPulse/internal/domain"
	"MarketPulse/internal/notify"
	"MarketPulse/internal/ports"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/logger"
)

// Notifications is the part of the notification gate the API reports on.
type Notifications interface {
	Status() domain.NotificationStatus
	SendTest(ctx context.Context) error
}

// Server holds the handlers' dependencies.
type Server struct {
	queue         ports.TaskQueue
	notifications Notifications
	logger        *slog.Logger
}

// NewServer builds the API server.
func NewServer(queue ports.TaskQueue, notifications Notifications, log *slog.Logger) *Server {
	return &Server{
		queue:         queue,
		notifications: notifications,
		logger:        logger.OrDiscard(log).With("component", "httpapi"),
	}
}

// Routes returns the chi router with every endpoint mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/scrape", s.handleScrape)
		r.Get("/notifications/status", s.handleNotificationStatus)
		r.Post("/notifications/test", s.handleNotificationTest)
	})
	return r
}

// ListenAndServe serves addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      45 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server shutdown", "err", err)
		return err
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

type scrapeResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

type notificationResponse struct {
	Status       string                     `json:"status"`
	Message      string                     `json:"message,omitempty"`
	ConfigStatus *domain.NotificationStatus `json:"config_status,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "MarketPulse API is running",
	})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, err := usecase.Trigger(ctx, s.queue, domain.TaskScrape)
	if err != nil {
		s.logger.Error("scrape not queued", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to start scraping job: " + err.Error()})
		return
	}

	s.logger.Info("scrape queued", "task_id", task.ID)
	writeJSON(w, http.StatusAccepted, scrapeResponse{
		Message: "Scraping job started successfully",
		TaskID:  task.ID,
	})
}

func (s *Server) handleNotificationStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.notifications.Status()
	writeJSON(w, http.StatusOK, notificationResponse{Status: "success", ConfigStatus: &status})
}

func (s *Server) handleNotificationTest(w http.ResponseWriter, r *http.Request) {
	status := s.notifications.Status()

	err := s.notifications.SendTest(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, notificationResponse{
			Status:       "success",
			Message:      "Test email sent successfully",
			ConfigStatus: &status,
		})
	case errors.Is(err, notify.ErrConfigurationIncomplete):
		writeJSON(w, http.StatusBadRequest, notificationResponse{
			Status:       "error",
			Message:      "Email configuration incomplete",
			ConfigStatus: &status,
		})
	default:
		s.logger.Error("test email failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, notificationResponse{
			Status:       "error",
			Message:      "Failed to send test email",
			ConfigStatus: &status,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
