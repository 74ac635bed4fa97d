// Package notify decides when an enriched article deserves an alert and
// delivers it through the mail transport.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"time"

	htmltemplate "html/template"

	"MarketPulse/internal/config"
	"MarketPulse/internal/domain"
	"MarketPulse/internal/metrics"
	"MarketPulse/internal/ports"
	"MarketPulse/pkg/logger"
)

const (
	subjectPrefix     = "🚨 High-Confidence Investment Alert: "
	subjectTitleLimit = 50
	testSubject       = "MarketPulse - Email Configuration Test"
	testBody          = "This is a test email to verify your email configuration is working correctly."
	publishedLayout   = "2006-01-02 15:04 UTC"
)

// ErrConfigurationIncomplete is returned by SendTest when the gate cannot send.
var ErrConfigurationIncomplete = errors.New("email configuration incomplete")

// Gate filters enriched articles by confidence and dispatches alerts.
type Gate struct {
	enabled    bool
	recipients []string
	from       string
	threshold  float64
	transport  ports.MailTransport
	logger     *slog.Logger
}

// NewGate builds a gate. A nil transport keeps the gate evaluating but every
// dispatch fails.
func NewGate(cfg config.NotificationConfig, transport ports.MailTransport, log *slog.Logger) *Gate {
	g := &Gate{
		enabled:    cfg.Enabled,
		recipients: slices.Clone(cfg.Recipients),
		from:       cfg.From,
		threshold:  cfg.Threshold,
		transport:  transport,
		logger:     logger.OrDiscard(log).With("component", "notify"),
	}
	g.logger.Info("notification gate configured",
		"enabled", g.enabled,
		"recipients", len(g.recipients),
		"from_set", g.from != "",
		"transport_set", transport != nil,
		"threshold", g.threshold,
	)
	return g
}

// ShouldNotify reports whether a score clears the configured gate.
func (g *Gate) ShouldNotify(score *float64) bool {
	switch {
	case !g.enabled:
		g.logger.Debug("notification skipped", "reason", "disabled")
		return false
	case len(g.recipients) == 0 || g.from == "":
		g.logger.Warn("notification skipped", "reason", "recipients or sender missing")
		return false
	case score == nil:
		g.logger.Debug("notification skipped", "reason", "no confidence score")
		return false
	case *score < g.threshold:
		g.logger.Debug("notification skipped", "reason", "below threshold", "score", *score, "threshold", g.threshold)
		return false
	default:
		return true
	}
}

// Render fills the alert templates for an article.
func (g *Gate) Render(article domain.Article) (domain.Alert, error) {
	var score float64
	if article.ConfidenceScore != nil {
		score = *article.ConfidenceScore
	}
	percentage := math.Round(score*1000) / 10
	t := tierFor(percentage)

	view := alertView{
		Title:      article.Title,
		Source:     string(article.Source),
		Published:  article.PublishedAt.UTC().Format(publishedLayout),
		URL:        article.URL,
		Summary:    orDefault(article.Summary, "No summary available"),
		Suggestion: orDefault(article.Suggestion, "No suggestion available"),
		Confidence: strconv.FormatFloat(percentage, 'f', 1, 64),
		Threshold:  strconv.FormatFloat(g.threshold*100, 'f', 1, 64),
		Color:      htmltemplate.CSS(t.color),
		Emoji:      t.emoji,
	}

	var plain, html bytes.Buffer
	if err := plainTemplate.Execute(&plain, view); err != nil {
		return domain.Alert{}, fmt.Errorf("render plain alert: %w", err)
	}
	if err := htmlTemplate.Execute(&html, view); err != nil {
		return domain.Alert{}, fmt.Errorf("render html alert: %w", err)
	}

	return domain.Alert{
		Subject:   subjectPrefix + shortTitle(article.Title) + "...",
		PlainBody: plain.String(),
		HTMLBody:  html.String(),
	}, nil
}

// Dispatch sends the alert when the article clears the gate. It reports
// whether a message was accepted by the transport.
func (g *Gate) Dispatch(ctx context.Context, article domain.Article) (bool, error) {
	if !g.ShouldNotify(article.ConfidenceScore) {
		return false, nil
	}
	if g.transport == nil {
		metrics.NotificationsTotal.WithLabelValues("unconfigured").Inc()
		g.logger.Error("alert not sent, mail transport missing", "article_id", article.ID)
		return false, domain.ErrTransportUnavailable
	}

	alert, err := g.Render(article)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		return false, err
	}

	status, err := g.transport.Send(ctx, domain.MailMessage{
		From:      g.from,
		To:        g.recipients,
		Subject:   alert.Subject,
		PlainBody: alert.PlainBody,
		HTMLBody:  alert.HTMLBody,
	})
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		g.logger.Error("alert send failed", "article_id", article.ID, "err", err)
		return false, fmt.Errorf("send alert for article %d: %w", article.ID, err)
	}
	if !accepted(status) {
		metrics.NotificationsTotal.WithLabelValues("rejected").Inc()
		g.logger.Error("alert rejected", "article_id", article.ID, "status", status)
		return false, fmt.Errorf("send alert for article %d: unexpected status %d", article.ID, status)
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	g.logger.Info("alert sent", "article_id", article.ID, "confidence", *article.ConfidenceScore)
	return true, nil
}

// Status describes how complete the notification configuration is.
func (g *Gate) Status() domain.NotificationStatus {
	return domain.NotificationStatus{
		Enabled:               g.enabled,
		RecipientsCount:       len(g.recipients),
		FromEmail:             g.from,
		ConfidenceThreshold:   g.threshold,
		TransportConfigured:   g.transport != nil,
		ConfigurationComplete: g.complete(),
	}
}

// SendTest delivers a plain test message to every recipient.
func (g *Gate) SendTest(ctx context.Context) error {
	if !g.complete() {
		return ErrConfigurationIncomplete
	}
	if g.transport == nil {
		return domain.ErrTransportUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	status, err := g.transport.Send(ctx, domain.MailMessage{
		From:      g.from,
		To:        g.recipients,
		Subject:   testSubject,
		PlainBody: testBody,
	})
	if err != nil {
		return fmt.Errorf("send test email: %w", err)
	}
	if !accepted(status) {
		return fmt.Errorf("send test email: unexpected status %d", status)
	}
	g.logger.Info("test email sent", "recipients", len(g.recipients))
	return nil
}

func (g *Gate) complete() bool {
	return g.enabled && len(g.recipients) > 0 && g.from != ""
}

func accepted(status int) bool {
	return status == 200 || status == 201 || status == 202
}

func shortTitle(title string) string {
	runes := []rune(title)
	if len(runes) > subjectTitleLimit {
		runes = runes[:subjectTitleLimit]
	}
	return string(runes)
}

func orDefault(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
