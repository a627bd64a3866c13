package services

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/config"
	"github.com/sigepol/sigepol-engine/pkg/models"
)

// Notifier delivers alert notifications out of band. Delivery is always
// best effort: the alert factory logs failures and moves on.
type Notifier interface {
	NotifyAlert(alert *models.Alert) error
}

// SMTPNotifier sends one plain-text mail per alert to a fixed recipient list.
type SMTPNotifier struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

func NewSMTPNotifier(cfg config.SMTPConfig, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger.Named("smtp_notifier")}
}

var _ Notifier = (*SMTPNotifier)(nil)

func (n *SMTPNotifier) NotifyAlert(alert *models.Alert) error {
	if !n.cfg.Enabled() {
		return nil
	}

	recipients := strings.Split(n.cfg.To, ",")
	for i := range recipients {
		recipients[i] = strings.TrimSpace(recipients[i])
	}

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&body, "To: %s\r\n", n.cfg.To)
	fmt.Fprintf(&body, "Subject: [SIGEPOL][%s] %s\r\n", strings.ToUpper(alert.Severity), alert.Title)
	body.WriteString("\r\n")
	fmt.Fprintf(&body, "%s\r\n\r\n", alert.Message)
	fmt.Fprintf(&body, "Tipo: %s\r\nSeveridad: %s\r\n", alert.Type, alert.Severity)
	if alert.Deadline != nil {
		fmt.Fprintf(&body, "Fecha límite: %s\r\n", alert.Deadline.Format("2006-01-02 15:04"))
	}
	if !alert.Confident {
		fmt.Fprintf(&body, "ATENCIÓN: %s\r\n", alert.UnreliableReason)
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.User != "" {
		auth = smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, n.cfg.From, recipients, []byte(body.String())); err != nil {
		return fmt.Errorf("failed to send alert mail: %w", err)
	}

	n.logger.Debug("alert notification sent",
		zap.String("alert_id", alert.ID.String()),
		zap.String("severidad", alert.Severity))
	return nil
}

// NopNotifier discards notifications. Used when SMTP is not configured and
// in tests.
type NopNotifier struct{}

var _ Notifier = (*NopNotifier)(nil)

func (NopNotifier) NotifyAlert(*models.Alert) error { return nil }
