package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
)

// EmailNotifier delivers alerts over SMTP with STARTTLS. Alerts below
// the minimum severity are silently skipped so routine warnings do not
// page anyone's inbox.
type EmailNotifier struct {
	host        string
	port        int
	sender      string
	password    string
	recipient   string
	minSeverity alerting.Severity
	logger      *logrus.Logger

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier creates an email notifier.
func NewEmailNotifier(host string, port int, sender, password, recipient string, minSeverity alerting.Severity, logger *logrus.Logger) *EmailNotifier {
	return &EmailNotifier{
		host:        host,
		port:        port,
		sender:      sender,
		password:    password,
		recipient:   recipient,
		minSeverity: minSeverity,
		logger:      logger,
		sendMail:    smtp.SendMail,
	}
}

// Name identifies the channel in logs.
func (n *EmailNotifier) Name() string { return "email" }

// Send delivers the alert by email. Below-threshold severities are a
// successful no-op.
func (n *EmailNotifier) Send(ctx context.Context, alert alerting.Alert) error {
	if alert.Severity < n.minSeverity {
		n.logger.WithFields(logrus.Fields{
			"alert_id": alert.ID,
			"severity": alert.Severity.String(),
		}).Debug("Alert below email severity threshold, skipping")
		return nil
	}
	if n.sender == "" || n.password == "" || n.recipient == "" {
		return fmt.Errorf("email notifier is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.sender, n.password, n.host)
	msg := n.compose(alert)

	if err := n.sendMail(addr, auth, n.sender, []string{n.recipient}, msg); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"alert_id":  alert.ID,
		"recipient": n.recipient,
	}).Info("Alert email sent")
	return nil
}

func (n *EmailNotifier) compose(alert alerting.Alert) []byte {
	subject := fmt.Sprintf("[%s] %s on %s", alert.Severity.String(), alert.PolicyName, alert.EquipmentID)

	metrics := make([]string, 0, len(alert.SensorValues))
	for name := range alert.SensorValues {
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)

	var body strings.Builder
	fmt.Fprintf(&body, "<h2>%s</h2>", subject)
	if alert.Summary != "" {
		fmt.Fprintf(&body, "<p>%s</p>", alert.Summary)
	}
	body.WriteString("<ul>")
	for _, name := range metrics {
		fmt.Fprintf(&body, "<li>%s: %.2f</li>", name, alert.SensorValues[name])
	}
	body.WriteString("</ul>")
	if len(alert.RecommendedActions) > 0 {
		fmt.Fprintf(&body, "<p>Recommended actions: %s</p>", strings.Join(alert.RecommendedActions, ", "))
	}
	fmt.Fprintf(&body, "<p>Alert ID: %s<br>Created: %s</p>", alert.ID, alert.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.sender)
	fmt.Fprintf(&msg, "To: %s\r\n", n.recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body.String())
	return []byte(msg.String())
}
