package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestEmail(minSeverity alerting.Severity) (*EmailNotifier, *capturedMail) {
	captured := &capturedMail{}
	n := NewEmailNotifier("smtp.example.com", 587, "alerts@example.com", "secret", "oncall@example.com", minSeverity, testLogger())
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		captured.addr = addr
		captured.from = from
		captured.to = to
		captured.msg = string(msg)
		return nil
	}
	return n, captured
}

func TestEmailSend(t *testing.T) {
	n, captured := newTestEmail(alerting.SeverityCritical)

	alert := sampleAlert()
	alert.Summary = "Bearing temperature critical on M1."

	require.NoError(t, n.Send(context.Background(), alert))

	assert.Equal(t, "smtp.example.com:587", captured.addr)
	assert.Equal(t, "alerts@example.com", captured.from)
	assert.Equal(t, []string{"oncall@example.com"}, captured.to)
	assert.Contains(t, captured.msg, "Subject: [CRITICAL] equipment_critical_state on M1")
	assert.Contains(t, captured.msg, "Content-Type: text/html")
	assert.Contains(t, captured.msg, "Bearing temperature critical on M1.")
	assert.Contains(t, captured.msg, "temperature: 95.00")
}

func TestEmailSeverityGate(t *testing.T) {
	n, captured := newTestEmail(alerting.SeverityCritical)

	alert := sampleAlert()
	alert.Severity = alerting.SeverityWarning

	// Below-threshold severities are skipped without error.
	require.NoError(t, n.Send(context.Background(), alert))
	assert.Empty(t, captured.msg)

	alert.Severity = alerting.SeverityEmergency
	require.NoError(t, n.Send(context.Background(), alert))
	assert.NotEmpty(t, captured.msg)
}

func TestEmailUnconfigured(t *testing.T) {
	n := NewEmailNotifier("smtp.example.com", 587, "", "", "", alerting.SeverityCritical, testLogger())
	assert.Error(t, n.Send(context.Background(), sampleAlert()))
}

func TestEmailDeliveryFailure(t *testing.T) {
	n, _ := newTestEmail(alerting.SeverityInfo)
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return fmt.Errorf("relay refused")
	}

	err := n.Send(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "relay refused"))
}
