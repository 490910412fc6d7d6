package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Summarizer produces a short natural-language summary of an alert.
// Summarization is best-effort: any failure degrades to an empty
// summary and must never block alert emission.
type Summarizer interface {
	Summarize(ctx context.Context, alert Alert) (string, error)
}

// Factory builds alert records from matched policies.
type Factory struct {
	summarizer       Summarizer
	summarizeTimeout time.Duration
	logger           *logrus.Logger
	now              func() time.Time
}

// NewFactory creates a factory. summarizer may be nil, in which case
// alerts carry an empty summary.
func NewFactory(summarizer Summarizer, summarizeTimeout time.Duration, logger *logrus.Logger) *Factory {
	if summarizeTimeout <= 0 {
		summarizeTimeout = 10 * time.Second
	}
	return &Factory{
		summarizer:       summarizer,
		summarizeTimeout: summarizeTimeout,
		logger:           logger,
		now:              time.Now,
	}
}

// Create builds an alert for the policy and snapshot. The sensor
// values are copied out of the snapshot so the alert owns its data.
func (f *Factory) Create(ctx context.Context, policy Policy, snap Snapshot) Alert {
	createdAt := f.now().UTC()

	values := make(map[string]float64, len(snap.Values))
	for metric, value := range snap.Values {
		values[metric] = value
	}

	actions := make([]string, len(policy.AutoActions))
	copy(actions, policy.AutoActions)

	alert := Alert{
		ID:                 uuid.New().String(),
		CreatedAt:          createdAt,
		PolicyName:         policy.Name,
		Severity:           policy.Severity,
		EquipmentID:        snap.EquipmentID,
		SensorValues:       values,
		RecommendedActions: actions,
		EscalationDeadline: createdAt.Add(policy.EscalationTime),
		Status:             StatusPending,
	}

	alert.Summary = f.summarize(ctx, alert)
	return alert
}

func (f *Factory) summarize(ctx context.Context, alert Alert) string {
	if f.summarizer == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, f.summarizeTimeout)
	defer cancel()

	summary, err := f.summarizer.Summarize(ctx, alert)
	if err != nil {
		f.logger.WithError(err).WithFields(logrus.Fields{
			"alert_id": alert.ID,
			"policy":   alert.PolicyName,
		}).Warn("Alert summarization failed, continuing without summary")
		return ""
	}
	return summary
}
