package alerting

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// EscalationMonitor periodically sweeps the engine for pending alerts
// past their deadline.
type EscalationMonitor struct {
	engine   *Engine
	interval time.Duration
	logger   *logrus.Logger
}

// NewEscalationMonitor creates a monitor. A non-positive interval
// defaults to one minute.
func NewEscalationMonitor(engine *Engine, interval time.Duration, logger *logrus.Logger) *EscalationMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &EscalationMonitor{engine: engine, interval: interval, logger: logger}
}

// Run sweeps until the context is cancelled. Intended to run in its own
// goroutine.
func (m *EscalationMonitor) Run(ctx context.Context) {
	m.logger.WithField("interval", m.interval.String()).Info("Escalation monitor started")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Escalation monitor stopped")
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep performs one escalation pass.
func (m *EscalationMonitor) Sweep(ctx context.Context) {
	escalated := m.engine.EscalateOverdue(ctx)
	if len(escalated) > 0 {
		m.logger.WithField("count", len(escalated)).Warn("Escalated overdue alerts")
	}
}
