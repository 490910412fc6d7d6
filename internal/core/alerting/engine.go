package alerting

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Broadcaster pushes accepted alerts and status changes to connected
// dashboard clients.
type Broadcaster interface {
	BroadcastAlert(alert Alert)
}

// AlertStore persists alert records beyond the in-memory history.
type AlertStore interface {
	Save(ctx context.Context, alert Alert) error
	UpdateStatus(ctx context.Context, id string, status Status, severity Severity) error
}

// Metrics counts engine outcomes. A nil implementation is substituted
// so the engine never has to nil-check.
type Metrics interface {
	AlertAccepted(severity string)
	AlertSuppressed(reason string)
	AlertEscalated()
}

type noopMetrics struct{}

func (noopMetrics) AlertAccepted(string)   {}
func (noopMetrics) AlertSuppressed(string) {}
func (noopMetrics) AlertEscalated()        {}

// DefaultHistoryLimit bounds the in-memory alert history.
const DefaultHistoryLimit = 100

// EngineOptions wires the engine's collaborators. Registry, Suppression
// and Factory are required; the rest may be nil.
type EngineOptions struct {
	Registry     *Registry
	Suppression  *SuppressionState
	Factory      *Factory
	Dispatcher   *Dispatcher
	Broadcaster  Broadcaster
	Store        AlertStore
	Metrics      Metrics
	Logger       *logrus.Logger
	HistoryLimit int
}

// Engine is the hot path: it evaluates snapshots against the policy
// registry, applies suppression, and owns the bounded alert history.
//
// One mutex guards history and status transitions. All decisions
// (dedup, cooldown, acceptance, escalation) happen under the lock;
// all I/O (summarization, persistence, dispatch, broadcast) happens
// outside it.
type Engine struct {
	registry    *Registry
	suppression *SuppressionState
	factory     *Factory
	dispatcher  *Dispatcher
	broadcaster Broadcaster
	store       AlertStore
	metrics     Metrics
	logger      *logrus.Logger

	mu           sync.Mutex
	history      []Alert
	historyLimit int

	now func() time.Time
}

// NewEngine creates an engine from options.
func NewEngine(opts EngineOptions) *Engine {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Engine{
		registry:     opts.Registry,
		suppression:  opts.Suppression,
		factory:      opts.Factory,
		dispatcher:   opts.Dispatcher,
		broadcaster:  opts.Broadcaster,
		store:        opts.Store,
		metrics:      metrics,
		logger:       opts.Logger,
		historyLimit: limit,
		now:          time.Now,
	}
}

// Registry exposes the policy registry for read-only inspection.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// EvaluateTick runs one snapshot through every policy and returns the
// alerts that survived suppression, in policy registration order.
func (e *Engine) EvaluateTick(ctx context.Context, snap Snapshot) []Alert {
	matched := e.registry.EvaluateAll(ctx, snap)

	var accepted []Alert
	for _, policy := range matched {
		alert, ok := e.processMatch(ctx, policy, snap)
		if !ok {
			continue
		}
		accepted = append(accepted, alert)

		e.persist(ctx, alert)
		if e.dispatcher != nil {
			e.dispatcher.Execute(ctx, policy, alert)
		}
		e.publish(alert)
	}
	return accepted
}

// processMatch applies suppression and, if the alert is accepted,
// appends it to history. The factory call (which may reach an external
// summarizer) runs outside the lock, so the dedup check is repeated
// after it: two concurrent ticks matching the same policy race to the
// second check and only one wins.
func (e *Engine) processMatch(ctx context.Context, policy Policy, snap Snapshot) (Alert, bool) {
	now := e.now().UTC()

	cooldownKey := fmt.Sprintf("%s_%s", policy.Name, snap.EquipmentID)
	if !e.suppression.AllowCooldown(cooldownKey, policy.Cooldown, now) {
		e.metrics.AlertSuppressed("cooldown")
		e.logger.WithFields(logrus.Fields{
			"policy":       policy.Name,
			"equipment_id": snap.EquipmentID,
		}).Debug("Alert suppressed by cooldown")
		return Alert{}, false
	}

	e.mu.Lock()
	duplicate := e.suppression.IsDuplicate(e.history, policy.Name, policy.Severity, now)
	e.mu.Unlock()
	if duplicate {
		e.metrics.AlertSuppressed("dedup")
		e.logger.WithFields(logrus.Fields{
			"policy":   policy.Name,
			"severity": policy.Severity.String(),
		}).Debug("Alert suppressed as duplicate")
		return Alert{}, false
	}

	alert := e.factory.Create(ctx, policy, snap)

	e.mu.Lock()
	if e.suppression.IsDuplicate(e.history, policy.Name, policy.Severity, e.now().UTC()) {
		e.mu.Unlock()
		e.metrics.AlertSuppressed("dedup")
		return Alert{}, false
	}
	e.appendLocked(alert)
	e.mu.Unlock()

	e.metrics.AlertAccepted(alert.Severity.String())
	e.logger.WithFields(logrus.Fields{
		"alert_id":     alert.ID,
		"policy":       alert.PolicyName,
		"severity":     alert.Severity.String(),
		"equipment_id": alert.EquipmentID,
	}).Info("Alert accepted")
	return alert.clone(), true
}

// appendLocked adds the alert to history, evicting the oldest entries
// past the limit. Caller holds e.mu.
func (e *Engine) appendLocked(alert Alert) {
	e.history = append(e.history, alert)
	if overflow := len(e.history) - e.historyLimit; overflow > 0 {
		e.history = append(e.history[:0:0], e.history[overflow:]...)
	}
}

// History returns alerts created within the last `since`, oldest first.
// A non-positive since returns the whole bounded history. Entries are
// deep copies; mutating them does not touch the engine's records.
func (e *Engine) History(since time.Duration) []Alert {
	now := e.now().UTC()

	e.mu.Lock()
	out := make([]Alert, 0, len(e.history))
	for _, a := range e.history {
		if since > 0 && now.Sub(a.CreatedAt) > since {
			continue
		}
		out = append(out, a.clone())
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Acknowledge marks an alert acknowledged. Acknowledging an already
// acknowledged alert is a no-op; a resolved alert cannot be
// acknowledged.
func (e *Engine) Acknowledge(ctx context.Context, id string) error {
	return e.transition(ctx, id, StatusAcknowledged)
}

// Resolve marks an alert resolved from any non-resolved state.
func (e *Engine) Resolve(ctx context.Context, id string) error {
	return e.transition(ctx, id, StatusResolved)
}

func (e *Engine) transition(ctx context.Context, id string, target Status) error {
	e.mu.Lock()
	var updated *Alert
	for i := range e.history {
		if e.history[i].ID != id {
			continue
		}
		if e.history[i].Status == StatusResolved {
			e.mu.Unlock()
			return fmt.Errorf("alert %s is already resolved", id)
		}
		if e.history[i].Status == target {
			e.mu.Unlock()
			return nil
		}
		e.history[i].Status = target
		a := e.history[i].clone()
		updated = &a
		break
	}
	e.mu.Unlock()

	if updated == nil {
		return fmt.Errorf("alert %s not found", id)
	}

	e.logger.WithFields(logrus.Fields{
		"alert_id": updated.ID,
		"status":   string(updated.Status),
	}).Info("Alert status changed")

	e.persistStatus(ctx, *updated)
	e.publish(*updated)
	return nil
}

// EscalateOverdue promotes every pending alert whose escalation
// deadline has passed: status becomes escalated and severity steps up
// one level. Returns the promoted alerts.
func (e *Engine) EscalateOverdue(ctx context.Context) []Alert {
	now := e.now().UTC()

	e.mu.Lock()
	var escalated []Alert
	for i := range e.history {
		if !e.history[i].Overdue(now) {
			continue
		}
		e.history[i].Status = StatusEscalated
		e.history[i].Severity = e.history[i].Severity.Next()
		escalated = append(escalated, e.history[i].clone())
	}
	e.mu.Unlock()

	for _, alert := range escalated {
		e.metrics.AlertEscalated()
		e.logger.WithFields(logrus.Fields{
			"alert_id": alert.ID,
			"policy":   alert.PolicyName,
			"severity": alert.Severity.String(),
		}).Warn("Alert escalated")

		e.persistStatus(ctx, alert)
		if e.dispatcher != nil {
			e.dispatcher.NotifyManager(ctx, alert)
		}
		e.publish(alert)
	}
	return escalated
}

func (e *Engine) persist(ctx context.Context, alert Alert) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, alert); err != nil {
		e.logger.WithError(err).WithField("alert_id", alert.ID).Error("Failed to persist alert")
	}
}

func (e *Engine) persistStatus(ctx context.Context, alert Alert) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateStatus(ctx, alert.ID, alert.Status, alert.Severity); err != nil {
		e.logger.WithError(err).WithField("alert_id", alert.ID).Error("Failed to persist alert status")
	}
}

func (e *Engine) publish(alert Alert) {
	if e.broadcaster == nil {
		return
	}
	e.broadcaster.BroadcastAlert(alert)
}
