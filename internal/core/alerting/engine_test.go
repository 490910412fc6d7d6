package alerting

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	name  string
	sent  []Alert
	fail  bool
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Send(ctx context.Context, alert Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return fmt.Errorf("delivery refused")
	}
	r.sent = append(r.sent, alert)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type recordingStore struct {
	mu       sync.Mutex
	saved    []Alert
	statuses map[string]Status
}

func newRecordingStore() *recordingStore {
	return &recordingStore{statuses: make(map[string]Status)}
}

func (s *recordingStore) Save(ctx context.Context, alert Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, alert)
	return nil
}

func (s *recordingStore) UpdateStatus(ctx context.Context, id string, status Status, severity Severity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	return nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	alerts []Alert
}

func (b *recordingBroadcaster) BroadcastAlert(alert Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, alert)
}

func newTestEngine(t *testing.T, policies []Policy) (*Engine, *recordingNotifier, *recordingStore, *recordingBroadcaster) {
	t.Helper()
	log := testLogger()
	registry, err := NewRegistry(policies, NewEvaluator(nil, log))
	require.NoError(t, err)

	operator := &recordingNotifier{name: "operator"}
	manager := &recordingNotifier{name: "manager"}
	store := newRecordingStore()
	broadcaster := &recordingBroadcaster{}

	engine := NewEngine(EngineOptions{
		Registry:    registry,
		Suppression: NewSuppressionState(5 * time.Minute),
		Factory:     NewFactory(nil, 0, log),
		Dispatcher:  NewDispatcher(operator, manager, nil, nil, log),
		Broadcaster: broadcaster,
		Store:       store,
		Logger:      log,
	})
	return engine, manager, store, broadcaster
}

func emergencyPolicy() Policy {
	return Policy{
		Name: "equipment_critical_state",
		Conditions: []Condition{
			{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(90)},
			{Metric: "vibration_magnitude", Operator: OpGreaterThan, Threshold: threshold(85)},
		},
		Severity:       SeverityEmergency,
		EscalationTime: 5 * time.Minute,
		AutoActions:    []string{ActionLog, ActionNotifyManager},
	}
}

func TestEvaluateTickEmitsAlert(t *testing.T) {
	engine, manager, store, broadcaster := newTestEngine(t, []Policy{emergencyPolicy()})

	snap := Snapshot{
		EquipmentID: "M1",
		Timestamp:   time.Now().UTC(),
		Values:      map[string]float64{"temperature": 95, "vibration_magnitude": 90},
	}
	alerts := engine.EvaluateTick(context.Background(), snap)

	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, "equipment_critical_state", alert.PolicyName)
	assert.Equal(t, SeverityEmergency, alert.Severity)
	assert.Equal(t, "M1", alert.EquipmentID)
	assert.Equal(t, StatusPending, alert.Status)
	assert.Equal(t, alert.CreatedAt.Add(5*time.Minute), alert.EscalationDeadline)
	assert.Equal(t, map[string]float64{"temperature": 95, "vibration_magnitude": 90}, alert.SensorValues)

	assert.Equal(t, 1, manager.count())
	assert.Len(t, store.saved, 1)
	assert.Len(t, broadcaster.alerts, 1)
}

func TestEvaluateTickNoMatchEmitsNothing(t *testing.T) {
	engine, _, store, _ := newTestEngine(t, []Policy{emergencyPolicy()})

	alerts := engine.EvaluateTick(context.Background(), Snapshot{
		EquipmentID: "M1",
		Values:      map[string]float64{"temperature": 95, "vibration_magnitude": 10},
	})
	assert.Empty(t, alerts)
	assert.Empty(t, store.saved)
}

func TestDedupSuppressesRepeatWithinWindow(t *testing.T) {
	engine, _, store, _ := newTestEngine(t, []Policy{emergencyPolicy()})
	snap := Snapshot{
		EquipmentID: "M1",
		Values:      map[string]float64{"temperature": 95, "vibration_magnitude": 90},
	}

	first := engine.EvaluateTick(context.Background(), snap)
	require.Len(t, first, 1)

	second := engine.EvaluateTick(context.Background(), snap)
	assert.Empty(t, second)
	assert.Len(t, store.saved, 1)
}

func TestDedupReopensAfterWindow(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, []Policy{emergencyPolicy()})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return base }
	engine.factory.now = engine.now

	snap := Snapshot{
		EquipmentID: "M1",
		Values:      map[string]float64{"temperature": 95, "vibration_magnitude": 90},
	}
	require.Len(t, engine.EvaluateTick(context.Background(), snap), 1)

	later := base.Add(5*time.Minute + time.Second)
	engine.now = func() time.Time { return later }
	engine.factory.now = engine.now
	assert.Len(t, engine.EvaluateTick(context.Background(), snap), 1)
}

func TestCooldownSuppressesPerEquipment(t *testing.T) {
	policy := Policy{
		Name:           PolicyTemperatureCritical,
		Conditions:     []Condition{{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(50)}},
		Severity:       SeverityCritical,
		EscalationTime: 15 * time.Minute,
		Cooldown:       10 * time.Minute,
	}
	engine, _, _, _ := newTestEngine(t, []Policy{policy})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return base }
	engine.factory.now = engine.now

	m1 := Snapshot{EquipmentID: "M1", Values: map[string]float64{"temperature": 60}}
	m2 := Snapshot{EquipmentID: "M2", Values: map[string]float64{"temperature": 60}}

	require.Len(t, engine.EvaluateTick(context.Background(), m1), 1)

	// Cooldown holds per equipment even after the dedup window passes.
	engine.now = func() time.Time { return base.Add(6 * time.Minute) }
	engine.factory.now = engine.now
	assert.Empty(t, engine.EvaluateTick(context.Background(), m1))
	assert.Len(t, engine.EvaluateTick(context.Background(), m2), 1)

	engine.now = func() time.Time { return base.Add(11 * time.Minute) }
	engine.factory.now = engine.now
	assert.Len(t, engine.EvaluateTick(context.Background(), m1), 1)
}

func TestHistoryIsBounded(t *testing.T) {
	log := testLogger()
	registry, err := NewRegistry([]Policy{emergencyPolicy()}, NewEvaluator(nil, log))
	require.NoError(t, err)

	engine := NewEngine(EngineOptions{
		Registry:     registry,
		Suppression:  NewSuppressionState(0),
		Factory:      NewFactory(nil, 0, log),
		Logger:       log,
		HistoryLimit: 3,
	})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{EquipmentID: "M1", Values: map[string]float64{"temperature": 95, "vibration_magnitude": 90}}
	for i := 0; i < 5; i++ {
		tick := base.Add(time.Duration(i) * time.Minute)
		engine.now = func() time.Time { return tick }
		engine.factory.now = engine.now
		require.Len(t, engine.EvaluateTick(context.Background(), snap), 1)
	}

	engine.now = func() time.Time { return base.Add(5 * time.Minute) }
	history := engine.History(0)
	require.Len(t, history, 3)
	// Oldest entries were evicted, newest survive in order.
	assert.Equal(t, base.Add(2*time.Minute), history[0].CreatedAt)
	assert.Equal(t, base.Add(4*time.Minute), history[2].CreatedAt)
}

func TestHistoryFiltersBySince(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, []Policy{emergencyPolicy()})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	engine.now = func() time.Time { return base.Add(-2 * time.Hour) }
	engine.factory.now = engine.now
	snap := Snapshot{EquipmentID: "M1", Values: map[string]float64{"temperature": 95, "vibration_magnitude": 90}}
	require.Len(t, engine.EvaluateTick(context.Background(), snap), 1)

	engine.now = func() time.Time { return base }
	engine.factory.now = engine.now
	require.Len(t, engine.EvaluateTick(context.Background(), snap), 1)

	assert.Len(t, engine.History(time.Hour), 1)
	assert.Len(t, engine.History(3*time.Hour), 2)
}

func TestReturnedAlertsAreDetachedFromHistory(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, []Policy{emergencyPolicy()})
	snap := Snapshot{
		EquipmentID: "M1",
		Values:      map[string]float64{"temperature": 95, "vibration_magnitude": 90},
	}
	alerts := engine.EvaluateTick(context.Background(), snap)
	require.Len(t, alerts, 1)

	// Mutating a returned alert must not corrupt the engine's record.
	alerts[0].SensorValues["temperature"] = -1
	alerts[0].RecommendedActions[0] = "tampered"

	history := engine.History(0)
	require.Len(t, history, 1)
	assert.Equal(t, 95.0, history[0].SensorValues["temperature"])
	assert.Equal(t, []string{ActionLog, ActionNotifyManager}, history[0].RecommendedActions)

	// Alerts handed out by History are detached too.
	history[0].SensorValues["vibration_magnitude"] = -1
	again := engine.History(0)
	require.Len(t, again, 1)
	assert.Equal(t, 90.0, again[0].SensorValues["vibration_magnitude"])
}

func TestAcknowledgeAndResolve(t *testing.T) {
	engine, _, store, _ := newTestEngine(t, []Policy{emergencyPolicy()})
	snap := Snapshot{EquipmentID: "M1", Values: map[string]float64{"temperature": 95, "vibration_magnitude": 90}}
	alerts := engine.EvaluateTick(context.Background(), snap)
	require.Len(t, alerts, 1)
	id := alerts[0].ID

	require.NoError(t, engine.Acknowledge(context.Background(), id))
	assert.Equal(t, StatusAcknowledged, store.statuses[id])

	// Acknowledging again is a no-op.
	require.NoError(t, engine.Acknowledge(context.Background(), id))

	require.NoError(t, engine.Resolve(context.Background(), id))
	assert.Equal(t, StatusResolved, store.statuses[id])

	// Resolved alerts accept no further transitions.
	assert.Error(t, engine.Acknowledge(context.Background(), id))
	assert.Error(t, engine.Resolve(context.Background(), id))

	assert.Error(t, engine.Acknowledge(context.Background(), "no-such-id"))
}

func TestEscalateOverdue(t *testing.T) {
	engine, manager, store, _ := newTestEngine(t, []Policy{emergencyPolicy()})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return base }
	engine.factory.now = engine.now

	snap := Snapshot{EquipmentID: "M1", Values: map[string]float64{"temperature": 95, "vibration_magnitude": 90}}
	alerts := engine.EvaluateTick(context.Background(), snap)
	require.Len(t, alerts, 1)
	id := alerts[0].ID
	require.Equal(t, 1, manager.count()) // from the notify_manager auto-action

	// Before the deadline nothing escalates.
	engine.now = func() time.Time { return base.Add(4 * time.Minute) }
	assert.Empty(t, engine.EscalateOverdue(context.Background()))

	// Past the deadline the alert escalates once, severity clamped at
	// the top of the scale.
	engine.now = func() time.Time { return base.Add(6 * time.Minute) }
	escalated := engine.EscalateOverdue(context.Background())
	require.Len(t, escalated, 1)
	assert.Equal(t, id, escalated[0].ID)
	assert.Equal(t, StatusEscalated, escalated[0].Status)
	assert.Equal(t, SeverityEmergency, escalated[0].Severity)
	assert.Equal(t, StatusEscalated, store.statuses[id])
	assert.Equal(t, 2, manager.count())

	// A second sweep finds nothing pending.
	engine.now = func() time.Time { return base.Add(20 * time.Minute) }
	assert.Empty(t, engine.EscalateOverdue(context.Background()))
	assert.Equal(t, 2, manager.count())
}

func TestEscalationSkipsAcknowledged(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, []Policy{emergencyPolicy()})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return base }
	engine.factory.now = engine.now

	snap := Snapshot{EquipmentID: "M1", Values: map[string]float64{"temperature": 95, "vibration_magnitude": 90}}
	alerts := engine.EvaluateTick(context.Background(), snap)
	require.Len(t, alerts, 1)
	require.NoError(t, engine.Acknowledge(context.Background(), alerts[0].ID))

	engine.now = func() time.Time { return base.Add(time.Hour) }
	assert.Empty(t, engine.EscalateOverdue(context.Background()))
}

func TestEscalationStepsSeverityUp(t *testing.T) {
	policy := Policy{
		Name:           "warning_policy",
		Conditions:     []Condition{{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(80)}},
		Severity:       SeverityWarning,
		EscalationTime: 15 * time.Minute,
	}
	engine, _, _, _ := newTestEngine(t, []Policy{policy})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return base }
	engine.factory.now = engine.now

	alerts := engine.EvaluateTick(context.Background(), Snapshot{
		EquipmentID: "M1",
		Values:      map[string]float64{"temperature": 85},
	})
	require.Len(t, alerts, 1)

	engine.now = func() time.Time { return base.Add(16 * time.Minute) }
	escalated := engine.EscalateOverdue(context.Background())
	require.Len(t, escalated, 1)
	assert.Equal(t, SeverityCritical, escalated[0].Severity)
}
