package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type stubTrends struct {
	increasing bool
	err        error
}

func (s stubTrends) Increasing(ctx context.Context, metric string, window time.Duration) (bool, error) {
	return s.increasing, s.err
}

func TestEvaluateComparisons(t *testing.T) {
	eval := NewEvaluator(nil, testLogger())

	tests := []struct {
		name string
		cond Condition
		snap Snapshot
		want bool
	}{
		{
			name: "greater than fires above threshold",
			cond: Condition{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(80)},
			snap: Snapshot{Values: map[string]float64{"temperature": 80.1}},
			want: true,
		},
		{
			name: "greater than does not fire at threshold",
			cond: Condition{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(80)},
			snap: Snapshot{Values: map[string]float64{"temperature": 80}},
			want: false,
		},
		{
			name: "less than fires below threshold",
			cond: Condition{Metric: "humidity", Operator: OpLessThan, Threshold: threshold(30)},
			snap: Snapshot{Values: map[string]float64{"humidity": 29.9}},
			want: true,
		},
		{
			name: "less than does not fire at threshold",
			cond: Condition{Metric: "humidity", Operator: OpLessThan, Threshold: threshold(30)},
			snap: Snapshot{Values: map[string]float64{"humidity": 30}},
			want: false,
		},
		{
			name: "missing metric never fires",
			cond: Condition{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(80)},
			snap: Snapshot{Values: map[string]float64{"humidity": 10}},
			want: false,
		},
		{
			name: "unknown operator never fires",
			cond: Condition{Metric: "temperature", Operator: Operator("~="), Threshold: threshold(80)},
			snap: Snapshot{Values: map[string]float64{"temperature": 99}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eval.Evaluate(context.Background(), tt.snap, tt.cond))
		})
	}
}

func TestEvaluateTrend(t *testing.T) {
	cond := Condition{Metric: "vibration_trend", Operator: OpIncreasing, Window: 7 * 24 * time.Hour}
	snap := Snapshot{Values: map[string]float64{}}

	t.Run("nil trend source never fires", func(t *testing.T) {
		eval := NewEvaluator(nil, testLogger())
		assert.False(t, eval.Evaluate(context.Background(), snap, cond))
	})

	t.Run("trend source drives the result", func(t *testing.T) {
		eval := NewEvaluator(stubTrends{increasing: true}, testLogger())
		assert.True(t, eval.Evaluate(context.Background(), snap, cond))
	})

	t.Run("trend source error means not met", func(t *testing.T) {
		eval := NewEvaluator(stubTrends{increasing: true, err: assert.AnError}, testLogger())
		assert.False(t, eval.Evaluate(context.Background(), snap, cond))
	})
}

func TestConditionValidate(t *testing.T) {
	assert.Error(t, Condition{Operator: OpGreaterThan, Threshold: threshold(1)}.Validate())
	assert.Error(t, Condition{Metric: "temperature", Operator: OpGreaterThan}.Validate())
	assert.Error(t, Condition{Metric: "temperature", Operator: Operator(">=")}.Validate())
	assert.NoError(t, Condition{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(1)}.Validate())
	assert.NoError(t, Condition{Metric: "trend", Operator: OpIncreasing}.Validate())
}

func TestRegistryANDSemantics(t *testing.T) {
	eval := NewEvaluator(nil, testLogger())
	policy := Policy{
		Name: "equipment_overheat_warning",
		Conditions: []Condition{
			{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(80)},
			{Metric: "humidity", Operator: OpLessThan, Threshold: threshold(30)},
		},
		Severity:       SeverityWarning,
		EscalationTime: 15 * time.Minute,
	}
	registry, err := NewRegistry([]Policy{policy}, eval)
	require.NoError(t, err)

	t.Run("all conditions met", func(t *testing.T) {
		matched := registry.EvaluateAll(context.Background(), Snapshot{
			Values: map[string]float64{"temperature": 85, "humidity": 25},
		})
		require.Len(t, matched, 1)
		assert.Equal(t, "equipment_overheat_warning", matched[0].Name)
	})

	t.Run("one condition missing", func(t *testing.T) {
		matched := registry.EvaluateAll(context.Background(), Snapshot{
			Values: map[string]float64{"temperature": 85, "humidity": 45},
		})
		assert.Empty(t, matched)
	})
}

func TestRegistryEvaluatesInRegistrationOrder(t *testing.T) {
	eval := NewEvaluator(nil, testLogger())
	first := Policy{
		Name:           "first",
		Conditions:     []Condition{{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(10)}},
		Severity:       SeverityInfo,
		EscalationTime: time.Minute,
	}
	second := Policy{
		Name:           "second",
		Conditions:     []Condition{{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(20)}},
		Severity:       SeverityWarning,
		EscalationTime: time.Minute,
	}
	registry, err := NewRegistry([]Policy{first, second}, eval)
	require.NoError(t, err)

	matched := registry.EvaluateAll(context.Background(), Snapshot{
		Values: map[string]float64{"temperature": 50},
	})
	require.Len(t, matched, 2)
	assert.Equal(t, "first", matched[0].Name)
	assert.Equal(t, "second", matched[1].Name)
}
