package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Operator identifies how a condition compares its metric. The symbols
// match the policy file format.
type Operator string

const (
	OpGreaterThan Operator = ">"
	OpLessThan    Operator = "<"
	OpIncreasing  Operator = "increasing"
)

// Condition is a single check against a snapshot. Threshold is required
// for comparison operators and ignored for trend operators; Window only
// applies to trend operators.
type Condition struct {
	Metric    string        `json:"metric" yaml:"metric"`
	Operator  Operator      `json:"operator" yaml:"operator"`
	Threshold *float64      `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Window    time.Duration `json:"window,omitempty" yaml:"window,omitempty"`
}

// Validate checks the condition shape. Malformed conditions are a load
// time error, never an evaluation time one.
func (c Condition) Validate() error {
	if c.Metric == "" {
		return fmt.Errorf("condition metric is required")
	}
	switch c.Operator {
	case OpGreaterThan, OpLessThan:
		if c.Threshold == nil {
			return fmt.Errorf("condition %s %s requires a threshold", c.Metric, c.Operator)
		}
	case OpIncreasing:
		// Trend conditions carry no threshold.
	default:
		return fmt.Errorf("unknown operator %q for metric %s", c.Operator, c.Metric)
	}
	return nil
}

// TrendSource answers "has this metric been increasing over the given
// window". Implementations query a time-series store; a nil source
// means trend conditions never fire.
type TrendSource interface {
	Increasing(ctx context.Context, metric string, window time.Duration) (bool, error)
}

// Evaluator evaluates one condition against a snapshot. It has no side
// effects and is safe for concurrent use.
type Evaluator struct {
	trends TrendSource
	logger *logrus.Logger
}

// NewEvaluator creates an evaluator. trends may be nil.
func NewEvaluator(trends TrendSource, logger *logrus.Logger) *Evaluator {
	return &Evaluator{trends: trends, logger: logger}
}

// Evaluate returns true only when the condition holds for the snapshot.
// A missing metric means the condition is not met, not an error.
// Comparisons are strict: a value equal to the threshold does not fire.
func (e *Evaluator) Evaluate(ctx context.Context, snap Snapshot, cond Condition) bool {
	switch cond.Operator {
	case OpGreaterThan:
		value, ok := snap.Value(cond.Metric)
		return ok && cond.Threshold != nil && value > *cond.Threshold

	case OpLessThan:
		value, ok := snap.Value(cond.Metric)
		return ok && cond.Threshold != nil && value < *cond.Threshold

	case OpIncreasing:
		if e.trends == nil {
			// No trend source wired: never fire on unimplemented trend logic.
			return false
		}
		window := cond.Window
		if window <= 0 {
			window = time.Hour
		}
		increasing, err := e.trends.Increasing(ctx, cond.Metric, window)
		if err != nil {
			e.logger.WithError(err).WithField("metric", cond.Metric).Warn("Trend lookup failed")
			return false
		}
		return increasing

	default:
		e.logger.WithFields(logrus.Fields{
			"metric":   cond.Metric,
			"operator": cond.Operator,
		}).Warn("Unknown condition operator, treating as not met")
		return false
	}
}
