package alerting

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy is an immutable alert policy. Conditions use AND semantics
// and are evaluated in order with short-circuit on the first miss.
type Policy struct {
	Name                 string        `json:"name"`
	Conditions           []Condition   `json:"conditions"`
	Severity             Severity      `json:"severity"`
	EscalationTime       time.Duration `json:"escalation_time"`
	NotificationChannels []string      `json:"notification_channels"`
	AutoActions          []string      `json:"auto_actions"`

	// Cooldown spaces out accepted alerts per (policy, equipment) key.
	// Zero disables the cooldown path; deduplication always applies.
	Cooldown time.Duration `json:"cooldown,omitempty"`
}

// Validate checks the policy definition. Called once at load time.
func (p Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	if len(p.Conditions) == 0 {
		return fmt.Errorf("policy %q has no conditions", p.Name)
	}
	if _, ok := severityNames[p.Severity]; !ok {
		return fmt.Errorf("policy %q has invalid severity %d", p.Name, int(p.Severity))
	}
	if p.EscalationTime <= 0 {
		return fmt.Errorf("policy %q requires a positive escalation time", p.Name)
	}
	for _, cond := range p.Conditions {
		if err := cond.Validate(); err != nil {
			return fmt.Errorf("policy %q: %w", p.Name, err)
		}
	}
	return nil
}

// Registry holds the ordered, immutable set of policies for the
// process lifetime and evaluates them against snapshots.
type Registry struct {
	policies  []Policy
	byName    map[string]Policy
	evaluator *Evaluator
}

// NewRegistry validates and registers the given policies. A malformed
// policy fails here, at load time, not during evaluation.
func NewRegistry(policies []Policy, evaluator *Evaluator) (*Registry, error) {
	byName := make(map[string]Policy, len(policies))
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate policy name %q", p.Name)
		}
		byName[p.Name] = p
	}
	registered := make([]Policy, len(policies))
	copy(registered, policies)
	return &Registry{policies: registered, byName: byName, evaluator: evaluator}, nil
}

// EvaluateAll returns every policy whose conditions all hold for the
// snapshot, in registration order. Registration order is deterministic
// input, not priority; no match is preferred over another.
func (r *Registry) EvaluateAll(ctx context.Context, snap Snapshot) []Policy {
	var matched []Policy
	for _, policy := range r.policies {
		if r.matches(ctx, snap, policy) {
			matched = append(matched, policy)
		}
	}
	return matched
}

func (r *Registry) matches(ctx context.Context, snap Snapshot, policy Policy) bool {
	for _, cond := range policy.Conditions {
		if !r.evaluator.Evaluate(ctx, snap, cond) {
			return false
		}
	}
	return true
}

// Get returns a policy by name.
func (r *Registry) Get(name string) (Policy, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Policies returns a copy of the registered policies in order.
func (r *Registry) Policies() []Policy {
	out := make([]Policy, len(r.policies))
	copy(out, r.policies)
	return out
}

// policyFile is the on-disk policy document shape.
type policyFile struct {
	Policies []policyDoc `yaml:"policies"`
}

type policyDoc struct {
	Name                 string         `yaml:"name"`
	Conditions           []conditionDoc `yaml:"conditions"`
	Severity             Severity       `yaml:"severity"`
	EscalationMinutes    int            `yaml:"escalation_minutes"`
	NotificationChannels []string       `yaml:"notification_channels"`
	AutoActions          []string       `yaml:"auto_actions"`
	CooldownMinutes      int            `yaml:"cooldown_minutes"`
}

type conditionDoc struct {
	Metric    string   `yaml:"metric"`
	Operator  Operator `yaml:"operator"`
	Threshold *float64 `yaml:"threshold"`
	Window    string   `yaml:"window"`
}

// LoadPoliciesFile reads an ordered policy list from a YAML document.
func LoadPoliciesFile(path string) ([]Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var doc policyFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	policies := make([]Policy, 0, len(doc.Policies))
	for _, pd := range doc.Policies {
		policy := Policy{
			Name:                 pd.Name,
			Severity:             pd.Severity,
			EscalationTime:       time.Duration(pd.EscalationMinutes) * time.Minute,
			NotificationChannels: pd.NotificationChannels,
			AutoActions:          pd.AutoActions,
			Cooldown:             time.Duration(pd.CooldownMinutes) * time.Minute,
		}
		for _, cd := range pd.Conditions {
			cond := Condition{Metric: cd.Metric, Operator: cd.Operator, Threshold: cd.Threshold}
			if cd.Window != "" {
				window, err := time.ParseDuration(cd.Window)
				if err != nil {
					return nil, fmt.Errorf("policy %q: bad window %q: %w", pd.Name, cd.Window, err)
				}
				cond.Window = window
			}
			policy.Conditions = append(policy.Conditions, cond)
		}
		policies = append(policies, policy)
	}
	return policies, nil
}

func threshold(v float64) *float64 { return &v }

// DefaultPolicies is the built-in policy set used when no policy file
// is configured.
func DefaultPolicies() []Policy {
	return []Policy{
		{
			Name: "equipment_overheat_warning",
			Conditions: []Condition{
				{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(80)},
				{Metric: "humidity", Operator: OpLessThan, Threshold: threshold(30)},
			},
			Severity:             SeverityWarning,
			EscalationTime:       15 * time.Minute,
			NotificationChannels: []string{"webhook", "email"},
			AutoActions:          []string{"log", "notify_operator"},
		},
		{
			Name: "equipment_critical_state",
			Conditions: []Condition{
				{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(90)},
				{Metric: "vibration_magnitude", Operator: OpGreaterThan, Threshold: threshold(85)},
			},
			Severity:             SeverityEmergency,
			EscalationTime:       5 * time.Minute,
			NotificationChannels: []string{"webhook", "email"},
			AutoActions:          []string{"log", "emergency_shutdown", "notify_manager"},
		},
		{
			Name: "predictive_maintenance",
			Conditions: []Condition{
				{Metric: "vibration_trend", Operator: OpIncreasing, Window: 7 * 24 * time.Hour},
				{Metric: "temperature_stddev", Operator: OpGreaterThan, Threshold: threshold(5)},
			},
			Severity:             SeverityInfo,
			EscalationTime:       60 * time.Minute,
			NotificationChannels: []string{"email"},
			AutoActions:          []string{"log", "schedule_maintenance"},
		},
	}
}
