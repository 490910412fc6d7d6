package alerting

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is the ordered alert severity scale. Escalation only ever
// moves up this scale, never down.
type Severity int

const (
	SeverityInfo Severity = iota + 1
	SeverityWarning
	SeverityCritical
	SeverityEmergency
)

var severityNames = map[Severity]string{
	SeverityInfo:      "INFO",
	SeverityWarning:   "WARNING",
	SeverityCritical:  "CRITICAL",
	SeverityEmergency: "EMERGENCY",
}

// String returns the canonical name of the severity.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// Next returns the severity one ordinal step up, clamped at EMERGENCY.
func (s Severity) Next() Severity {
	if s >= SeverityEmergency {
		return SeverityEmergency
	}
	return s + 1
}

// ParseSeverity parses a severity name (case-insensitive).
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "INFO":
		return SeverityInfo, nil
	case "WARNING":
		return SeverityWarning, nil
	case "CRITICAL":
		return SeverityCritical, nil
	case "EMERGENCY":
		return SeverityEmergency, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", name)
	}
}

// MarshalJSON encodes the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalYAML decodes a severity name from a policy file.
func (s *Severity) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
