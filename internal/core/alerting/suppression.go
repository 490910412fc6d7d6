package alerting

import (
	"sync"
	"time"
)

// SuppressionState combines the two noise filters: a short
// deduplication window keyed on (policy, severity) and a longer
// per-signal cooldown keyed on the alert key. The two keys are
// independent namespaces; an alert can pass one and still be stopped
// by the other.
//
// The caller (the engine) serializes access to alert history; the
// cooldown map carries its own lock so point checks can run from any
// goroutine.
type SuppressionState struct {
	dedupWindow time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewSuppressionState creates suppression state with the given dedup
// window.
func NewSuppressionState(dedupWindow time.Duration) *SuppressionState {
	return &SuppressionState{
		dedupWindow: dedupWindow,
		lastSent:    make(map[string]time.Time),
	}
}

// IsDuplicate reports whether history already holds an alert with the
// same policy and severity inside the dedup window. The scan covers the
// whole (bounded) history rather than breaking at the first
// out-of-window entry: concurrent writers can append out of timestamp
// order, so a time-ordered prefix cannot be assumed.
func (s *SuppressionState) IsDuplicate(history []Alert, policyName string, severity Severity, now time.Time) bool {
	for i := len(history) - 1; i >= 0; i-- {
		prior := history[i]
		if prior.PolicyName != policyName || prior.Severity != severity {
			continue
		}
		if now.Sub(prior.CreatedAt) < s.dedupWindow {
			return true
		}
	}
	return false
}

// AllowCooldown grants permission to emit for the given key when no
// prior grant exists or more than cooldown has elapsed since the last
// one. The grant timestamp is recorded immediately, before any
// downstream dispatch: a later dispatch failure does not reopen the
// window early.
func (s *SuppressionState) AllowCooldown(key string, cooldown time.Duration, now time.Time) bool {
	if cooldown <= 0 {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastSent[key]; ok && now.Sub(last) <= cooldown {
		return false
	}
	s.lastSent[key] = now
	return true
}

// LastGrant returns the most recent grant time for a key, if any.
func (s *SuppressionState) LastGrant(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastSent[key]
	return t, ok
}
