package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
)

// Multi fans an alert out to several channels. Every channel is
// attempted; failures are collected rather than short-circuiting.
type Multi struct {
	notifiers []alerting.Notifier
}

// NewMulti combines notifiers into one channel. Nil entries are
// dropped.
func NewMulti(notifiers ...alerting.Notifier) *Multi {
	kept := make([]alerting.Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			kept = append(kept, n)
		}
	}
	return &Multi{notifiers: kept}
}

// Name identifies the channel in logs.
func (m *Multi) Name() string {
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

// Send delivers to every channel and returns the combined failures.
func (m *Multi) Send(ctx context.Context, alert alerting.Alert) error {
	var errs []string
	for _, n := range m.notifiers {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", n.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notification failures: %s", strings.Join(errs, "; "))
	}
	return nil
}
