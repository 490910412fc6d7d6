package metrics

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
)

// Collector implements the alert engine's metrics hooks on Prometheus
// counters.
type Collector struct {
	alertsTotal          *prometheus.CounterVec
	alertsSuppressed     *prometheus.CounterVec
	alertsEscalated      prometheus.Counter
	notificationFailures prometheus.Counter
}

// NewCollector registers the collectors on the given registry; a nil
// registry uses the default one.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		alertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moby_alerts_total",
			Help: "Alerts accepted after suppression, by severity.",
		}, []string{"severity"}),
		alertsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moby_alerts_suppressed_total",
			Help: "Alerts suppressed before emission, by reason.",
		}, []string{"reason"}),
		alertsEscalated: factory.NewCounter(prometheus.CounterOpts{
			Name: "moby_alerts_escalated_total",
			Help: "Alerts escalated past their deadline.",
		}),
		notificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "moby_notification_failures_total",
			Help: "Outbound notification delivery failures.",
		}),
	}
}

// AlertAccepted counts an accepted alert.
func (c *Collector) AlertAccepted(severity string) {
	c.alertsTotal.WithLabelValues(severity).Inc()
}

// AlertSuppressed counts a suppressed alert.
func (c *Collector) AlertSuppressed(reason string) {
	c.alertsSuppressed.WithLabelValues(reason).Inc()
}

// AlertEscalated counts an escalation.
func (c *Collector) AlertEscalated() {
	c.alertsEscalated.Inc()
}

// NotificationFailed counts a delivery failure.
func (c *Collector) NotificationFailed() {
	c.notificationFailures.Inc()
}

type instrumentedNotifier struct {
	inner     alerting.Notifier
	collector *Collector
}

// InstrumentNotifier wraps a notifier so delivery failures are counted.
func InstrumentNotifier(n alerting.Notifier, c *Collector) alerting.Notifier {
	if n == nil || c == nil {
		return n
	}
	return &instrumentedNotifier{inner: n, collector: c}
}

func (i *instrumentedNotifier) Name() string { return i.inner.Name() }

func (i *instrumentedNotifier) Send(ctx context.Context, alert alerting.Alert) error {
	err := i.inner.Send(ctx, alert)
	if err != nil {
		i.collector.NotificationFailed()
	}
	return err
}

// Handler returns the Prometheus scrape handler as a gin handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
