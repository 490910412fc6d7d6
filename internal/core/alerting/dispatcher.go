package alerting

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Auto-action tokens recognized by the dispatcher.
const (
	ActionLog                 = "log"
	ActionNotifyOperator      = "notify_operator"
	ActionEmergencyShutdown   = "emergency_shutdown"
	ActionNotifyManager       = "notify_manager"
	ActionScheduleMaintenance = "schedule_maintenance"
)

// Notifier delivers an alert to an outbound channel (email, chat, ...).
// Delivery outcome is logged, never retried by the engine; the next
// chance to notify comes when suppression naturally reopens.
type Notifier interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}

// ShutdownController raises the emergency-stop signal for a piece of
// equipment.
type ShutdownController interface {
	TriggerEmergencyStop(ctx context.Context, equipmentID string) error
}

// MaintenanceScheduler books a maintenance slot for equipment.
type MaintenanceScheduler interface {
	Schedule(ctx context.Context, equipmentID string, alert Alert) error
}

// Dispatcher executes a policy's auto-actions in order. Each action's
// failure is caught and logged individually so one failing action never
// blocks the rest.
type Dispatcher struct {
	operator    Notifier
	manager     Notifier
	shutdown    ShutdownController
	maintenance MaintenanceScheduler
	logger      *logrus.Logger
}

// NewDispatcher creates a dispatcher. Any collaborator may be nil; the
// matching action then logs and is skipped.
func NewDispatcher(operator, manager Notifier, shutdown ShutdownController, maintenance MaintenanceScheduler, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		operator:    operator,
		manager:     manager,
		shutdown:    shutdown,
		maintenance: maintenance,
		logger:      logger,
	}
}

// Execute runs the policy's auto-actions for the alert. Unknown tokens
// are ignored with a warning.
func (d *Dispatcher) Execute(ctx context.Context, policy Policy, alert Alert) {
	for _, action := range policy.AutoActions {
		switch action {
		case ActionLog:
			d.logger.WithFields(logrus.Fields{
				"alert_id":     alert.ID,
				"policy":       alert.PolicyName,
				"severity":     alert.Severity.String(),
				"equipment_id": alert.EquipmentID,
			}).Warn("Alert raised")

		case ActionNotifyOperator:
			d.notify(ctx, d.operator, "operator", alert)

		case ActionNotifyManager:
			d.notify(ctx, d.manager, "manager", alert)

		case ActionEmergencyShutdown:
			if d.shutdown == nil {
				d.logger.WithField("alert_id", alert.ID).Warn("No shutdown controller wired, skipping emergency_shutdown")
				continue
			}
			if err := d.shutdown.TriggerEmergencyStop(ctx, alert.EquipmentID); err != nil {
				d.logger.WithError(err).WithFields(logrus.Fields{
					"alert_id":     alert.ID,
					"equipment_id": alert.EquipmentID,
				}).Error("Emergency shutdown signal failed")
			}

		case ActionScheduleMaintenance:
			if d.maintenance == nil {
				d.logger.WithField("alert_id", alert.ID).Warn("No maintenance scheduler wired, skipping schedule_maintenance")
				continue
			}
			if err := d.maintenance.Schedule(ctx, alert.EquipmentID, alert); err != nil {
				d.logger.WithError(err).WithFields(logrus.Fields{
					"alert_id":     alert.ID,
					"equipment_id": alert.EquipmentID,
				}).Error("Maintenance scheduling failed")
			}

		default:
			d.logger.WithFields(logrus.Fields{
				"alert_id": alert.ID,
				"action":   action,
			}).Warn("Unknown auto-action token, ignoring")
		}
	}
}

// NotifyManager sends the alert to the manager channel directly; used
// by the escalation monitor outside the auto-action list.
func (d *Dispatcher) NotifyManager(ctx context.Context, alert Alert) {
	d.notify(ctx, d.manager, "manager", alert)
}

func (d *Dispatcher) notify(ctx context.Context, n Notifier, role string, alert Alert) {
	if n == nil {
		d.logger.WithFields(logrus.Fields{
			"alert_id": alert.ID,
			"role":     role,
		}).Warn("No notifier wired, skipping notification")
		return
	}
	if err := n.Send(ctx, alert); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"alert_id": alert.ID,
			"notifier": n.Name(),
			"role":     role,
		}).Error("Notification delivery failed")
	}
}
