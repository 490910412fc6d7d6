package hostprobe

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
)

// Probe samples the backend host itself as a piece of monitored
// equipment, so policies can watch the server that runs the engine.
type Probe struct {
	equipmentID string
}

// New creates a host probe.
func New() *Probe {
	return &Probe{equipmentID: "backend-host"}
}

// Name identifies the source in logs.
func (p *Probe) Name() string { return "hostprobe" }

// Snapshot samples CPU and memory usage.
func (p *Probe) Snapshot(ctx context.Context) (alerting.Snapshot, error) {
	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return alerting.Snapshot{}, fmt.Errorf("sample cpu: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return alerting.Snapshot{}, fmt.Errorf("sample memory: %w", err)
	}

	values := map[string]float64{
		"memory_used_percent": vm.UsedPercent,
	}
	if len(cpuPercents) > 0 {
		values["cpu_used_percent"] = cpuPercents[0]
	}

	return alerting.Snapshot{
		EquipmentID: p.equipmentID,
		Timestamp:   time.Now().UTC(),
		Values:      values,
	}, nil
}
