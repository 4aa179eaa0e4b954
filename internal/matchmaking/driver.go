package matchmaking

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

// Driver runs the fixed-cadence pairing loop for a set of pools: every
// PairingInterval it drains each pool of ready pairs, and every
// CleanupInterval it evicts stale entries. It performs no action when fewer
// than two players are queued.
type Driver struct {
	scheduler gocron.Scheduler
	services  []*Service
}

// NewDriver wires the pools into a scheduler without starting it.
func NewDriver(services ...*Service) (*Driver, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create pairing scheduler: %w", err)
	}

	d := &Driver{scheduler: scheduler, services: services}
	for _, svc := range services {
		svc := svc
		if _, err := scheduler.NewJob(
			gocron.DurationJob(svc.cfg.PairingInterval),
			gocron.NewTask(func() { d.drainPool(svc) }),
		); err != nil {
			return nil, fmt.Errorf("failed to schedule pairing job for pool %s: %w", svc.Mode(), err)
		}
		if _, err := scheduler.NewJob(
			gocron.DurationJob(svc.cfg.CleanupInterval),
			gocron.NewTask(func() { svc.CleanupStaleEntries() }),
		); err != nil {
			return nil, fmt.Errorf("failed to schedule cleanup job for pool %s: %w", svc.Mode(), err)
		}
	}
	return d, nil
}

// Start begins the pairing cadence.
func (d *Driver) Start() {
	d.scheduler.Start()
	log.Info("Matchmaking driver started", "pools", len(d.services))
}

// Stop shuts the scheduler down, waiting for in-flight jobs.
func (d *Driver) Stop() error {
	return d.scheduler.Shutdown()
}

// drainPool pairs players until the pool can no longer produce a pair.
// A persistence failure already rolled the pair back, so retrying in the
// same tick would spin; the error is logged and retried next tick.
func (d *Driver) drainPool(svc *Service) {
	ctx := context.Background()
	for {
		m, err := svc.TryAutoPair(ctx)
		if err != nil {
			log.Error("Auto-pair attempt failed", "pool", svc.Mode(), "error", err)
			return
		}
		if m == nil {
			return
		}
	}
}
