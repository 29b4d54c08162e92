package worker

// repair_cron.go
// Background goroutine that periodically scans every store for rentals whose
// payments never reached the ledger and books the missing movements. Each
// store has its own circuit breaker so one failing store does not get
// hammered on every tick.

import (
	"context"
	"sort"
	"time"

	"rentalcash/internal/infra"
	"rentalcash/internal/service"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RepairCronConfig holds all dependencies for the repair goroutine.
type RepairCronConfig struct {
	Repair   service.RepairService
	Breakers *infra.BreakerSet
	Interval time.Duration
}

// StartRepairCron launches the ticker. A zero Interval disables it.
// It respects the context for graceful shutdown.
func StartRepairCron(ctx context.Context, cfg RepairCronConfig) {
	if cfg.Interval <= 0 {
		log.Info().Msg("repair_cron: disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("repair_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("repair_cron: shutting down")
				return
			case <-ticker.C:
				runRepairTick(ctx, cfg)
			}
		}
	}()
}

// runRepairTick repairs each store once. It returns the number of orphans fixed.
func runRepairTick(ctx context.Context, cfg RepairCronConfig) int {
	stores, err := cfg.Repair.Stores(ctx)
	if err != nil {
		log.Error().Err(err).Msg("repair_cron: failed to list stores")
		return 0
	}

	fixed := 0
	for _, storeID := range stores {
		if ctx.Err() != nil {
			return fixed
		}
		cb := cfg.Breakers.For(storeID.String())
		if cb.State() == infra.CBOpen {
			log.Debug().Str("store_id", storeID.String()).Msg("repair_cron: circuit breaker is open, skipping store")
			continue
		}

		cbErr := cb.Execute(func() error {
			// uuid.Nil marks system-authored movements
			res, err := cfg.Repair.Repair(ctx, tenant.ForStore(storeID), uuid.Nil)
			if err != nil {
				return err
			}
			fixed += res.FixedCount
			if res.TotalOrphansFound > 0 {
				log.Info().
					Str("store_id", storeID.String()).
					Int("found", res.TotalOrphansFound).
					Int("fixed", res.FixedCount).
					Int("remaining", res.OrphansRemaining).
					Msg("repair_cron: store repaired")
			}
			return nil
		})
		if cbErr != nil {
			log.Warn().Err(cbErr).Str("store_id", storeID.String()).Str("breaker", cb.State().String()).Msg("repair_cron: repair failed")
		}
	}
	if open := openBreakers(cfg.Breakers.States()); len(open) > 0 {
		log.Warn().Strs("stores", open).Msg("repair_cron: stores skipped until their breaker closes")
	}
	return fixed
}

// openBreakers lists the keys whose breaker is not closed, sorted.
func openBreakers(states map[string]string) []string {
	var open []string
	for store, state := range states {
		if state != infra.CBClosed.String() {
			open = append(open, store)
		}
	}
	sort.Strings(open)
	return open
}
