package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"rentalcash/internal/service"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RepairJobPayload is the job body sent to QueueOrphanRepair.
// An empty StoreID repairs every store.
type RepairJobPayload struct {
	StoreID     string `json:"store_id,omitempty"`
	RequestedBy string `json:"requested_by"`
}

// RepairWorker runs queued orphan repairs.
type RepairWorker struct {
	svc service.RepairService
}

func NewRepairWorker(svc service.RepairService) *RepairWorker {
	return &RepairWorker{svc: svc}
}

// Handle decodes the payload and runs the repair for its scope. Malformed
// payloads are not retried.
func (w *RepairWorker) Handle(ctx context.Context, raw json.RawMessage) error {
	var payload RepairJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("repair_worker: invalid payload")
		return nil
	}

	scope := tenant.Platform()
	if payload.StoreID != "" {
		id, err := uuid.Parse(payload.StoreID)
		if err != nil {
			log.Error().Str("store_id", payload.StoreID).Msg("repair_worker: invalid store_id")
			return nil
		}
		scope = tenant.ForStore(id)
	}
	userID, _ := uuid.Parse(payload.RequestedBy)

	res, err := w.svc.Repair(ctx, scope, userID)
	if err != nil {
		return fmt.Errorf("repair %s: %w", scope, err)
	}
	log.Info().
		Str("scope", scope.String()).
		Int("found", res.TotalOrphansFound).
		Int("fixed", res.FixedCount).
		Int("remaining", res.OrphansRemaining).
		Strs("errors", res.Errors).
		Msg("repair_worker: run finished")
	return nil
}
