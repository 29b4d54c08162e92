package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Orphan kinds reported by the repair service.
const (
	OrphanMissingPayment       = "missing_payment_movement"
	OrphanExcessPayment        = "excess_payment_movement"
	OrphanMissingDeposit       = "missing_deposit_movement"
	OrphanMissingDepositReturn = "missing_deposit_return"
	OrphanMissingForfeit       = "missing_deposit_forfeit"
	OrphanDanglingMovement     = "dangling_movement"
	OrphanCancelledUnbalanced  = "cancelled_rental_unbalanced"
	OrphanDepositOverdrawn     = "deposit_overdrawn"
)

type Orphan struct {
	Kind          string          `json:"kind"`
	StoreID       string          `json:"store_id"`
	RentalID      *string         `json:"rental_id,omitempty"`
	MovementID    *string         `json:"movement_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Fixable       bool            `json:"fixable"`
	Fixed         bool            `json:"fixed"`
	Detail        string          `json:"detail"`
}

type RepairResult struct {
	TotalOrphansFound int      `json:"total_orphans_found"`
	FixedCount        int      `json:"fixed_count"`
	OrphansRemaining  int      `json:"orphans_remaining"`
	Errors            []string `json:"errors"`
	Orphans           []Orphan `json:"orphans"`
}

type OrphanListResponse struct {
	Data  []Orphan `json:"data"`
	Total int      `json:"total"`
}

type DeadLetterQuery struct {
	Limit int64 `form:"limit,default=50" validate:"min=1,max=200"`
}

// DeadLetter is a background job that exhausted its attempts.
type DeadLetter struct {
	JobType  string          `json:"job_type"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	FailedAt string          `json:"failed_at"`
	Attempts int             `json:"attempts"`
}

type DeadLetterResponse struct {
	Queue string       `json:"queue"`
	Total int64        `json:"total"`
	Data  []DeadLetter `json:"data"`
}

type RepairJobResponse struct {
	Queued  bool   `json:"queued"`
	StoreID string `json:"store_id"`
}
