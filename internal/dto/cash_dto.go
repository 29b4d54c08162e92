package dto

import (
	"rentalcash/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance" validate:"min=0"`
}

// CloseSessionRequest carries the blind count of the drawer and card terminal.
type CloseSessionRequest struct {
	PhysicalCash decimal.Decimal `json:"physical_cash" validate:"min=0"`
	CardTotal    decimal.Decimal `json:"card_total"    validate:"min=0"`
	Notes        string          `json:"notes"         validate:"max=500"`
}

// RecordMovementRequest is a manual cash-in / cash-out. Rental categories are
// reserved for the rental hooks.
type RecordMovementRequest struct {
	MovementType  string          `json:"movement_type"  validate:"required,oneof=income expense refund adjustment"`
	Amount        decimal.Decimal `json:"amount"         validate:"gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cash card"`
	Category      string          `json:"category"       validate:"required,oneof=manual external_repair other"`
	Concept       string          `json:"concept"        validate:"required,min=3,max=200"`
	SessionID     string          `json:"session_id"     validate:"omitempty,uuid"`
	ReferenceID   string          `json:"reference_id"   validate:"omitempty,uuid"`
	ReferenceType string          `json:"reference_type" validate:"max=20"`
	// IdempotencyKey is filled from the Idempotency-Key header.
	IdempotencyKey string `json:"-"`
}

// ─── Filters ─────────────────────────────────────────────────────────────────

type SessionFilter struct {
	Status string `form:"status"             validate:"omitempty,oneof=open closed"`
	Page   int    `form:"page,default=1"     validate:"min=1"`
	Limit  int    `form:"limit,default=50"   validate:"min=1,max=200"`
}

type MovementFilter struct {
	Date          string `form:"date"           validate:"omitempty,datetime=2006-01-02"`
	SessionID     string `form:"session_id"     validate:"omitempty,uuid"`
	Category      string `form:"category"       validate:"omitempty,oneof=rental rental_adjustment deposit deposit_return deposit_forfeited external_repair manual other"`
	PaymentMethod string `form:"payment_method" validate:"omitempty,oneof=cash card"`
	ReferenceID   string `form:"reference_id"   validate:"omitempty,uuid"`
	Page          int    `form:"page,default=1"   validate:"min=1"`
	Limit         int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type ClosureFilter struct {
	From  string `form:"from"             validate:"omitempty,datetime=2006-01-02"`
	To    string `form:"to"               validate:"omitempty,datetime=2006-01-02"`
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// SummaryQuery selects the movement set: a session, a date, or the live session.
type SummaryQuery struct {
	SessionID string `form:"session_id" validate:"omitempty,uuid"`
	Date      string `form:"date"       validate:"omitempty,datetime=2006-01-02"`
}

type RangeQuery struct {
	From string `form:"from" validate:"required,datetime=2006-01-02"`
	To   string `form:"to"   validate:"required,datetime=2006-01-02"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SessionResponse struct {
	ID             string          `json:"id"`
	StoreID        string          `json:"store_id"`
	SessionNumber  int             `json:"session_number"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	OpenedBy       string          `json:"opened_by"`
	OpenedAt       string          `json:"opened_at"`
	Status         string          `json:"status"`
	ClosureID      *string         `json:"closure_id"`
	ClosedAt       *string         `json:"closed_at"`
	Summary        *model.Summary  `json:"summary,omitempty"`
}

type SessionListResponse struct {
	Data  []SessionResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type MovementResponse struct {
	ID            string          `json:"id"`
	StoreID       string          `json:"store_id"`
	SessionID     *string         `json:"session_id"`
	MovementType  string          `json:"movement_type"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Category      string          `json:"category"`
	Concept       string          `json:"concept"`
	ReferenceID   *string         `json:"reference_id"`
	ReferenceType string          `json:"reference_type"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     string          `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type ClosureResponse struct {
	ID               string          `json:"id"`
	StoreID          string          `json:"store_id"`
	SessionID        string          `json:"session_id"`
	Date             string          `json:"date"`
	ClosureNumber    int             `json:"closure_number"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	PhysicalCash     decimal.Decimal `json:"physical_cash"`
	CardTotal        decimal.Decimal `json:"card_total"`
	ExpectedCash     decimal.Decimal `json:"expected_cash"`
	ExpectedCard     decimal.Decimal `json:"expected_card"`
	DiscrepancyCash  decimal.Decimal `json:"discrepancy_cash"`
	DiscrepancyCard  decimal.Decimal `json:"discrepancy_card"`
	DiscrepancyTotal decimal.Decimal `json:"discrepancy_total"`
	DiscrepancyLevel string          `json:"discrepancy_level"` // ok | minor | major
	Totals           model.Summary   `json:"totals"`
	MovementsCount   int             `json:"movements_count"`
	PeriodStart      string          `json:"period_start"`
	ClosedBy         string          `json:"closed_by"`
	ClosedAt         string          `json:"closed_at"`
	Notes            string          `json:"notes"`
}

type ClosureListResponse struct {
	Data  []ClosureResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// SummaryResponse wraps the reconciliation output with the scope it covers.
// Scope: session | date | range
type SummaryResponse struct {
	Scope     string        `json:"scope"`
	SessionID *string       `json:"session_id,omitempty"`
	From      string        `json:"from,omitempty"`
	To        string        `json:"to,omitempty"`
	Summary   model.Summary `json:"summary"`
}
