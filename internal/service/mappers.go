package service

import (
	"time"

	"rentalcash/internal/dto"
	"rentalcash/internal/model"

	"github.com/google/uuid"
)

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseOptionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func toSessionResponse(s *model.CashSession) dto.SessionResponse {
	return dto.SessionResponse{
		ID:             s.ID.String(),
		StoreID:        s.StoreID.String(),
		SessionNumber:  s.SessionNumber,
		OpeningBalance: s.OpeningBalance,
		OpenedBy:       s.OpenedBy.String(),
		OpenedAt:       formatTime(s.OpenedAt),
		Status:         s.Status,
		ClosureID:      uuidPtrString(s.ClosureID),
		ClosedAt:       formatTimePtr(s.ClosedAt),
	}
}

func toMovementResponse(m *model.CashMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:            m.ID.String(),
		StoreID:       m.StoreID.String(),
		SessionID:     uuidPtrString(m.SessionID),
		MovementType:  m.MovementType,
		Amount:        m.Amount,
		PaymentMethod: m.PaymentMethod,
		Category:      m.Category,
		Concept:       m.Concept,
		ReferenceID:   uuidPtrString(m.ReferenceID),
		ReferenceType: m.ReferenceType,
		CreatedBy:     m.CreatedBy.String(),
		CreatedAt:     formatTime(m.CreatedAt),
	}
}

func toMovementResponses(ms []model.CashMovement) []dto.MovementResponse {
	out := make([]dto.MovementResponse, 0, len(ms))
	for i := range ms {
		out = append(out, toMovementResponse(&ms[i]))
	}
	return out
}

func toClosureResponse(c *model.CashClosure) dto.ClosureResponse {
	return dto.ClosureResponse{
		ID:               c.ID.String(),
		StoreID:          c.StoreID.String(),
		SessionID:        c.SessionID.String(),
		Date:             c.Date,
		ClosureNumber:    c.ClosureNumber,
		OpeningBalance:   c.OpeningBalance,
		PhysicalCash:     c.PhysicalCash,
		CardTotal:        c.CardTotal,
		ExpectedCash:     c.ExpectedCash,
		ExpectedCard:     c.ExpectedCard,
		DiscrepancyCash:  c.DiscrepancyCash,
		DiscrepancyCard:  c.DiscrepancyCard,
		DiscrepancyTotal: c.DiscrepancyTotal,
		DiscrepancyLevel: c.DiscrepancyLevel,
		Totals:           c.Totals,
		MovementsCount:   c.MovementsCount,
		PeriodStart:      formatTime(c.PeriodStart),
		ClosedBy:         c.ClosedBy.String(),
		ClosedAt:         formatTime(c.ClosedAt),
		Notes:            c.Notes,
	}
}

func toRentalResponse(r *model.Rental) dto.RentalResponse {
	items := make([]dto.RentalItemResponse, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, dto.RentalItemResponse{
			ID:               it.ID.String(),
			ItemID:           it.ItemID.String(),
			Barcode:          it.Barcode,
			Name:             it.Name,
			IsGeneric:        it.IsGeneric,
			UnitPrice:        it.UnitPrice,
			Quantity:         it.Quantity,
			ReturnedQuantity: it.ReturnedQuantity,
			Returned:         it.Returned,
		})
	}
	return dto.RentalResponse{
		ID:                   r.ID.String(),
		StoreID:              r.StoreID.String(),
		CustomerName:         r.CustomerName,
		Status:               r.Status,
		Subtotal:             r.Subtotal,
		Discount:             r.Discount,
		TotalAmount:          r.TotalAmount,
		PaidAmount:           r.PaidAmount,
		PendingAmount:        r.PendingAmount,
		Deposit:              r.Deposit,
		DepositPaymentMethod: r.DepositPaymentMethod,
		DepositReturned:      r.DepositReturned,
		DepositForfeited:     r.DepositForfeited,
		PaymentMethod:        r.PaymentMethod,
		Version:              r.Version,
		CreatedAt:            formatTime(r.CreatedAt),
		Items:                items,
	}
}

func toItemResponse(it *model.Item) dto.ItemResponse {
	return dto.ItemResponse{
		ID:             it.ID.String(),
		Barcode:        it.Barcode,
		Name:           it.Name,
		Price:          it.Price,
		IsGeneric:      it.IsGeneric,
		Status:         it.Status,
		StockTotal:     it.StockTotal,
		StockAvailable: it.StockAvailable,
	}
}
