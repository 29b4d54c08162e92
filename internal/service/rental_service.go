package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rentalcash/internal/dto"
	"rentalcash/internal/model"
	"rentalcash/internal/reconcile"
	"rentalcash/internal/repository"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RentalService is the bridge between rental events and the ledger. Every
// money-moving operation checks the active session, emits its movements and
// saves the rental in one transaction.
type RentalService interface {
	Create(ctx context.Context, scope tenant.Scope, userID uuid.UUID, req dto.CreateRentalRequest) (*dto.RentalPaymentResult, error)
	AddPayment(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID, req dto.AdditionalPaymentRequest) (*dto.RentalPaymentResult, error)
	Return(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID, req dto.ReturnRequest) (*dto.RentalPaymentResult, error)
	ChangePaymentMethod(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID, req dto.PaymentMethodChangeRequest) (*dto.RentalPaymentResult, error)
	SwapItem(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID, req dto.SwapItemRequest) (*dto.RentalPaymentResult, error)
	Cancel(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID) (*dto.RentalPaymentResult, error)
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*dto.RentalResponse, error)
	List(ctx context.Context, scope tenant.Scope, f dto.RentalFilter) (*dto.RentalListResponse, error)
	// ReverseMovement deletes a movement and rolls its effect back on the
	// referenced rental.
	ReverseMovement(ctx context.Context, scope tenant.Scope, userID, movementID uuid.UUID) (*dto.MovementResponse, error)
}

type rentalService struct {
	tx        repository.Transactor
	rentals   repository.RentalRepository
	items     repository.ItemRepository
	movements repository.CashMovementRepository
	sessions  CashSessionService
	ledger    LedgerService
	clock
}

func NewRentalService(repos repository.Set, sessions CashSessionService, ledger LedgerService, clk clock) RentalService {
	return &rentalService{
		tx:        repos.Tx,
		rentals:   repos.Rentals,
		items:     repos.Items,
		movements: repos.Movements,
		sessions:  sessions,
		ledger:    ledger,
		clock:     clk,
	}
}

// ── Movement emission ────────────────────────────────────────────────────────

// emitter appends the movements of one rental operation to the active session.
type emitter struct {
	ctx     context.Context
	scope   tenant.Scope
	ledger  LedgerService
	session *model.CashSession
	rental  *model.Rental
	userID  uuid.UUID
	created []model.CashMovement
}

// emit skips zero amounts. The idempotency key ties the movement to the
// rental version it was computed from.
func (e *emitter) emit(op, movementType, method, category string, amount decimal.Decimal, concept string) error {
	if !amount.IsPositive() {
		return nil
	}
	m, err := e.ledger.Append(e.ctx, e.scope, MovementInput{
		SessionID:      e.session.ID,
		Type:           movementType,
		Method:         method,
		Category:       category,
		Amount:         amount,
		Concept:        concept,
		ReferenceID:    &e.rental.ID,
		ReferenceType:  model.ReferenceRental,
		IdempotencyKey: fmt.Sprintf("rental:%s:v%d:%s", e.rental.ID, e.rental.Version, op),
		CreatedBy:      e.userID,
	})
	if err != nil {
		return err
	}
	e.created = append(e.created, *m)
	return nil
}

// paidByMethod is the rental money (rental and rental_adjustment, net) the
// ledger holds in each payment method. A rental paid partly by card and partly
// in cash has two non-zero buckets whatever its payment_method says.
func (s *rentalService) paidByMethod(ctx context.Context, scope tenant.Scope, rentalID uuid.UUID) (map[string]decimal.Decimal, error) {
	ms, _, err := s.movements.List(ctx, scope, repository.MovementFilter{
		ReferenceID:   &rentalID,
		ReferenceType: model.ReferenceRental,
	})
	if err != nil {
		return nil, err
	}
	paid := make(map[string]decimal.Decimal, len(model.LedgerMethods))
	for _, method := range model.LedgerMethods {
		paid[method] = decimal.Zero
	}
	for _, m := range ms {
		if m.Category != model.CategoryRental && m.Category != model.CategoryRentalAdjustment {
			continue
		}
		switch m.MovementType {
		case model.MovementIncome:
			paid[m.PaymentMethod] = paid[m.PaymentMethod].Add(m.Amount)
		case model.MovementExpense, model.MovementRefund:
			paid[m.PaymentMethod] = paid[m.PaymentMethod].Sub(m.Amount)
		}
	}
	return paid, nil
}

// refundAcross refunds up to amount, taking from the preferred method first
// and never more than the ledger holds in a method. It returns the amount
// refunded.
func refundAcross(e *emitter, op string, paid map[string]decimal.Decimal, preferred string, amount decimal.Decimal, concept string) (decimal.Decimal, error) {
	order := make([]string, 0, len(model.LedgerMethods))
	if model.IsLedgerMethod(preferred) {
		order = append(order, preferred)
	}
	for _, method := range model.LedgerMethods {
		if method != preferred {
			order = append(order, method)
		}
	}
	refunded := decimal.Zero
	for _, method := range order {
		left := amount.Sub(refunded)
		if !left.IsPositive() {
			break
		}
		take := decimal.Min(left, paid[method])
		if !take.IsPositive() {
			continue
		}
		if err := e.emit(op+":"+method, model.MovementRefund, method,
			model.CategoryRentalAdjustment, take, concept); err != nil {
			return refunded, err
		}
		paid[method] = paid[method].Sub(take)
		refunded = refunded.Add(take)
	}
	return refunded, nil
}

// mutate loads the rental, lets fn change it and emit movements, then saves
// it under the version check. A lost race is retried once.
func (s *rentalService) mutate(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID, fn func(e *emitter) error) (*dto.RentalPaymentResult, error) {
	var result *dto.RentalPaymentResult
	err := retryOnConflict(func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			sess, err := s.sessions.RequireActive(ctx, scope)
			if err != nil {
				return err
			}
			rental, err := s.findRental(ctx, scope, id)
			if err != nil {
				return err
			}
			e := &emitter{ctx: ctx, scope: scope, ledger: s.ledger, session: sess, rental: rental, userID: userID}
			if err := fn(e); err != nil {
				return err
			}
			rental.RecomputePending()
			if err := s.rentals.Update(ctx, scope, rental); err != nil {
				return err
			}
			result = paymentResult(rental, e.created)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *rentalService) findRental(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*model.Rental, error) {
	r, err := s.rentals.FindByID(ctx, scope, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRentalNotFound
	}
	return r, err
}

func paymentResult(r *model.Rental, movements []model.CashMovement) *dto.RentalPaymentResult {
	return &dto.RentalPaymentResult{
		Rental:    toRentalResponse(r),
		Movements: toMovementResponses(movements),
	}
}

// ── Operations ───────────────────────────────────────────────────────────────

func (s *rentalService) Create(ctx context.Context, scope tenant.Scope, userID uuid.UUID, req dto.CreateRentalRequest) (*dto.RentalPaymentResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	if !model.IsRentalMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	if req.PaidAmount.IsNegative() || req.Deposit.IsNegative() || req.Discount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if req.PaymentMethod == model.PaymentPending && req.PaidAmount.IsPositive() {
		return nil, ErrInvalidPaymentMethod
	}
	depositMethod := ""
	if req.Deposit.IsPositive() {
		depositMethod = req.DepositPaymentMethod
		if depositMethod == "" {
			depositMethod = req.PaymentMethod
		}
		if !model.IsLedgerMethod(depositMethod) {
			return nil, ErrInvalidPaymentMethod
		}
	}

	var result *dto.RentalPaymentResult
	err := retryOnConflict(func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			sess, err := s.sessions.RequireActive(ctx, scope)
			if err != nil {
				return err
			}
			rental := &model.Rental{
				ID:                   uuid.New(),
				CustomerName:         req.CustomerName,
				Status:               model.RentalActive,
				PaymentMethod:        req.PaymentMethod,
				Deposit:              req.Deposit.Round(2),
				DepositPaymentMethod: depositMethod,
				Version:              1,
				CreatedBy:            userID,
				CreatedAt:            s.now(),
			}

			subtotal := decimal.Zero
			for _, line := range req.Items {
				ri, err := s.reserveLine(ctx, scope, line.Barcode, line.Quantity, line.UnitPrice)
				if err != nil {
					return err
				}
				subtotal = subtotal.Add(ri.LineTotal())
				rental.Items = append(rental.Items, *ri)
			}

			discount := req.Discount.Round(2)
			if discount.GreaterThan(subtotal) {
				return ErrInvalidAmount
			}
			rental.Subtotal = subtotal
			rental.Discount = discount
			rental.TotalAmount = subtotal.Sub(discount)

			paid := req.PaidAmount.Round(2)
			if paid.GreaterThan(rental.TotalAmount) {
				return &ExcessPaymentError{Requested: paid, Pending: rental.TotalAmount}
			}
			rental.PaidAmount = paid
			rental.RecomputePending()

			if err := s.rentals.Create(ctx, scope, rental); err != nil {
				return err
			}

			e := &emitter{ctx: ctx, scope: scope, ledger: s.ledger, session: sess, rental: rental, userID: userID}
			if err := e.emit("created:payment", model.MovementIncome, rental.PaymentMethod,
				model.CategoryRental, rental.PaidAmount, "rental payment"); err != nil {
				return err
			}
			if err := e.emit("created:deposit", model.MovementIncome, depositMethod,
				model.CategoryDeposit, rental.Deposit, "rental deposit"); err != nil {
				return err
			}
			result = paymentResult(rental, e.created)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("rental_id", result.Rental.ID).
		Str("store_id", result.Rental.StoreID).
		Str("total", result.Rental.TotalAmount.StringFixed(2)).
		Str("paid", result.Rental.PaidAmount.StringFixed(2)).
		Msg("rental created")
	return result, nil
}

// reserveLine takes units of an item out of the pool and builds the rental line.
// Serialized items always rent one unit.
func (s *rentalService) reserveLine(ctx context.Context, scope tenant.Scope, barcode string, qty int, price *decimal.Decimal) (*model.RentalItem, error) {
	it, err := s.items.FindByBarcode(ctx, scope, barcode)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, barcode)
	}
	if err != nil {
		return nil, err
	}
	if !it.IsGeneric || qty <= 0 {
		qty = 1
	}
	if avail := it.Available(); avail < qty {
		return nil, &ItemAlreadyRentedError{Barcode: barcode, Available: avail, Requested: qty}
	}
	unitPrice := it.Price
	if price != nil {
		if price.IsNegative() {
			return nil, ErrInvalidAmount
		}
		unitPrice = *price
	}
	it.Reserve(qty)
	if err := s.items.Update(ctx, scope, it); err != nil {
		return nil, err
	}
	return &model.RentalItem{
		ID:        uuid.New(),
		ItemID:    it.ID,
		Barcode:   it.Barcode,
		Name:      it.Name,
		IsGeneric: it.IsGeneric,
		UnitPrice: unitPrice.Round(2),
		Quantity:  qty,
	}, nil
}

// releaseItem puts qty units of the catalog item back. Items removed from the
// catalog are skipped.
func (s *rentalService) releaseItem(ctx context.Context, scope tenant.Scope, itemID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	it, err := s.items.FindByID(ctx, scope, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	it.Release(qty)
	return s.items.Update(ctx, scope, it)
}

func (s *rentalService) AddPayment(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID, req dto.AdditionalPaymentRequest) (*dto.RentalPaymentResult, error) {
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return s.mutate(ctx, scope, userID, id, func(e *emitter) error {
		r := e.rental
		if r.Status == model.RentalCancelled {
			return ErrRentalNotActive
		}
		r.RecomputePending()
		if amount.GreaterThan(r.PendingAmount) {
			return &ExcessPaymentError{Requested: amount, Pending: r.PendingAmount}
		}
		method := req.PaymentMethod
		if method == "" {
			method = r.PaymentMethod
		}
		if !model.IsLedgerMethod(method) {
			return ErrInvalidPaymentMethod
		}
		if err := e.emit("payment", model.MovementIncome, method,
			model.CategoryRentalAdjustment, amount, "additional payment"); err != nil {
			return err
		}
		r.PaidAmount = r.PaidAmount.Add(amount)
		if r.PaymentMethod == model.PaymentPending {
			r.PaymentMethod = method
		}
		return nil
	})
}

func (s *rentalService) Return(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID, req dto.ReturnRequest) (*dto.RentalPaymentResult, error) {
	if len(req.Items) == 0 && req.DepositAction == "" {
		return nil, ErrEmptyReturn
	}
	return s.mutate(ctx, scope, userID, id, func(e *emitter) error {
		r := e.rental
		if r.Status == model.RentalCancelled {
			return ErrRentalNotActive
		}
		for _, line := range req.Items {
			if err := s.returnLine(e.ctx, scope, r, line.Barcode, line.Quantity); err != nil {
				return err
			}
		}
		r.Status = reconcile.ComputeStatus(r.Items, false)
		if req.DepositAction != "" {
			return settleDeposit(e, req.DepositAction)
		}
		return nil
	})
}

// returnLine books qty units of barcode as returned, spread over the lines
// still holding it. qty <= 0 returns everything outstanding; more than
// outstanding is clamped.
func (s *rentalService) returnLine(ctx context.Context, scope tenant.Scope, r *model.Rental, barcode string, qty int) error {
	outstanding := 0
	for i := range r.Items {
		if r.Items[i].Barcode == barcode {
			outstanding += r.Items[i].Outstanding()
		}
	}
	if outstanding == 0 {
		return &ItemNotRentedError{Barcode: barcode}
	}
	if qty <= 0 || qty > outstanding {
		qty = outstanding
	}
	for i := range r.Items {
		if qty == 0 {
			break
		}
		line := &r.Items[i]
		if line.Barcode != barcode || line.Outstanding() == 0 {
			continue
		}
		n := reconcile.ApplyReturn(line, qty)
		if err := s.releaseItem(ctx, scope, line.ItemID, n); err != nil {
			return err
		}
		qty -= n
	}
	return nil
}

// forfeitReleaseSuffix marks the deposit expense half of a forfeit; its
// idempotency key is the forfeit income key plus this suffix.
const forfeitReleaseSuffix = "_release"

// settleDeposit returns or forfeits the deposit. A forfeit takes the amount
// out of the deposit category and books it as forfeited revenue in the same
// method, so the drawer balance does not move.
func settleDeposit(e *emitter, action string) error {
	r := e.rental
	if !r.Deposit.IsPositive() {
		return ErrNoDeposit
	}
	if r.DepositSettled() {
		return &DepositAlreadySettledError{State: r.DepositState(), Requested: action}
	}
	method := r.DepositPaymentMethod
	if !model.IsLedgerMethod(method) {
		return ErrInvalidPaymentMethod
	}
	switch action {
	case "return":
		if err := e.emit("deposit_return", model.MovementExpense, method,
			model.CategoryDepositReturn, r.Deposit, "deposit returned"); err != nil {
			return err
		}
		r.DepositReturned = true
	case "forfeit":
		if err := e.emit("deposit_forfeit"+forfeitReleaseSuffix, model.MovementExpense, method,
			model.CategoryDeposit, r.Deposit, "deposit reclassified as forfeited"); err != nil {
			return err
		}
		if err := e.emit("deposit_forfeit", model.MovementIncome, method,
			model.CategoryDepositForfeited, r.Deposit, "deposit forfeited"); err != nil {
			return err
		}
		r.DepositForfeited = true
	default:
		return fmt.Errorf("deposit_action %q: %w", action, ErrInvalidMovementType)
	}
	return nil
}

func (s *rentalService) ChangePaymentMethod(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID, req dto.PaymentMethodChangeRequest) (*dto.RentalPaymentResult, error) {
	if !model.IsRentalMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	return s.mutate(ctx, scope, userID, id, func(e *emitter) error {
		r := e.rental
		if r.Status == model.RentalCancelled {
			return ErrRentalNotActive
		}
		from, to := r.PaymentMethod, req.PaymentMethod
		if from == to {
			return ErrSamePaymentMethod
		}
		concept := fmt.Sprintf("payment method %s -> %s", from, to)

		switch {
		case from == model.PaymentPending:
			// The customer settles the balance in the new method.
			r.RecomputePending()
			if err := e.emit("method_collect", model.MovementIncome, to,
				model.CategoryRental, r.PendingAmount, concept); err != nil {
				return err
			}
			r.PaidAmount = r.PaidAmount.Add(r.PendingAmount)
		case to == model.PaymentPending:
			// Everything collected so far goes back out of the method it came in.
			paid, err := s.paidByMethod(e.ctx, scope, r.ID)
			if err != nil {
				return err
			}
			for _, method := range model.LedgerMethods {
				if err := e.emit("method_out:"+method, model.MovementExpense, method,
					model.CategoryRental, paid[method], concept); err != nil {
					return err
				}
			}
			r.PaidAmount = decimal.Zero
		default:
			// Only the money held in the old method moves; other buckets stay.
			paid, err := s.paidByMethod(e.ctx, scope, r.ID)
			if err != nil {
				return err
			}
			moved := paid[from]
			if err := e.emit("method_out", model.MovementExpense, from,
				model.CategoryRental, moved, concept); err != nil {
				return err
			}
			if err := e.emit("method_in", model.MovementIncome, to,
				model.CategoryRental, moved, concept); err != nil {
				return err
			}
		}
		r.PaymentMethod = to
		return nil
	})
}

func (s *rentalService) SwapItem(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID, req dto.SwapItemRequest) (*dto.RentalPaymentResult, error) {
	if req.OldBarcode == req.NewBarcode {
		return nil, &ItemNotRentedError{Barcode: req.NewBarcode}
	}
	if req.PaymentMethod != "" && !model.IsRentalMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	return s.mutate(ctx, scope, userID, id, func(e *emitter) error {
		r := e.rental
		if r.Status == model.RentalCancelled || r.Status == model.RentalReturned {
			return ErrRentalNotActive
		}

		idx := -1
		for i := range r.Items {
			if r.Items[i].Barcode == req.OldBarcode && r.Items[i].Outstanding() > 0 {
				idx = i
				break
			}
		}
		if idx < 0 {
			return &ItemNotRentedError{Barcode: req.OldBarcode}
		}
		old := r.Items[idx]
		n := old.Outstanding()

		replacement, err := s.items.FindByBarcode(e.ctx, scope, req.NewBarcode)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrItemNotFound, req.NewBarcode)
		}
		if err != nil {
			return err
		}
		if !replacement.IsGeneric && n > 1 {
			return &ItemAlreadyRentedError{Barcode: req.NewBarcode, Available: replacement.Available(), Requested: n}
		}
		ri, err := s.reserveLine(e.ctx, scope, req.NewBarcode, n, req.UnitPrice)
		if err != nil {
			return err
		}
		if err := s.releaseItem(e.ctx, scope, old.ItemID, n); err != nil {
			return err
		}

		// The swapped units leave the old line; a line with nothing left is dropped.
		r.Items[idx].Quantity -= n
		if r.Items[idx].Quantity == 0 {
			r.Items = append(r.Items[:idx], r.Items[idx+1:]...)
		} else {
			r.Items[idx].Returned = true
		}
		r.Items = append(r.Items, *ri)

		oldValue := old.UnitPrice.Mul(decimal.NewFromInt(int64(n)))
		delta := ri.LineTotal().Sub(oldValue)
		r.Subtotal = r.Subtotal.Add(delta)
		r.TotalAmount = r.TotalAmount.Add(delta)
		if r.TotalAmount.IsNegative() {
			r.TotalAmount = decimal.Zero
		}

		method := req.PaymentMethod
		if method == "" {
			method = r.PaymentMethod
		}
		concept := fmt.Sprintf("swap %s -> %s", req.OldBarcode, req.NewBarcode)
		switch {
		case delta.IsPositive() && model.IsLedgerMethod(method):
			if err := e.emit("swap_charge", model.MovementIncome, method,
				model.CategoryRentalAdjustment, delta, concept); err != nil {
				return err
			}
			r.PaidAmount = r.PaidAmount.Add(delta)
		case delta.IsNegative():
			refundMethod := method
			if !model.IsLedgerMethod(refundMethod) {
				refundMethod = r.PaymentMethod
			}
			overpaid := r.PaidAmount.Sub(r.TotalAmount)
			if overpaid.IsPositive() {
				paid, err := s.paidByMethod(e.ctx, scope, r.ID)
				if err != nil {
					return err
				}
				refunded, err := refundAcross(e, "swap_refund", paid, refundMethod, decimal.Min(delta.Neg(), overpaid), concept)
				if err != nil {
					return err
				}
				r.PaidAmount = r.PaidAmount.Sub(refunded)
			}
		}
		r.Status = reconcile.ComputeStatus(r.Items, false)
		return nil
	})
}

func (s *rentalService) Cancel(ctx context.Context, scope tenant.Scope, userID, id uuid.UUID) (*dto.RentalPaymentResult, error) {
	return s.mutate(ctx, scope, userID, id, func(e *emitter) error {
		r := e.rental
		if r.Status == model.RentalCancelled || r.Status == model.RentalReturned {
			return ErrRentalNotActive
		}
		for i := range r.Items {
			line := &r.Items[i]
			if err := s.releaseItem(e.ctx, scope, line.ItemID, line.Outstanding()); err != nil {
				return err
			}
			line.ReturnedQuantity = line.Quantity
			line.Returned = true
		}
		// Each method gets back what the ledger holds in it.
		paid, err := s.paidByMethod(e.ctx, scope, r.ID)
		if err != nil {
			return err
		}
		for _, method := range model.LedgerMethods {
			if err := e.emit("cancel_refund:"+method, model.MovementRefund, method,
				model.CategoryRental, paid[method], "rental cancelled"); err != nil {
				return err
			}
		}
		r.PaidAmount = decimal.Zero
		if r.Deposit.IsPositive() && !r.DepositSettled() {
			if err := e.emit("cancel_deposit_return", model.MovementExpense, r.DepositPaymentMethod,
				model.CategoryDepositReturn, r.Deposit, "deposit returned on cancel"); err != nil {
				return err
			}
			r.DepositReturned = true
		}
		r.Status = model.RentalCancelled
		return nil
	})
}

func (s *rentalService) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*dto.RentalResponse, error) {
	r, err := s.findRental(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	resp := toRentalResponse(r)
	return &resp, nil
}

func (s *rentalService) List(ctx context.Context, scope tenant.Scope, f dto.RentalFilter) (*dto.RentalListResponse, error) {
	rows, total, err := s.rentals.List(ctx, scope, repository.RentalFilter{
		Status: f.Status,
		Page:   repository.Page{Page: f.Page, Limit: f.Limit},
	})
	if err != nil {
		return nil, err
	}
	data := make([]dto.RentalResponse, 0, len(rows))
	for i := range rows {
		data = append(data, toRentalResponse(&rows[i]))
	}
	return &dto.RentalListResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *rentalService) ReverseMovement(ctx context.Context, scope tenant.Scope, userID, movementID uuid.UUID) (*dto.MovementResponse, error) {
	var deleted *model.CashMovement
	err := retryOnConflict(func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			m, err := s.ledger.Delete(ctx, scope, userID, movementID)
			if err != nil {
				return err
			}
			deleted = m
			if m.ReferenceType != model.ReferenceRental || m.ReferenceID == nil {
				return nil
			}
			// A forfeit is two movements; one never goes without the other.
			partner, err := s.forfeitPartner(ctx, scope, m)
			if err != nil {
				return err
			}
			if partner != nil {
				if _, err := s.ledger.Delete(ctx, scope, userID, partner.ID); err != nil {
					return err
				}
			}
			r, err := s.rentals.FindByID(ctx, scope, *m.ReferenceID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if !compensate(r, m) {
				return nil
			}
			r.RecomputePending()
			return s.rentals.Update(ctx, scope, r)
		})
	})
	if err != nil {
		return nil, err
	}
	resp := toMovementResponse(deleted)
	return &resp, nil
}

// forfeitPartner finds the other half of a forfeit movement, or nil when m is
// not part of one.
func (s *rentalService) forfeitPartner(ctx context.Context, scope tenant.Scope, m *model.CashMovement) (*model.CashMovement, error) {
	if m.IdempotencyKey == nil {
		return nil, nil
	}
	key := *m.IdempotencyKey
	var want string
	switch {
	case m.Category == model.CategoryDepositForfeited && m.MovementType == model.MovementIncome:
		want = key + forfeitReleaseSuffix
	case m.Category == model.CategoryDeposit && m.MovementType == model.MovementExpense && strings.HasSuffix(key, forfeitReleaseSuffix):
		want = strings.TrimSuffix(key, forfeitReleaseSuffix)
	default:
		return nil, nil
	}
	ms, _, err := s.movements.List(ctx, scope, repository.MovementFilter{
		ReferenceID:   m.ReferenceID,
		ReferenceType: model.ReferenceRental,
	})
	if err != nil {
		return nil, err
	}
	for i := range ms {
		if ms[i].IdempotencyKey != nil && *ms[i].IdempotencyKey == want {
			return &ms[i], nil
		}
	}
	return nil, nil
}

// compensate undoes the effect a deleted movement had on the rental's money
// fields and reports whether anything changed.
func compensate(r *model.Rental, m *model.CashMovement) bool {
	switch m.Category {
	case model.CategoryRental, model.CategoryRentalAdjustment:
		switch m.MovementType {
		case model.MovementIncome:
			r.PaidAmount = r.PaidAmount.Sub(m.Amount)
			if r.PaidAmount.IsNegative() {
				r.PaidAmount = decimal.Zero
			}
		case model.MovementExpense, model.MovementRefund:
			r.PaidAmount = r.PaidAmount.Add(m.Amount)
		default:
			return false
		}
		return true
	case model.CategoryDepositReturn:
		if m.MovementType != model.MovementExpense || !r.DepositReturned {
			return false
		}
		r.DepositReturned = false
		return true
	case model.CategoryDepositForfeited:
		if m.MovementType != model.MovementIncome || !r.DepositForfeited {
			return false
		}
		r.DepositForfeited = false
		return true
	case model.CategoryDeposit:
		// Deposit expenses only come from the release half of a forfeit.
		if m.MovementType != model.MovementExpense || !r.DepositForfeited {
			return false
		}
		r.DepositForfeited = false
		return true
	}
	return false
}
