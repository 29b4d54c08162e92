package service

import (
	"context"
	"errors"
	"fmt"

	"rentalcash/internal/dto"
	"rentalcash/internal/model"
	"rentalcash/internal/repository"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RepairService finds rentals whose money fields disagree with the ledger and
// synthesizes the missing movements into the active session.
type RepairService interface {
	FindOrphans(ctx context.Context, scope tenant.Scope) ([]dto.Orphan, error)
	// Repair fixes what it can. Each fix runs in its own transaction; a failed
	// fix is reported in Errors and does not stop the others.
	Repair(ctx context.Context, scope tenant.Scope, userID uuid.UUID) (*dto.RepairResult, error)
	// Stores lists every store that has rentals, for scheduled runs.
	Stores(ctx context.Context) ([]uuid.UUID, error)
}

type repairService struct {
	tx        repository.Transactor
	rentals   repository.RentalRepository
	movements repository.CashMovementRepository
	sessions  CashSessionService
	ledger    LedgerService
}

func NewRepairService(repos repository.Set, sessions CashSessionService, ledger LedgerService) RepairService {
	return &repairService{
		tx:        repos.Tx,
		rentals:   repos.Rentals,
		movements: repos.Movements,
		sessions:  sessions,
		ledger:    ledger,
	}
}

// tally is the ledger's view of one rental.
type tally struct {
	paid            decimal.Decimal // rental + rental_adjustment, net
	depositIn       decimal.Decimal // deposit income
	depositOut      decimal.Decimal // deposit expense (forfeit reclassification)
	depositReturned decimal.Decimal
	forfeited       decimal.Decimal
}

func tallyMovements(ms []model.CashMovement) tally {
	t := tally{
		paid:            decimal.Zero,
		depositIn:       decimal.Zero,
		depositOut:      decimal.Zero,
		depositReturned: decimal.Zero,
		forfeited:       decimal.Zero,
	}
	for _, m := range ms {
		switch m.Category {
		case model.CategoryRental, model.CategoryRentalAdjustment:
			switch m.MovementType {
			case model.MovementIncome:
				t.paid = t.paid.Add(m.Amount)
			case model.MovementExpense, model.MovementRefund:
				t.paid = t.paid.Sub(m.Amount)
			}
		case model.CategoryDeposit:
			switch m.MovementType {
			case model.MovementIncome:
				t.depositIn = t.depositIn.Add(m.Amount)
			case model.MovementExpense, model.MovementRefund:
				t.depositOut = t.depositOut.Add(m.Amount)
			}
		case model.CategoryDepositReturn:
			if m.MovementType != model.MovementAdjustment && m.MovementType != model.MovementIncome {
				t.depositReturned = t.depositReturned.Add(m.Amount)
			}
		case model.CategoryDepositForfeited:
			if m.MovementType == model.MovementIncome {
				t.forfeited = t.forfeited.Add(m.Amount)
			}
		}
	}
	return t
}

// held is the deposit money the ledger still owes back to the customer.
func (t tally) held() decimal.Decimal {
	return t.depositIn.Sub(t.depositOut).Sub(t.depositReturned)
}

func (s *repairService) FindOrphans(ctx context.Context, scope tenant.Scope) ([]dto.Orphan, error) {
	if scope.IsPlatform() {
		var all []dto.Orphan
		err := s.eachStore(ctx, func(store tenant.Scope) error {
			found, err := s.FindOrphans(ctx, store)
			all = append(all, found...)
			return err
		})
		return all, err
	}
	if err := scope.Check(); err != nil {
		return nil, err
	}

	movements, _, err := s.movements.List(ctx, scope, repository.MovementFilter{ReferenceType: model.ReferenceRental})
	if err != nil {
		return nil, err
	}
	byRental := make(map[uuid.UUID][]model.CashMovement)
	var referenced []uuid.UUID
	for _, m := range movements {
		if m.ReferenceID == nil {
			continue
		}
		if _, seen := byRental[*m.ReferenceID]; !seen {
			referenced = append(referenced, *m.ReferenceID)
		}
		byRental[*m.ReferenceID] = append(byRental[*m.ReferenceID], m)
	}

	rentals, err := s.rentals.ListWithMoney(ctx, scope)
	if err != nil {
		return nil, err
	}
	checked := make(map[uuid.UUID]bool, len(rentals))
	var orphans []dto.Orphan
	for i := range rentals {
		checked[rentals[i].ID] = true
		orphans = append(orphans, checkRental(&rentals[i], byRental[rentals[i].ID])...)
	}

	statuses, err := s.rentals.Statuses(ctx, scope, referenced)
	if err != nil {
		return nil, err
	}
	for _, id := range referenced {
		status, exists := statuses[id]
		switch {
		case !exists:
			for _, m := range byRental[id] {
				orphans = append(orphans, danglingOrphan(m))
			}
		case !checked[id] && status == model.RentalCancelled:
			// Cancelled rentals drop out of ListWithMoney once refunded.
			r, err := s.rentals.FindByID(ctx, scope, id)
			if err != nil {
				return nil, err
			}
			orphans = append(orphans, checkRental(r, byRental[id])...)
		}
	}
	return orphans, nil
}

func checkRental(r *model.Rental, ms []model.CashMovement) []dto.Orphan {
	t := tallyMovements(ms)
	rentalID := r.ID.String()
	orphan := func(kind string, amount decimal.Decimal, method string, detail string) dto.Orphan {
		return dto.Orphan{
			Kind:          kind,
			StoreID:       r.StoreID.String(),
			RentalID:      &rentalID,
			Amount:        amount,
			PaymentMethod: method,
			Fixable:       model.IsLedgerMethod(method),
			Detail:        detail,
		}
	}

	var out []dto.Orphan
	if r.Status == model.RentalCancelled {
		if !t.paid.IsZero() || !t.held().IsZero() {
			o := orphan(dto.OrphanCancelledUnbalanced, t.paid.Add(t.held()), "",
				fmt.Sprintf("ledger still holds %s paid and %s deposit", t.paid.StringFixed(2), t.held().StringFixed(2)))
			out = append(out, o)
		}
		return out
	}

	switch diff := r.PaidAmount.Sub(t.paid); {
	case diff.IsPositive():
		out = append(out, orphan(dto.OrphanMissingPayment, diff, r.PaymentMethod,
			fmt.Sprintf("rental paid %s, ledger has %s", r.PaidAmount.StringFixed(2), t.paid.StringFixed(2))))
	case diff.IsNegative():
		o := orphan(dto.OrphanExcessPayment, diff.Neg(), r.PaymentMethod,
			fmt.Sprintf("ledger has %s, rental paid only %s", t.paid.StringFixed(2), r.PaidAmount.StringFixed(2)))
		o.Fixable = false
		out = append(out, o)
	}
	if r.Deposit.IsPositive() && t.depositIn.IsZero() {
		out = append(out, orphan(dto.OrphanMissingDeposit, r.Deposit, r.DepositPaymentMethod, "deposit never reached the ledger"))
	}
	if r.DepositReturned && t.depositReturned.IsZero() {
		out = append(out, orphan(dto.OrphanMissingDepositReturn, r.Deposit, r.DepositPaymentMethod, "deposit marked returned without a movement"))
	}
	if r.DepositForfeited && t.forfeited.IsZero() {
		out = append(out, orphan(dto.OrphanMissingForfeit, r.Deposit, r.DepositPaymentMethod, "deposit marked forfeited without a movement"))
	}
	if held := t.held(); held.IsNegative() {
		o := orphan(dto.OrphanDepositOverdrawn, held.Neg(), r.DepositPaymentMethod,
			fmt.Sprintf("ledger paid out %s more deposit than it took in", held.Neg().StringFixed(2)))
		o.Fixable = false
		out = append(out, o)
	}
	return out
}

func danglingOrphan(m model.CashMovement) dto.Orphan {
	movementID := m.ID.String()
	rentalID := m.ReferenceID.String()
	return dto.Orphan{
		Kind:          dto.OrphanDanglingMovement,
		StoreID:       m.StoreID.String(),
		RentalID:      &rentalID,
		MovementID:    &movementID,
		Amount:        m.Amount,
		PaymentMethod: m.PaymentMethod,
		Detail:        "movement references a rental that does not exist",
	}
}

func (s *repairService) Repair(ctx context.Context, scope tenant.Scope, userID uuid.UUID) (*dto.RepairResult, error) {
	if scope.IsPlatform() {
		total := &dto.RepairResult{Errors: []string{}, Orphans: []dto.Orphan{}}
		err := s.eachStore(ctx, func(store tenant.Scope) error {
			res, err := s.Repair(ctx, store, userID)
			if err != nil {
				return err
			}
			total.TotalOrphansFound += res.TotalOrphansFound
			total.FixedCount += res.FixedCount
			total.OrphansRemaining += res.OrphansRemaining
			total.Errors = append(total.Errors, res.Errors...)
			total.Orphans = append(total.Orphans, res.Orphans...)
			return nil
		})
		return total, err
	}

	orphans, err := s.FindOrphans(ctx, scope)
	if err != nil {
		return nil, err
	}
	result := &dto.RepairResult{
		TotalOrphansFound: len(orphans),
		Errors:            []string{},
		Orphans:           orphans,
	}
	for i := range result.Orphans {
		o := &result.Orphans[i]
		if !o.Fixable {
			continue
		}
		if err := s.fix(ctx, scope, userID, o); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s rental %s: %v", o.Kind, *o.RentalID, err))
			continue
		}
		o.Fixed = true
		result.FixedCount++
	}
	result.OrphansRemaining = result.TotalOrphansFound - result.FixedCount

	log.Info().
		Str("store", scope.String()).
		Int("found", result.TotalOrphansFound).
		Int("fixed", result.FixedCount).
		Int("errors", len(result.Errors)).
		Msg("orphan repair finished")
	return result, nil
}

// fix appends the movements an orphan is missing into the active session.
func (s *repairService) fix(ctx context.Context, scope tenant.Scope, userID uuid.UUID, o *dto.Orphan) error {
	rentalID, err := uuid.Parse(*o.RentalID)
	if err != nil {
		return err
	}
	return retryOnConflict(func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			sess, err := s.sessions.RequireActive(ctx, scope)
			if err != nil {
				return err
			}
			r, err := s.rentals.FindByID(ctx, scope, rentalID)
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRentalNotFound
			}
			if err != nil {
				return err
			}
			e := &emitter{ctx: ctx, scope: scope, ledger: s.ledger, session: sess, rental: r, userID: userID}
			op := "repair:" + o.Kind
			switch o.Kind {
			case dto.OrphanMissingPayment:
				return e.emit(op, model.MovementIncome, o.PaymentMethod, model.CategoryRental, o.Amount, "repair: missing rental payment")
			case dto.OrphanMissingDeposit:
				return e.emit(op, model.MovementIncome, o.PaymentMethod, model.CategoryDeposit, o.Amount, "repair: missing deposit")
			case dto.OrphanMissingDepositReturn:
				return e.emit(op, model.MovementExpense, o.PaymentMethod, model.CategoryDepositReturn, o.Amount, "repair: missing deposit return")
			case dto.OrphanMissingForfeit:
				if err := e.emit(op+forfeitReleaseSuffix, model.MovementExpense, o.PaymentMethod, model.CategoryDeposit, o.Amount, "repair: deposit reclassified as forfeited"); err != nil {
					return err
				}
				return e.emit(op, model.MovementIncome, o.PaymentMethod, model.CategoryDepositForfeited, o.Amount, "repair: missing deposit forfeit")
			}
			return fmt.Errorf("orphan kind %s cannot be repaired automatically", o.Kind)
		})
	})
}

func (s *repairService) eachStore(ctx context.Context, fn func(store tenant.Scope) error) error {
	stores, err := s.Stores(ctx)
	if err != nil {
		return err
	}
	for _, id := range stores {
		if err := fn(tenant.ForStore(id)); err != nil {
			return err
		}
	}
	return nil
}

func (s *repairService) Stores(ctx context.Context) ([]uuid.UUID, error) {
	return s.rentals.StoreIDs(ctx, tenant.Platform())
}
