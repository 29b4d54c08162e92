package service

import (
	"time"

	"rentalcash/internal/model"
	"rentalcash/internal/repository"
)

// Options tune time handling. Location decides which calendar date a
// closure or daily report belongs to.
type Options struct {
	Location *time.Location
	Now      func() time.Time
}

// Set is every service of the engine, wired over one repository.Set.
type Set struct {
	Sessions CashSessionService
	Ledger   LedgerService
	Closures ClosureService
	Reports  ReportService
	Rentals  RentalService
	Items    ItemService
	Repair   RepairService
}

func New(repos repository.Set, opts Options) *Set {
	clk := newClock(opts)
	ledger := NewLedgerService(repos, clk)
	closures := NewClosureService(repos, clk)
	sessions := NewCashSessionService(repos, closures, clk)
	return &Set{
		Sessions: sessions,
		Ledger:   ledger,
		Closures: closures,
		Reports:  NewReportService(repos, sessions, clk),
		Rentals:  NewRentalService(repos, sessions, ledger, clk),
		Items:    NewItemService(repos),
		Repair:   NewRepairService(repos, sessions, ledger),
	}
}

type clock struct {
	loc   *time.Location
	nowFn func() time.Time
}

func newClock(opts Options) clock {
	c := clock{loc: opts.Location, nowFn: opts.Now}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.nowFn == nil {
		c.nowFn = time.Now
	}
	return c
}

func (c clock) now() time.Time { return c.nowFn() }

// date is the store-local calendar date of t.
func (c clock) date(t time.Time) string { return t.In(c.loc).Format(model.DateLayout) }

// dayBounds returns [start of date, start of next day) in the store location.
func (c clock) dayBounds(date string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(model.DateLayout, date, c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return start, start.AddDate(0, 0, 1), nil
}
