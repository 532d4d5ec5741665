// Package services orchestrates domain operations across storage and the
// event pipeline.
package services

import (
	"context"
	"fmt"

	"khoroch/internal/core"
	"khoroch/internal/events"
	"khoroch/internal/log"
	"khoroch/internal/storage"
)

// ExpenseService coordinates the record store with lifecycle events. The
// events client may be nil; mutations then skip publishing entirely.
type ExpenseService struct {
	storage *storage.SQLiteRepository
	events  *events.Client
	logger  *log.Logger
}

func NewExpenseService(storage *storage.SQLiteRepository, eventsClient *events.Client, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		storage: storage,
		events:  eventsClient,
		logger:  logger.WithComponent(log.ComponentService),
	}
}

// Create validates and stores a new expense, then announces it. A publish
// failure never fails the request; the record is already safe in SQLite.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.publish(ctx, created.ID, events.ActionCreated)
	return created, nil
}

// Get returns a single expense. Missing IDs surface storage.ErrNotFound.
func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, id)
}

// Update validates and replaces an existing expense.
func (s *ExpenseService) Update(ctx context.Context, id int64, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.storage.UpdateExpense(ctx, id, e)
	if err != nil {
		return core.Expense{}, err
	}

	s.publish(ctx, updated.ID, events.ActionUpdated)
	return updated, nil
}

// Delete removes an expense and returns the record as it was.
func (s *ExpenseService) Delete(ctx context.Context, id int64) (core.Expense, error) {
	deleted, err := s.storage.DeleteExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	s.publish(ctx, deleted.ID, events.ActionDeleted)
	return deleted, nil
}

// List returns all expenses, newest date first.
func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx)
}

// Summary aggregates over the full record set, never a filtered view.
// Ping reports whether the backing store is reachable.
func (s *ExpenseService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

func (s *ExpenseService) Summary(ctx context.Context) (core.Summary, error) {
	expenses, err := s.storage.ListExpenses(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load expenses: %w", err)
	}
	return core.Summarize(expenses), nil
}

func (s *ExpenseService) publish(ctx context.Context, id int64, action string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events.NewMessage(id, action)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldExpenseID, id,
			log.FieldAction, action,
			log.FieldError, err)
	}
}

// Close closes both storage and the events connection.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}

	return nil
}
