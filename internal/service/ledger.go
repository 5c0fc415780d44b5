package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
)

// Recorder receives entitlement observations.
type Recorder interface {
	ObserveQuota(kind, decision, reason string)
	ObserveShareBonus(granted bool)
}

type noopRecorder struct{}

func (noopRecorder) ObserveQuota(string, string, string) {}
func (noopRecorder) ObserveShareBonus(bool)              {}

// Transition computes the next account state from a freshly loaded one.
// Returning an error aborts the commit without writing. A Transition may be
// invoked more than once, so it must not have side effects beyond its closure.
type Transition func(current model.Account) (model.Account, error)

// Ledger commits account transitions with optimistic concurrency. A version
// conflict reloads the account and re-runs the transition, up to attempts times.
type Ledger struct {
	store    model.AccountStore
	attempts int
	logger   *logger.Logger
}

func NewLedger(store model.AccountStore, attempts int, logger *logger.Logger) *Ledger {
	if attempts < 1 {
		attempts = 1
	}
	return &Ledger{
		store:    store,
		attempts: attempts,
		logger:   logger,
	}
}

// Load returns the account or ErrAccountNotFound.
func (l *Ledger) Load(ctx context.Context, userID string) (model.Account, error) {
	account, err := l.store.Get(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Account{}, model.ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to load account: %w", errors.Join(model.ErrStoreUnavailable, err))
	}
	return account, nil
}

// Commit applies fn and durably writes the resulting diff. It returns the
// stored account. When fn changes nothing no write happens.
func (l *Ledger) Commit(ctx context.Context, userID string, fn Transition) (model.Account, error) {
	for attempt := 1; ; attempt++ {
		current, err := l.Load(ctx, userID)
		if err != nil {
			return model.Account{}, err
		}

		next, err := fn(current)
		if err != nil {
			return current, err
		}

		patch := model.Diff(current, next)
		if patch.IsEmpty() {
			return current, nil
		}

		saved, err := l.store.Update(ctx, userID, patch, current.Version)
		switch {
		case err == nil:
			return saved, nil
		case errors.Is(err, model.ErrVersionConflict):
			if attempt >= l.attempts {
				l.logger.Warn("Ledger: giving up after version conflicts",
					"user_id", userID,
					"attempts", attempt)
				return model.Account{}, fmt.Errorf("failed to commit account after %d attempts: %w", attempt, err)
			}
			l.logger.Debug("Ledger: version conflict, re-evaluating",
				"user_id", userID,
				"attempt", attempt)
		case errors.Is(err, model.ErrNotFound):
			return model.Account{}, model.ErrAccountNotFound
		default:
			return model.Account{}, fmt.Errorf("failed to commit account: %w", errors.Join(model.ErrStoreUnavailable, err))
		}
	}
}

// publish delivers an event without letting broker trouble fail the request.
func publish(ctx context.Context, publisher model.EventPublisher, log *logger.Logger, event model.Event) {
	if err := publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		log.Warn("failed to publish event",
			"type", event.Type,
			"user_id", event.UserID,
			"error", err.Error())
	}
}
