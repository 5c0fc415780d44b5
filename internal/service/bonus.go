package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
	"github.com/dtroode/dreamluck-server/internal/quota"
)

// ShareResult reports the outcome of sharing a dream.
type ShareResult struct {
	Granted  bool
	ShareKey string
}

// shareSnapshot is the public document uploaded for a shared dream.
type shareSnapshot struct {
	ID             string    `json:"id"`
	DreamText      string    `json:"dream_text"`
	Interpretation string    `json:"interpretation"`
	Color          string    `json:"color"`
	CreatedAt      time.Time `json:"created_at"`
}

type Bonus struct {
	ledger    *Ledger
	dreams    model.DreamStore
	storage   model.Storage
	publisher model.EventPublisher
	clock     clock.Clock
	recorder  Recorder
	logger    *logger.Logger
}

func NewBonus(
	ledger *Ledger,
	dreams model.DreamStore,
	storage model.Storage,
	publisher model.EventPublisher,
	clk clock.Clock,
	recorder Recorder,
	logger *logger.Logger,
) *Bonus {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Bonus{
		ledger:    ledger,
		dreams:    dreams,
		storage:   storage,
		publisher: publisher,
		clock:     clk,
		recorder:  recorder,
		logger:    logger,
	}
}

// GrantShareBonus adds one free request unless a share bonus was already
// granted today. Clock failure grants nothing.
func (s *Bonus) GrantShareBonus(ctx context.Context, userID string) (bool, error) {
	today, err := s.clock.Today()
	if err != nil {
		s.logger.Warn("Bonus service: clock unavailable, no bonus granted",
			"user_id", userID,
			"error", err.Error())
		today = clock.Date{}
	}

	var granted bool
	_, err = s.ledger.Commit(ctx, userID, func(a model.Account) (model.Account, error) {
		var next model.Account
		granted, next = quota.GrantShareBonus(a, today)
		return next, nil
	})
	if err != nil {
		return false, err
	}

	s.recorder.ObserveShareBonus(granted)
	if granted {
		publish(ctx, s.publisher, s.logger, model.Event{
			Type:       model.EventShareBonusGranted,
			UserID:     userID,
			OccurredAt: s.clock.Now(),
		})
	}
	return granted, nil
}

// ShareDream publishes a snapshot of a completed dream and then grants the
// daily share bonus. Re-sharing keeps the existing snapshot.
func (s *Bonus) ShareDream(ctx context.Context, userID string, dreamID uuid.UUID) (ShareResult, error) {
	record, err := s.dreams.GetByID(ctx, dreamID)
	if err != nil {
		return ShareResult{}, fmt.Errorf("failed to get dream: %w", err)
	}
	if record.UserID != userID {
		return ShareResult{}, model.ErrNotFound
	}
	if record.Status != model.DreamStatusComplete {
		return ShareResult{}, model.ErrDreamNotReady
	}

	key := ShareKey(dreamID)
	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return ShareResult{}, fmt.Errorf("failed to check share snapshot: %w", err)
	}
	if !exists {
		body, err := json.Marshal(shareSnapshot{
			ID:             record.ID.String(),
			DreamText:      record.InputText,
			Interpretation: record.ResultText,
			Color:          record.Color,
			CreatedAt:      record.CreatedAt,
		})
		if err != nil {
			return ShareResult{}, fmt.Errorf("failed to encode share snapshot: %w", err)
		}
		if err := s.storage.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
			return ShareResult{}, fmt.Errorf("failed to upload share snapshot: %w", err)
		}
	}

	granted, err := s.GrantShareBonus(ctx, userID)
	if err != nil {
		return ShareResult{ShareKey: key}, err
	}
	return ShareResult{Granted: granted, ShareKey: key}, nil
}

// SharedDream returns the published snapshot of a shared dream, or
// model.ErrNotFound when the dream was never shared or was withdrawn.
func (s *Bonus) SharedDream(ctx context.Context, dreamID uuid.UUID) ([]byte, error) {
	rc, err := s.storage.Download(ctx, ShareKey(dreamID))
	if err != nil {
		return nil, fmt.Errorf("failed to download share snapshot: %w", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read share snapshot: %w", err)
	}
	return body, nil
}

// UnshareDream withdraws the snapshot of a dream owned by userID. A granted
// share bonus is kept.
func (s *Bonus) UnshareDream(ctx context.Context, userID string, dreamID uuid.UUID) error {
	record, err := s.dreams.GetByID(ctx, dreamID)
	if err != nil {
		return fmt.Errorf("failed to get dream: %w", err)
	}
	if record.UserID != userID {
		return model.ErrNotFound
	}

	if err := s.storage.Delete(ctx, ShareKey(dreamID)); err != nil {
		return fmt.Errorf("failed to delete share snapshot: %w", err)
	}

	s.logger.Info("Bonus service: share withdrawn",
		"user_id", userID,
		"dream_id", dreamID.String())
	return nil
}

// GrantPremium adds amount premium requests. amount must be positive.
func (s *Bonus) GrantPremium(ctx context.Context, userID string, amount int) (model.Account, error) {
	if amount <= 0 {
		return model.Account{}, model.ErrInvalidAmount
	}
	account, err := s.ledger.Commit(ctx, userID, func(a model.Account) (model.Account, error) {
		return quota.GrantPremium(a, amount)
	})
	if err != nil {
		return model.Account{}, err
	}

	s.logger.Info("Bonus service: premium granted",
		"user_id", userID,
		"amount", amount,
		"premium_quota", account.PremiumQuota)
	return account, nil
}

// AdjustPremium applies a signed delta, never going below zero.
func (s *Bonus) AdjustPremium(ctx context.Context, userID string, delta int) (model.Account, error) {
	if delta == 0 {
		return model.Account{}, model.ErrInvalidAmount
	}
	if delta > 0 {
		return s.GrantPremium(ctx, userID, delta)
	}

	account, err := s.ledger.Commit(ctx, userID, func(a model.Account) (model.Account, error) {
		return quota.AdjustPremium(a, delta), nil
	})
	if err != nil {
		return model.Account{}, err
	}

	s.logger.Info("Bonus service: premium adjusted",
		"user_id", userID,
		"delta", delta,
		"premium_quota", account.PremiumQuota)
	return account, nil
}

// ShareKey is the object key of a dream's share snapshot.
func ShareKey(dreamID uuid.UUID) string {
	return "shares/" + dreamID.String() + ".json"
}

