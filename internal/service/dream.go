package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
	"github.com/dtroode/dreamluck-server/internal/palette"
	"github.com/dtroode/dreamluck-server/internal/quota"
)

// Placeholders used when a premium profile summary cannot be generated.
const (
	FallbackMBTISummary = "MBTI 요약 없음"
	FallbackSajuSummary = "사주 요약 없음"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// FreeResult is a completed free interpretation.
type FreeResult struct {
	RecordID       uuid.UUID
	Interpretation string
	Color          string
}

// PremiumResult is a completed premium interpretation.
type PremiumResult struct {
	RecordID        uuid.UUID
	Interpretation  string
	MBTISummary     string
	SajuSummary     string
	LuckyNumberSets []string
}

type Dream struct {
	ledger        *Ledger
	dreams        model.DreamStore
	premiumDreams model.PremiumDreamStore
	generator     model.Generator
	artifacts     *Artifacts
	publisher     model.EventPublisher
	clock         clock.Clock
	recorder      Recorder
	logger        *logger.Logger
}

func NewDream(
	ledger *Ledger,
	dreams model.DreamStore,
	premiumDreams model.PremiumDreamStore,
	generator model.Generator,
	artifacts *Artifacts,
	publisher model.EventPublisher,
	clk clock.Clock,
	recorder Recorder,
	logger *logger.Logger,
) *Dream {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Dream{
		ledger:        ledger,
		dreams:        dreams,
		premiumDreams: premiumDreams,
		generator:     generator,
		artifacts:     artifacts,
		publisher:     publisher,
		clock:         clk,
		recorder:      recorder,
		logger:        logger,
	}
}

// RequestFreeInterpretation spends one free request and generates an
// interpretation with a lucky color. The quota is committed before any
// generation call and is not refunded when generation fails.
func (s *Dream) RequestFreeInterpretation(ctx context.Context, userID, dreamText string) (FreeResult, error) {
	today, err := s.clock.Today()
	if err != nil {
		s.logger.Warn("Dream service: clock unavailable, denying free request",
			"user_id", userID,
			"error", err.Error())
		today = clock.Date{}
	}

	var decision quota.Decision
	account, err := s.ledger.Commit(ctx, userID, func(a model.Account) (model.Account, error) {
		if !a.SignupCompleted {
			return a, model.ErrSignupIncomplete
		}
		var next model.Account
		decision, next = quota.EvaluateFreeRequest(a, today)
		if decision.Reason == quota.ReasonClockUnavailable {
			return a, errors.Join(model.ErrQuotaExceeded, clock.ErrUnavailable)
		}
		if !decision.Admitted() {
			return a, model.ErrQuotaExceeded
		}
		return next, nil
	})
	s.observe("free", decision)
	if err != nil {
		return FreeResult{}, err
	}

	record, err := s.dreams.Create(ctx, model.DreamRecord{
		ID:        uuid.New(),
		UserID:    userID,
		InputText: dreamText,
		Status:    model.DreamStatusPending,
	})
	if err != nil {
		s.logger.Error("Dream service: failed to create pending record after quota commit",
			"user_id", userID,
			"error", err.Error())
		return FreeResult{}, fmt.Errorf("failed to create dream record: %w", errors.Join(model.ErrStoreUnavailable, err))
	}

	interpretation, err := s.generator.Interpretation(ctx, model.PromptContext{
		DreamText: dreamText,
		Birthdate: account.Profile.Birthdate,
		MBTI:      account.Profile.MBTI,
	})
	if err != nil {
		return FreeResult{}, s.failFree(ctx, record, err)
	}

	colorName, err := s.generator.ColorName(ctx, dreamText)
	if err != nil {
		return FreeResult{}, s.failFree(ctx, record, err)
	}
	color := palette.Canonical(colorName)

	if _, err := s.dreams.Complete(ctx, record.ID, interpretation, color); err != nil {
		s.logger.Error("Dream service: failed to complete record",
			"user_id", userID,
			"record_id", record.ID,
			"error", err.Error())
		return FreeResult{}, fmt.Errorf("failed to complete dream record: %w", errors.Join(model.ErrStoreUnavailable, err))
	}

	if _, err := s.ledger.Commit(ctx, userID, func(a model.Account) (model.Account, error) {
		a.LastColor = color
		return a, nil
	}); err != nil {
		s.logger.Warn("Dream service: failed to store last color",
			"user_id", userID,
			"error", err.Error())
	}

	publish(ctx, s.publisher, s.logger, model.Event{
		Type:       model.EventDreamCompleted,
		UserID:     userID,
		RecordID:   record.ID.String(),
		Color:      color,
		OccurredAt: s.clock.Now(),
	})

	return FreeResult{RecordID: record.ID, Interpretation: interpretation, Color: color}, nil
}

// failFree marks a pending record failed unless the caller gave up, in which
// case the record stays pending for the reconcile job.
func (s *Dream) failFree(ctx context.Context, record model.DreamRecord, cause error) error {
	if !errors.Is(cause, model.ErrGenerationFailed) {
		cause = errors.Join(model.ErrGenerationFailed, cause)
	}

	if ctx.Err() != nil {
		s.logger.Info("Dream service: request cancelled during generation, leaving record pending",
			"user_id", record.UserID,
			"record_id", record.ID)
		return fmt.Errorf("failed to generate interpretation: %w", cause)
	}

	s.logger.Error("Dream service: generation failed",
		"user_id", record.UserID,
		"record_id", record.ID,
		"error", cause.Error())

	detached := context.WithoutCancel(ctx)
	if err := s.dreams.MarkFailed(detached, record.ID); err != nil {
		s.logger.Warn("Dream service: failed to mark record failed",
			"user_id", record.UserID,
			"record_id", record.ID,
			"error", err.Error())
	}
	publish(detached, s.publisher, s.logger, model.Event{
		Type:       model.EventDreamFailed,
		UserID:     record.UserID,
		RecordID:   record.ID.String(),
		OccurredAt: s.clock.Now(),
	})

	return fmt.Errorf("failed to generate interpretation: %w", cause)
}

// RequestPremiumInterpretation spends one premium request and generates the
// long-form reading. Secondary summaries fall back to placeholders; only the
// final interpretation or the lucky numbers can fail the request.
func (s *Dream) RequestPremiumInterpretation(ctx context.Context, userID, dreamText string) (PremiumResult, error) {
	var decision quota.Decision
	account, err := s.ledger.Commit(ctx, userID, func(a model.Account) (model.Account, error) {
		if !a.SignupCompleted {
			return a, model.ErrSignupIncomplete
		}
		if !a.Profile.HasPremiumContext() {
			return a, model.ErrProfileIncomplete
		}
		var next model.Account
		decision, next = quota.EvaluatePremiumRequest(a)
		if !decision.Admitted() {
			return a, model.ErrQuotaExceeded
		}
		return next, nil
	})
	s.observe("premium", decision)
	if err != nil {
		return PremiumResult{}, err
	}

	mbtiSummary, sajuSummary := s.summaries(ctx, account)

	interpretation, err := s.generator.PremiumInterpretation(ctx, model.PremiumPromptContext{
		DreamText:   dreamText,
		MBTISummary: mbtiSummary,
		SajuSummary: sajuSummary,
	})
	if err != nil {
		if !errors.Is(err, model.ErrGenerationFailed) {
			err = errors.Join(model.ErrGenerationFailed, err)
		}
		s.logger.Error("Dream service: premium generation failed",
			"user_id", userID,
			"error", err.Error())
		return PremiumResult{}, fmt.Errorf("failed to generate premium interpretation: %w", err)
	}

	sets, err := s.artifacts.PremiumSets(ctx, userID)
	if err != nil {
		s.logger.Error("Dream service: failed to derive premium lucky numbers",
			"user_id", userID,
			"error", err.Error())
		return PremiumResult{}, fmt.Errorf("failed to derive lucky numbers: %w", err)
	}

	record, err := s.premiumDreams.Create(ctx, model.PremiumDreamRecord{
		ID:              uuid.New(),
		UserID:          userID,
		InputText:       dreamText,
		Interpretation:  interpretation,
		MBTISummary:     mbtiSummary,
		SajuSummary:     sajuSummary,
		LuckyNumberSets: quota.FormatSets(sets),
	})
	if err != nil {
		s.logger.Error("Dream service: failed to store premium record",
			"user_id", userID,
			"error", err.Error())
		return PremiumResult{}, fmt.Errorf("failed to create premium dream record: %w", errors.Join(model.ErrStoreUnavailable, err))
	}

	publish(ctx, s.publisher, s.logger, model.Event{
		Type:       model.EventPremiumDreamCompleted,
		UserID:     userID,
		RecordID:   record.ID.String(),
		OccurredAt: s.clock.Now(),
	})

	return PremiumResult{
		RecordID:        record.ID,
		Interpretation:  record.Interpretation,
		MBTISummary:     record.MBTISummary,
		SajuSummary:     record.SajuSummary,
		LuckyNumberSets: record.LuckyNumberSets,
	}, nil
}

// summaries generates the MBTI and saju summaries concurrently.
func (s *Dream) summaries(ctx context.Context, account model.Account) (string, string) {
	mbti, saju := FallbackMBTISummary, FallbackSajuSummary

	var g errgroup.Group
	g.Go(func() error {
		out, err := s.generator.ProfileSummary(ctx, model.SummaryMBTI, account.Profile)
		if err != nil {
			s.logger.Warn("Dream service: mbti summary failed, using fallback",
				"user_id", account.ID,
				"error", err.Error())
			return nil
		}
		mbti = out
		return nil
	})
	g.Go(func() error {
		out, err := s.generator.ProfileSummary(ctx, model.SummarySaju, account.Profile)
		if err != nil {
			s.logger.Warn("Dream service: saju summary failed, using fallback",
				"user_id", account.ID,
				"error", err.Error())
			return nil
		}
		saju = out
		return nil
	})
	_ = g.Wait()

	return mbti, saju
}

// GetDream returns a free record owned by userID.
func (s *Dream) GetDream(ctx context.Context, userID string, id uuid.UUID) (model.DreamRecord, error) {
	record, err := s.dreams.GetByID(ctx, id)
	if err != nil {
		return model.DreamRecord{}, fmt.Errorf("failed to get dream: %w", err)
	}
	if record.UserID != userID {
		return model.DreamRecord{}, model.ErrNotFound
	}
	return record, nil
}

func (s *Dream) ListDreams(ctx context.Context, userID string, limit int) ([]model.DreamRecord, error) {
	records, err := s.dreams.ListByUser(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list dreams: %w", err)
	}
	return records, nil
}

// GetPremiumDream returns a premium record owned by userID.
func (s *Dream) GetPremiumDream(ctx context.Context, userID string, id uuid.UUID) (model.PremiumDreamRecord, error) {
	record, err := s.premiumDreams.GetByID(ctx, id)
	if err != nil {
		return model.PremiumDreamRecord{}, fmt.Errorf("failed to get premium dream: %w", err)
	}
	if record.UserID != userID {
		return model.PremiumDreamRecord{}, model.ErrNotFound
	}
	return record, nil
}

func (s *Dream) ListPremiumDreams(ctx context.Context, userID string, limit int) ([]model.PremiumDreamRecord, error) {
	records, err := s.premiumDreams.ListByUser(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list premium dreams: %w", err)
	}
	return records, nil
}

func (s *Dream) observe(kind string, d quota.Decision) {
	if d.Reason == "" {
		return
	}
	s.recorder.ObserveQuota(kind, d.Outcome.String(), string(d.Reason))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
