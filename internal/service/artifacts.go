package service

import (
	"context"
	"fmt"

	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
	"github.com/dtroode/dreamluck-server/internal/quota"
)

// WeeklyArtifacts are the lucky numbers cached on an account for one ISO week.
type WeeklyArtifacts struct {
	WeekKey     string
	Number      int
	PremiumSets [][]int
}

type Artifacts struct {
	ledger *Ledger
	clock  clock.Clock
	rng    quota.Rand
	logger *logger.Logger
}

func NewArtifacts(ledger *Ledger, clk clock.Clock, rng quota.Rand, logger *logger.Logger) *Artifacts {
	return &Artifacts{
		ledger: ledger,
		clock:  clk,
		rng:    rng,
		logger: logger,
	}
}

// WeeklyArtifacts returns this week's number and premium sets, drawing and
// storing fresh ones only when the cached week has passed.
func (s *Artifacts) WeeklyArtifacts(ctx context.Context, userID string) (WeeklyArtifacts, error) {
	weekKey, err := s.clock.WeekKey()
	if err != nil {
		return WeeklyArtifacts{}, fmt.Errorf("failed to resolve week: %w", err)
	}

	var out WeeklyArtifacts
	_, err = s.ledger.Commit(ctx, userID, func(a model.Account) (model.Account, error) {
		number, next := quota.WeeklyNumber(a, weekKey, s.rng)
		sets, next := quota.PremiumNumberSets(next, weekKey, s.rng)
		out = WeeklyArtifacts{WeekKey: weekKey, Number: number, PremiumSets: sets}
		return next, nil
	})
	if err != nil {
		return WeeklyArtifacts{}, err
	}

	return out, nil
}

// PremiumSets returns this week's two premium number sets.
func (s *Artifacts) PremiumSets(ctx context.Context, userID string) ([][]int, error) {
	weekKey, err := s.clock.WeekKey()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve week: %w", err)
	}

	var sets [][]int
	_, err = s.ledger.Commit(ctx, userID, func(a model.Account) (model.Account, error) {
		var next model.Account
		sets, next = quota.PremiumNumberSets(a, weekKey, s.rng)
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Artifacts service: premium sets resolved",
		"user_id", userID,
		"week", weekKey)
	return sets, nil
}
