package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
	"github.com/dtroode/dreamluck-server/internal/quota"
)

// WelcomePremiumQuota is the premium allowance seeded on first signup.
const WelcomePremiumQuota = 1

type Account struct {
	store  model.AccountStore
	ledger *Ledger
	clock  clock.Clock
	logger *logger.Logger
}

func NewAccount(store model.AccountStore, ledger *Ledger, clk clock.Clock, logger *logger.Logger) *Account {
	return &Account{
		store:  store,
		ledger: ledger,
		clock:  clk,
		logger: logger,
	}
}

// Bootstrap creates a minimal account on first sign-in. It reports whether
// the account was created by this call.
func (s *Account) Bootstrap(ctx context.Context, userID, email string) (model.Account, bool, error) {
	account, err := s.store.Create(ctx, model.Account{
		ID:      userID,
		Profile: model.Profile{Email: email},
	})
	if err == nil {
		s.logger.Info("Account service: account created", "user_id", userID)
		return account, true, nil
	}
	if !errors.Is(err, model.ErrAlreadyExists) {
		return model.Account{}, false, fmt.Errorf("failed to create account: %w", errors.Join(model.ErrStoreUnavailable, err))
	}

	account, err = s.ledger.Load(ctx, userID)
	if err != nil {
		return model.Account{}, false, err
	}
	return account, false, nil
}

// CompleteSignup stores the profile. The first completion also seeds the
// daily free request and the welcome premium request.
func (s *Account) CompleteSignup(ctx context.Context, userID string, profile model.Profile) (model.Account, error) {
	profile = normaliseProfile(profile)

	today, err := s.clock.Today()
	if err != nil {
		s.logger.Warn("Account service: clock unavailable during signup",
			"user_id", userID,
			"error", err.Error())
		today = clock.Date{}
	}

	account, err := s.ledger.Commit(ctx, userID, func(a model.Account) (model.Account, error) {
		next := profile
		if next.Email == "" {
			next.Email = a.Profile.Email
		}
		a.Profile = next
		if a.SignupCompleted {
			return a, nil
		}

		a.SignupCompleted = true
		a.FreeQuota = quota.DailyFreeBaseline
		a.LastFreeResetDate = today
		if a.PremiumQuota < WelcomePremiumQuota {
			a.PremiumQuota = WelcomePremiumQuota
		}
		return a, nil
	})
	if err != nil {
		return model.Account{}, err
	}

	return account, nil
}

func (s *Account) Get(ctx context.Context, userID string) (model.Account, error) {
	return s.ledger.Load(ctx, userID)
}

// Delete removes the account together with its dream records.
func (s *Account) Delete(ctx context.Context, userID string) error {
	err := s.store.Delete(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", errors.Join(model.ErrStoreUnavailable, err))
	}

	s.logger.Info("Account service: account deleted", "user_id", userID)
	return nil
}

func normaliseProfile(p model.Profile) model.Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Birthdate = strings.TrimSpace(p.Birthdate)
	p.BirthTime = strings.TrimSpace(p.BirthTime)
	p.MBTI = strings.ToUpper(strings.TrimSpace(p.MBTI))
	p.Gender = strings.TrimSpace(p.Gender)

	if p.BirthTime == "" {
		p.BirthTime = model.ProfileUnknown
	}
	if p.MBTI == "" {
		p.MBTI = model.ProfileUnknown
	}
	return p
}
