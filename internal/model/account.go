package model

import (
	"context"
	"time"

	"github.com/dtroode/dreamluck-server/internal/clock"
)

// ProfileUnknown is stored for optional profile fields the user left blank.
const ProfileUnknown = "unknown"

// AccountStore defines persistence operations for user accounts.
type AccountStore interface {
	Get(ctx context.Context, id string) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, id string, patch AccountPatch, expectedVersion int64) (Account, error)
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Profile is reference data used only as generation prompt context.
type Profile struct {
	Name      string
	Email     string
	Birthdate string
	BirthTime string
	MBTI      string
	Gender    string
}

// HasPremiumContext reports whether the profile carries everything a premium reading needs.
func (p Profile) HasPremiumContext() bool {
	return known(p.Birthdate) && known(p.BirthTime) && known(p.MBTI)
}

func known(s string) bool {
	return s != "" && s != ProfileUnknown
}

// Account is the per-user entitlement document.
type Account struct {
	ID                  string
	Profile             Profile
	FreeQuota           int
	PremiumQuota        int
	LastFreeResetDate   clock.Date
	LastBonusGrantDate  clock.Date
	WeeklyLuckyNumber   int
	WeeklyLuckyWeekKey  string
	PremiumLuckySets    [][]int
	PremiumLuckyWeekKey string
	LastColor           string
	SignupCompleted     bool
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AccountPatch is a partial update. Nil fields are left untouched.
type AccountPatch struct {
	Profile             *Profile
	FreeQuota           *int
	PremiumQuota        *int
	LastFreeResetDate   *clock.Date
	LastBonusGrantDate  *clock.Date
	WeeklyLuckyNumber   *int
	WeeklyLuckyWeekKey  *string
	PremiumLuckySets    *[][]int
	PremiumLuckyWeekKey *string
	LastColor           *string
	SignupCompleted     *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p AccountPatch) IsEmpty() bool {
	return p == AccountPatch{}
}

// Diff returns the patch that turns old into updated. Only fields that differ are set.
func Diff(old, updated Account) AccountPatch {
	var p AccountPatch
	if old.Profile != updated.Profile {
		p.Profile = &updated.Profile
	}
	if old.FreeQuota != updated.FreeQuota {
		p.FreeQuota = &updated.FreeQuota
	}
	if old.PremiumQuota != updated.PremiumQuota {
		p.PremiumQuota = &updated.PremiumQuota
	}
	if old.LastFreeResetDate != updated.LastFreeResetDate {
		p.LastFreeResetDate = &updated.LastFreeResetDate
	}
	if old.LastBonusGrantDate != updated.LastBonusGrantDate {
		p.LastBonusGrantDate = &updated.LastBonusGrantDate
	}
	if old.WeeklyLuckyNumber != updated.WeeklyLuckyNumber {
		p.WeeklyLuckyNumber = &updated.WeeklyLuckyNumber
	}
	if old.WeeklyLuckyWeekKey != updated.WeeklyLuckyWeekKey {
		p.WeeklyLuckyWeekKey = &updated.WeeklyLuckyWeekKey
	}
	if !equalSets(old.PremiumLuckySets, updated.PremiumLuckySets) {
		p.PremiumLuckySets = &updated.PremiumLuckySets
	}
	if old.PremiumLuckyWeekKey != updated.PremiumLuckyWeekKey {
		p.PremiumLuckyWeekKey = &updated.PremiumLuckyWeekKey
	}
	if old.LastColor != updated.LastColor {
		p.LastColor = &updated.LastColor
	}
	if old.SignupCompleted != updated.SignupCompleted {
		p.SignupCompleted = &updated.SignupCompleted
	}
	return p
}

// Apply merges the patch into a copy of a.
func (p AccountPatch) Apply(a Account) Account {
	if p.Profile != nil {
		a.Profile = *p.Profile
	}
	if p.FreeQuota != nil {
		a.FreeQuota = *p.FreeQuota
	}
	if p.PremiumQuota != nil {
		a.PremiumQuota = *p.PremiumQuota
	}
	if p.LastFreeResetDate != nil {
		a.LastFreeResetDate = *p.LastFreeResetDate
	}
	if p.LastBonusGrantDate != nil {
		a.LastBonusGrantDate = *p.LastBonusGrantDate
	}
	if p.WeeklyLuckyNumber != nil {
		a.WeeklyLuckyNumber = *p.WeeklyLuckyNumber
	}
	if p.WeeklyLuckyWeekKey != nil {
		a.WeeklyLuckyWeekKey = *p.WeeklyLuckyWeekKey
	}
	if p.PremiumLuckySets != nil {
		a.PremiumLuckySets = *p.PremiumLuckySets
	}
	if p.PremiumLuckyWeekKey != nil {
		a.PremiumLuckyWeekKey = *p.PremiumLuckyWeekKey
	}
	if p.LastColor != nil {
		a.LastColor = *p.LastColor
	}
	if p.SignupCompleted != nil {
		a.SignupCompleted = *p.SignupCompleted
	}
	return a
}

func equalSets(a, b [][]int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}
