// Package quota holds the pure entitlement state machine: free and premium
// admission, share bonuses and weekly lucky artifacts. Nothing here performs I/O.
package quota

import (
	"fmt"

	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/model"
)

// DailyFreeBaseline is the free quota a user gets at the first request of each civil day.
const DailyFreeBaseline = 1

// Outcome is the admission verdict.
type Outcome int

const (
	Deny Outcome = iota
	Admit
)

func (o Outcome) String() string {
	if o == Admit {
		return "admit"
	}
	return "deny"
}

// Reason explains an Outcome.
type Reason string

const (
	ReasonNewDay           Reason = "new_day"
	ReasonRemaining        Reason = "remaining"
	ReasonExhausted        Reason = "exhausted"
	ReasonClockUnavailable Reason = "clock_unavailable"
	ReasonPremium          Reason = "premium"
	ReasonNoPremium        Reason = "no_premium"
)

// Decision is the result of evaluating one request.
type Decision struct {
	Outcome Outcome
	Reason  Reason
}

// Admitted reports whether the request may proceed.
func (d Decision) Admitted() bool {
	return d.Outcome == Admit
}

// EvaluateFreeRequest decides a free interpretation request for today and returns
// the account state to commit. The first request of a new day resets the quota to
// DailyFreeBaseline and consumes it in the same transition; leftover or bonus quota
// from earlier days never rolls over. A zero today denies.
func EvaluateFreeRequest(account model.Account, today clock.Date) (Decision, model.Account) {
	if today.IsZero() {
		return Decision{Outcome: Deny, Reason: ReasonClockUnavailable}, account
	}

	next := account
	if !account.LastFreeResetDate.Equal(today) {
		next.FreeQuota = DailyFreeBaseline
		next.LastFreeResetDate = today
		next.FreeQuota--
		return Decision{Outcome: Admit, Reason: ReasonNewDay}, next
	}

	if account.FreeQuota > 0 {
		next.FreeQuota = account.FreeQuota - 1
		return Decision{Outcome: Admit, Reason: ReasonRemaining}, next
	}

	return Decision{Outcome: Deny, Reason: ReasonExhausted}, account
}

// EvaluatePremiumRequest admits iff premium quota remains. It never looks at the calendar.
func EvaluatePremiumRequest(account model.Account) (Decision, model.Account) {
	if account.PremiumQuota <= 0 {
		return Decision{Outcome: Deny, Reason: ReasonNoPremium}, account
	}
	next := account
	next.PremiumQuota--
	return Decision{Outcome: Admit, Reason: ReasonPremium}, next
}

// GrantPremium adds purchased or promotional premium quota.
func GrantPremium(account model.Account, amount int) (model.Account, error) {
	if amount <= 0 {
		return account, fmt.Errorf("%w: grant must be positive, got %d", model.ErrInvalidAmount, amount)
	}
	account.PremiumQuota += amount
	return account, nil
}

// AdjustPremium applies a signed change to premium quota, flooring the result at zero.
func AdjustPremium(account model.Account, delta int) model.Account {
	account.PremiumQuota += delta
	if account.PremiumQuota < 0 {
		account.PremiumQuota = 0
	}
	return account
}
