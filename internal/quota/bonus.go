package quota

import (
	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/model"
)

// GrantShareBonus adds one free request for a share, at most once per civil day.
// A zero today grants nothing.
func GrantShareBonus(account model.Account, today clock.Date) (bool, model.Account) {
	if today.IsZero() || account.LastBonusGrantDate.Equal(today) {
		return false, account
	}
	account.FreeQuota++
	account.LastBonusGrantDate = today
	return true, account
}
