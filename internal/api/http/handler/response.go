package handler

import (
	"time"

	"github.com/dtroode/dreamluck-server/internal/model"
	"github.com/dtroode/dreamluck-server/internal/palette"
)

type profileResponse struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Birthdate string `json:"birthdate"`
	BirthTime string `json:"birth_time"`
	MBTI      string `json:"mbti"`
	Gender    string `json:"gender"`
}

type accountResponse struct {
	ID                 string          `json:"id"`
	Profile            profileResponse `json:"profile"`
	FreeQuota          int             `json:"free_quota"`
	PremiumQuota       int             `json:"premium_quota"`
	LastFreeResetDate  string          `json:"last_free_reset_date,omitempty"`
	LastBonusGrantDate string          `json:"last_bonus_grant_date,omitempty"`
	LastColor          string          `json:"last_color,omitempty"`
	SignupCompleted    bool            `json:"signup_completed"`
}

func newAccountResponse(a model.Account) accountResponse {
	return accountResponse{
		ID: a.ID,
		Profile: profileResponse{
			Name:      a.Profile.Name,
			Email:     a.Profile.Email,
			Birthdate: a.Profile.Birthdate,
			BirthTime: a.Profile.BirthTime,
			MBTI:      a.Profile.MBTI,
			Gender:    a.Profile.Gender,
		},
		FreeQuota:          a.FreeQuota,
		PremiumQuota:       a.PremiumQuota,
		LastFreeResetDate:  a.LastFreeResetDate.String(),
		LastBonusGrantDate: a.LastBonusGrantDate.String(),
		LastColor:          colorToken(a.LastColor),
		SignupCompleted:    a.SignupCompleted,
	}
}

type dreamResponse struct {
	ID             string    `json:"id"`
	DreamText      string    `json:"dream_text"`
	Interpretation string    `json:"interpretation,omitempty"`
	Color          string    `json:"color,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func newDreamResponse(r model.DreamRecord) dreamResponse {
	return dreamResponse{
		ID:             r.ID.String(),
		DreamText:      r.InputText,
		Interpretation: r.ResultText,
		Color:          colorToken(r.Color),
		Status:         string(r.Status),
		CreatedAt:      r.CreatedAt,
	}
}

type premiumDreamResponse struct {
	ID              string    `json:"id"`
	DreamText       string    `json:"dream_text"`
	Interpretation  string    `json:"interpretation"`
	MBTISummary     string    `json:"mbti_summary"`
	SajuSummary     string    `json:"saju_summary"`
	LuckyNumberSets []string  `json:"lucky_number_sets"`
	CreatedAt       time.Time `json:"created_at"`
}

func newPremiumDreamResponse(r model.PremiumDreamRecord) premiumDreamResponse {
	sets := r.LuckyNumberSets
	if sets == nil {
		sets = []string{}
	}
	return premiumDreamResponse{
		ID:              r.ID.String(),
		DreamText:       r.InputText,
		Interpretation:  r.Interpretation,
		MBTISummary:     r.MBTISummary,
		SajuSummary:     r.SajuSummary,
		LuckyNumberSets: sets,
		CreatedAt:       r.CreatedAt,
	}
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func mapList[S, T any](in []S, fn func(S) T) listResponse[T] {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return listResponse[T]{Items: out}
}

// colorToken hides stored colors outside the palette.
func colorToken(s string) string {
	if palette.IsToken(s) {
		return s
	}
	return ""
}
