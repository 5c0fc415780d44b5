package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/model"
)

var _ model.AccountStore = (*AccountRepository)(nil)

const accountColumns = `id, name, email, birthdate, birth_time, mbti, gender,
	free_quota, premium_quota, last_free_reset_date, last_bonus_grant_date,
	weekly_lucky_number, weekly_lucky_week_key, premium_lucky_sets, premium_lucky_week_key,
	last_color, signup_completed, version, created_at, updated_at`

type AccountRepository struct {
	db *Connection
}

func NewAccountRepository(db *Connection) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

func (r *AccountRepository) Get(ctx context.Context, id string) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, storeError("get account", err)
	}

	return account, nil
}

func (r *AccountRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, storeError("check account", err)
	}
	return exists, nil
}

func (r *AccountRepository) Create(ctx context.Context, account model.Account) (model.Account, error) {
	sets, err := encodeSets(account.PremiumLuckySets)
	if err != nil {
		return model.Account{}, err
	}

	query := `INSERT INTO users (id, name, email, birthdate, birth_time, mbti, gender,
				free_quota, premium_quota, last_free_reset_date, last_bonus_grant_date,
				weekly_lucky_number, weekly_lucky_week_key, premium_lucky_sets, premium_lucky_week_key,
				last_color, signup_completed)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			  RETURNING ` + accountColumns

	p := account.Profile
	saved, err := scanAccount(r.db.QueryRow(ctx, query,
		account.ID, p.Name, p.Email, p.Birthdate, p.BirthTime, p.MBTI, p.Gender,
		account.FreeQuota, account.PremiumQuota,
		encodeDate(account.LastFreeResetDate), encodeDate(account.LastBonusGrantDate),
		encodeInt(account.WeeklyLuckyNumber), encodeText(account.WeeklyLuckyWeekKey),
		sets, encodeText(account.PremiumLuckyWeekKey),
		encodeText(account.LastColor), account.SignupCompleted,
	))
	if err != nil {
		return model.Account{}, storeError("create account", err)
	}

	return saved, nil
}

// Update applies patch only when the stored version still equals expectedVersion.
// A successful write bumps the version by one.
func (r *AccountRepository) Update(ctx context.Context, id string, patch model.AccountPatch, expectedVersion int64) (model.Account, error) {
	if patch.IsEmpty() {
		account, err := r.Get(ctx, id)
		if err != nil {
			return model.Account{}, err
		}
		if account.Version != expectedVersion {
			return model.Account{}, model.ErrVersionConflict
		}
		return account, nil
	}

	assignments, err := patchAssignments(patch)
	if err != nil {
		return model.Account{}, err
	}

	args := []any{id, expectedVersion}
	sets := make([]string, 0, len(assignments))
	for _, a := range assignments {
		args = append(args, a.value)
		sets = append(sets, a.column+" = $"+strconv.Itoa(len(args)))
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + `, version = version + 1, updated_at = NOW()
			  WHERE id = $1 AND version = $2
			  RETURNING ` + accountColumns

	account, err := scanAccount(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, storeError("update account", err)
	}

	exists, err := r.Exists(ctx, id)
	if err != nil {
		return model.Account{}, err
	}
	if !exists {
		return model.Account{}, model.ErrNotFound
	}
	return model.Account{}, model.ErrVersionConflict
}

// Delete removes the account and every interpretation record it owns.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return storeError("begin delete account", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM dreams WHERE user_id = $1`, id); err != nil {
		return storeError("delete account dreams", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM premium_dreams WHERE user_id = $1`, id); err != nil {
		return storeError("delete account premium dreams", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return storeError("delete account", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return storeError("commit delete account", err)
	}
	return nil
}

type assignment struct {
	column string
	value  any
}

// patchAssignments turns the set fields of patch into column assignments.
func patchAssignments(patch model.AccountPatch) ([]assignment, error) {
	var out []assignment
	add := func(column string, value any) {
		out = append(out, assignment{column: column, value: value})
	}

	if p := patch.Profile; p != nil {
		add("name", p.Name)
		add("email", p.Email)
		add("birthdate", p.Birthdate)
		add("birth_time", p.BirthTime)
		add("mbti", p.MBTI)
		add("gender", p.Gender)
	}
	if patch.FreeQuota != nil {
		add("free_quota", *patch.FreeQuota)
	}
	if patch.PremiumQuota != nil {
		add("premium_quota", *patch.PremiumQuota)
	}
	if patch.LastFreeResetDate != nil {
		add("last_free_reset_date", encodeDate(*patch.LastFreeResetDate))
	}
	if patch.LastBonusGrantDate != nil {
		add("last_bonus_grant_date", encodeDate(*patch.LastBonusGrantDate))
	}
	if patch.WeeklyLuckyNumber != nil {
		add("weekly_lucky_number", encodeInt(*patch.WeeklyLuckyNumber))
	}
	if patch.WeeklyLuckyWeekKey != nil {
		add("weekly_lucky_week_key", encodeText(*patch.WeeklyLuckyWeekKey))
	}
	if patch.PremiumLuckySets != nil {
		sets, err := encodeSets(*patch.PremiumLuckySets)
		if err != nil {
			return nil, err
		}
		add("premium_lucky_sets", sets)
	}
	if patch.PremiumLuckyWeekKey != nil {
		add("premium_lucky_week_key", encodeText(*patch.PremiumLuckyWeekKey))
	}
	if patch.LastColor != nil {
		add("last_color", encodeText(*patch.LastColor))
	}
	if patch.SignupCompleted != nil {
		add("signup_completed", *patch.SignupCompleted)
	}

	return out, nil
}

// scanAccount reads one users row. Absent optional columns become zero values.
func scanAccount(row pgx.Row) (model.Account, error) {
	var (
		a                    model.Account
		freeReset, bonusDate pgtype.Date
		weeklyNumber         pgtype.Int4
		weeklyKey, setsKey   pgtype.Text
		lastColor            pgtype.Text
		sets                 []byte
	)

	err := row.Scan(
		&a.ID, &a.Profile.Name, &a.Profile.Email, &a.Profile.Birthdate, &a.Profile.BirthTime,
		&a.Profile.MBTI, &a.Profile.Gender,
		&a.FreeQuota, &a.PremiumQuota, &freeReset, &bonusDate,
		&weeklyNumber, &weeklyKey, &sets, &setsKey,
		&lastColor, &a.SignupCompleted, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return model.Account{}, err
	}

	a.LastFreeResetDate = decodeDate(freeReset)
	a.LastBonusGrantDate = decodeDate(bonusDate)
	if weeklyNumber.Valid {
		a.WeeklyLuckyNumber = int(weeklyNumber.Int32)
	}
	a.WeeklyLuckyWeekKey = weeklyKey.String
	a.PremiumLuckyWeekKey = setsKey.String
	a.LastColor = lastColor.String

	if len(sets) > 0 {
		if err := json.Unmarshal(sets, &a.PremiumLuckySets); err != nil {
			return model.Account{}, fmt.Errorf("failed to decode premium lucky sets: %w", err)
		}
	}

	return a, nil
}

func encodeDate(d clock.Date) pgtype.Date {
	if d.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.Time(time.UTC), Valid: true}
}

func decodeDate(d pgtype.Date) clock.Date {
	if !d.Valid {
		return clock.Date{}
	}
	return clock.DateOf(d.Time)
}

func encodeInt(n int) pgtype.Int4 {
	if n == 0 {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(n), Valid: true}
}

func encodeText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func encodeSets(sets [][]int) (any, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(sets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode premium lucky sets: %w", err)
	}
	return string(b), nil
}
