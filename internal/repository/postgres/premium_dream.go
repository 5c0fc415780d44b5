package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/dreamluck-server/internal/model"
)

var _ model.PremiumDreamStore = (*PremiumDreamRepository)(nil)

const premiumDreamColumns = `id, user_id, input_text, interpretation, mbti_summary, saju_summary, lucky_number_sets, created_at`

type PremiumDreamRepository struct {
	db *Connection
}

func NewPremiumDreamRepository(db *Connection) *PremiumDreamRepository {
	return &PremiumDreamRepository{
		db: db,
	}
}

func (r *PremiumDreamRepository) Create(ctx context.Context, record model.PremiumDreamRecord) (model.PremiumDreamRecord, error) {
	if record.LuckyNumberSets == nil {
		record.LuckyNumberSets = []string{}
	}

	query := `INSERT INTO premium_dreams (id, user_id, input_text, interpretation, mbti_summary, saju_summary, lucky_number_sets)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING ` + premiumDreamColumns

	saved, err := scanPremiumDream(r.db.QueryRow(ctx, query,
		record.ID, record.UserID, record.InputText, record.Interpretation,
		record.MBTISummary, record.SajuSummary, record.LuckyNumberSets,
	))
	if err != nil {
		return model.PremiumDreamRecord{}, storeError("create premium dream", err)
	}

	return saved, nil
}

func (r *PremiumDreamRepository) GetByID(ctx context.Context, id uuid.UUID) (model.PremiumDreamRecord, error) {
	query := `SELECT ` + premiumDreamColumns + ` FROM premium_dreams WHERE id = $1`

	record, err := scanPremiumDream(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PremiumDreamRecord{}, model.ErrNotFound
		}
		return model.PremiumDreamRecord{}, storeError("get premium dream", err)
	}

	return record, nil
}

func (r *PremiumDreamRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.PremiumDreamRecord, error) {
	query := `SELECT ` + premiumDreamColumns + ` FROM premium_dreams
			  WHERE user_id = $1
			  ORDER BY created_at DESC
			  LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, storeError("list premium dreams", err)
	}
	defer rows.Close()

	records := make([]model.PremiumDreamRecord, 0)
	for rows.Next() {
		record, err := scanPremiumDream(rows)
		if err != nil {
			return nil, storeError("scan premium dream", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list premium dreams", err)
	}

	return records, nil
}

func scanPremiumDream(row pgx.Row) (model.PremiumDreamRecord, error) {
	var d model.PremiumDreamRecord
	err := row.Scan(&d.ID, &d.UserID, &d.InputText, &d.Interpretation, &d.MBTISummary, &d.SajuSummary,
		&d.LuckyNumberSets, &d.CreatedAt)
	if err != nil {
		return model.PremiumDreamRecord{}, err
	}
	return d, nil
}
