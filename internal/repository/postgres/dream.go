package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/dreamluck-server/internal/model"
)

var _ model.DreamStore = (*DreamRepository)(nil)

const dreamColumns = `id, user_id, input_text, result_text, color, status, created_at, updated_at`

type DreamRepository struct {
	db *Connection
}

func NewDreamRepository(db *Connection) *DreamRepository {
	return &DreamRepository{
		db: db,
	}
}

func (r *DreamRepository) Create(ctx context.Context, record model.DreamRecord) (model.DreamRecord, error) {
	if record.Status == "" {
		record.Status = model.DreamStatusPending
	}

	query := `INSERT INTO dreams (id, user_id, input_text, result_text, color, status)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING ` + dreamColumns

	saved, err := scanDream(r.db.QueryRow(ctx, query,
		record.ID, record.UserID, record.InputText, record.ResultText, record.Color, string(record.Status),
	))
	if err != nil {
		return model.DreamRecord{}, storeError("create dream", err)
	}

	return saved, nil
}

// Complete fills in the result of a pending record. Records that already left
// the pending state are reported as not found.
func (r *DreamRepository) Complete(ctx context.Context, id uuid.UUID, result, color string) (model.DreamRecord, error) {
	query := `UPDATE dreams SET result_text = $2, color = $3, status = 'complete', updated_at = NOW()
			  WHERE id = $1 AND status = 'pending'
			  RETURNING ` + dreamColumns

	record, err := scanDream(r.db.QueryRow(ctx, query, id, result, color))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DreamRecord{}, model.ErrNotFound
		}
		return model.DreamRecord{}, storeError("complete dream", err)
	}

	return record, nil
}

func (r *DreamRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE dreams SET status = 'failed', updated_at = NOW() WHERE id = $1 AND status = 'pending'`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return storeError("mark dream failed", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *DreamRepository) GetByID(ctx context.Context, id uuid.UUID) (model.DreamRecord, error) {
	query := `SELECT ` + dreamColumns + ` FROM dreams WHERE id = $1`

	record, err := scanDream(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DreamRecord{}, model.ErrNotFound
		}
		return model.DreamRecord{}, storeError("get dream", err)
	}

	return record, nil
}

// ListByUser returns the newest records first.
func (r *DreamRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.DreamRecord, error) {
	query := `SELECT ` + dreamColumns + ` FROM dreams
			  WHERE user_id = $1
			  ORDER BY created_at DESC
			  LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, storeError("list dreams", err)
	}
	defer rows.Close()

	records := make([]model.DreamRecord, 0)
	for rows.Next() {
		record, err := scanDream(rows)
		if err != nil {
			return nil, storeError("scan dream", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list dreams", err)
	}

	return records, nil
}

// MarkStalePendingFailed fails every record still pending since before olderThan.
func (r *DreamRepository) MarkStalePendingFailed(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `UPDATE dreams SET status = 'failed', updated_at = NOW()
			  WHERE status = 'pending' AND created_at < $1`

	tag, err := r.db.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, storeError("mark stale dreams failed", err)
	}
	return tag.RowsAffected(), nil
}

func scanDream(row pgx.Row) (model.DreamRecord, error) {
	var (
		d      model.DreamRecord
		status string
	)
	err := row.Scan(&d.ID, &d.UserID, &d.InputText, &d.ResultText, &d.Color, &status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return model.DreamRecord{}, err
	}
	d.Status = model.DreamStatus(status)
	return d, nil
}
