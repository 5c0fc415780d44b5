package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DreamStore defines persistence operations for free interpretation records.
type DreamStore interface {
	Create(ctx context.Context, record DreamRecord) (DreamRecord, error)
	Complete(ctx context.Context, id uuid.UUID, result, color string) (DreamRecord, error)
	MarkFailed(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (DreamRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]DreamRecord, error)
	MarkStalePendingFailed(ctx context.Context, olderThan time.Time) (int64, error)
}

// PremiumDreamStore defines persistence operations for premium interpretation records.
type PremiumDreamStore interface {
	Create(ctx context.Context, record PremiumDreamRecord) (PremiumDreamRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (PremiumDreamRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]PremiumDreamRecord, error)
}

// DreamStatus tags the two-phase write lifecycle of a DreamRecord.
type DreamStatus string

const (
	// DreamStatusPending is a record created before generation finished.
	DreamStatusPending DreamStatus = "pending"
	// DreamStatusComplete is a record carrying its interpretation and color.
	DreamStatusComplete DreamStatus = "complete"
	// DreamStatusFailed is a record whose generation failed or was abandoned.
	DreamStatusFailed DreamStatus = "failed"
)

// DreamRecord is one free interpretation request.
type DreamRecord struct {
	ID         uuid.UUID
	UserID     string
	InputText  string
	ResultText string
	Color      string
	Status     DreamStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PremiumDreamRecord is one premium interpretation request, written once.
type PremiumDreamRecord struct {
	ID              uuid.UUID
	UserID          string
	InputText       string
	Interpretation  string
	MBTISummary     string
	SajuSummary     string
	LuckyNumberSets []string
	CreatedAt       time.Time
}
