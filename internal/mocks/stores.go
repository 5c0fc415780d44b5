// Package mocks holds testify mocks for the interfaces in internal/model.
package mocks

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/dreamluck-server/internal/model"
)

var (
	_ model.AccountStore      = (*AccountStore)(nil)
	_ model.DreamStore        = (*DreamStore)(nil)
	_ model.PremiumDreamStore = (*PremiumDreamStore)(nil)
	_ model.Storage           = (*Storage)(nil)
)

type AccountStore struct {
	mock.Mock
}

func (m *AccountStore) Get(ctx context.Context, id string) (model.Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *AccountStore) Create(ctx context.Context, account model.Account) (model.Account, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *AccountStore) Update(ctx context.Context, id string, patch model.AccountPatch, expectedVersion int64) (model.Account, error) {
	args := m.Called(ctx, id, patch, expectedVersion)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *AccountStore) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *AccountStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type DreamStore struct {
	mock.Mock
}

func (m *DreamStore) Create(ctx context.Context, record model.DreamRecord) (model.DreamRecord, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(model.DreamRecord), args.Error(1)
}

func (m *DreamStore) Complete(ctx context.Context, id uuid.UUID, result, color string) (model.DreamRecord, error) {
	args := m.Called(ctx, id, result, color)
	return args.Get(0).(model.DreamRecord), args.Error(1)
}

func (m *DreamStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *DreamStore) GetByID(ctx context.Context, id uuid.UUID) (model.DreamRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.DreamRecord), args.Error(1)
}

func (m *DreamStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.DreamRecord, error) {
	args := m.Called(ctx, userID, limit)
	records, _ := args.Get(0).([]model.DreamRecord)
	return records, args.Error(1)
}

func (m *DreamStore) MarkStalePendingFailed(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type PremiumDreamStore struct {
	mock.Mock
}

func (m *PremiumDreamStore) Create(ctx context.Context, record model.PremiumDreamRecord) (model.PremiumDreamRecord, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(model.PremiumDreamRecord), args.Error(1)
}

func (m *PremiumDreamStore) GetByID(ctx context.Context, id uuid.UUID) (model.PremiumDreamRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.PremiumDreamRecord), args.Error(1)
}

func (m *PremiumDreamStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.PremiumDreamRecord, error) {
	args := m.Called(ctx, userID, limit)
	records, _ := args.Get(0).([]model.PremiumDreamRecord)
	return records, args.Error(1)
}

type Storage struct {
	mock.Mock
}

func (m *Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, reader, size, contentType)
	return args.Error(0)
}

func (m *Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *Storage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *Storage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
