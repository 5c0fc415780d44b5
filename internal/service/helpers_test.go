package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/model"
)

// memAccounts is a versioned in-memory AccountStore.
type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]model.Account

	// conflicts makes the next n Update calls fail with ErrVersionConflict.
	conflicts int
	getErr    error
	updateErr error
	createErr error
	deleteErr error
	updates   int

	// beforeUpdate runs once, under the lock, ahead of the next Update.
	beforeUpdate func(accounts map[string]model.Account)
}

func newMemAccounts(accounts ...model.Account) *memAccounts {
	m := &memAccounts{accounts: map[string]model.Account{}}
	for _, a := range accounts {
		if a.Version == 0 {
			a.Version = 1
		}
		m.accounts[a.ID] = a
	}
	return m
}

func (m *memAccounts) Get(_ context.Context, id string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return model.Account{}, m.getErr
	}
	a, ok := m.accounts[id]
	if !ok {
		return model.Account{}, model.ErrNotFound
	}
	return a, nil
}

func (m *memAccounts) Create(_ context.Context, account model.Account) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return model.Account{}, m.createErr
	}
	if _, ok := m.accounts[account.ID]; ok {
		return model.Account{}, model.ErrAlreadyExists
	}
	account.Version = 1
	m.accounts[account.ID] = account
	return account, nil
}

func (m *memAccounts) Update(_ context.Context, id string, patch model.AccountPatch, expectedVersion int64) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.beforeUpdate != nil {
		m.beforeUpdate(m.accounts)
		m.beforeUpdate = nil
	}
	if m.updateErr != nil {
		return model.Account{}, m.updateErr
	}
	a, ok := m.accounts[id]
	if !ok {
		return model.Account{}, model.ErrNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		return model.Account{}, model.ErrVersionConflict
	}
	if a.Version != expectedVersion {
		return model.Account{}, model.ErrVersionConflict
	}
	a = patch.Apply(a)
	a.Version++
	m.accounts[id] = a
	return a, nil
}

func (m *memAccounts) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[id]
	return ok, nil
}

func (m *memAccounts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.accounts[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *memAccounts) get(t *testing.T, id string) model.Account {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id]
}

// fixedRand always returns the same index.
type fixedRand struct{ n int }

func (f fixedRand) IntN(n int) int { return f.n % n }

type recordedDecision struct {
	kind, decision, reason string
}

type fakeRecorder struct {
	mu        sync.Mutex
	decisions []recordedDecision
	shares    []bool
}

func (r *fakeRecorder) ObserveQuota(kind, decision, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, recordedDecision{kind, decision, reason})
}

func (r *fakeRecorder) ObserveShareBonus(granted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shares = append(r.shares, granted)
}

var (
	testNow   = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	testToday = clock.DateOf(testNow)
	yesterday = clock.DateOf(testNow.AddDate(0, 0, -1))
)

func signedUp(id string) model.Account {
	return model.Account{
		ID: id,
		Profile: model.Profile{
			Name:      "dreamer",
			Birthdate: "1990-01-01",
			BirthTime: "07:30",
			MBTI:      "INTP",
		},
		FreeQuota:         0,
		LastFreeResetDate: yesterday,
		PremiumQuota:      1,
		SignupCompleted:   true,
	}
}
