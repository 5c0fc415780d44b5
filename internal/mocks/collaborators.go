package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/dreamluck-server/internal/model"
)

var (
	_ model.Generator      = (*Generator)(nil)
	_ model.EventPublisher = (*EventPublisher)(nil)
	_ model.TokenManager   = (*TokenManager)(nil)
)

type Generator struct {
	mock.Mock
}

func (m *Generator) Interpretation(ctx context.Context, prompt model.PromptContext) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *Generator) ColorName(ctx context.Context, dreamText string) (string, error) {
	args := m.Called(ctx, dreamText)
	return args.String(0), args.Error(1)
}

func (m *Generator) ProfileSummary(ctx context.Context, kind model.SummaryKind, profile model.Profile) (string, error) {
	args := m.Called(ctx, kind, profile)
	return args.String(0), args.Error(1)
}

func (m *Generator) PremiumInterpretation(ctx context.Context, prompt model.PremiumPromptContext) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// EventPublisher records every published event.
type EventPublisher struct {
	mu     sync.Mutex
	Events []model.Event
	Err    error
}

func (m *EventPublisher) Publish(_ context.Context, event model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return m.Err
}

// Types returns the published event types in order.
func (m *EventPublisher) Types() []model.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.EventType, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.Type)
	}
	return out
}

type TokenManager struct {
	mock.Mock
}

func (m *TokenManager) GenerateAccessToken(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *TokenManager) ParseAccessToken(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}
