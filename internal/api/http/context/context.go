package context

import (
	"context"

	"github.com/dtroode/dreamluck-server/internal/model"
)

var _ model.ContextManager = (*Manager)(nil)

type userIDKey struct{}

// Manager stores the authenticated user id in a request context.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// SetUserIDToContext returns a copy of ctx carrying userID.
func (m *Manager) SetUserIDToContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserIDFromContext returns the user id set by SetUserIDToContext. An empty
// id is reported as missing.
func (m *Manager) GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey{}).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
