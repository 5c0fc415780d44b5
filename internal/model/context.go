package model

import "context"

// ContextManager moves the authenticated user id in and out of a request context.
type ContextManager interface {
	SetUserIDToContext(ctx context.Context, userID string) context.Context
	GetUserIDFromContext(ctx context.Context) (string, bool)
}
