package services

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	workspaceIDKey
)

// WithUserContext attaches the authenticated principal to ctx. The workspace
// id is optional; tokens issued for personal spaces carry none.
func WithUserContext(ctx context.Context, userID uuid.UUID, workspaceID uuid.NullUUID) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	if workspaceID.Valid {
		ctx = context.WithValue(ctx, workspaceIDKey, workspaceID.UUID)
	}
	return ctx
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

func WorkspaceIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(workspaceIDKey).(uuid.UUID)
	return id, ok
}
