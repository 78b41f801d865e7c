// Package actorctx carries the authenticated caller's user id on a
// context.Context so it can be handed to store writes as the acting user.
package actorctx

import "context"

type ctxKey struct{}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserIDFrom(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ctxKey{}).(int64)

	return v, ok && v > 0
}

// Actor returns the caller as the nullable audit reference stores expect.
func Actor(ctx context.Context) *int64 {
	id, ok := UserIDFrom(ctx)
	if !ok {
		return nil
	}
	return &id
}
