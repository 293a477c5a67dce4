// Package utils holds small helpers shared by the favsync client and the
// record server: context keys, HMAC hashing, JSON responses, the resty
// wrapper, JWT handling and ID generation.
package utils

import (
	"context"
)

// contextKey is a private type for context keys so string keys from other
// packages cannot collide with ours.
type contextKey string

func (c contextKey) String() string {
	return string(c)
}

// UserIDCtxKey stores the authenticated account ID on request contexts.
var UserIDCtxKey = contextKey("userID")

// WithUserID returns a copy of ctx carrying userID under UserIDCtxKey.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDCtxKey, userID)
}

// GetUserIDFromContext retrieves the account ID stored by WithUserID.
// ok is false when the value is missing or has an unexpected type.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(int64)
	return userID, ok
}
