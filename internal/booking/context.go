package booking

import (
	"context"
	"strings"
)

type contextKey string

const idempotencyKey contextKey = "bookingIdempotencyKey"

// NewContextWithIdempotencyKey marks the request so a retried Create returns the
// booking made by the first attempt instead of reserving again.
func NewContextWithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey, strings.TrimSpace(key))
}

func IdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKey).(string)

	return key, ok && key != ""
}
