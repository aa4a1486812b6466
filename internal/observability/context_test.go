package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, UserIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, UserIDFromContext(ctx))

	ctx = WithUserID(ctx, "user-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "user-1", UserIDFromContext(ctx))

	// A plain string key with the same text must not collide.
	other := context.WithValue(context.Background(), "request_id", "spoofed")
	assert.Empty(t, RequestIDFromContext(other))
}
