package log

import (
	"context"
	"hash/fnv"

	"github.com/google/uuid"
)

type ContextKey string

const (
	ContextKeyTraceID ContextKey = "logContextKeyTraceID"
)

// PutTraceID attaches a trace identifier to ctx so every log call made
// with that context (or a descendant of it) carries the same traceId
// field.
func PutTraceID(ctx context.Context, traceID int64) context.Context {
	return context.WithValue(ctx, ContextKeyTraceID, traceID)
}

// NewTraceID derives an int64 trace identifier from a fresh random
// uuid. Logging fields are plain scalars, so the uuid is folded down
// with fnv rather than carried as a string.
func NewTraceID() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(uuid.New().String()))
	return int64(h.Sum64())
}

func GetTraceID(ctx context.Context) int64 {
	contextTraceID := ctx.Value(ContextKeyTraceID)
	if contextTraceID == nil {
		return -1
	}

	traceID, ok := contextTraceID.(int64)
	if !ok {
		return -1
	}

	return traceID
}
