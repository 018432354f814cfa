package isml

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextMessageIdNeverReturnsZero(t *testing.T) {
	for i := 0; i < 10; i++ {
		require.NotEqual(t, InvalidMessageId, NextMessageId())
	}
}

func TestNextSessionIdNeverReturnsZero(t *testing.T) {
	for i := 0; i < 10; i++ {
		require.NotEqual(t, InvalidSessionId, NextSessionId())
	}
}

func TestNextMessageIdIsUniqueUnderConcurrentCallers(t *testing.T) {
	const n = 200
	ids := make(chan MessageId, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			ids <- NextMessageId()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[MessageId]bool, n)
	for id := range ids {
		require.False(t, seen[id], "duplicate message id %d", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
}

func TestNextSessionIdIsUniqueUnderConcurrentCallers(t *testing.T) {
	const n = 200
	ids := make(chan SessionId, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			ids <- NextSessionId()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[SessionId]bool, n)
	for id := range ids {
		require.False(t, seen[id], "duplicate session id %d", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
}
