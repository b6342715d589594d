package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docubot-ai/docubot/internal/llm"
)

func TestMemoryClientSetGet(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}

func TestMemoryClientMiss(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientExpiry(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientDelete(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientEviction(t *testing.T) {
	c := NewMemoryClient(2)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 2*time.Minute))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 3*time.Minute))

	// "a" expires first, so it is the one evicted.
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestSessionStoreEmptyHistory(t *testing.T) {
	store := NewSessionStore(NewMemoryClient(10), time.Minute, 6)

	history, err := store.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSessionStoreAppendAndHistory(t *testing.T) {
	store := NewSessionStore(NewMemoryClient(10), time.Minute, 6)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1",
		llm.Message{Role: "user", Content: "hi"},
		llm.Message{Role: "assistant", Content: "hello"},
	))

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "hello", history[1].Content)
}

func TestSessionStoreTrimsToWindow(t *testing.T) {
	store := NewSessionStore(NewMemoryClient(10), time.Minute, 4)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.Append(ctx, "s1",
			llm.Message{Role: "user", Content: "q"},
			llm.Message{Role: "assistant", Content: "a"},
		))
	}

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestSessionStoreClear(t *testing.T) {
	store := NewSessionStore(NewMemoryClient(10), time.Minute, 6)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", llm.Message{Role: "user", Content: "hi"}))
	require.NoError(t, store.Clear(ctx, "s1"))

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSessionStoreIsolatesSessions(t *testing.T) {
	store := NewSessionStore(NewMemoryClient(10), time.Minute, 6)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", llm.Message{Role: "user", Content: "one"}))
	require.NoError(t, store.Append(ctx, "s2", llm.Message{Role: "user", Content: "two"}))

	h1, err := store.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, h1, 1)
	assert.Equal(t, "one", h1[0].Content)
}
