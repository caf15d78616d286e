package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/table-assist/pkg/chat"
)

func TestChatSink_PostAndSubscribe(t *testing.T) {
	store, _ := setupTestRedis(t)
	sink := NewChatSink(store, store.Client(), testLogger())
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, stop, err := sink.Subscribe(ctx)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, sink.Post(ctx, chat.Entry{
		Speaker:   chat.ReplySpeaker,
		VisibleTo: []string{"alice"},
		Whisper:   true,
		Content:   "psst",
	}))

	select {
	case e := <-entries:
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "psst", e.Content)
		assert.True(t, e.CreatedAt.Equal(fixed))
		assert.Equal(t, []string{"alice"}, e.VisibleTo)
	case <-ctx.Done():
		t.Fatal("timed out waiting for published entry")
	}

	stored, err := store.ListEntries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "psst", stored[0].Content)
}

func TestChatSink_WithoutClient(t *testing.T) {
	store, _ := setupTestRedis(t)
	sink := NewChatSink(store, nil, testLogger())

	require.NoError(t, sink.Post(context.Background(), chat.Entry{Content: "hello"}))
	_, _, err := sink.Subscribe(context.Background())
	assert.Error(t, err)

	stored, err := store.ListEntries(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
