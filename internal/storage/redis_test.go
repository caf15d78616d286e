package storage

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/jwebster45206/table-assist/pkg/chat"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	store, err := NewRedisStorage("redis://"+mr.Addr(), testLogger())
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis storage: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})
	return store, mr
}

func seedWorld(t *testing.T, store *RedisStorage) {
	t.Helper()
	w, err := LoadWorldFile("testdata/world.yaml")
	require.NoError(t, err)
	require.NoError(t, w.Seed(context.Background(), store))
}

func TestRedisStorage_Ping(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.WaitForConnection(ctx, 2, 0))

	mr.SetError("LOADING Redis is loading the dataset in memory")
	assert.Error(t, store.Ping(ctx))
	mr.SetError("")
}

func TestRedisStorage_ActorsAndUsers(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	seedWorld(t, store)

	actors, err := store.ListActors(ctx)
	require.NoError(t, err)
	require.Len(t, actors, 3)
	assert.Equal(t, []string{"kyra", "bob", "goblin"}, []string{actors[0].ID, actors[1].ID, actors[2].ID})

	// Saving again keeps the order and does not duplicate the index.
	kyra := actors[0]
	kyra.Name = "Kyra the Bold"
	require.NoError(t, store.SaveActor(ctx, &kyra))
	actors, err = store.ListActors(ctx)
	require.NoError(t, err)
	require.Len(t, actors, 3)
	assert.Equal(t, "Kyra the Bold", actors[0].Name)

	users, err := store.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 4)

	u, err := store.User(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "kyra", u.CharacterID)

	missing, err := store.User(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	a, err := store.Actor(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestRedisStorage_Tokens(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	seedWorld(t, store)

	controlled, err := store.ControlledTokens(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, controlled, 1)
	assert.Equal(t, "kyra", controlled[0].ActorID)

	none, err := store.ControlledTokens(ctx, "bram")
	require.NoError(t, err)
	assert.Empty(t, none)

	visible, err := store.VisibleTokens(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	visible, err = store.VisibleTokens(ctx, "gm")
	require.NoError(t, err)
	assert.Len(t, visible, 3)

	ch, err := store.UserCharacter(ctx, "bram")
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, "Bob", ch.Name)

	ch, err = store.UserCharacter(ctx, "cass")
	require.NoError(t, err)
	assert.Nil(t, ch)
}

func TestRedisStorage_FindActorByName(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	seedWorld(t, store)

	tests := []struct {
		name   string
		query  string
		wantID string
	}{
		{"exact", "bob", "bob"},
		{"substring", "goblin", "goblin"},
		{"exact beats substring", "KYRA", "kyra"},
		{"missing", "dragon", ""},
		{"blank", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := store.FindActorByName(ctx, tt.query)
			require.NoError(t, err)
			if tt.wantID == "" {
				assert.Nil(t, a)
				return
			}
			require.NotNil(t, a)
			assert.Equal(t, tt.wantID, a.ID)
		})
	}
}

func TestRedisStorage_TestPermission(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	seedWorld(t, store)

	kyra, err := store.Actor(ctx, "kyra")
	require.NoError(t, err)

	tests := []struct {
		user  string
		level actor.PermissionLevel
		want  bool
	}{
		{"alice", actor.PermissionOwner, true},
		{"bram", actor.PermissionObserver, true},
		{"bram", actor.PermissionOwner, false},
		{"gm", actor.PermissionOwner, true},
		{"stranger", actor.PermissionObserver, true},
	}
	for _, tt := range tests {
		ok, err := store.TestPermission(ctx, kyra, tt.user, tt.level)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "%s at %s", tt.user, tt.level)
	}
}

func TestRedisStorage_ItemWrites(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	seedWorld(t, store)

	kyra, err := store.Actor(ctx, "kyra")
	require.NoError(t, err)
	arrow := kyra.ItemByName("Arrow")
	require.NotNil(t, arrow)

	require.NoError(t, store.UpdateItem(ctx, "kyra", arrow.ID, map[string]any{"system.quantity": 2}))
	kyra, err = store.Actor(ctx, "kyra")
	require.NoError(t, err)
	assert.Equal(t, 2, kyra.Item(arrow.ID).Quantity())

	item, err := actor.NewItem("Wand of Fireballs", actor.ItemTypeLoot, map[string]any{"quantity": 1})
	require.NoError(t, err)
	created, err := store.CreateItem(ctx, "kyra", item)
	require.NoError(t, err)
	assert.Equal(t, item.ID, created.ID)

	require.NoError(t, store.DeleteItem(ctx, "kyra", arrow.ID))
	kyra, err = store.Actor(ctx, "kyra")
	require.NoError(t, err)
	assert.Nil(t, kyra.Item(arrow.ID))
	assert.NotNil(t, kyra.ItemByName("Wand of Fireballs"))

	assert.Error(t, store.DeleteItem(ctx, "kyra", arrow.ID))
	assert.Error(t, store.UpdateItem(ctx, "nobody", arrow.ID, map[string]any{"system.quantity": 1}))
}

func TestRedisStorage_UpdateActor(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	seedWorld(t, store)

	require.NoError(t, store.UpdateActor(ctx, "kyra", map[string]any{
		"system.skills.ste.ranks": 4,
		"system.skills.ste.mod":   9,
	}))
	kyra, err := store.Actor(ctx, "kyra")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ability":"dex","ranks":4,"cs":true,"acp":true,"mod":9}`,
		string(mustGetRaw(t, kyra.System, "skills.ste")))

	assert.Error(t, store.UpdateActor(ctx, "kyra", map[string]any{"system": "gone"}))
}

func TestRedisStorage_ConcurrentItemWrites(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	seedWorld(t, store)

	kyra, err := store.Actor(ctx, "kyra")
	require.NoError(t, err)

	// Writers touching different items of the same actor must not lose each other's updates.
	var wg sync.WaitGroup
	for i, it := range kyra.Items {
		wg.Add(1)
		go func(id string, qty int) {
			defer wg.Done()
			assert.NoError(t, store.UpdateItem(ctx, "kyra", id, map[string]any{"system.quantity": qty}))
		}(it.ID, 10+i)
	}
	wg.Wait()

	kyra, err = store.Actor(ctx, "kyra")
	require.NoError(t, err)
	for i, it := range kyra.Items {
		assert.Equal(t, 10+i, it.Quantity(), it.Name)
	}
}

func TestRedisStorage_ChatLogAndHistory(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	for _, c := range []string{"one", "two", "three"} {
		require.NoError(t, store.AppendEntry(ctx, chat.Entry{ID: c, Content: c}))
	}
	all, err := store.ListEntries(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	last, err := store.ListEntries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "two", last[0].Content)
	assert.Equal(t, "three", last[1].Content)

	require.NoError(t, store.AppendHistory(ctx, "alice",
		chat.ChatMessage{Role: chat.ChatRoleUser, Content: "q"},
		chat.ChatMessage{Role: chat.ChatRoleAgent, Content: "a"},
	))
	require.NoError(t, store.AppendHistory(ctx, "alice"))

	h, err := store.LoadHistory(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, []chat.ChatMessage{
		{Role: chat.ChatRoleUser, Content: "q"},
		{Role: chat.ChatRoleAgent, Content: "a"},
	}, h)

	require.NoError(t, store.ClearHistory(ctx, "alice"))
	h, err = store.LoadHistory(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, h)
}

func mustGetRaw(t *testing.T, doc []byte, path string) []byte {
	t.Helper()
	res := gjson.GetBytes(doc, path)
	require.True(t, res.Exists(), "path %s missing", path)
	return []byte(res.Raw)
}
