package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"

	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/jwebster45206/table-assist/pkg/chat"
	"github.com/jwebster45206/table-assist/pkg/storage"
)

const (
	actorsKey     = "actors"
	actorIDsKey   = "actors:ids"
	usersKey      = "users"
	userIDsKey    = "users:ids"
	tokensKey     = "scene:tokens"
	chatLogKey    = "chatlog"
	EntriesTopic  = "chat:entries"
	maxTxAttempts = 10
)

func actorKey(id string) string      { return "actor:" + id }
func userKey(id string) string       { return "user:" + id }
func controlledKey(id string) string { return "controlled:" + id }
func historyKey(id string) string    { return "history:" + id }

// RedisStorage implements storage.Storage on Redis. Actor documents are
// stored as JSON and updated with optimistic WATCH transactions.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis storage instance from a redis:// URL.
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &RedisStorage{
		client: redis.NewClient(opt),
		logger: logger,
	}, nil
}

// Client exposes the underlying connection for publishers and subscribers.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, attempts uint, delay time.Duration) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := r.Ping(ctx)
		if err != nil {
			r.logger.Debug("Redis not ready yet", "error", err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(backoff.NewConstantBackOff(delay)), backoff.WithMaxTries(attempts), backoff.WithMaxElapsedTime(0))
	if err != nil {
		return fmt.Errorf("redis did not become available after %d attempts: %w", attempts, err)
	}
	r.logger.Info("Redis connection established")
	return nil
}

// World seeding

func (r *RedisStorage) SaveActor(ctx context.Context, a *actor.Actor) error {
	if a == nil || a.ID == "" {
		return errors.New("actor must have an id")
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal actor: %w", err)
	}
	added, err := r.client.SAdd(ctx, actorIDsKey, a.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to index actor: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, actorKey(a.ID), data, 0)
		if added == 1 {
			pipe.RPush(ctx, actorsKey, a.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save actor: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListActors(ctx context.Context) ([]actor.Actor, error) {
	docs, err := r.actorDocs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]actor.Actor, 0, len(docs))
	for _, doc := range docs {
		var a actor.Actor
		if err := json.Unmarshal(doc, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal actor: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// actorDocs returns the raw actor documents in creation order.
func (r *RedisStorage) actorDocs(ctx context.Context) ([][]byte, error) {
	ids, err := r.client.LRange(ctx, actorsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = actorKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load actors: %w", err)
	}
	docs := make([][]byte, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			docs = append(docs, []byte(s))
		}
	}
	return docs, nil
}

func (r *RedisStorage) SaveUser(ctx context.Context, u *actor.User) error {
	if u == nil || u.ID == "" {
		return errors.New("user must have an id")
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	added, err := r.client.SAdd(ctx, userIDsKey, u.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to index user: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, userKey(u.ID), data, 0)
		if added == 1 {
			pipe.RPush(ctx, usersKey, u.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *RedisStorage) SaveToken(ctx context.Context, t actor.Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := r.client.HSet(ctx, tokensKey, t.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (r *RedisStorage) SetControlledTokens(ctx context.Context, userID string, tokenIDs []string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, controlledKey(userID))
		if len(tokenIDs) > 0 {
			args := make([]any, len(tokenIDs))
			for i, id := range tokenIDs {
				args[i] = id
			}
			pipe.RPush(ctx, controlledKey(userID), args...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set controlled tokens: %w", err)
	}
	return nil
}

// Directory

func (r *RedisStorage) User(ctx context.Context, userID string) (*actor.User, error) {
	data, err := r.client.Get(ctx, userKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	var u actor.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &u, nil
}

func (r *RedisStorage) Users(ctx context.Context) ([]actor.User, error) {
	ids, err := r.client.LRange(ctx, usersKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]actor.User, 0, len(ids))
	for _, id := range ids {
		u, err := r.User(ctx, id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

// Actor store

func (r *RedisStorage) tokens(ctx context.Context) ([]actor.Token, error) {
	vals, err := r.client.HGetAll(ctx, tokensKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	out := make([]actor.Token, 0, len(vals))
	for _, v := range vals {
		var t actor.Token
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal token: %w", err)
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RedisStorage) ControlledTokens(ctx context.Context, userID string) ([]actor.Token, error) {
	ids, err := r.client.LRange(ctx, controlledKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load controlled tokens: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	vals, err := r.client.HMGet(ctx, tokensKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	var out []actor.Token
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var t actor.Token
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal token: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// VisibleTokens returns the tokens on the scene the user can see. Game
// masters see hidden tokens.
func (r *RedisStorage) VisibleTokens(ctx context.Context, userID string) ([]actor.Token, error) {
	u, err := r.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := r.tokens(ctx)
	if err != nil {
		return nil, err
	}
	gm := u != nil && u.IsGM
	var out []actor.Token
	for _, t := range all {
		if !t.Hidden || gm {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *RedisStorage) UserCharacter(ctx context.Context, userID string) (*actor.Actor, error) {
	u, err := r.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil || u.CharacterID == "" {
		return nil, nil
	}
	return r.Actor(ctx, u.CharacterID)
}

func (r *RedisStorage) Actor(ctx context.Context, actorID string) (*actor.Actor, error) {
	data, err := r.client.Get(ctx, actorKey(actorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	var a actor.Actor
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actor: %w", err)
	}
	return &a, nil
}

func (r *RedisStorage) FindActorByName(ctx context.Context, name string) (*actor.Actor, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, nil
	}
	docs, err := r.actorDocs(ctx)
	if err != nil {
		return nil, err
	}

	match := -1
	for i, doc := range docs {
		if strings.ToLower(gjson.GetBytes(doc, "name").String()) == needle {
			match = i
			break
		}
	}
	if match < 0 {
		for i, doc := range docs {
			if strings.Contains(strings.ToLower(gjson.GetBytes(doc, "name").String()), needle) {
				match = i
				break
			}
		}
	}
	if match < 0 {
		return nil, nil
	}

	var a actor.Actor
	if err := json.Unmarshal(docs[match], &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actor: %w", err)
	}
	return &a, nil
}

func (r *RedisStorage) TestPermission(ctx context.Context, a *actor.Actor, userID string, level actor.PermissionLevel) (bool, error) {
	u, err := r.User(ctx, userID)
	if err != nil {
		return false, err
	}
	if u == nil {
		u = &actor.User{ID: userID}
	}
	return a.HasPermission(u, level), nil
}

// updateActorDoc applies fn to the stored actor inside a WATCH transaction,
// retrying when another writer changes the document first.
func (r *RedisStorage) updateActorDoc(ctx context.Context, actorID string, fn func(a *actor.Actor) (*actor.Actor, error)) error {
	key := actorKey(actorID)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("actor %s not found", actorID)
			}
			return err
		}
		var a actor.Actor
		if err := json.Unmarshal(data, &a); err != nil {
			return fmt.Errorf("failed to unmarshal actor: %w", err)
		}
		updated, err := fn(&a)
		if err != nil {
			return err
		}
		out, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to marshal actor: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := r.client.Watch(ctx, txf, key)
		if err == nil || errors.Is(err, redis.TxFailedErr) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(&backoff.ZeroBackOff{}), backoff.WithMaxTries(maxTxAttempts))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		r.logger.Error("Failed to update actor", "actor_id", actorID, "error", err)
		return fmt.Errorf("failed to update actor %s: %w", actorID, err)
	}
	return nil
}

func (r *RedisStorage) UpdateActor(ctx context.Context, actorID string, changes map[string]any) error {
	return r.updateActorDoc(ctx, actorID, func(a *actor.Actor) (*actor.Actor, error) {
		return actor.ApplyChanges(a, changes)
	})
}

func (r *RedisStorage) UpdateItem(ctx context.Context, actorID, itemID string, changes map[string]any) error {
	return r.updateActorDoc(ctx, actorID, func(a *actor.Actor) (*actor.Actor, error) {
		item := a.Item(itemID)
		if item == nil {
			return nil, fmt.Errorf("item %s not found on actor %s", itemID, actorID)
		}
		updated, err := actor.ApplyItemChanges(item, changes)
		if err != nil {
			return nil, err
		}
		*item = *updated
		return a, nil
	})
}

func (r *RedisStorage) CreateItem(ctx context.Context, actorID string, item actor.Item) (*actor.Item, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	err := r.updateActorDoc(ctx, actorID, func(a *actor.Actor) (*actor.Actor, error) {
		a.Items = append(a.Items, item)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *RedisStorage) DeleteItem(ctx context.Context, actorID, itemID string) error {
	return r.updateActorDoc(ctx, actorID, func(a *actor.Actor) (*actor.Actor, error) {
		for i := range a.Items {
			if a.Items[i].ID == itemID {
				a.Items = append(a.Items[:i], a.Items[i+1:]...)
				return a, nil
			}
		}
		return nil, fmt.Errorf("item %s not found on actor %s", itemID, actorID)
	})
}

// Chat log

func (r *RedisStorage) AppendEntry(ctx context.Context, e chat.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal chat entry: %w", err)
	}
	if err := r.client.RPush(ctx, chatLogKey, data).Err(); err != nil {
		return fmt.Errorf("failed to append chat entry: %w", err)
	}
	return nil
}

// ListEntries returns the newest limit entries, oldest first. A limit of 0 returns all.
func (r *RedisStorage) ListEntries(ctx context.Context, limit int) ([]chat.Entry, error) {
	vals, err := r.client.LRange(ctx, chatLogKey, tailStart(limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list chat entries: %w", err)
	}
	out := make([]chat.Entry, 0, len(vals))
	for _, v := range vals {
		var e chat.Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Conversation history

func (r *RedisStorage) AppendHistory(ctx context.Context, userID string, msgs ...chat.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	args := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal history message: %w", err)
		}
		args = append(args, data)
	}
	if err := r.client.RPush(ctx, historyKey(userID), args...).Err(); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadHistory(ctx context.Context, userID string, limit int) ([]chat.ChatMessage, error) {
	vals, err := r.client.LRange(ctx, historyKey(userID), tailStart(limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	out := make([]chat.ChatMessage, 0, len(vals))
	for _, v := range vals {
		var m chat.ChatMessage
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history message: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *RedisStorage) ClearHistory(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, historyKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func tailStart(limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return int64(-limit)
}
