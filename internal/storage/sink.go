package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/table-assist/pkg/chat"
	"github.com/jwebster45206/table-assist/pkg/storage"
)

// ChatSink appends entries to the chat log and publishes them to live
// subscribers on EntriesTopic.
type ChatSink struct {
	store  storage.Storage
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewChatSink creates a sink. A nil client disables publishing.
func NewChatSink(store storage.Storage, client *redis.Client, logger *slog.Logger) *ChatSink {
	return &ChatSink{
		store:  store,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Post stores e, assigning an id and timestamp when missing, then publishes it.
// A publish failure is logged; the entry is already in the log.
func (s *ChatSink) Post(ctx context.Context, e chat.Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	if err := s.store.AppendEntry(ctx, e); err != nil {
		return fmt.Errorf("failed to post chat entry: %w", err)
	}
	if s.client == nil {
		return nil
	}

	data, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("Failed to marshal chat entry", "error", err, "entry_id", e.ID)
		return nil
	}
	if err := s.client.Publish(ctx, EntriesTopic, data).Err(); err != nil {
		s.logger.Error("Failed to publish chat entry", "error", err, "channel", EntriesTopic)
		return nil
	}

	s.logger.Debug("Chat entry published",
		"channel", EntriesTopic,
		"entry_id", e.ID,
		"speaker", e.Speaker,
		"whisper", e.Whisper)
	return nil
}

// Subscribe streams newly posted entries until ctx is done or the returned
// cancel func is called.
func (s *ChatSink) Subscribe(ctx context.Context) (<-chan chat.Entry, func(), error) {
	if s.client == nil {
		return nil, nil, fmt.Errorf("chat sink has no redis client")
	}
	pubsub := s.client.Subscribe(ctx, EntriesTopic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", EntriesTopic, err)
	}

	out := make(chan chat.Entry)
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e chat.Entry
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					s.logger.Error("Failed to unmarshal chat entry", "error", err, "payload", msg.Payload)
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cancel := func() {
		if err := pubsub.Close(); err != nil {
			s.logger.Error("Failed to close pubsub", "error", err)
		}
	}
	return out, cancel, nil
}
