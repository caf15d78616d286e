package storage

import (
	"context"

	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/jwebster45206/table-assist/pkg/chat"
)

// Storage defines a unified interface for all storage operations.
// It combines the world document model with the chat log and per-user
// conversation history.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	actor.Store
	actor.Directory

	// World seeding
	SaveActor(ctx context.Context, a *actor.Actor) error
	ListActors(ctx context.Context) ([]actor.Actor, error)
	SaveUser(ctx context.Context, u *actor.User) error
	SaveToken(ctx context.Context, t actor.Token) error
	SetControlledTokens(ctx context.Context, userID string, tokenIDs []string) error

	// Chat log
	AppendEntry(ctx context.Context, e chat.Entry) error
	ListEntries(ctx context.Context, limit int) ([]chat.Entry, error)

	// Conversation history, oldest first
	AppendHistory(ctx context.Context, userID string, msgs ...chat.ChatMessage) error
	LoadHistory(ctx context.Context, userID string, limit int) ([]chat.ChatMessage, error)
	ClearHistory(ctx context.Context, userID string) error
}
