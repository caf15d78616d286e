package actor

import "context"

// Store is the host document model consumed by command handling.
// Lookups return nil with a nil error when nothing matches.
type Store interface {
	ControlledTokens(ctx context.Context, userID string) ([]Token, error)
	UserCharacter(ctx context.Context, userID string) (*Actor, error)
	VisibleTokens(ctx context.Context, userID string) ([]Token, error)
	Actor(ctx context.Context, actorID string) (*Actor, error)
	// FindActorByName matches an exact name first, then a substring, ignoring case.
	FindActorByName(ctx context.Context, name string) (*Actor, error)
	TestPermission(ctx context.Context, a *Actor, userID string, level PermissionLevel) (bool, error)

	UpdateActor(ctx context.Context, actorID string, changes map[string]any) error
	UpdateItem(ctx context.Context, actorID, itemID string, changes map[string]any) error
	CreateItem(ctx context.Context, actorID string, item Item) (*Item, error)
	DeleteItem(ctx context.Context, actorID, itemID string) error
}

// Directory resolves users.
type Directory interface {
	User(ctx context.Context, userID string) (*User, error)
	Users(ctx context.Context) ([]User, error)
}
