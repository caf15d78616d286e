package actor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Resolver locates the actor relevant to a request and enforces visibility.
type Resolver struct {
	store  Store
	dir    Directory
	logger *slog.Logger
}

func NewResolver(store Store, dir Directory, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, dir: dir, logger: logger}
}

// ResolveActiveActor returns the actor for userID: the single controlled
// token's actor when the user holds at least limited permission on it,
// otherwise the user's assigned character when permitted. A nil actor with
// a nil error means nothing is available.
func (r *Resolver) ResolveActiveActor(ctx context.Context, userID string) (*Actor, error) {
	tokens, err := r.store.ControlledTokens(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load controlled tokens: %w", err)
	}
	if len(tokens) == 1 {
		a, err := r.permitted(ctx, tokens[0].ActorID, userID)
		if err != nil {
			return nil, err
		}
		if a != nil {
			return a, nil
		}
		r.logger.Debug("Controlled token not visible to user", "user_id", userID, "token", tokens[0].Name)
	}

	character, err := r.store.UserCharacter(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user character: %w", err)
	}
	if character == nil {
		return nil, nil
	}
	ok, err := r.store.TestPermission(ctx, character, userID, PermissionLimited)
	if err != nil {
		return nil, fmt.Errorf("failed to test permission: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return character, nil
}

// ResolveActorByName checks the user's character first, then visible tokens.
// Names match exactly, ignoring case.
func (r *Resolver) ResolveActorByName(ctx context.Context, name, userID string) (*Actor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	character, err := r.store.UserCharacter(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user character: %w", err)
	}
	if character != nil && strings.EqualFold(character.Name, name) {
		ok, err := r.store.TestPermission(ctx, character, userID, PermissionLimited)
		if err != nil {
			return nil, fmt.Errorf("failed to test permission: %w", err)
		}
		if ok {
			return character, nil
		}
	}

	tokens, err := r.store.VisibleTokens(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load visible tokens: %w", err)
	}
	for _, t := range tokens {
		if !strings.EqualFold(t.Name, name) {
			continue
		}
		a, err := r.permitted(ctx, t.ActorID, userID)
		if err != nil {
			return nil, err
		}
		if a != nil {
			return a, nil
		}
	}
	return nil, nil
}

// WhisperRecipients expands a whisper alias into users. "gm" selects game
// masters, "players" selects everyone else; otherwise the alias is a user
// name or the name of an actor, visible to the requester, whose owners
// receive the whisper.
func (r *Resolver) WhisperRecipients(ctx context.Context, alias, requesterID string) ([]User, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil, nil
	}
	users, err := r.dir.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var out []User
	switch strings.ToLower(alias) {
	case "gm":
		for _, u := range users {
			if u.IsGM {
				out = append(out, u)
			}
		}
		return out, nil
	case "players":
		for _, u := range users {
			if !u.IsGM {
				out = append(out, u)
			}
		}
		return out, nil
	}

	for _, u := range users {
		if strings.EqualFold(u.Name, alias) {
			return []User{u}, nil
		}
	}

	a, err := r.ResolveActorByName(ctx, alias, requesterID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	for i := range users {
		if !users[i].IsGM && a.Permission(&users[i]) >= PermissionOwner {
			out = append(out, users[i])
		}
	}
	return out, nil
}

func (r *Resolver) permitted(ctx context.Context, actorID, userID string) (*Actor, error) {
	a, err := r.store.Actor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load actor %s: %w", actorID, err)
	}
	if a == nil {
		return nil, nil
	}
	ok, err := r.store.TestPermission(ctx, a, userID, PermissionLimited)
	if err != nil {
		return nil, fmt.Errorf("failed to test permission: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return a, nil
}
