package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/jwebster45206/table-assist/pkg/storage"
)

// World is a seed file describing users, actors and the current scene.
type World struct {
	System     string              `yaml:"system"`
	Users      []actor.User        `yaml:"users"`
	Actors     []WorldActor        `yaml:"actors"`
	Tokens     []actor.Token       `yaml:"tokens"`
	Controlled map[string][]string `yaml:"controlled"`
}

type WorldActor struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Type      string            `yaml:"type"`
	Ownership map[string]string `yaml:"ownership"`
	System    map[string]any    `yaml:"system"`
	Items     []WorldItem       `yaml:"items"`
	Effects   []actor.Effect    `yaml:"effects"`
}

type WorldItem struct {
	ID     string         `yaml:"id"`
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`
	System map[string]any `yaml:"system"`
}

// LoadWorldFile reads and parses a world seed file.
func LoadWorldFile(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	return ParseWorld(data)
}

// ParseWorld parses a YAML world document.
func ParseWorld(data []byte) (*World, error) {
	var w World
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse world: %w", err)
	}
	return &w, nil
}

// Validate checks ids are present and unique and that references resolve.
// All problems are reported together.
func (w *World) Validate() error {
	var errs []error

	users := map[string]bool{}
	for i, u := range w.Users {
		if u.ID == "" {
			errs = append(errs, fmt.Errorf("users[%d]: id is required", i))
			continue
		}
		if users[u.ID] {
			errs = append(errs, fmt.Errorf("users[%d]: duplicate id %q", i, u.ID))
		}
		users[u.ID] = true
	}

	actors := map[string]bool{}
	for i, a := range w.Actors {
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("actors[%d]: id is required", i))
			continue
		}
		if actors[a.ID] {
			errs = append(errs, fmt.Errorf("actors[%d]: duplicate id %q", i, a.ID))
		}
		actors[a.ID] = true
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("actor %q: name is required", a.ID))
		}
		for key, level := range a.Ownership {
			if _, err := actor.ParsePermission(level); err != nil {
				errs = append(errs, fmt.Errorf("actor %q ownership %q: %w", a.ID, key, err))
			}
			if key != actor.DefaultOwnership && !users[key] {
				errs = append(errs, fmt.Errorf("actor %q ownership: unknown user %q", a.ID, key))
			}
		}
		for j, it := range a.Items {
			if it.Name == "" {
				errs = append(errs, fmt.Errorf("actor %q items[%d]: name is required", a.ID, j))
			}
		}
	}

	for _, u := range w.Users {
		if u.CharacterID != "" && !actors[u.CharacterID] {
			errs = append(errs, fmt.Errorf("user %q: unknown character %q", u.ID, u.CharacterID))
		}
	}

	tokens := map[string]bool{}
	for i, t := range w.Tokens {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("tokens[%d]: id is required", i))
			continue
		}
		tokens[t.ID] = true
		if !actors[t.ActorID] {
			errs = append(errs, fmt.Errorf("token %q: unknown actor %q", t.ID, t.ActorID))
		}
	}

	for userID, ids := range w.Controlled {
		if !users[userID] {
			errs = append(errs, fmt.Errorf("controlled: unknown user %q", userID))
		}
		for _, id := range ids {
			if !tokens[id] {
				errs = append(errs, fmt.Errorf("controlled %q: unknown token %q", userID, id))
			}
		}
	}

	return errors.Join(errs...)
}

// ToActor converts the seed form into the stored document form.
func (wa WorldActor) ToActor() (*actor.Actor, error) {
	a := &actor.Actor{
		ID:      wa.ID,
		Name:    wa.Name,
		Type:    wa.Type,
		Effects: wa.Effects,
	}
	if a.Type == "" {
		a.Type = actor.TypeCharacter
	}
	if wa.System != nil {
		raw, err := json.Marshal(wa.System)
		if err != nil {
			return nil, fmt.Errorf("actor %q: failed to convert system data: %w", wa.ID, err)
		}
		a.System = raw
	}
	if len(wa.Ownership) > 0 {
		a.Ownership = make(map[string]actor.PermissionLevel, len(wa.Ownership))
		for k, v := range wa.Ownership {
			level, err := actor.ParsePermission(v)
			if err != nil {
				return nil, fmt.Errorf("actor %q: %w", wa.ID, err)
			}
			a.Ownership[k] = level
		}
	}
	for _, wi := range wa.Items {
		item, err := actor.NewItem(wi.Name, wi.Type, wi.System)
		if err != nil {
			return nil, fmt.Errorf("actor %q item %q: %w", wa.ID, wi.Name, err)
		}
		if wi.ID != "" {
			item.ID = wi.ID
		}
		if item.Type == "" {
			item.Type = actor.ItemTypeLoot
		}
		a.Items = append(a.Items, item)
	}
	return a, nil
}

// Seed validates the world and writes it to store.
func (w *World) Seed(ctx context.Context, store storage.Storage) error {
	if err := w.Validate(); err != nil {
		return fmt.Errorf("invalid world: %w", err)
	}
	for i := range w.Users {
		if err := store.SaveUser(ctx, &w.Users[i]); err != nil {
			return err
		}
	}
	for _, wa := range w.Actors {
		a, err := wa.ToActor()
		if err != nil {
			return err
		}
		if err := store.SaveActor(ctx, a); err != nil {
			return err
		}
	}
	for _, t := range w.Tokens {
		if err := store.SaveToken(ctx, t); err != nil {
			return err
		}
	}
	for userID, ids := range w.Controlled {
		if err := store.SetControlledTokens(ctx, userID, ids); err != nil {
			return err
		}
	}
	return nil
}
