package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/jwebster45206/table-assist/pkg/chat"
)

// MockStorage is an in-memory implementation of Storage for testing.
type MockStorage struct {
	mu         sync.RWMutex
	actors     map[string]*actor.Actor
	actorOrder []string
	users      map[string]*actor.User
	userOrder  []string
	tokens     []actor.Token
	controlled map[string][]string
	entries    []chat.Entry
	history    map[string][]chat.ChatMessage
	pingError  error

	itemWriteFault  func(changes map[string]any) map[string]any
	createItemError error
	writes          int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		actors:     make(map[string]*actor.Actor),
		users:      make(map[string]*actor.User),
		controlled: make(map[string][]string),
		history:    make(map[string][]chat.ChatMessage),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetItemWriteFault installs a function that rewrites item changes before
// they are stored, simulating a write that silently lands the wrong value.
func (m *MockStorage) SetItemWriteFault(fn func(changes map[string]any) map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.itemWriteFault = fn
}

// SetCreateItemError makes CreateItem fail with err.
func (m *MockStorage) SetCreateItemError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createItemError = err
}

// Writes returns the number of successful document writes.
func (m *MockStorage) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveActor(ctx context.Context, a *actor.Actor) error {
	if a == nil || a.ID == "" {
		return errors.New("actor must have an id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.actors[a.ID]; !ok {
		m.actorOrder = append(m.actorOrder, a.ID)
	}
	m.actors[a.ID] = a.Clone()
	return nil
}

func (m *MockStorage) ListActors(ctx context.Context) ([]actor.Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]actor.Actor, 0, len(m.actorOrder))
	for _, id := range m.actorOrder {
		out = append(out, *m.actors[id].Clone())
	}
	return out, nil
}

func (m *MockStorage) SaveUser(ctx context.Context, u *actor.User) error {
	if u == nil || u.ID == "" {
		return errors.New("user must have an id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		m.userOrder = append(m.userOrder, u.ID)
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MockStorage) SaveToken(ctx context.Context, t actor.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tokens {
		if m.tokens[i].ID == t.ID {
			m.tokens[i] = t
			return nil
		}
	}
	m.tokens = append(m.tokens, t)
	return nil
}

func (m *MockStorage) SetControlledTokens(ctx context.Context, userID string, tokenIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controlled[userID] = append([]string(nil), tokenIDs...)
	return nil
}

func (m *MockStorage) User(ctx context.Context, userID string) (*actor.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MockStorage) Users(ctx context.Context) ([]actor.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]actor.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		out = append(out, *m.users[id])
	}
	return out, nil
}

func (m *MockStorage) ControlledTokens(ctx context.Context, userID string) ([]actor.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []actor.Token
	for _, id := range m.controlled[userID] {
		for _, t := range m.tokens {
			if t.ID == id {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (m *MockStorage) VisibleTokens(ctx context.Context, userID string) ([]actor.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gm := false
	if u, ok := m.users[userID]; ok {
		gm = u.IsGM
	}
	var out []actor.Token
	for _, t := range m.tokens {
		if !t.Hidden || gm {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockStorage) UserCharacter(ctx context.Context, userID string) (*actor.Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok || u.CharacterID == "" {
		return nil, nil
	}
	return m.actors[u.CharacterID].Clone(), nil
}

func (m *MockStorage) Actor(ctx context.Context, actorID string) (*actor.Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.actors[actorID].Clone(), nil
}

func (m *MockStorage) FindActorByName(ctx context.Context, name string) (*actor.Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, nil
	}
	for _, id := range m.actorOrder {
		if strings.ToLower(m.actors[id].Name) == needle {
			return m.actors[id].Clone(), nil
		}
	}
	for _, id := range m.actorOrder {
		if strings.Contains(strings.ToLower(m.actors[id].Name), needle) {
			return m.actors[id].Clone(), nil
		}
	}
	return nil, nil
}

func (m *MockStorage) TestPermission(ctx context.Context, a *actor.Actor, userID string, level actor.PermissionLevel) (bool, error) {
	u, err := m.User(ctx, userID)
	if err != nil {
		return false, err
	}
	if u == nil {
		u = &actor.User{ID: userID}
	}
	return a.HasPermission(u, level), nil
}

func (m *MockStorage) UpdateActor(ctx context.Context, actorID string, changes map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actors[actorID]
	if !ok {
		return fmt.Errorf("actor %s not found", actorID)
	}
	updated, err := actor.ApplyChanges(a, changes)
	if err != nil {
		return err
	}
	m.actors[actorID] = updated
	m.writes++
	return nil
}

func (m *MockStorage) UpdateItem(ctx context.Context, actorID, itemID string, changes map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actors[actorID]
	if !ok {
		return fmt.Errorf("actor %s not found", actorID)
	}
	item := a.Item(itemID)
	if item == nil {
		return fmt.Errorf("item %s not found on actor %s", itemID, actorID)
	}
	if m.itemWriteFault != nil {
		changes = m.itemWriteFault(changes)
	}
	updated, err := actor.ApplyItemChanges(item, changes)
	if err != nil {
		return err
	}
	*item = *updated
	m.writes++
	return nil
}

func (m *MockStorage) CreateItem(ctx context.Context, actorID string, item actor.Item) (*actor.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createItemError != nil {
		return nil, m.createItemError
	}
	a, ok := m.actors[actorID]
	if !ok {
		return nil, fmt.Errorf("actor %s not found", actorID)
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	a.Items = append(a.Items, item)
	m.writes++
	created := a.Items[len(a.Items)-1]
	return &created, nil
}

func (m *MockStorage) DeleteItem(ctx context.Context, actorID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actors[actorID]
	if !ok {
		return fmt.Errorf("actor %s not found", actorID)
	}
	for i := range a.Items {
		if a.Items[i].ID == itemID {
			a.Items = append(a.Items[:i], a.Items[i+1:]...)
			m.writes++
			return nil
		}
	}
	return fmt.Errorf("item %s not found on actor %s", itemID, actorID)
}

func (m *MockStorage) AppendEntry(ctx context.Context, e chat.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// ListEntries returns the newest limit entries, oldest first. A limit of 0 returns all.
func (m *MockStorage) ListEntries(ctx context.Context, limit int) ([]chat.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start := 0
	if limit > 0 && len(m.entries) > limit {
		start = len(m.entries) - limit
	}
	return append([]chat.Entry(nil), m.entries[start:]...), nil
}

func (m *MockStorage) AppendHistory(ctx context.Context, userID string, msgs ...chat.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[userID] = append(m.history[userID], msgs...)
	return nil
}

func (m *MockStorage) LoadHistory(ctx context.Context, userID string, limit int) ([]chat.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.history[userID]
	start := 0
	if limit > 0 && len(h) > limit {
		start = len(h) - limit
	}
	return append([]chat.ChatMessage(nil), h[start:]...), nil
}

func (m *MockStorage) ClearHistory(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, userID)
	return nil
}
