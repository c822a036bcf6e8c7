package session

import (
	"context"

	"github.com/kuitang/browserhooks/internal/driver"
)

// BrowserKey is the scenario store key the active handle is published under.
const BrowserKey = "Browser"

// Store is a scenario-scoped key/value store. Hooks create one per
// scenario; steps read from it. It is not safe for concurrent use.
type Store struct {
	values map[string]any
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]any)}
}

func (s *Store) Set(key string, value any) {
	s.values[key] = value
}

func (s *Store) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Store) Delete(key string) {
	delete(s.values, key)
}

// Scenario identifies the running scenario for artifact names and logs.
type Scenario struct {
	Feature string
	Name    string
}

type storeContextKey struct{}
type scenarioContextKey struct{}

// WithStore attaches a scenario store to the context.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, s)
}

// StoreFrom returns the scenario store, or nil outside a scenario.
func StoreFrom(ctx context.Context) *Store {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(storeContextKey{}).(*Store)
	return s
}

// WithScenario attaches the scenario identity to the context.
func WithScenario(ctx context.Context, sc Scenario) context.Context {
	return context.WithValue(ctx, scenarioContextKey{}, sc)
}

// ScenarioFrom returns the scenario identity, or the zero value.
func ScenarioFrom(ctx context.Context) Scenario {
	if ctx == nil {
		return Scenario{}
	}
	sc, _ := ctx.Value(scenarioContextKey{}).(Scenario)
	return sc
}

// BrowserFrom returns the handle published in the context's scenario store.
func BrowserFrom(ctx context.Context) (driver.Handle, bool) {
	store := StoreFrom(ctx)
	if store == nil {
		return nil, false
	}
	v, ok := store.Get(BrowserKey)
	if !ok {
		return nil, false
	}
	h, ok := v.(driver.Handle)
	return h, ok
}
