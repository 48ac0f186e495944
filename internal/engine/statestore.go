package engine

import (
	"log/slog"
	"strings"
)

// StateObserver is notified when an observed key changes.
type StateObserver func(key string, value, old any)

// StateStore is the free-form auxiliary key/value store serialized
// under the "state" save section. Keys use dot notation for nesting:
// "game.started_at" lives inside the "game" map.
type StateStore struct {
	data      map[string]any
	observers map[string][]StateObserver
	log       *slog.Logger
}

// NewStateStore creates an empty store.
func NewStateStore(log *slog.Logger) *StateStore {
	if log == nil {
		log = slog.Default()
	}
	return &StateStore{
		data:      make(map[string]any),
		observers: make(map[string][]StateObserver),
		log:       log,
	}
}

// Set writes a value at a dot-notation key path, creating intermediate
// maps as needed. Observers on the full key fire afterwards.
func (s *StateStore) Set(key string, value any) {
	parts := strings.Split(key, ".")
	current := s.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}

	leaf := parts[len(parts)-1]
	old := current[leaf]
	current[leaf] = value
	s.notify(key, value, old)
}

// Get returns the value at a dot-notation key path, or def when the
// path does not resolve.
func (s *StateStore) Get(key string, def any) any {
	var current any = s.data
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return def
		}
		current, ok = m[part]
		if !ok {
			return def
		}
	}
	return current
}

// GetFloat returns a numeric value at the key path, or def when the
// path is missing or holds a non-number.
func (s *StateStore) GetFloat(key string, def float64) float64 {
	switch v := s.Get(key, def).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// Increment adds delta to a numeric value, treating a missing key as 0.
// Non-numeric values are left untouched.
func (s *StateStore) Increment(key string, delta float64) {
	existing := s.Get(key, nil)
	switch v := existing.(type) {
	case nil:
		s.Set(key, delta)
	case float64:
		s.Set(key, v+delta)
	case int:
		s.Set(key, float64(v)+delta)
	default:
		s.log.Warn("increment on non-numeric state", "key", key)
	}
}

// Observe registers an observer for a specific key. A panicking
// observer is logged and skipped.
func (s *StateStore) Observe(key string, fn StateObserver) {
	s.observers[key] = append(s.observers[key], fn)
}

func (s *StateStore) notify(key string, value, old any) {
	for _, fn := range s.observers[key] {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("state observer failed", "key", key, "panic", r)
				}
			}()
			fn(key, value, old)
		}()
	}
}

// All returns the underlying data for serialization.
func (s *StateStore) All() map[string]any {
	return s.data
}

// Replace swaps the store contents wholesale, as happens on load.
func (s *StateStore) Replace(data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	s.data = data
}

// Clear removes every key.
func (s *StateStore) Clear() {
	s.data = make(map[string]any)
}
