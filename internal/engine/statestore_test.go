package engine

import "testing"

func TestStateStoreNestedPaths(t *testing.T) {
	s := NewStateStore(testLogger())

	s.Set("game.started", true)
	s.Set("game.options.difficulty", "hard")

	if got := s.Get("game.started", false); got != true {
		t.Errorf("expected true, got %v", got)
	}
	if got := s.Get("game.options.difficulty", ""); got != "hard" {
		t.Errorf("expected hard, got %v", got)
	}
	if got := s.Get("game.missing", "fallback"); got != "fallback" {
		t.Errorf("expected fallback for missing key, got %v", got)
	}
	// Traversing through a leaf falls back to the default.
	if got := s.Get("game.started.deeper", 7); got != 7 {
		t.Errorf("expected default 7, got %v", got)
	}
}

func TestStateStoreOverwriteLeafWithMap(t *testing.T) {
	s := NewStateStore(testLogger())
	s.Set("stats", 42)
	s.Set("stats.clicks", 3.0)

	if got := s.GetFloat("stats.clicks", 0); !almostEqual(got, 3.0) {
		t.Errorf("expected 3.0, got %f", got)
	}
}

func TestStateStoreIncrement(t *testing.T) {
	s := NewStateStore(testLogger())

	s.Increment("counters.saves", 1)
	s.Increment("counters.saves", 1)
	if got := s.GetFloat("counters.saves", 0); !almostEqual(got, 2.0) {
		t.Errorf("expected 2.0, got %f", got)
	}

	// Non-numeric values are left alone.
	s.Set("label", "hello")
	s.Increment("label", 5)
	if got := s.Get("label", nil); got != "hello" {
		t.Errorf("expected non-numeric value untouched, got %v", got)
	}
}

func TestStateStoreObservers(t *testing.T) {
	s := NewStateStore(testLogger())

	var gotNew, gotOld any
	s.Observe("score", func(key string, value, old any) { panic("observer exploded") })
	s.Observe("score", func(key string, value, old any) {
		gotNew, gotOld = value, old
	})

	s.Set("score", 10)
	if gotNew != 10 || gotOld != nil {
		t.Errorf("expected (10, nil), got (%v, %v)", gotNew, gotOld)
	}

	s.Set("score", 20)
	if gotNew != 20 || gotOld != 10 {
		t.Errorf("expected (20, 10), got (%v, %v)", gotNew, gotOld)
	}
}

func TestStateStoreReplaceAndClear(t *testing.T) {
	s := NewStateStore(testLogger())
	s.Set("a", 1)

	s.Replace(map[string]any{"b": 2.0})
	if got := s.Get("a", nil); got != nil {
		t.Errorf("expected old keys gone after Replace, got %v", got)
	}
	if got := s.GetFloat("b", 0); !almostEqual(got, 2.0) {
		t.Errorf("expected 2.0, got %f", got)
	}

	s.Clear()
	if got := s.Get("b", nil); got != nil {
		t.Errorf("expected empty store after Clear, got %v", got)
	}

	s.Replace(nil)
	s.Set("c", 3) // must not panic on nil replace
}
