package engine

import (
	"errors"
	"testing"
)

func newTestGraph(t *testing.T, gold float64) (*Ledger, *Graph) {
	t.Helper()
	l := NewLedger(testLogger())
	l.Register(ResourceDef{Name: "gold", Initial: gold})
	return l, NewGraph(l, testLogger())
}

func TestGraphRegisterDuplicate(t *testing.T) {
	_, g := newTestGraph(t, 0)

	if _, err := g.Register(UpgradeDef{Name: "tools"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, err := g.Register(UpgradeDef{Name: "tools"})
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestGraphPurchaseOnce(t *testing.T) {
	l, g := newTestGraph(t, 500)
	g.Register(UpgradeDef{Name: "tools", Cost: Costs{"gold": 100}, Unlocked: true})

	if !g.Purchase("tools") {
		t.Fatal("purchase should succeed")
	}
	if !almostEqual(l.Amount("gold"), 400) {
		t.Errorf("expected 400 gold, got %f", l.Amount("gold"))
	}
	if !g.IsPurchased("tools") {
		t.Error("upgrade should be marked purchased")
	}

	// Terminal state: a second purchase must not mutate anything.
	if g.CanPurchase("tools") {
		t.Error("purchased non-repeatable should not be purchasable")
	}
	if g.Purchase("tools") {
		t.Error("second purchase should fail")
	}
	if !almostEqual(l.Amount("gold"), 400) {
		t.Errorf("failed purchase mutated ledger: %f", l.Amount("gold"))
	}
}

func TestGraphFailedPurchaseIdempotent(t *testing.T) {
	l, g := newTestGraph(t, 10)
	g.Register(UpgradeDef{Name: "tools", Cost: Costs{"gold": 100}, Unlocked: true})

	for i := 0; i < 5; i++ {
		if g.Purchase("tools") {
			t.Fatal("purchase should fail with 10 gold")
		}
	}
	up, _ := g.Upgrade("tools")
	if up.Purchased || up.TimesPurchased != 0 {
		t.Errorf("failed purchases mutated state: %+v", up)
	}
	if !almostEqual(l.Amount("gold"), 10) {
		t.Errorf("failed purchases mutated ledger: %f", l.Amount("gold"))
	}
}

func TestGraphPrerequisites(t *testing.T) {
	_, g := newTestGraph(t, 10000)
	g.Register(UpgradeDef{Name: "basic", Cost: Costs{"gold": 50}, Unlocked: true})
	g.Register(UpgradeDef{
		Name:          "advanced",
		Cost:          Costs{"gold": 50},
		Prerequisites: []string{"basic"},
		Unlocked:      true,
	})

	// Affordable but gated.
	if g.CanPurchase("advanced") {
		t.Error("unmet prerequisite should block purchase regardless of affordability")
	}
	if g.Purchase("advanced") {
		t.Error("purchase with unmet prerequisite should fail")
	}

	if !g.Purchase("basic") {
		t.Fatal("prerequisite purchase failed")
	}
	if !g.CanPurchase("advanced") {
		t.Error("upgrade should be purchasable once prerequisite is met")
	}
	if !g.Purchase("advanced") {
		t.Error("purchase should succeed after prerequisite")
	}
}

func TestGraphRepeatableScaling(t *testing.T) {
	l, g := newTestGraph(t, 10000)
	g.Register(UpgradeDef{
		Name:         "training",
		Cost:         Costs{"gold": 100},
		Repeatable:   true,
		MaxPurchases: intPtr(2),
		Unlocked:     true,
	})

	up, _ := g.Upgrade("training")

	if !g.Purchase("training") {
		t.Fatal("first purchase failed")
	}
	if !almostEqual(l.Amount("gold"), 9900) {
		t.Errorf("first purchase should cost 100, gold now %f", l.Amount("gold"))
	}

	// Second purchase costs 100 * 1.5^1 = 150.
	cost := up.CurrentCost()
	if !almostEqual(cost["gold"], 150) {
		t.Errorf("expected scaled cost 150, got %f", cost["gold"])
	}
	if !g.Purchase("training") {
		t.Fatal("second purchase failed")
	}
	if !almostEqual(l.Amount("gold"), 9750) {
		t.Errorf("second purchase should cost 150, gold now %f", l.Amount("gold"))
	}

	// At the ceiling even with plenty of gold.
	if g.CanPurchase("training") {
		t.Error("repeatable at maxPurchases should not be purchasable")
	}
	if g.Purchase("training") {
		t.Error("purchase at ceiling should fail")
	}
	if up.TimesPurchased != 2 {
		t.Errorf("expected 2 purchases, got %d", up.TimesPurchased)
	}
}

func TestGraphEffectTotal(t *testing.T) {
	_, g := newTestGraph(t, 10000)
	g.Register(UpgradeDef{
		Name:     "basic",
		Cost:     Costs{"gold": 10},
		Effects:  map[string]float64{"wood_bonus": 0.25},
		Unlocked: true,
	})
	g.Register(UpgradeDef{
		Name:       "training",
		Cost:       Costs{"gold": 10},
		Effects:    map[string]float64{"wood_bonus": 0.1, "speed": 1},
		Repeatable: true,
		Unlocked:   true,
	})

	if g.EffectTotal("wood_bonus") != 0 {
		t.Error("no purchases: effect total should be 0")
	}

	g.Purchase("basic")
	g.Purchase("training")
	g.Purchase("training")
	g.Purchase("training")

	// 0.25 + 3*0.1
	if got := g.EffectTotal("wood_bonus"); !almostEqual(got, 0.55) {
		t.Errorf("expected wood_bonus 0.55, got %f", got)
	}
	if got := g.EffectTotal("speed"); !almostEqual(got, 3) {
		t.Errorf("expected speed 3, got %f", got)
	}
	if !g.HasEffect("speed") {
		t.Error("speed effect should be active")
	}
	if g.HasEffect("unknown_effect") {
		t.Error("unknown effect should not be active")
	}

	all := g.AllEffects()
	if !almostEqual(all["wood_bonus"], 0.55) || !almostEqual(all["speed"], 3) {
		t.Errorf("unexpected cumulative effects: %v", all)
	}
}

func TestGraphUnlockPropagation(t *testing.T) {
	_, g := newTestGraph(t, 1000)
	g.Register(UpgradeDef{
		Name:     "gateway",
		Cost:     Costs{"gold": 10},
		Unlocks:  []string{"followup"},
		Unlocked: true,
	})
	g.Register(UpgradeDef{Name: "followup", Cost: Costs{"gold": 10}})

	if g.CanPurchase("followup") {
		t.Error("locked upgrade should not be purchasable")
	}
	g.Purchase("gateway")
	if !g.CanPurchase("followup") {
		t.Error("purchase should have unlocked the follow-up upgrade")
	}
}

func TestGraphTier(t *testing.T) {
	_, g := newTestGraph(t, 0)
	g.Register(UpgradeDef{Name: "root"})
	g.Register(UpgradeDef{Name: "mid", Prerequisites: []string{"root"}})
	g.Register(UpgradeDef{Name: "leaf", Prerequisites: []string{"mid", "root"}})
	// Deliberate cycle: must resolve to 0, never hang.
	g.Register(UpgradeDef{Name: "ouro", Prerequisites: []string{"boros"}})
	g.Register(UpgradeDef{Name: "boros", Prerequisites: []string{"ouro"}})

	tests := []struct {
		name string
		want int
	}{
		{"root", 0},
		{"mid", 1},
		{"leaf", 2},
		{"unknown", 0},
		{"ouro", 1}, // prerequisite cycle collapses to tier 0
	}
	for _, tt := range tests {
		if got := g.Tier(tt.name); got != tt.want {
			t.Errorf("tier(%s): expected %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestGraphValidate(t *testing.T) {
	_, g := newTestGraph(t, 0)
	g.Register(UpgradeDef{Name: "a"})
	g.Register(UpgradeDef{Name: "b", Prerequisites: []string{"a"}})

	if err := g.Validate(); err != nil {
		t.Errorf("valid graph reported error: %v", err)
	}

	g.Register(UpgradeDef{Name: "c", Prerequisites: []string{"ghost"}})
	if err := g.Validate(); !errors.Is(err, ErrUnknownPrerequisite) {
		t.Errorf("expected ErrUnknownPrerequisite, got %v", err)
	}
}

func TestGraphPurchaseObservers(t *testing.T) {
	_, g := newTestGraph(t, 1000)
	g.Register(UpgradeDef{Name: "tools", Cost: Costs{"gold": 10}, Unlocked: true})

	var names []string
	g.Observe(func(name string, up *Upgrade) { panic("observer exploded") })
	g.Observe(func(name string, up *Upgrade) { names = append(names, name) })

	if !g.Purchase("tools") {
		t.Fatal("purchase should succeed despite panicking observer")
	}
	if len(names) != 1 || names[0] != "tools" {
		t.Errorf("expected one notification for tools, got %v", names)
	}
}
