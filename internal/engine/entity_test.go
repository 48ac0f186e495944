package engine

import (
	"errors"
	"testing"
)

func newTestRegistry(t *testing.T, kind Kind) (*Ledger, *Registry) {
	t.Helper()
	l := NewLedger(testLogger())
	return l, NewRegistry(kind, l, testLogger())
}

func TestRegistryRegisterDuplicate(t *testing.T) {
	_, reg := newTestRegistry(t, KindStructure)

	if _, err := reg.Register(EntityDef{Name: "farm"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, err := reg.Register(EntityDef{Name: "farm"})
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestRegistryAcquire(t *testing.T) {
	l, reg := newTestRegistry(t, KindStructure)
	l.Register(ResourceDef{Name: "metal", Initial: 10})
	reg.Register(EntityDef{
		Name:     "solar_array",
		Cost:     Costs{"metal": 5},
		Produces: Costs{"energy": 3},
		Unlocked: true,
	})

	if !reg.Acquire("solar_array", 1) {
		t.Fatal("acquire should succeed with 10 metal")
	}
	if got := l.Amount("metal"); !almostEqual(got, 5) {
		t.Errorf("expected 5 metal after build, got %f", got)
	}
	if got := reg.Count("solar_array"); got != 1 {
		t.Errorf("expected count 1, got %d", got)
	}
}

func TestRegistryAcquireInsufficient(t *testing.T) {
	l, reg := newTestRegistry(t, KindStructure)
	l.Register(ResourceDef{Name: "metal", Initial: 10})
	reg.Register(EntityDef{Name: "solar_array", Cost: Costs{"metal": 5}, Unlocked: true})

	// Three would cost 15.
	if reg.CanAcquire("solar_array", 3) {
		t.Error("canAcquire should be false for count 3 with 10 metal")
	}
	if reg.Acquire("solar_array", 3) {
		t.Error("acquire should fail for count 3")
	}
	if got := l.Amount("metal"); !almostEqual(got, 10) {
		t.Errorf("failed acquire mutated ledger: %f", got)
	}
	if got := reg.Count("solar_array"); got != 0 {
		t.Errorf("failed acquire mutated count: %d", got)
	}
}

func TestRegistryAcquireGates(t *testing.T) {
	l, reg := newTestRegistry(t, KindUnit)
	l.Register(ResourceDef{Name: "biomass", Initial: 1000})
	reg.Register(EntityDef{Name: "surveyor", Cost: Costs{"biomass": 10}})
	reg.Register(EntityDef{
		Name:     "technician",
		Cost:     Costs{"biomass": 10},
		Unlocked: true,
		MaxCount: intPtr(2),
	})

	if reg.CanAcquire("unknown", 1) {
		t.Error("unknown entity should not be acquirable")
	}
	if reg.CanAcquire("surveyor", 1) {
		t.Error("locked entity should not be acquirable")
	}
	if reg.CanAcquire("technician", 0) {
		t.Error("zero count should not be acquirable")
	}

	if !reg.Acquire("technician", 2) {
		t.Fatal("acquire up to cap should succeed")
	}
	if reg.CanAcquire("technician", 1) {
		t.Error("ceiling should block further acquisition")
	}
	if reg.Acquire("technician", 1) {
		t.Error("acquire beyond cap should fail")
	}
}

func TestRegistryRelease(t *testing.T) {
	l, reg := newTestRegistry(t, KindStructure)
	l.Register(ResourceDef{Name: "metal", Initial: 100})
	reg.Register(EntityDef{Name: "rig", Cost: Costs{"metal": 10}, Unlocked: true})
	reg.Acquire("rig", 3)

	if !reg.Release("rig", 2) {
		t.Fatal("release within count should succeed")
	}
	if got := reg.Count("rig"); got != 1 {
		t.Errorf("expected count 1 after release, got %d", got)
	}
	// No refund.
	if got := l.Amount("metal"); !almostEqual(got, 70) {
		t.Errorf("release refunded resources: %f", got)
	}

	if reg.Release("rig", 5) {
		t.Error("release beyond count should fail")
	}
	if got := reg.Count("rig"); got != 1 {
		t.Errorf("failed release mutated count: %d", got)
	}
}

func TestRegistryTotals(t *testing.T) {
	_, reg := newTestRegistry(t, KindStructure)
	reg.Register(EntityDef{
		Name:     "solar_array",
		Count:    2,
		Produces: Costs{"energy": 3},
		Unlocked: true,
	})
	reg.Register(EntityDef{
		Name:     "mining_rig",
		Count:    3,
		Produces: Costs{"metal": 1.5},
		Consumes: Costs{"energy": 2},
		Unlocked: true,
	})
	reg.Register(EntityDef{
		Name:     "idle_plant",
		Produces: Costs{"energy": 100},
		Unlocked: true,
	})

	production := reg.TotalProduction()
	if !almostEqual(production["energy"], 6) {
		t.Errorf("expected 6 energy/s, got %f", production["energy"])
	}
	if !almostEqual(production["metal"], 4.5) {
		t.Errorf("expected 4.5 metal/s, got %f", production["metal"])
	}

	consumption := reg.TotalConsumption()
	if !almostEqual(consumption["energy"], 6) {
		t.Errorf("expected 6 energy/s consumed, got %f", consumption["energy"])
	}
}

func TestRegistryApplyTickProductionBeforeConsumption(t *testing.T) {
	l, reg := newTestRegistry(t, KindStructure)
	l.Register(ResourceDef{Name: "energy", Initial: 0})

	// Produces 3/s and consumes 2/s of the same resource. With zero
	// stock, consumption must be payable out of the production applied
	// earlier in the same tick.
	reg.Register(EntityDef{
		Name:     "refinery",
		Count:    1,
		Produces: Costs{"energy": 3},
		Consumes: Costs{"energy": 2},
		Unlocked: true,
	})

	reg.ApplyTick(1.0)
	if got := l.Amount("energy"); !almostEqual(got, 1) {
		t.Errorf("expected 1 energy after net +1/s tick, got %f", got)
	}
}

func TestRegistryApplyTickPartialUpkeep(t *testing.T) {
	l, reg := newTestRegistry(t, KindUnit)
	l.Register(ResourceDef{Name: "biomass", Initial: 3})
	reg.Register(EntityDef{
		Name:     "technician",
		Count:    1,
		Consumes: Costs{"biomass": 5},
		Unlocked: true,
	})

	if reg.Policy() != UpkeepPartialSpend {
		t.Fatal("registry should carry the partial-spend upkeep policy")
	}

	// Upkeep needs 5, only 3 available: the shortfall is absorbed and
	// the balance drains to zero instead of the tick failing.
	reg.ApplyTick(1.0)
	if got := l.Amount("biomass"); !almostEqual(got, 0) {
		t.Errorf("expected biomass drained to 0, got %f", got)
	}
}

func TestRegistryAcquireObservers(t *testing.T) {
	l, reg := newTestRegistry(t, KindStructure)
	l.Register(ResourceDef{Name: "metal", Initial: 100})
	reg.Register(EntityDef{Name: "rig", Cost: Costs{"metal": 5}, Unlocked: true})

	var calls []int
	reg.Observe(func(name string, count int) { panic("observer exploded") })
	reg.Observe(func(name string, count int) { calls = append(calls, count) })

	if !reg.Acquire("rig", 2) {
		t.Fatal("acquire should succeed despite panicking observer")
	}
	if len(calls) != 1 || calls[0] != 2 {
		t.Errorf("expected one notification with count 2, got %v", calls)
	}
}

func TestRegistryStartingCount(t *testing.T) {
	_, reg := newTestRegistry(t, KindStructure)
	reg.Register(EntityDef{Name: "hab_module", Count: 1, Unlocked: true})

	owned := reg.Owned()
	if len(owned) != 1 || owned[0].Name != "hab_module" {
		t.Fatalf("expected the seeded hab_module in owned set, got %v", owned)
	}
}
