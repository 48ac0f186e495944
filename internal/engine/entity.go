package engine

import (
	"fmt"
	"log/slog"
)

// Kind distinguishes the two registry instances. Structures serialize
// their consumption side as "consumes", units as "upkeep"; the contract
// is otherwise identical.
type Kind string

const (
	KindStructure Kind = "structure"
	KindUnit      Kind = "unit"
)

// UpkeepPolicy names how a registry handles consumption the ledger
// cannot fully cover within a tick.
type UpkeepPolicy int

// UpkeepPartialSpend spends min(required, available): shortfall is
// absorbed instead of failing the tick. This is deliberate policy, not
// a clamping accident.
const UpkeepPartialSpend UpkeepPolicy = iota

// Entity is a countable, ownable type with a linear per-unit cost and
// per-unit per-second production and consumption rates.
type Entity struct {
	Name        string             `json:"name"`
	DisplayName string             `json:"display_name"`
	Description string             `json:"description"`
	Cost        Costs              `json:"cost"`
	Count       int                `json:"count"`
	Produces    Costs              `json:"produces"`
	Consumes    Costs              `json:"consumes"`
	Unlocked    bool               `json:"unlocked"`
	MaxCount    *int               `json:"max_count"`
	Effects     map[string]float64 `json:"effects,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}

// AtCap reports whether the owned count has reached MaxCount.
func (e *Entity) AtCap() bool {
	return e.MaxCount != nil && e.Count >= *e.MaxCount
}

// CostFor returns the total cost to acquire count more of this entity.
// Costs scale linearly with quantity.
func (e *Entity) CostFor(count int) Costs {
	return e.Cost.Scale(float64(count))
}

// TotalProduction returns count-weighted production rates. Zero-count
// entities contribute nothing.
func (e *Entity) TotalProduction() Costs {
	if e.Count == 0 {
		return Costs{}
	}
	return e.Produces.Scale(float64(e.Count))
}

// TotalConsumption returns count-weighted consumption rates.
func (e *Entity) TotalConsumption() Costs {
	if e.Count == 0 {
		return Costs{}
	}
	return e.Consumes.Scale(float64(e.Count))
}

// EntityDef is the registration record for an entity type. Count may
// seed a starting quantity (the colony begins with a solar array and a
// hab module it never paid for).
type EntityDef struct {
	Name        string             `json:"name"`
	DisplayName string             `json:"display_name"`
	Description string             `json:"description"`
	Cost        Costs              `json:"cost"`
	Count       int                `json:"count"`
	Produces    Costs              `json:"produces"`
	Consumes    Costs              `json:"consumes"`
	Unlocked    bool               `json:"unlocked"`
	MaxCount    *int               `json:"max_count"`
	Effects     map[string]float64 `json:"effects"`
	Metadata    map[string]any     `json:"metadata"`
}

// AcquireObserver is notified after a successful acquire.
type AcquireObserver func(name string, count int)

// Registry owns one family of production entities (structures or
// units) and a non-owning reference to the shared ledger used for
// costs, production, and consumption.
type Registry struct {
	kind      Kind
	entities  map[string]*Entity
	order     []string
	ledger    *Ledger
	policy    UpkeepPolicy
	observers []AcquireObserver
	log       *slog.Logger
}

// NewRegistry creates an empty registry bound to a ledger.
func NewRegistry(kind Kind, ledger *Ledger, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		kind:     kind,
		entities: make(map[string]*Entity),
		ledger:   ledger,
		policy:   UpkeepPartialSpend,
		log:      log,
	}
}

// Kind returns which of the two registry roles this instance plays.
func (g *Registry) Kind() Kind { return g.kind }

// Policy returns the upkeep shortfall policy.
func (g *Registry) Policy() UpkeepPolicy { return g.policy }

// Register adds a new entity type. It fails with ErrDuplicateName when
// the name is already taken.
func (g *Registry) Register(def EntityDef) (*Entity, error) {
	if _, exists := g.entities[def.Name]; exists {
		return nil, fmt.Errorf("%s %q: %w", g.kind, def.Name, ErrDuplicateName)
	}

	ent := &Entity{
		Name:        def.Name,
		DisplayName: def.DisplayName,
		Description: def.Description,
		Cost:        def.Cost,
		Count:       def.Count,
		Produces:    def.Produces,
		Consumes:    def.Consumes,
		Unlocked:    def.Unlocked,
		MaxCount:    def.MaxCount,
		Effects:     def.Effects,
		Metadata:    def.Metadata,
	}
	if ent.DisplayName == "" {
		ent.DisplayName = titleCase(def.Name)
	}
	if ent.Cost == nil {
		ent.Cost = Costs{}
	}
	if ent.Produces == nil {
		ent.Produces = Costs{}
	}
	if ent.Consumes == nil {
		ent.Consumes = Costs{}
	}
	if ent.Count < 0 {
		ent.Count = 0
	}

	g.entities[def.Name] = ent
	g.order = append(g.order, def.Name)
	g.log.Debug("entity registered", "kind", g.kind, "name", def.Name, "count", ent.Count)
	return ent, nil
}

// Entity returns the named entity type, or false when unknown.
func (g *Registry) Entity(name string) (*Entity, bool) {
	ent, ok := g.entities[name]
	return ent, ok
}

// Has reports whether an entity type is registered.
func (g *Registry) Has(name string) bool {
	_, ok := g.entities[name]
	return ok
}

// Count returns the owned quantity, or 0 for an unknown name.
func (g *Registry) Count(name string) int {
	if ent, ok := g.entities[name]; ok {
		return ent.Count
	}
	return 0
}

// CanAcquire reports whether count more of the entity can be acquired:
// the type must be known and unlocked, the ceiling must not be
// exceeded, and the ledger must cover the scaled cost.
func (g *Registry) CanAcquire(name string, count int) bool {
	ent, ok := g.entities[name]
	if !ok || !ent.Unlocked || count <= 0 {
		return false
	}
	if ent.MaxCount != nil && ent.Count+count > *ent.MaxCount {
		return false
	}
	return g.ledger.CanAfford(ent.CostFor(count))
}

// Acquire builds or recruits count entities. The cost is deducted
// atomically; if the spend fails despite the pre-check, the count is
// left untouched.
func (g *Registry) Acquire(name string, count int) bool {
	if !g.CanAcquire(name, count) {
		return false
	}
	ent := g.entities[name]

	if !g.ledger.SpendAll(ent.CostFor(count)) {
		return false
	}
	ent.Count += count
	g.log.Info("acquired", "kind", g.kind, "name", name, "count", count, "total", ent.Count)

	g.notify(name, count)
	return true
}

// Release demolishes or dismisses count entities. There is no refund.
func (g *Registry) Release(name string, count int) bool {
	ent, ok := g.entities[name]
	if !ok || count <= 0 || ent.Count < count {
		return false
	}
	ent.Count -= count
	g.log.Info("released", "kind", g.kind, "name", name, "count", count, "remaining", ent.Count)
	return true
}

// Unlock makes an entity type buildable.
func (g *Registry) Unlock(name string) {
	if ent, ok := g.entities[name]; ok {
		ent.Unlocked = true
	}
}

// All returns every entity type in registration order.
func (g *Registry) All() []*Entity {
	out := make([]*Entity, 0, len(g.entities))
	for _, name := range g.order {
		out = append(out, g.entities[name])
	}
	return out
}

// Unlocked returns the entity types visible to the player.
func (g *Registry) Unlocked() []*Entity {
	var out []*Entity
	for _, name := range g.order {
		if ent := g.entities[name]; ent.Unlocked {
			out = append(out, ent)
		}
	}
	return out
}

// Owned returns the entity types with a non-zero count.
func (g *Registry) Owned() []*Entity {
	var out []*Entity
	for _, name := range g.order {
		if ent := g.entities[name]; ent.Count > 0 {
			out = append(out, ent)
		}
	}
	return out
}

// TotalProduction sums count-weighted production over all entity
// types, merged by resource name.
func (g *Registry) TotalProduction() Costs {
	total := Costs{}
	for _, name := range g.order {
		mergeInto(total, g.entities[name].TotalProduction(), 1)
	}
	return total
}

// TotalConsumption sums count-weighted consumption over all entity
// types, merged by resource name.
func (g *Registry) TotalConsumption() Costs {
	total := Costs{}
	for _, name := range g.order {
		mergeInto(total, g.entities[name].TotalConsumption(), 1)
	}
	return total
}

// ApplyTick applies one tick's worth of production, then consumption,
// to the ledger. Consumption runs after production so an entity can pay
// upkeep out of what it just produced. Shortfall is handled by the
// registry's UpkeepPolicy.
func (g *Registry) ApplyTick(deltaTime float64) {
	production := g.TotalProduction()
	for _, name := range sortedNames(production) {
		g.ledger.Add(name, production[name]*deltaTime)
	}

	consumption := g.TotalConsumption()
	for _, name := range sortedNames(consumption) {
		required := consumption[name] * deltaTime
		available := g.ledger.Amount(name)
		if available < required {
			g.log.Warn("upkeep shortfall", "kind", g.kind, "resource", name, "required", required, "available", available)
			required = available
		}
		g.ledger.Spend(name, required)
	}
}

// Observe registers an acquisition observer. A panicking observer is
// logged and skipped.
func (g *Registry) Observe(fn AcquireObserver) {
	g.observers = append(g.observers, fn)
}

func (g *Registry) notify(name string, count int) {
	for _, fn := range g.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					g.log.Error("acquire observer failed", "kind", g.kind, "name", name, "panic", r)
				}
			}()
			fn(name, count)
		}()
	}
}

// entityRecord is the persisted form of an Entity. The consumption
// side is written under "consumes" for structures and "upkeep" for
// units; loads accept either spelling.
type entityRecord struct {
	Name        string             `json:"name"`
	DisplayName string             `json:"display_name"`
	Description string             `json:"description"`
	Cost        Costs              `json:"cost"`
	Count       int                `json:"count"`
	Produces    Costs              `json:"produces"`
	Consumes    Costs              `json:"consumes,omitempty"`
	Upkeep      Costs              `json:"upkeep,omitempty"`
	Unlocked    bool               `json:"unlocked"`
	MaxCount    *int               `json:"max_count"`
	Effects     map[string]float64 `json:"effects,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}

// records returns the persisted form of every entity type.
func (g *Registry) records() map[string]entityRecord {
	out := make(map[string]entityRecord, len(g.entities))
	for name, ent := range g.entities {
		rec := entityRecord{
			Name:        ent.Name,
			DisplayName: ent.DisplayName,
			Description: ent.Description,
			Cost:        ent.Cost,
			Count:       ent.Count,
			Produces:    ent.Produces,
			Unlocked:    ent.Unlocked,
			MaxCount:    ent.MaxCount,
			Effects:     ent.Effects,
			Metadata:    ent.Metadata,
		}
		if g.kind == KindUnit {
			rec.Upkeep = ent.Consumes
		} else {
			rec.Consumes = ent.Consumes
		}
		out[name] = rec
	}
	return out
}

// replaceAll swaps the registry contents wholesale, as happens on load.
func (g *Registry) replaceAll(records map[string]entityRecord) {
	g.entities = make(map[string]*Entity, len(records))
	g.order = g.order[:0]
	for _, name := range sortedKeys(records) {
		rec := records[name]
		consumes := rec.Consumes
		if len(rec.Upkeep) > 0 {
			consumes = rec.Upkeep
		}
		ent := &Entity{
			Name:        rec.Name,
			DisplayName: rec.DisplayName,
			Description: rec.Description,
			Cost:        rec.Cost,
			Count:       rec.Count,
			Produces:    rec.Produces,
			Consumes:    consumes,
			Unlocked:    rec.Unlocked,
			MaxCount:    rec.MaxCount,
			Effects:     rec.Effects,
			Metadata:    rec.Metadata,
		}
		if ent.Name == "" {
			ent.Name = name
		}
		if ent.DisplayName == "" {
			ent.DisplayName = titleCase(name)
		}
		if ent.Cost == nil {
			ent.Cost = Costs{}
		}
		if ent.Produces == nil {
			ent.Produces = Costs{}
		}
		if ent.Consumes == nil {
			ent.Consumes = Costs{}
		}
		if ent.Count < 0 {
			ent.Count = 0
		}
		g.entities[name] = ent
		g.order = append(g.order, name)
	}
}
