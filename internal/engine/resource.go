package engine

import (
	"fmt"
	"log/slog"
)

// TxKind identifies the kind of ledger mutation reported to observers.
type TxKind string

const (
	TxAdd   TxKind = "add"
	TxSpend TxKind = "spend"
	TxSet   TxKind = "set"
)

// TxObserver receives a notification after every ledger mutation.
// delta is the amount actually applied (negative for spends).
type TxObserver func(name string, delta float64, kind TxKind)

// Resource is a single named quantity with optional storage cap and a
// base generation rate in units per second.
type Resource struct {
	Name           string         `json:"name"`
	Amount         float64        `json:"amount"`
	MaxStorage     *float64       `json:"max_storage"`
	GenerationRate float64        `json:"generation_rate"`
	DisplayName    string         `json:"display_name"`
	Description    string         `json:"description"`
	Unlocked       bool           `json:"unlocked"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// IsFull reports whether the resource is at its storage cap.
func (r *Resource) IsFull() bool {
	return r.MaxStorage != nil && r.Amount >= *r.MaxStorage
}

// SpaceRemaining returns the free storage space, or -1 when unbounded.
func (r *Resource) SpaceRemaining() float64 {
	if r.MaxStorage == nil {
		return -1
	}
	if remaining := *r.MaxStorage - r.Amount; remaining > 0 {
		return remaining
	}
	return 0
}

// clamp forces Amount into [0, MaxStorage].
func (r *Resource) clamp() {
	if r.MaxStorage != nil && r.Amount > *r.MaxStorage {
		r.Amount = *r.MaxStorage
	}
	if r.Amount < 0 {
		r.Amount = 0
	}
}

// ResourceDef is the registration record for a resource. Fields beyond
// Name are optional; DisplayName defaults to Name.
type ResourceDef struct {
	Name           string         `json:"name"`
	Initial        float64        `json:"amount"`
	MaxStorage     *float64       `json:"max_storage"`
	GenerationRate float64        `json:"generation_rate"`
	DisplayName    string         `json:"display_name"`
	Description    string         `json:"description"`
	Unlocked       bool           `json:"unlocked"`
	Metadata       map[string]any `json:"metadata"`
}

// Ledger stores every resource and applies transactions against them.
// All multi-resource spends are atomic: either every entry is deducted
// or nothing changes.
type Ledger struct {
	resources map[string]*Resource
	order     []string
	observers []TxObserver
	log       *slog.Logger
}

// NewLedger creates an empty ledger. A nil logger falls back to the
// process default.
func NewLedger(log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		resources: make(map[string]*Resource),
		log:       log,
	}
}

// Register adds a new resource. It fails with ErrDuplicateName when the
// name is already taken.
func (l *Ledger) Register(def ResourceDef) (*Resource, error) {
	if _, exists := l.resources[def.Name]; exists {
		return nil, fmt.Errorf("resource %q: %w", def.Name, ErrDuplicateName)
	}

	res := &Resource{
		Name:           def.Name,
		Amount:         def.Initial,
		MaxStorage:     def.MaxStorage,
		GenerationRate: def.GenerationRate,
		DisplayName:    def.DisplayName,
		Description:    def.Description,
		Unlocked:       def.Unlocked,
		Metadata:       def.Metadata,
	}
	if res.DisplayName == "" {
		res.DisplayName = titleCase(def.Name)
	}
	res.clamp()

	l.resources[def.Name] = res
	l.order = append(l.order, def.Name)
	l.log.Debug("resource registered", "name", def.Name, "initial", def.Initial, "rate", def.GenerationRate)
	return res, nil
}

// Resource returns the named resource, or false when unknown.
func (l *Ledger) Resource(name string) (*Resource, bool) {
	res, ok := l.resources[name]
	return res, ok
}

// Has reports whether a resource is registered.
func (l *Ledger) Has(name string) bool {
	_, ok := l.resources[name]
	return ok
}

// Amount returns the current amount, or 0 for an unknown name. UI and
// content code query speculatively, so unknown names are not an error.
func (l *Ledger) Amount(name string) float64 {
	if res, ok := l.resources[name]; ok {
		return res.Amount
	}
	return 0
}

// Set writes an amount directly. With clamp the value is forced into
// [0, MaxStorage]; without it only the non-negative floor applies.
// Returns false for an unknown name.
func (l *Ledger) Set(name string, amount float64, clamp bool) bool {
	res, ok := l.resources[name]
	if !ok {
		l.log.Warn("set on unknown resource", "name", name)
		return false
	}

	old := res.Amount
	res.Amount = amount
	if clamp {
		res.clamp()
	} else if res.Amount < 0 {
		res.Amount = 0
	}

	l.notify(name, res.Amount-old, TxSet)
	return true
}

// Add increases a resource, clamped at MaxStorage, and returns the
// amount actually applied. Overflow beyond the cap is wasted. Adding to
// an unknown name is a no-op returning 0.
func (l *Ledger) Add(name string, delta float64) float64 {
	res, ok := l.resources[name]
	if !ok {
		l.log.Warn("add to unknown resource", "name", name)
		return 0
	}

	old := res.Amount
	res.Amount += delta
	res.clamp()
	applied := res.Amount - old

	l.notify(name, applied, TxAdd)
	return applied
}

// Spend decrements a resource. It fails without mutation when the
// balance is insufficient or the name unknown. Amounts never go
// negative.
func (l *Ledger) Spend(name string, delta float64) bool {
	res, ok := l.resources[name]
	if !ok {
		l.log.Warn("spend on unknown resource", "name", name)
		return false
	}
	if res.Amount < delta {
		return false
	}

	res.Amount -= delta
	l.notify(name, -delta, TxSpend)
	return true
}

// CanAfford reports whether every entry in costs is covered by the
// current balances.
func (l *Ledger) CanAfford(costs Costs) bool {
	for name, cost := range costs {
		if l.Amount(name) < cost {
			return false
		}
	}
	return true
}

// SpendAll deducts every entry in costs, or nothing at all. This is the
// atomicity guarantee every build and purchase path relies on.
func (l *Ledger) SpendAll(costs Costs) bool {
	if !l.CanAfford(costs) {
		return false
	}
	for _, name := range sortedNames(costs) {
		l.Spend(name, costs[name])
	}
	return true
}

// Generate applies each resource's base generation rate over the
// elapsed time. Only positive rates generate; storage overflow is
// silently wasted.
func (l *Ledger) Generate(deltaTime float64) {
	for _, name := range l.order {
		res := l.resources[name]
		if res.GenerationRate <= 0 {
			continue
		}
		requested := res.GenerationRate * deltaTime
		applied := l.Add(name, requested)
		if applied < requested {
			l.log.Debug("storage full", "name", name, "wasted", requested-applied)
		}
	}
}

// SetGenerationRate replaces a resource's base generation rate,
// clamped to be non-negative. Unknown names are ignored.
func (l *Ledger) SetGenerationRate(name string, rate float64) {
	if res, ok := l.resources[name]; ok {
		if rate < 0 {
			rate = 0
		}
		res.GenerationRate = rate
	}
}

// ModifyGenerationRate adds delta to a resource's base generation rate.
func (l *Ledger) ModifyGenerationRate(name string, delta float64) {
	if res, ok := l.resources[name]; ok {
		l.SetGenerationRate(name, res.GenerationRate+delta)
	}
}

// Unlock makes a resource visible to the player.
func (l *Ledger) Unlock(name string) {
	if res, ok := l.resources[name]; ok {
		res.Unlocked = true
	}
}

// All returns every resource in registration order.
func (l *Ledger) All() []*Resource {
	out := make([]*Resource, 0, len(l.resources))
	for _, name := range l.order {
		out = append(out, l.resources[name])
	}
	return out
}

// Unlocked returns the resources visible to the player, in
// registration order.
func (l *Ledger) Unlocked() []*Resource {
	var out []*Resource
	for _, name := range l.order {
		if res := l.resources[name]; res.Unlocked {
			out = append(out, res)
		}
	}
	return out
}

// Observe registers a transaction observer. Observers run in
// registration order; a panicking observer is logged and skipped.
func (l *Ledger) Observe(fn TxObserver) {
	l.observers = append(l.observers, fn)
}

func (l *Ledger) notify(name string, delta float64, kind TxKind) {
	for _, fn := range l.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.log.Error("transaction observer failed", "name", name, "kind", kind, "panic", r)
				}
			}()
			fn(name, delta, kind)
		}()
	}
}

// records returns the resource map for serialization.
func (l *Ledger) records() map[string]*Resource {
	return l.resources
}

// replaceAll swaps the ledger contents wholesale, as happens on load.
func (l *Ledger) replaceAll(records map[string]*Resource) {
	l.resources = make(map[string]*Resource, len(records))
	l.order = l.order[:0]
	for _, name := range sortedKeys(records) {
		res := records[name]
		if res.DisplayName == "" {
			res.DisplayName = titleCase(name)
		}
		res.clamp()
		l.resources[name] = res
		l.order = append(l.order, name)
	}
}
