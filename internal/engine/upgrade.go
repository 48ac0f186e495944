package engine

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
)

// repeatCostGrowth scales repeatable upgrade costs geometrically with
// the number of prior purchases.
const repeatCostGrowth = 1.5

// Upgrade is a purchasable modifier. Non-repeatable upgrades are bought
// at most once; repeatables track TimesPurchased up to an optional
// ceiling, and their effect contribution scales linearly with it.
type Upgrade struct {
	Name           string             `json:"name"`
	DisplayName    string             `json:"display_name"`
	Description    string             `json:"description"`
	Cost           Costs              `json:"cost"`
	Purchased      bool               `json:"purchased"`
	Effects        map[string]float64 `json:"effects"`
	Unlocked       bool               `json:"unlocked"`
	Prerequisites  []string           `json:"prerequisites"`
	Unlocks        []string           `json:"unlocks"`
	Repeatable     bool               `json:"repeatable"`
	TimesPurchased int                `json:"times_purchased"`
	MaxPurchases   *int               `json:"max_purchases"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
}

// CanPurchaseMore reports whether the purchase state alone still allows
// buying: not yet purchased for non-repeatables, below the ceiling for
// repeatables.
func (u *Upgrade) CanPurchaseMore() bool {
	if !u.Repeatable {
		return !u.Purchased
	}
	if u.MaxPurchases == nil {
		return true
	}
	return u.TimesPurchased < *u.MaxPurchases
}

// CurrentCost returns the cost of the next purchase. Repeatable costs
// grow geometrically: cost * 1.5^timesPurchased.
func (u *Upgrade) CurrentCost() Costs {
	if u.Repeatable && u.TimesPurchased > 0 {
		return u.Cost.Scale(math.Pow(repeatCostGrowth, float64(u.TimesPurchased)))
	}
	return u.Cost.Clone()
}

// Owned reports whether the upgrade contributes effects: purchased, or
// bought at least once for repeatables.
func (u *Upgrade) Owned() bool {
	return u.Purchased || u.TimesPurchased > 0
}

func (u *Upgrade) requires(name string) bool {
	return slices.Contains(u.Prerequisites, name)
}

// UpgradeDef is the registration record for an upgrade.
type UpgradeDef struct {
	Name          string             `json:"name"`
	DisplayName   string             `json:"display_name"`
	Description   string             `json:"description"`
	Cost          Costs              `json:"cost"`
	Effects       map[string]float64 `json:"effects"`
	Unlocked      bool               `json:"unlocked"`
	Prerequisites []string           `json:"prerequisites"`
	Unlocks       []string           `json:"unlocks"`
	Repeatable    bool               `json:"repeatable"`
	MaxPurchases  *int               `json:"max_purchases"`
	Metadata      map[string]any     `json:"metadata"`
}

// PurchaseObserver is notified after a successful purchase.
type PurchaseObserver func(name string, upgrade *Upgrade)

// Graph holds the upgrade/tech tree. Prerequisite edges form a DAG by
// convention; traversal guards against cycles rather than enforcing
// acyclicity.
type Graph struct {
	upgrades  map[string]*Upgrade
	order     []string
	ledger    *Ledger
	observers []PurchaseObserver
	log       *slog.Logger
}

// NewGraph creates an empty upgrade graph bound to a ledger.
func NewGraph(ledger *Ledger, log *slog.Logger) *Graph {
	if log == nil {
		log = slog.Default()
	}
	return &Graph{
		upgrades: make(map[string]*Upgrade),
		ledger:   ledger,
		log:      log,
	}
}

// Register adds a new upgrade. It fails with ErrDuplicateName when the
// name is already taken. Prerequisite existence is checked by Validate,
// after all registrations are in.
func (t *Graph) Register(def UpgradeDef) (*Upgrade, error) {
	if _, exists := t.upgrades[def.Name]; exists {
		return nil, fmt.Errorf("upgrade %q: %w", def.Name, ErrDuplicateName)
	}

	up := &Upgrade{
		Name:          def.Name,
		DisplayName:   def.DisplayName,
		Description:   def.Description,
		Cost:          def.Cost,
		Effects:       def.Effects,
		Unlocked:      def.Unlocked,
		Prerequisites: def.Prerequisites,
		Unlocks:       def.Unlocks,
		Repeatable:    def.Repeatable,
		MaxPurchases:  def.MaxPurchases,
		Metadata:      def.Metadata,
	}
	if up.DisplayName == "" {
		up.DisplayName = titleCase(def.Name)
	}
	if up.Cost == nil {
		up.Cost = Costs{}
	}
	if up.Effects == nil {
		up.Effects = map[string]float64{}
	}

	t.upgrades[def.Name] = up
	t.order = append(t.order, def.Name)
	t.log.Debug("upgrade registered", "name", def.Name)
	return up, nil
}

// Upgrade returns the named upgrade, or false when unknown.
func (t *Graph) Upgrade(name string) (*Upgrade, bool) {
	up, ok := t.upgrades[name]
	return up, ok
}

// Has reports whether an upgrade is registered.
func (t *Graph) Has(name string) bool {
	_, ok := t.upgrades[name]
	return ok
}

// IsPurchased reports whether a non-repeatable upgrade has been
// bought. Unknown names are simply false.
func (t *Graph) IsPurchased(name string) bool {
	if up, ok := t.upgrades[name]; ok {
		return up.Owned()
	}
	return false
}

// CanPurchase reports whether an upgrade is currently buyable: known,
// unlocked, below its purchase ceiling, every prerequisite purchased,
// and the current (possibly scaled) cost affordable.
func (t *Graph) CanPurchase(name string) bool {
	up, ok := t.upgrades[name]
	if !ok || !up.Unlocked {
		return false
	}
	if !up.CanPurchaseMore() {
		return false
	}
	for _, prereq := range up.Prerequisites {
		if !t.IsPurchased(prereq) {
			return false
		}
	}
	return t.ledger.CanAfford(up.CurrentCost())
}

// Purchase buys an upgrade. The current cost is deducted atomically;
// on success the purchase state advances, unlock propagation runs, and
// purchase observers fire.
func (t *Graph) Purchase(name string) bool {
	if !t.CanPurchase(name) {
		return false
	}
	up := t.upgrades[name]

	if !t.ledger.SpendAll(up.CurrentCost()) {
		return false
	}

	if up.Repeatable {
		up.TimesPurchased++
	} else {
		up.Purchased = true
	}
	t.log.Info("upgrade purchased", "name", name, "times", up.TimesPurchased)

	t.processUnlocks(up)
	t.notify(name, up)
	return true
}

// processUnlocks opens up everything this upgrade unlocks. Upgrade
// names resolve here; other targets (entities) are handled by purchase
// observers wired by the coordinator.
func (t *Graph) processUnlocks(up *Upgrade) {
	for _, target := range up.Unlocks {
		if t.Has(target) {
			t.UnlockUpgrade(target)
			t.log.Info("upgrade unlocked", "by", up.Name, "name", target)
		}
	}
}

// UnlockUpgrade makes an upgrade visible and purchasable.
func (t *Graph) UnlockUpgrade(name string) {
	if up, ok := t.upgrades[name]; ok {
		up.Unlocked = true
	}
}

// All returns every upgrade in registration order.
func (t *Graph) All() []*Upgrade {
	out := make([]*Upgrade, 0, len(t.upgrades))
	for _, name := range t.order {
		out = append(out, t.upgrades[name])
	}
	return out
}

// Unlocked returns the upgrades visible to the player.
func (t *Graph) Unlocked() []*Upgrade {
	var out []*Upgrade
	for _, name := range t.order {
		if up := t.upgrades[name]; up.Unlocked {
			out = append(out, up)
		}
	}
	return out
}

// Available returns the upgrades that are visible and still buyable.
func (t *Graph) Available() []*Upgrade {
	var out []*Upgrade
	for _, name := range t.order {
		if up := t.upgrades[name]; up.Unlocked && up.CanPurchaseMore() {
			out = append(out, up)
		}
	}
	return out
}

// PurchasedUpgrades returns every upgrade bought at least once.
func (t *Graph) PurchasedUpgrades() []*Upgrade {
	var out []*Upgrade
	for _, name := range t.order {
		if up := t.upgrades[name]; up.Owned() {
			out = append(out, up)
		}
	}
	return out
}

// EffectTotal sums an effect over every owned upgrade, scaled by
// TimesPurchased for repeatables. The value is recomputed on every
// call; nothing is cached that could drift from purchase state.
func (t *Graph) EffectTotal(effect string) float64 {
	total := 0.0
	for _, name := range t.order {
		up := t.upgrades[name]
		if !up.Owned() {
			continue
		}
		value, ok := up.Effects[effect]
		if !ok {
			continue
		}
		if up.Repeatable {
			value *= float64(up.TimesPurchased)
		}
		total += value
	}
	return total
}

// HasEffect reports whether any owned upgrade contributes the effect.
func (t *Graph) HasEffect(effect string) bool {
	return t.EffectTotal(effect) > 0
}

// AllEffects returns every cumulative effect from owned upgrades.
func (t *Graph) AllEffects() map[string]float64 {
	all := map[string]float64{}
	for _, name := range t.order {
		up := t.upgrades[name]
		if !up.Owned() {
			continue
		}
		for effect, value := range up.Effects {
			if up.Repeatable {
				value *= float64(up.TimesPurchased)
			}
			all[effect] += value
		}
	}
	return all
}

// Tier returns an upgrade's depth in the tech tree: 0 for no
// prerequisites, otherwise 1 + the deepest prerequisite. Cycles and
// unknown names resolve to 0 so rendering never fails on bad content.
func (t *Graph) Tier(name string) int {
	return t.tier(name, map[string]bool{})
}

func (t *Graph) tier(name string, visited map[string]bool) int {
	up, ok := t.upgrades[name]
	if !ok || visited[name] {
		return 0
	}
	visited[name] = true

	if len(up.Prerequisites) == 0 {
		return 0
	}
	deepest := -1
	for _, prereq := range up.Prerequisites {
		if d := t.tier(prereq, visited); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Validate checks referential integrity: every prerequisite must name
// a registered upgrade. Content and save loading call this so dangling
// references fail at load time instead of becoming silently
// unpurchasable upgrades.
func (t *Graph) Validate() error {
	for _, name := range t.order {
		for _, prereq := range t.upgrades[name].Prerequisites {
			if !t.Has(prereq) {
				return fmt.Errorf("upgrade %q requires %q: %w", name, prereq, ErrUnknownPrerequisite)
			}
		}
	}
	return nil
}

// Observe registers a purchase observer. A panicking observer is
// logged and skipped.
func (t *Graph) Observe(fn PurchaseObserver) {
	t.observers = append(t.observers, fn)
}

func (t *Graph) notify(name string, up *Upgrade) {
	for _, fn := range t.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.log.Error("purchase observer failed", "name", name, "panic", r)
				}
			}()
			fn(name, up)
		}()
	}
}

// records returns the upgrade map for serialization.
func (t *Graph) records() map[string]*Upgrade {
	return t.upgrades
}

// replaceAll swaps the graph contents wholesale, as happens on load.
func (t *Graph) replaceAll(records map[string]*Upgrade) {
	t.upgrades = make(map[string]*Upgrade, len(records))
	t.order = t.order[:0]
	for _, name := range sortedKeys(records) {
		up := records[name]
		if up.Name == "" {
			up.Name = name
		}
		if up.DisplayName == "" {
			up.DisplayName = titleCase(name)
		}
		if up.Cost == nil {
			up.Cost = Costs{}
		}
		if up.Effects == nil {
			up.Effects = map[string]float64{}
		}
		t.upgrades[name] = up
		t.order = append(t.order, name)
	}
}
