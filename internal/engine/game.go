package engine

import (
	"fmt"
	"log/slog"
	"time"
)

// Version tags saves written by this build of the engine.
const Version = "1.0.0"

// DefaultSolLength is the default length of one in-game day (Sol) in
// simulated seconds.
const DefaultSolLength = 60.0

// Metadata is the scalar session state owned by the coordinator.
type Metadata struct {
	Version       string  `json:"version"`
	GameName      string  `json:"game_name,omitempty"`
	CreatedAt     string  `json:"created_at"`
	LastSaved     string  `json:"last_saved,omitempty"`
	TotalPlaytime float64 `json:"total_playtime"`
	TickCount     uint64  `json:"tick_count"`
	Sol           int     `json:"sol"`
}

// SolObserver is notified when the Sol (day) counter advances.
type SolObserver func(sol int)

// Game is the state coordinator. It exclusively owns one ledger, two
// entity registries, one upgrade graph, the auxiliary state store, and
// the session metadata, and advances them together each tick.
type Game struct {
	Ledger     *Ledger
	Structures *Registry
	Units      *Registry
	Upgrades   *Graph
	State      *StateStore
	Meta       Metadata

	solLength    float64
	solTimer     float64
	solObservers []SolObserver
	log          *slog.Logger
}

// NewGame wires up a fresh, empty aggregate. Content registration
// happens afterwards, before the first tick.
func NewGame(log *slog.Logger) *Game {
	if log == nil {
		log = slog.Default()
	}
	ledger := NewLedger(log)

	g := &Game{
		Ledger:     ledger,
		Structures: NewRegistry(KindStructure, ledger, log),
		Units:      NewRegistry(KindUnit, ledger, log),
		Upgrades:   NewGraph(ledger, log),
		State:      NewStateStore(log),
		Meta: Metadata{
			Version:   Version,
			CreatedAt: time.Now().Format(time.RFC3339),
		},
		solLength: DefaultSolLength,
		log:       log,
	}

	// Purchased upgrades may unlock entities and resources by name;
	// upgrade-to-upgrade unlocks are resolved inside the graph itself.
	g.Upgrades.Observe(func(_ string, up *Upgrade) {
		for _, target := range up.Unlocks {
			if g.Structures.Has(target) {
				g.Structures.Unlock(target)
			}
			if g.Units.Has(target) {
				g.Units.Unlock(target)
			}
			if g.Ledger.Has(target) {
				g.Ledger.Unlock(target)
			}
		}
	})

	return g
}

// SetSolLength changes how many simulated seconds make one Sol.
func (g *Game) SetSolLength(seconds float64) {
	if seconds > 0 {
		g.solLength = seconds
	}
}

// ObserveSol registers a day-counter observer.
func (g *Game) ObserveSol(fn SolObserver) {
	g.solObservers = append(g.solObservers, fn)
}

// Update advances the whole aggregate by deltaTime seconds: metadata
// ages, base generation applies, then structures and units apply their
// count-weighted production and consumption. Generation runs first so
// entity upkeep can draw on freshly generated resources within the
// same tick.
func (g *Game) Update(deltaTime float64) {
	g.Meta.TotalPlaytime += deltaTime
	g.Meta.TickCount++

	g.solTimer += deltaTime
	for g.solTimer >= g.solLength {
		g.solTimer -= g.solLength
		g.Meta.Sol++
		g.log.Info("sol advanced", "sol", g.Meta.Sol)
		g.notifySol(g.Meta.Sol)
	}

	g.Ledger.Generate(deltaTime)
	g.Structures.ApplyTick(deltaTime)
	g.Units.ApplyTick(deltaTime)
}

func (g *Game) notifySol(sol int) {
	for _, fn := range g.solObservers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					g.log.Error("sol observer failed", "sol", sol, "panic", r)
				}
			}()
			fn(sol)
		}()
	}
}

// CanAfford is a pass-through affordability query for the UI and
// command layers.
func (g *Game) CanAfford(costs Costs) bool {
	return g.Ledger.CanAfford(costs)
}

// ResourceAmount is a pass-through amount query.
func (g *Game) ResourceAmount(name string) float64 {
	return g.Ledger.Amount(name)
}

// EffectTotal is a pass-through cumulative-effect query.
func (g *Game) EffectTotal(effect string) float64 {
	return g.Upgrades.EffectTotal(effect)
}

// NetRates returns the display rate per resource: base generation plus
// entity production minus entity consumption. This is derived on
// demand rather than written back into the ledger, which would
// double-apply production during Generate.
func (g *Game) NetRates() Costs {
	rates := Costs{}
	for _, res := range g.Ledger.All() {
		rates[res.Name] = res.GenerationRate
	}
	mergeInto(rates, g.Structures.TotalProduction(), 1)
	mergeInto(rates, g.Structures.TotalConsumption(), -1)
	mergeInto(rates, g.Units.TotalProduction(), 1)
	mergeInto(rates, g.Units.TotalConsumption(), -1)
	return rates
}

// Stats is a read-only snapshot of the aggregate for display.
type Stats struct {
	Meta                 Metadata           `json:"metadata"`
	Resources            map[string]float64 `json:"resources"`
	Structures           map[string]int     `json:"structures"`
	Units                map[string]int     `json:"units"`
	UpgradesPurchased    []string           `json:"upgrades_purchased"`
	StructureProduction  Costs              `json:"structure_production"`
	StructureConsumption Costs              `json:"structure_consumption"`
	UnitProduction       Costs              `json:"unit_production"`
	UnitUpkeep           Costs              `json:"unit_upkeep"`
	NetRates             Costs              `json:"net_rates"`
	Effects              map[string]float64 `json:"effects"`
}

// ExportStats builds a display snapshot. It never mutates.
func (g *Game) ExportStats() Stats {
	stats := Stats{
		Meta:                 g.Meta,
		Resources:            map[string]float64{},
		Structures:           map[string]int{},
		Units:                map[string]int{},
		StructureProduction:  g.Structures.TotalProduction(),
		StructureConsumption: g.Structures.TotalConsumption(),
		UnitProduction:       g.Units.TotalProduction(),
		UnitUpkeep:           g.Units.TotalConsumption(),
		NetRates:             g.NetRates(),
		Effects:              g.Upgrades.AllEffects(),
	}
	for _, res := range g.Ledger.All() {
		stats.Resources[res.Name] = res.Amount
	}
	for _, ent := range g.Structures.All() {
		stats.Structures[ent.Name] = ent.Count
	}
	for _, ent := range g.Units.All() {
		stats.Units[ent.Name] = ent.Count
	}
	for _, up := range g.Upgrades.PurchasedUpgrades() {
		stats.UpgradesPurchased = append(stats.UpgradesPurchased, up.Name)
	}
	return stats
}

// PlaytimeFormatted renders total playtime as "1h 23m 45s".
func (g *Game) PlaytimeFormatted() string {
	total := int(g.Meta.TotalPlaytime)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// Reset clears every subsystem and starts the metadata over.
func (g *Game) Reset() {
	g.Ledger.replaceAll(map[string]*Resource{})
	g.Structures.replaceAll(map[string]entityRecord{})
	g.Units.replaceAll(map[string]entityRecord{})
	g.Upgrades.replaceAll(map[string]*Upgrade{})
	g.State.Clear()
	g.Meta = Metadata{
		Version:   Version,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
	g.solTimer = 0
	g.log.Info("game state reset")
}
