// Package content holds the static colony catalogs: resources,
// structures, units, and the research tree. Catalogs are embedded JSON
// validated against embedded schemas, then registered into a fresh
// engine aggregate.
package content

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/colonysh/colony/internal/engine"
)

//go:embed data/*.json schema/*.json
var contentFS embed.FS

// catalogFiles maps each data file to the schema that validates it.
var catalogFiles = []struct {
	data   string
	schema string
}{
	{"data/resources.json", "schema/resource.schema.json"},
	{"data/structures.json", "schema/entity.schema.json"},
	{"data/units.json", "schema/entity.schema.json"},
	{"data/research.json", "schema/upgrade.schema.json"},
}

// readCatalog reads, schema-validates, and decodes one embedded
// catalog file into out.
func readCatalog(dataPath, schemaPath string, out any) error {
	raw, err := contentFS.ReadFile(dataPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dataPath, err)
	}

	schemaRaw, err := contentFS.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", schemaPath, err)
	}
	schema, err := jsonschema.CompileString(schemaPath, string(schemaRaw))
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", schemaPath, err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", dataPath, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%s failed validation: %w", dataPath, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", dataPath, err)
	}
	return nil
}

// Validate checks every embedded catalog against its schema without
// building a game. Used by the validate command and tests.
func Validate() error {
	for _, cf := range catalogFiles {
		var doc any
		if err := readCatalog(cf.data, cf.schema, &doc); err != nil {
			return err
		}
	}
	return nil
}

// NewGame builds a fresh aggregate with the full colony catalog
// registered: four resources, five structures, three units, and the
// research tree. Prerequisite integrity is checked before returning.
func NewGame(log *slog.Logger) (*engine.Game, error) {
	g := engine.NewGame(log)
	if err := register(g); err != nil {
		return nil, err
	}
	if err := g.Upgrades.Validate(); err != nil {
		return nil, fmt.Errorf("research catalog is inconsistent: %w", err)
	}
	wireEffects(g)
	return g, nil
}

// LoadGame builds a catalog-backed aggregate and restores the save at
// path into it.
func LoadGame(path string, log *slog.Logger) (*engine.Game, error) {
	g, err := NewGame(log)
	if err != nil {
		return nil, err
	}
	// Widened storage caps are part of the persisted resource records,
	// so purchased bonuses survive the reload without re-applying.
	if err := g.Load(path); err != nil {
		return nil, err
	}
	return g, nil
}

func register(g *engine.Game) error {
	var resources []engine.ResourceDef
	if err := readCatalog("data/resources.json", "schema/resource.schema.json", &resources); err != nil {
		return err
	}
	for _, def := range resources {
		if _, err := g.Ledger.Register(def); err != nil {
			return fmt.Errorf("resource %s: %w", def.Name, err)
		}
	}

	var structures []engine.EntityDef
	if err := readCatalog("data/structures.json", "schema/entity.schema.json", &structures); err != nil {
		return err
	}
	for _, def := range structures {
		if _, err := g.Structures.Register(def); err != nil {
			return fmt.Errorf("structure %s: %w", def.Name, err)
		}
	}

	var units []engine.EntityDef
	if err := readCatalog("data/units.json", "schema/entity.schema.json", &units); err != nil {
		return err
	}
	for _, def := range units {
		if _, err := g.Units.Register(def); err != nil {
			return fmt.Errorf("unit %s: %w", def.Name, err)
		}
	}

	var research []engine.UpgradeDef
	if err := readCatalog("data/research.json", "schema/upgrade.schema.json", &research); err != nil {
		return err
	}
	for _, def := range research {
		if _, err := g.Upgrades.Register(def); err != nil {
			return fmt.Errorf("research %s: %w", def.Name, err)
		}
	}

	return nil
}

// storageBonusEffect names the research effect that widens storage.
const storageBonusEffect = "storage_capacity_bonus"

// storableResources are the resources modular storage applies to.
// Colonist capacity comes from hab modules, not silos.
var storableResources = []string{"energy", "metal", "biomass"}

// wireEffects attaches purchase-time effect application. Production
// and consumption multipliers stay derived values queried through
// EffectTotal; storage bonuses mutate capacity directly because caps
// gate clamping inside the ledger.
func wireEffects(g *engine.Game) {
	g.Upgrades.Observe(func(_ string, up *engine.Upgrade) {
		bonus, ok := up.Effects[storageBonusEffect]
		if !ok || bonus <= 0 {
			return
		}
		for _, name := range storableResources {
			res, found := g.Ledger.Resource(name)
			if !found || res.MaxStorage == nil {
				continue
			}
			widened := *res.MaxStorage + bonus
			res.MaxStorage = &widened
		}
	})
}
