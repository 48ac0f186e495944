package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// saveSections are the top-level keys every save file must carry.
var saveSections = []string{"metadata", "resources", "structures", "units", "upgrades"}

// saveData is the aggregate record written to disk: one JSON document
// holding the whole session.
type saveData struct {
	Metadata   Metadata                `json:"metadata"`
	State      map[string]any          `json:"state"`
	Resources  map[string]*Resource    `json:"resources"`
	Structures map[string]entityRecord `json:"structures"`
	Units      map[string]entityRecord `json:"units"`
	Upgrades   map[string]*Upgrade     `json:"upgrades"`
}

// Save serializes the whole aggregate to path, creating intermediate
// directories as needed. A failed save leaves the running session
// untouched.
func (g *Game) Save(path string) error {
	meta := g.Meta
	meta.LastSaved = time.Now().Format(time.RFC3339)

	data := saveData{
		Metadata:   meta,
		State:      g.State.All(),
		Resources:  g.Ledger.records(),
		Structures: g.Structures.records(),
		Units:      g.Units.records(),
		Upgrades:   g.Upgrades.records(),
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create save dir: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write save: %w", err)
	}

	g.Meta = meta
	g.log.Info("game saved", "path", path, "sol", g.Meta.Sol)
	return nil
}

// Load replaces every subsystem's contents wholesale from the save at
// path. It fails with ErrNotFound when the file does not exist and
// ErrInvalidSave when the record cannot be decoded or is missing a
// required section. Loading is all-or-nothing: a failure on any check
// leaves the current contents untouched, and no entity from the
// previous contents survives a successful load.
func (g *Game) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("read save: %w", err)
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return fmt.Errorf("%s: %v: %w", path, err, ErrInvalidSave)
	}
	for _, key := range saveSections {
		if _, ok := sections[key]; !ok {
			return fmt.Errorf("%s: missing section %q: %w", path, key, ErrInvalidSave)
		}
	}

	var data saveData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("%s: %v: %w", path, err, ErrInvalidSave)
	}

	// Integrity checks run on the decoded records, before anything is
	// replaced, so a failed load never leaves a half-loaded aggregate.
	for _, name := range sortedKeys(data.Upgrades) {
		for _, prereq := range data.Upgrades[name].Prerequisites {
			if _, ok := data.Upgrades[prereq]; !ok {
				return fmt.Errorf("%s: upgrade %q requires %q: %w", path, name, prereq, ErrUnknownPrerequisite)
			}
		}
	}

	g.Meta = data.Metadata
	if g.Meta.Version == "" {
		g.Meta.Version = Version
	}
	g.State.Replace(data.State)
	g.Ledger.replaceAll(data.Resources)
	g.Structures.replaceAll(data.Structures)
	g.Units.replaceAll(data.Units)
	g.Upgrades.replaceAll(data.Upgrades)
	g.solTimer = 0

	g.log.Info("game loaded", "path", path, "sol", g.Meta.Sol, "playtime", g.Meta.TotalPlaytime)
	return nil
}

// Autosave writes the aggregate to dir/filename.
func (g *Game) Autosave(dir, filename string) error {
	return g.Save(filepath.Join(dir, filename))
}

// SaveInfo reads only the metadata section of a save file, without
// touching any running session.
func SaveInfo(path string) (Metadata, error) {
	var meta Metadata

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return meta, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return meta, fmt.Errorf("read save: %w", err)
	}

	var partial struct {
		Metadata Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &partial); err != nil {
		return meta, fmt.Errorf("%s: %v: %w", path, err, ErrInvalidSave)
	}
	return partial.Metadata, nil
}
