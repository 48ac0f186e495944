// Package ui is the terminal front end: a bubbletea program rendering
// the colony status screen, build and research menus, and the event
// log. The engine is read on each throttled frame; all mutation goes
// through engine operations triggered by key input.
package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/colonysh/colony/internal/config"
	"github.com/colonysh/colony/internal/engine"
)

type screen int

const (
	screenMain screen = iota
	screenBuild
	screenResearch
)

// frameMsg throttles rendering and tick checks.
type frameMsg time.Time

// Model is the bubbletea model for an interactive session.
type Model struct {
	game   *engine.Game
	sched  *engine.Scheduler
	cfg    config.Config
	events *EventLog
	log    *slog.Logger

	screen        screen
	cursor        int
	width         int
	height        int
	status        string
	autosaveTimer float64
	quitting      bool
}

// New builds the session model around an already-loaded game and
// wires engine observers into the event log.
func New(game *engine.Game, cfg config.Config, log *slog.Logger) *Model {
	if log == nil {
		log = slog.Default()
	}
	m := &Model{
		game:   game,
		sched:  engine.NewScheduler(cfg.TickRate, log),
		cfg:    cfg,
		events: NewEventLog(100),
		log:    log,
	}
	m.sched.Register(game.Update)

	game.SetSolLength(cfg.SolLength)
	m.events.SetSol(game.Meta.Sol)
	game.ObserveSol(func(sol int) {
		m.events.SetSol(sol)
		m.events.Info(fmt.Sprintf("Sol %d. The colony endures.", sol))
	})
	game.Structures.Observe(func(name string, count int) {
		ent, _ := game.Structures.Entity(name)
		m.events.Success(fmt.Sprintf("%s constructed (x%d)", ent.DisplayName, count))
	})
	game.Units.Observe(func(name string, count int) {
		ent, _ := game.Units.Entity(name)
		m.events.Success(fmt.Sprintf("%s trained (x%d)", ent.DisplayName, count))
	})
	game.Upgrades.Observe(func(name string, up *engine.Upgrade) {
		m.events.Success(fmt.Sprintf("Research complete: %s", up.DisplayName))
	})

	m.events.Info("Colony systems online.")
	return m
}

func (m *Model) frame() tea.Cmd {
	return tea.Tick(time.Duration(m.cfg.FrameRateMs)*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Init starts the simulation clock and the frame loop.
func (m *Model) Init() tea.Cmd {
	m.sched.Start()
	return m.frame()
}

// Update handles frames, resizes, and key input.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case frameMsg:
		if m.quitting {
			return m, tea.Quit
		}
		if m.sched.ShouldTick() {
			m.sched.Tick()
			m.checkThresholds()
			m.autosaveTimer += m.sched.Delta()
			if m.cfg.AutosaveInterval > 0 && m.autosaveTimer >= m.cfg.AutosaveInterval {
				m.autosaveTimer = 0
				m.save(true)
			}
		}
		return m, m.frame()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys.
	switch key {
	case "ctrl+c":
		m.sched.Stop()
		return m, tea.Quit
	case "q":
		if m.screen == screenMain {
			m.save(false)
			m.sched.Stop()
			m.quitting = true
			return m, tea.Quit
		}
		m.screen = screenMain
		m.cursor = 0
		return m, nil
	case "esc":
		m.screen = screenMain
		m.cursor = 0
		return m, nil
	case "s":
		m.save(false)
		return m, nil
	}

	switch m.screen {
	case screenMain:
		switch key {
		case "b":
			m.screen = screenBuild
			m.cursor = 0
		case "r":
			m.screen = screenResearch
			m.cursor = 0
		}
	case screenBuild:
		m.menuKey(key, len(m.game.Structures.Unlocked())+len(m.game.Units.Unlocked()), m.buildSelected)
	case screenResearch:
		m.menuKey(key, len(m.game.Upgrades.Available()), m.researchSelected)
	}
	return m, nil
}

func (m *Model) menuKey(key string, size int, selected func()) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < size-1 {
			m.cursor++
		}
	case "enter", " ":
		if size > 0 {
			selected()
		}
	}
}

func (m *Model) buildSelected() {
	structures := m.game.Structures.Unlocked()
	units := m.game.Units.Unlocked()

	if m.cursor < len(structures) {
		ent := structures[m.cursor]
		if !m.game.Structures.Acquire(ent.Name, 1) {
			m.events.Warning(fmt.Sprintf("Cannot build %s.", ent.DisplayName))
		}
		return
	}
	idx := m.cursor - len(structures)
	if idx < len(units) {
		ent := units[idx]
		if !m.game.Units.Acquire(ent.Name, 1) {
			m.events.Warning(fmt.Sprintf("Cannot train %s.", ent.DisplayName))
		}
	}
}

func (m *Model) researchSelected() {
	available := m.game.Upgrades.Available()
	if m.cursor >= len(available) {
		return
	}
	up := available[m.cursor]
	if !m.game.Upgrades.Purchase(up.Name) {
		m.events.Warning(fmt.Sprintf("Cannot research %s.", up.DisplayName))
	}
	if m.cursor >= len(m.game.Upgrades.Available()) {
		m.cursor = 0
	}
}

func (m *Model) save(auto bool) {
	if err := m.game.Save(m.cfg.SavePath); err != nil {
		m.log.Error("save failed", "path", m.cfg.SavePath, "error", err)
		m.events.Critical("Save failed. State not persisted.")
		return
	}
	if auto {
		m.events.Info("Autosave complete.")
	} else {
		m.events.Success("Colony state saved.")
	}
}

// checkThresholds raises warnings when a resource drops below the
// critical threshold declared in its catalog metadata.
func (m *Model) checkThresholds() {
	for _, res := range m.game.Ledger.Unlocked() {
		raw, ok := res.Metadata["critical_threshold"]
		if !ok {
			continue
		}
		threshold, ok := raw.(float64)
		if !ok {
			continue
		}
		key := "warned." + res.Name
		warned := m.game.State.Get(key, false) == true
		if res.Amount < threshold && !warned {
			m.game.State.Set(key, true)
			m.events.Critical(fmt.Sprintf("%s critically low.", res.DisplayName))
		} else if res.Amount >= threshold && warned {
			m.game.State.Set(key, false)
		}
	}
}

// View renders the active screen.
func (m *Model) View() string {
	if m.quitting {
		return "Colony state saved. The dark waits.\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("colony.sh"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  Sol %d  •  %s", m.game.Meta.Sol, m.game.PlaytimeFormatted())))
	b.WriteString("\n\n")

	switch m.screen {
	case screenBuild:
		b.WriteString(m.viewBuild())
	case screenResearch:
		b.WriteString(m.viewResearch())
	default:
		b.WriteString(m.viewMain())
	}

	b.WriteString(m.viewEvents())
	b.WriteString(m.viewHelp())
	return b.String()
}

func (m *Model) viewMain() string {
	var b strings.Builder
	rates := m.game.NetRates()

	b.WriteString(headerStyle.Render("RESOURCES"))
	b.WriteString("\n")
	for _, res := range m.game.Ledger.Unlocked() {
		b.WriteString(m.resourceRow(res, rates[res.Name]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("STRUCTURES"))
	b.WriteString("\n")
	for _, ent := range m.game.Structures.Owned() {
		b.WriteString(fmt.Sprintf("  %s x%d\n", ent.DisplayName, ent.Count))
	}
	owned := m.game.Units.Owned()
	if len(owned) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("PERSONNEL"))
		b.WriteString("\n")
		for _, ent := range owned {
			b.WriteString(fmt.Sprintf("  %s x%d\n", ent.DisplayName, ent.Count))
		}
	}
	return b.String()
}

func (m *Model) resourceRow(res *engine.Resource, rate float64) string {
	name := resourceNameStyle.Render(res.DisplayName)

	amount := fmt.Sprintf("%7.1f", res.Amount)
	if res.MaxStorage != nil {
		amount = fmt.Sprintf("%7.1f / %.0f", res.Amount, *res.MaxStorage)
	}

	var rateStr string
	switch {
	case rate > 0:
		rateStr = positiveRateStyle.Render(fmt.Sprintf(" +%.1f/s", rate))
	case rate < 0:
		rateStr = negativeRateStyle.Render(fmt.Sprintf(" %.1f/s", rate))
	}

	row := fmt.Sprintf("  %s %s%s", name, amount, rateStr)
	if threshold, ok := res.Metadata["critical_threshold"].(float64); ok && res.Amount < threshold {
		row += criticalStyle.Render("  LOW")
	}
	return row
}

func (m *Model) viewBuild() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("BUILD"))
	b.WriteString("\n")

	structures := m.game.Structures.Unlocked()
	units := m.game.Units.Unlocked()
	row := 0
	for _, ent := range structures {
		b.WriteString(m.entityRow(ent, row == m.cursor, m.game.Structures.CanAcquire(ent.Name, 1)))
		row++
	}
	if len(units) > 0 {
		b.WriteString(dimStyle.Render("  — personnel —"))
		b.WriteString("\n")
	}
	for _, ent := range units {
		b.WriteString(m.entityRow(ent, row == m.cursor, m.game.Units.CanAcquire(ent.Name, 1)))
		row++
	}
	return b.String()
}

func (m *Model) entityRow(ent *engine.Entity, selected, affordable bool) string {
	cursor := "  "
	if selected {
		cursor = "> "
	}
	line := fmt.Sprintf("%s%s x%d  %s", cursor, ent.DisplayName, ent.Count, costString(ent.CostFor(1)))
	if ent.AtCap() {
		line = lockedStyle.Render(line + "  MAX")
	} else if !affordable {
		line = dimStyle.Render(line)
	} else if selected {
		line = selectedStyle.Render(line)
	}
	return line + "\n"
}

func (m *Model) viewResearch() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("RESEARCH"))
	b.WriteString("\n")

	available := m.game.Upgrades.Available()
	if len(available) == 0 {
		b.WriteString(dimStyle.Render("  Nothing left to research."))
		b.WriteString("\n")
		return b.String()
	}
	effects := m.game.Upgrades.AllEffects()
	if len(effects) > 0 {
		parts := make([]string, 0, len(effects))
		for _, name := range engine.Costs(effects).SortedNames() {
			parts = append(parts, fmt.Sprintf("%s %+g", name, effects[name]))
		}
		b.WriteString(dimStyle.Render("  active: " + strings.Join(parts, ", ")))
		b.WriteString("\n\n")
	}

	for i, up := range available {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		label := up.DisplayName
		if up.Repeatable && up.TimesPurchased > 0 {
			label = fmt.Sprintf("%s (x%d)", label, up.TimesPurchased)
		}
		line := fmt.Sprintf("%s%s  %s", cursor, label, costString(up.CurrentCost()))
		switch {
		case !m.game.Upgrades.CanPurchase(up.Name):
			line = dimStyle.Render(line)
		case i == m.cursor:
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("    " + up.Description))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) viewEvents() string {
	entries := m.events.Recent(6)
	if len(entries) == 0 {
		return ""
	}
	var lines []string
	for _, e := range entries {
		line := e.String()
		switch e.Category {
		case CategoryWarning:
			line = warningStyle.Render(line)
		case CategoryCritical:
			line = criticalStyle.Render(line)
		case CategorySuccess:
			line = positiveRateStyle.Render(line)
		default:
			line = dimStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return "\n" + panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)) + "\n"
}

func (m *Model) viewHelp() string {
	switch m.screen {
	case screenMain:
		return helpStyle.Render("b build  r research  s save  q quit")
	default:
		return helpStyle.Render("↑/↓ select  enter confirm  s save  esc back")
	}
}

func costString(costs engine.Costs) string {
	parts := make([]string, 0, len(costs))
	for _, name := range costs.SortedNames() {
		parts = append(parts, fmt.Sprintf("%s %.0f", name, costs[name]))
	}
	return dimStyle.Render("[" + strings.Join(parts, ", ") + "]")
}
