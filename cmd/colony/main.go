package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/colonysh/colony/internal/config"
	"github.com/colonysh/colony/internal/content"
	"github.com/colonysh/colony/internal/engine"
	"github.com/colonysh/colony/internal/ui"
)

var (
	configFile string
	saveFile   string
	debug      bool
	force      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "colony",
		Short: "colony.sh - a dark sci-fi survival incremental for the terminal",
		Long: `Keep a failing off-world colony alive: balance energy, metal,
and biomass, build structures, train specialists, and research what
the corrupted databases still remember.`,
		Run: runPlay,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigPath(), "Path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&saveFile, "save", "s", "", "Path to save file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Verbose logging")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a snapshot of the saved colony",
		Run:   runStats,
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Print save file metadata without loading the full state",
		Run:   runInfo,
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the embedded content catalogs against their schemas",
		Run:   runValidate,
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the save file and start over",
		Run:   runReset,
	}
	resetCmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	rootCmd.AddCommand(statsCmd, infoCmd, validateCmd, resetCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "colony.yaml"
	}
	return filepath.Join(home, ".colony", "colony.yaml")
}

func loadConfig() config.Config {
	cfg, err := config.Load(configFile)
	if err != nil {
		color.Yellow("Warning: %v (using defaults)", err)
		cfg = config.Default()
	}
	if saveFile != "" {
		cfg.SavePath = saveFile
	}
	return cfg
}

// newLogger writes to a log file next to the save so the TUI keeps the
// terminal to itself. Falls back to discard when the dir is unusable.
func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var w io.Writer = io.Discard
	if err := os.MkdirAll(cfg.SaveDir(), 0o755); err == nil {
		f, err := os.OpenFile(filepath.Join(cfg.SaveDir(), "colony.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			w = f
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadOrNewGame restores the configured save, or starts fresh when no
// save exists yet. An unreadable save is moved aside so the next
// autosave cannot overwrite it, and the colony restarts from scratch.
func loadOrNewGame(cfg config.Config, log *slog.Logger) (*engine.Game, error) {
	g, err := content.LoadGame(cfg.SavePath, log)
	if err == nil {
		return g, nil
	}
	if errors.Is(err, engine.ErrNotFound) {
		return content.NewGame(log)
	}
	if errors.Is(err, engine.ErrInvalidSave) || errors.Is(err, engine.ErrUnknownPrerequisite) {
		log.Error("save unreadable, starting fresh", "path", cfg.SavePath, "error", err)
		backup := cfg.SavePath + ".corrupt"
		if renameErr := os.Rename(cfg.SavePath, backup); renameErr == nil {
			color.Yellow("Save file is unreadable; moved to %s and starting a new colony.", backup)
		} else {
			color.Yellow("Save file is unreadable; starting a new colony.")
		}
		return content.NewGame(log)
	}
	return nil, err
}

func runPlay(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg)

	g, err := loadOrNewGame(cfg, log)
	if err != nil {
		color.Red("Error loading colony: %v", err)
		os.Exit(1)
	}

	p := tea.NewProgram(ui.New(g, cfg, log), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg)

	g, err := content.LoadGame(cfg.SavePath, log)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			color.Yellow("No save found at %s. Play first.", cfg.SavePath)
			return
		}
		color.Red("Error loading colony: %v", err)
		os.Exit(1)
	}

	stats := g.ExportStats()
	titleColor := color.New(color.FgCyan, color.Bold)
	titleColor.Printf("\ncolony.sh — Sol %d, %s played\n\n", stats.Meta.Sol, g.PlaytimeFormatted())

	printResourceTable(g, stats)
	printEntityTable("Structures", g.Structures)
	printEntityTable("Personnel", g.Units)
	printResearchTable(g)
}

func printResourceTable(g *engine.Game, stats engine.Stats) {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Resource", "Amount", "Storage", "Net Rate"}),
	)
	for _, res := range g.Ledger.Unlocked() {
		storage := "-"
		if res.MaxStorage != nil {
			storage = fmt.Sprintf("%.0f", *res.MaxStorage)
		}
		row := []string{
			res.DisplayName,
			fmt.Sprintf("%.1f", res.Amount),
			storage,
			fmt.Sprintf("%+.2f/s", stats.NetRates[res.Name]),
		}
		_ = table.Append(row)
	}
	_ = table.Render()
	fmt.Println()
}

func printEntityTable(title string, reg *engine.Registry) {
	owned := reg.Owned()
	if len(owned) == 0 {
		return
	}
	color.New(color.FgYellow).Println(title)
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Name", "Count", "Produces", "Consumes"}),
	)
	for _, ent := range owned {
		row := []string{
			ent.DisplayName,
			fmt.Sprintf("%d", ent.Count),
			formatRates(ent.TotalProduction()),
			formatRates(ent.TotalConsumption()),
		}
		_ = table.Append(row)
	}
	_ = table.Render()
	fmt.Println()
}

func printResearchTable(g *engine.Game) {
	purchased := g.Upgrades.PurchasedUpgrades()
	if len(purchased) == 0 {
		return
	}
	color.New(color.FgYellow).Println("Research")
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Name", "Purchased", "Effects"}),
	)
	for _, up := range purchased {
		times := "yes"
		if up.Repeatable {
			times = fmt.Sprintf("x%d", up.TimesPurchased)
		}
		row := []string{up.DisplayName, times, formatEffects(up.Effects)}
		_ = table.Append(row)
	}
	_ = table.Render()
	fmt.Println()
}

func formatRates(rates engine.Costs) string {
	if len(rates) == 0 {
		return "-"
	}
	out := ""
	for i, name := range rates.SortedNames() {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s %.1f/s", name, rates[name])
	}
	return out
}

func formatEffects(effects map[string]float64) string {
	if len(effects) == 0 {
		return "-"
	}
	out := ""
	first := true
	for _, name := range engine.Costs(effects).SortedNames() {
		if !first {
			out += ", "
		}
		out += fmt.Sprintf("%s %+g", name, effects[name])
		first = false
	}
	return out
}

func runInfo(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	meta, err := engine.SaveInfo(cfg.SavePath)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			color.Yellow("No save found at %s.", cfg.SavePath)
			return
		}
		color.Red("Error reading save: %v", err)
		os.Exit(1)
	}

	fmt.Printf("Save:       %s\n", cfg.SavePath)
	fmt.Printf("Version:    %s\n", meta.Version)
	if meta.GameName != "" {
		fmt.Printf("Colony:     %s\n", meta.GameName)
	}
	fmt.Printf("Created:    %s\n", meta.CreatedAt)
	fmt.Printf("Last saved: %s\n", meta.LastSaved)
	fmt.Printf("Sol:        %d\n", meta.Sol)
	fmt.Printf("Ticks:      %d\n", meta.TickCount)
}

func runValidate(cmd *cobra.Command, args []string) {
	if err := content.Validate(); err != nil {
		color.Red("Catalog validation failed: %v", err)
		os.Exit(1)
	}
	color.Green("All catalogs valid.")
}

func runReset(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if _, err := os.Stat(cfg.SavePath); errors.Is(err, os.ErrNotExist) {
		color.Yellow("Nothing to reset: no save at %s.", cfg.SavePath)
		return
	}

	if !force {
		fmt.Printf("Delete save at %s? [y/N] ", cfg.SavePath)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	if err := os.Remove(cfg.SavePath); err != nil {
		color.Red("Error deleting save: %v", err)
		os.Exit(1)
	}
	color.Green("Save deleted. The colony is gone. Again.")
}
