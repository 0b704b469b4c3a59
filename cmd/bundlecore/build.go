package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bundlecore/bundlecore/internal/config"
	"github.com/bundlecore/bundlecore/internal/diag"
	"github.com/bundlecore/bundlecore/internal/engine"
	"github.com/bundlecore/bundlecore/internal/manifest"
	"github.com/bundlecore/bundlecore/internal/runtimeset"
	"github.com/bundlecore/bundlecore/internal/splitter"
	"github.com/bundlecore/bundlecore/internal/telemetry"
)

var (
	configPath string
	jsonOutput bool
	verbose    bool
)

func init() {
	buildCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (internal/config.Options shape)")
	buildCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the stats surface as JSON instead of a table")
	buildCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "trace phase timings to stderr")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build <manifest.yaml>",
	Short: "Run a module graph through make/finish-modules/seal/code-generation",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func loadConfig(path string) (config.Options, error) {
	cfg := config.Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}

	logLevel := zerolog.Disabled
	if verbose {
		logLevel = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(logLevel).With().Timestamp().Logger()
	tracer := telemetry.New(logger)

	comp := engine.New(cfg, tracer)

	inputs, entryData, seeds := m.ToEngineInputs()
	comp.Make(inputs)
	comp.FinishModules(inputs)

	runtimes, diagErr := runEntryRuntimes(entryData)
	if diagErr != nil {
		return diagErr
	}
	for moduleID, set := range seeds {
		runtimes[moduleID] = set
	}
	if err := comp.Seal(runtimes); err != nil {
		return fmt.Errorf("seal: %w", err)
	}

	cg := comp.Split(entryData, nil)
	comp.BuildRenderContexts(cg)

	stats := comp.BuildStats(cg)
	if len(stats.Errors) > 0 {
		printStatsTable(stats)
		return fmt.Errorf("build failed with %d error(s)", len(stats.Errors))
	}

	if jsonOutput {
		out, err := stats.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	printStatsTable(stats)
	return nil
}

// runEntryRuntimes runs splitter.DetermineEntryRuntimes (spec.md §4.6 Stage
// 1) and reindexes its entry-name-keyed result by each entry's module
// identifier, the shape Seal's usage-propagation seeding expects (spec.md
// §4.4 "seed every entry module's Other slot to Used for its runtime").
func runEntryRuntimes(entryData map[string]splitter.EntryData) (map[string]runtimeset.Set, error) {
	log := diag.NewLog()
	byEntryName := splitter.DetermineEntryRuntimes(entryData, log)
	msgs := log.Finish()
	if diag.HasErrors(msgs) {
		for _, m := range msgs {
			pterm.Error.Println(m.Message)
		}
		return nil, fmt.Errorf("%d entry-runtime error(s)", len(msgs))
	}

	byModule := make(map[string]runtimeset.Set, len(byEntryName))
	for name, rt := range byEntryName {
		entry, ok := entryData[name]
		if !ok || len(entry.Dependencies) == 0 {
			continue
		}
		byModule[string(entry.Dependencies[0])] = rt
	}
	return byModule, nil
}

func printStatsTable(stats engine.Stats) {
	for _, w := range stats.Warnings {
		pterm.Warning.Println(w.Message)
	}
	for _, e := range stats.Errors {
		pterm.Error.Println(e.Message)
	}

	rows := pterm.TableData{{"chunk", "modules", "runtime"}}
	for _, c := range stats.Chunks {
		rows = append(rows, []string{c.ID, fmt.Sprintf("%d", len(c.Modules)), joinNames(c.Runtime)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	pterm.Info.Printfln("%d module(s), %d chunk(s), %d entrypoint(s)",
		len(stats.Modules), len(stats.Chunks), len(stats.Entrypoints))
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}
