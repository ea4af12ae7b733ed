package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/deckwise/stagescript/internal/config"
	"github.com/deckwise/stagescript/internal/scripting"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "stagescript",
	Short:         "Host behavior scripts on a simulated actor/card stage",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (config.Config, *log.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           cfg.ParseLogLevel(),
		Prefix:          "stagescript",
	})
	return cfg, logger, nil
}

// loadScripts executes every *.js file found in the configured script
// directories, in sorted order per directory. A missing directory is not an
// error; a broken script is.
func loadScripts(e *scripting.Engine, logger *log.Logger, dirs []string) error {
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				logger.Debug("script directory missing, skipping", "dir", dir)
				continue
			}
			return fmt.Errorf("failed to scan script directory %s: %w", dir, err)
		}
		var names []string
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".js" {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read script %s: %w", path, err)
			}
			if err := e.LoadScript(path, string(data)); err != nil {
				return err
			}
			logger.Debug("loaded script", "path", path)
		}
	}
	return nil
}
