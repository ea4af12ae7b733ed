package main

import (
	"context"
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/deckwise/stagescript/internal/scripting"
)

var flagFilter string

// behaviorSchema is the inspect output shape for one behavior.
type behaviorSchema struct {
	Behavior string           `yaml:"behavior"`
	Props    []map[string]any `yaml:"props,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load behavior scripts and print their declared property schemas",
	Long: `Load behavior scripts and print their declared property schemas as YAML.

An optional --filter expression narrows the listed properties; it is
evaluated per property with the fields behavior, variableName, type,
defaultValueString and label in scope. Example:

  stagescript inspect --filter 'type == "Enum"'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		rt, err := scripting.NewRuntime(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = rt.Close() }()

		engine, err := scripting.NewEngine(rt, logger)
		if err != nil {
			return err
		}
		if err := loadScripts(engine, logger, cfg.ScriptDirs); err != nil {
			return err
		}

		var filter func(map[string]any) (bool, error)
		if flagFilter != "" {
			prog, err := expr.Compile(flagFilter, expr.AllowUndefinedVariables())
			if err != nil {
				return fmt.Errorf("invalid --filter expression: %w", err)
			}
			filter = func(env map[string]any) (bool, error) {
				out, err := expr.Run(prog, env)
				if err != nil {
					return false, fmt.Errorf("--filter failed: %w", err)
				}
				keep, ok := out.(bool)
				if !ok {
					return false, fmt.Errorf("--filter must evaluate to a boolean, got %T", out)
				}
				return keep, nil
			}
		}

		var schemas []behaviorSchema
		for _, name := range engine.Behaviors() {
			b, _ := engine.Behavior(name)
			schema := behaviorSchema{Behavior: name}
			for _, def := range b.Props {
				record := map[string]any{
					"behavior":           name,
					"variableName":       def.VariableName,
					"type":               string(def.Type),
					"defaultValueString": def.DefaultValueString,
					"label":              def.Label,
				}
				if filter != nil {
					keep, err := filter(record)
					if err != nil {
						return err
					}
					if !keep {
						continue
					}
				}
				delete(record, "behavior")
				schema.Props = append(schema.Props, record)
			}
			schemas = append(schemas, schema)
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(schemas)
	},
}

func init() {
	inspectCmd.Flags().StringVar(&flagFilter, "filter", "", "expression selecting properties to list")
}
