package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/widgets/internal/config"
	"github.com/vango-dev/widgets/internal/errors"
)

// exampleWidget is written to a fresh local store.
const exampleWidget = `{
  "id": "example-hero",
  "name": "Hero",
  "treePath": "Layout/Headers",
  "description": "A page header with a title and a size.",
  "source": "<header class=\"hero hero-[size]\"><h1>[title]</h1></header>",
  "configuration": {
    "title": {"type": "input", "default": "Welcome"},
    "size": {"type": "select", "options": {"sm": "Small", "lg": "Large"}, "default": "lg"}
  }
}
`

func initCmd() *cobra.Command {
	var (
		catalog  string
		executor string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create widgets.json",
		Long: `Create widgets.json and a local widget store with one example widget.

Examples:
  widgets init
  widgets init site --executor=ws://localhost:8082/structr/ws`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, catalog, executor, force)
		},
	}

	cmd.Flags().StringVar(&catalog, "catalog", "", "Remote catalog locator (default: the shared catalog)")
	cmd.Flags().StringVar(&executor, "executor", "", "Command executor WebSocket URL")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing widgets.json")

	return cmd
}

func runInit(dir, catalog, executor string, force bool) error {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if config.Exists(dir) && !force {
		return errors.New("E120").
			WithDetail(config.ConfigFileName + " already exists in " + dir).
			WithSuggestion("Use --force to overwrite it")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	cfg := config.New()
	cfg.Name = filepath.Base(dir)
	if catalog != "" {
		cfg.Remote.Catalog = catalog
	}
	cfg.Executor.URL = executor
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(filepath.Join(dir, config.ConfigFileName)); err != nil {
		return err
	}
	success("Created %s", config.ConfigFileName)

	store := cfg.LocalStoreLocator()
	if err := os.MkdirAll(store, 0755); err != nil {
		return fmt.Errorf("create local store: %w", err)
	}
	example := filepath.Join(store, "example-hero.json")
	if _, err := os.Stat(example); os.IsNotExist(err) {
		if err := os.WriteFile(example, []byte(exampleWidget), 0644); err != nil {
			return err
		}
		success("Created %s", filepath.Join(cfg.Local.Store, "example-hero.json"))
	}

	fmt.Println()
	info("Try:")
	info("  widgets tree")
	info("  widgets show example-hero")
	fmt.Println()
	return nil
}
