package main

import (
	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	var (
		name     string
		treePath string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an empty local widget",
		Long: `Create an empty local widget.

Without --folder the widget is filed under Uncategorized. Fill in its
source with "widgets edit".

Examples:
  widgets add
  widgets add --name "Signup Form" --folder Forms/Inputs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(name, treePath)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Widget name")
	cmd.Flags().StringVar(&treePath, "folder", "", "Tree path, e.g. Layout/Headers")

	return cmd
}

func runAdd(name, treePath string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := loadApp(ctx, appOptions{dial: true})
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.registry.AddLocal(ctx, name, treePath)
	if err != nil {
		return err
	}
	info("New widget ID: %s", created.ID)
	return nil
}
