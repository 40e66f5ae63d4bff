package main

import (
	"github.com/spf13/cobra"
)

func copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>",
		Short: "Copy a remote widget into the local store",
		Long: `Copy a remote widget into the local store.

The copy is named "<name> (copied)" and carries the remote widget's
source.

Examples:
  widgets copy 3f2a...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(args[0])
		},
	}
}

func runCopy(id string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := loadApp(ctx, appOptions{dial: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.loadRemote(ctx); err != nil {
		return err
	}
	created, err := a.registry.CopyRemote(ctx, id)
	if err != nil {
		return err
	}
	info("New widget ID: %s", created.ID)
	return nil
}
