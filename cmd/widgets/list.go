package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/widgets/internal/widget"
)

func listCmd() *cobra.Command {
	var (
		remote bool
		query  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List widgets",
		Long: `List the widgets of the local store, or of the remote catalog.

The remote list can be filtered by a case-insensitive substring of the
widget name.

Examples:
  widgets list
  widgets list --remote
  widgets list --remote -q nav`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if query != "" {
				remote = true
			}
			return runList(remote, query)
		},
	}

	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "List the remote catalog")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter remote widgets by name")

	return cmd
}

func runList(remote bool, query string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := loadApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	var ws []widget.Widget
	if remote {
		if err := a.loadRemote(ctx); err != nil {
			return err
		}
		ws = a.registry.FilterRemote(query)
	} else {
		if err := a.loadLocal(ctx); err != nil {
			return err
		}
		ws = a.registry.Local()
	}

	if len(ws) == 0 {
		info("No widgets found")
		return nil
	}
	printWidgets(os.Stdout, ws)
	return nil
}

func printWidgets(w io.Writer, ws []widget.Widget) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFOLDER\tPARAMS")
	for _, wd := range ws {
		folder := wd.Path()
		if folder == "" {
			folder = "-"
		}
		params := "-"
		if wd.Configuration != nil || wd.Description != nil {
			params = "yes"
		}
		if wd.IsEmpty() {
			params = "empty"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", wd.ID, wd.Name, folder, params)
	}
	tw.Flush()
}
