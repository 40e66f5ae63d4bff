package main

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/vango-dev/widgets/internal/params"
	"github.com/vango-dev/widgets/internal/placeholder"
	"github.com/vango-dev/widgets/internal/widget"
)

func showCmd() *cobra.Command {
	var copySource bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a widget",
		Long: `Show a widget's details, its parameters and its source.

Examples:
  widgets show 3f2a...
  widgets show 3f2a... --copy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(args[0], copySource)
		},
	}

	cmd.Flags().BoolVarP(&copySource, "copy", "c", false, "Copy the source to the clipboard")

	return cmd
}

func runShow(id string, copySource bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := loadApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.loadAll(ctx); err != nil {
		return err
	}
	w, err := a.registry.Lookup(id)
	if err != nil {
		return err
	}

	if err := printWidget(os.Stdout, w); err != nil {
		return err
	}

	if copySource {
		if err := clipboard.WriteAll(w.Source); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		success("Source copied to clipboard")
	}
	return nil
}

func printWidget(out io.Writer, w widget.Widget) error {
	fmt.Fprintf(out, "%s\n", folderStyle.Render(w.Name))
	fmt.Fprintf(out, "  ID:      %s\n", w.ID)
	fmt.Fprintf(out, "  Origin:  %s\n", w.Origin)
	if p := w.Path(); p != "" {
		fmt.Fprintf(out, "  Folder:  %s\n", p)
	}
	if w.RemoteLocator != "" {
		fmt.Fprintf(out, "  URL:     %s\n", w.RemoteLocator)
	}
	if w.Description != nil {
		fmt.Fprintf(out, "\n  %s\n", *w.Description)
	}

	tokens := placeholder.Scan(w.Source)
	res, err := params.Resolve(tokens, w.Configuration, w.Description)
	if err != nil {
		return err
	}
	if len(res.Fields) > 0 {
		fmt.Fprintln(out, "\nParameters:")
		for _, f := range res.Fields {
			fmt.Fprintf(out, "  %-16s %-9s", f.Key, f.Kind)
			if f.Default != "" {
				fmt.Fprintf(out, " default %q", f.Default)
			}
			for i, o := range f.Options {
				if i == 0 {
					fmt.Fprint(out, " options")
				}
				fmt.Fprintf(out, " %s", o.Value)
			}
			fmt.Fprintln(out)
		}
	}
	for _, tok := range tokens.Sorted() {
		if _, ok := res.Field(placeholder.Key(tok)); !ok {
			fmt.Fprintf(out, "  %-16s %s\n", placeholder.Key(tok), idStyle.Render("(no configuration)"))
		}
	}

	fmt.Fprintln(out, "\nSource:")
	if w.IsEmpty() {
		fmt.Fprintln(out, idStyle.Render("  (empty)"))
		return nil
	}
	fmt.Fprintln(out, w.Source)
	return nil
}
