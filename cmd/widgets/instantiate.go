package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/widgets/internal/form"
	"github.com/vango-dev/widgets/internal/instantiate"
)

func instantiateCmd() *cobra.Command {
	var (
		target string
		page   string
		sets   []string
		noForm bool
	)

	cmd := &cobra.Command{
		Use:     "instantiate <id>",
		Aliases: []string{"insert"},
		Short:   "Insert a widget into a page",
		Long: `Insert a widget into a page through the command executor.

A widget with parameters opens a form to fill them in. Values given with
--set are used instead of the form; parameters without a value take their
default.

Examples:
  widgets instantiate 3f2a... --target=main --page=home
  widgets instantiate 3f2a... --target=main --page=home --set title=Welcome`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSets(sets)
			if err != nil {
				return err
			}
			return runInstantiate(args[0], target, page, values, noForm)
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "ID of the element to insert into")
	cmd.Flags().StringVarP(&page, "page", "p", "", "ID of the page holding the target")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Parameter value as key=value (repeatable)")
	cmd.Flags().BoolVar(&noForm, "no-form", false, "Never open the form, use --set values and defaults")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runInstantiate(id, target, page string, values map[string]string, noForm bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := loadApp(ctx, appOptions{dial: true})
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

	flow := instantiate.NewFlow(a.dispatcher)
	res, err := flow.Begin(ctx, w, target, page)
	if err != nil {
		return err
	}
	if flow.State() == instantiate.StateDispatched {
		success("Inserted %s into %s", w.Name, target)
		return nil
	}

	if values == nil && !noForm {
		var ok bool
		values, ok, err = form.Run(w.Name, res)
		if err != nil {
			return err
		}
		if !ok {
			_ = flow.Cancel()
			warn("Cancelled")
			return nil
		}
	}

	if err := flow.Submit(ctx, values); err != nil {
		return err
	}
	success("Inserted %s into %s", w.Name, target)
	return nil
}

// parseSets turns key=value flags into a value map. It returns nil when no
// flag was given.
func parseSets(sets []string) (map[string]string, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	values := make(map[string]string, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", s)
		}
		values[strings.TrimSpace(k)] = v
	}
	return values, nil
}
