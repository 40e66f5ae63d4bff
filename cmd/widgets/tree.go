package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vango-dev/widgets/internal/pathtree"
	"github.com/vango-dev/widgets/internal/widget"
)

var (
	folderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA500"))
	leafStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func treeCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show widgets by folder",
		Long: `Show the folder hierarchy derived from the widgets' tree paths.

Widgets without a tree path are listed under Uncategorized.

Examples:
  widgets tree
  widgets tree --remote`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(remote)
		},
	}

	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "Show the remote catalog")

	return cmd
}

func runTree(remote bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := loadApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		t  *pathtree.Tree
		ws []widget.Widget
	)
	if remote {
		if err := a.loadRemote(ctx); err != nil {
			return err
		}
		t, ws = a.registry.RemoteTree(), a.registry.Remote()
	} else {
		if err := a.loadLocal(ctx); err != nil {
			return err
		}
		t, ws = a.registry.LocalTree(), a.registry.Local()
	}

	if t.Len() == 0 {
		info("No widgets found")
		return nil
	}
	fmt.Print(renderTree(t, names(ws)))
	return nil
}

func names(ws []widget.Widget) map[string]string {
	out := make(map[string]string, len(ws))
	for _, w := range ws {
		out[w.ID] = w.Name
	}
	return out
}

// renderTree draws t with box-drawing connectors, folders first and the
// widgets of each folder below its subfolders.
func renderTree(t *pathtree.Tree, names map[string]string) string {
	var b strings.Builder
	var draw func(n *pathtree.Node, prefix string)
	draw = func(n *pathtree.Node, prefix string) {
		total := len(n.Children) + len(n.Widgets)
		i := 0
		for _, c := range n.Children {
			i++
			branch, next := connector(i == total)
			fmt.Fprintf(&b, "%s%s%s\n", prefix, branch, folderStyle.Render(c.Label+"/"))
			draw(c, prefix+next)
		}
		for _, id := range n.Widgets {
			i++
			branch, _ := connector(i == total)
			name := names[id]
			if name == "" {
				name = id
			}
			fmt.Fprintf(&b, "%s%s%s %s\n", prefix, branch, leafStyle.Render(name), idStyle.Render("("+id+")"))
		}
	}
	draw(t.Root(), "")
	return b.String()
}

func connector(last bool) (branch, next string) {
	if last {
		return "└── ", "    "
	}
	return "├── ", "│   "
}
