package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CC0000"))
)

func editCmd() *cobra.Command {
	var (
		file string
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace a widget's source",
		Long: `Replace a widget's template source.

The new source is read from --file, or from stdin when --file is "-".
A diff against the current source is shown before saving.

Examples:
  widgets edit 3f2a... --file=hero.html
  cat hero.html | widgets edit 3f2a... --file=- --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(args[0], file, yes)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File holding the new source (- for stdin)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Save without asking")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runEdit(id, file string, yes bool) error {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
		yes = true
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return fmt.Errorf("read new source: %w", err)
	}
	source := string(data)

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

	if w.Source == source {
		info("Source of %s is unchanged", w.Name)
		return nil
	}
	fmt.Print(sourceDiff(w.Source, source))

	if !yes && !confirm(os.Stdin, "Save changes to "+w.Name+"?") {
		warn("Not saved")
		return nil
	}
	return a.registry.EditSource(ctx, id, source)
}

// sourceDiff renders a line diff of before and after, one line per changed
// or unchanged line.
func sourceDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var b strings.Builder
	for _, d := range diffs {
		chunk := strings.Split(d.Text, "\n")
		if len(chunk) > 0 && chunk[len(chunk)-1] == "" {
			chunk = chunk[:len(chunk)-1]
		}
		for _, line := range chunk {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				b.WriteString("  " + line + "\n")
			case diffmatchpatch.DiffDelete:
				b.WriteString(removedStyle.Render("- "+line) + "\n")
			case diffmatchpatch.DiffInsert:
				b.WriteString(addedStyle.Render("+ "+line) + "\n")
			}
		}
	}
	return b.String()
}

func confirm(in io.Reader, question string) bool {
	fmt.Printf("%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
