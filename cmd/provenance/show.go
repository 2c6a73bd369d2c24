package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"provenance/internal/evidence"
	"provenance/internal/fact"
	"provenance/internal/modinfo"
	"provenance/internal/output"
	"provenance/pkg/provenance"
)

func newShowCmd(log *output.Logger) *cobra.Command {
	var (
		flags generateFlags
		from  string
		plain bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the facts without writing the artifact",
		Long: `Resolve the facts, apply the deny set and print them.

With --from, print the facts recorded in an evidence note instead and check
whether the artifact it describes is unchanged.

On a terminal the facts are shown in a scrollable table; press q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				tbl *fact.Table
				err error
			)
			if from != "" {
				tbl, err = loadNote(from, flags.dir, log)
			} else {
				var res *provenance.Result
				res, err = provenance.New(flags.options(log)...).Resolve(cmd.Context())
				if res != nil {
					tbl = res.Table
				}
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !plain && isTerminal(w) {
				_, err := tea.NewProgram(newFactsModel(tbl), tea.WithOutput(w)).Run()
				return err
			}
			printFacts(w, tbl)
			return nil
		},
	}
	flags.registerResolve(cmd)
	cmd.Flags().StringVar(&from, "from", "", "read facts from an evidence note")
	cmd.Flags().BoolVar(&plain, "plain", false, "never use the interactive table")
	return cmd
}

// loadNote reads the note at path and reports whether its artifact still
// matches.
func loadNote(path, dir string, log output.LoggerInterface) (*fact.Table, error) {
	note, err := evidence.Read(path)
	if err != nil {
		return nil, err
	}
	root, err := modinfo.FindRoot(dir)
	if err != nil {
		root = dir
	}
	artifact := filepath.Join(root, filepath.FromSlash(note.Artifact))
	switch data, err := os.ReadFile(artifact); {
	case err != nil:
		log.Warn("cannot read %s: %v", artifact, err)
	case note.Matches(data):
		log.Info("%s matches the note", artifact)
	default:
		log.Warn("%s has changed since the note was written", artifact)
	}
	return note.Table()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printFacts writes one fact per line with keys aligned. Multi-line values
// continue on indented lines.
func printFacts(w io.Writer, tbl *fact.Table) {
	width := 0
	for _, k := range tbl.Keys() {
		width = max(width, len(k))
	}
	indent := strings.Repeat(" ", width+2)
	for _, f := range tbl.Facts() {
		lines := strings.Split(strings.TrimPrefix(f.Value.String(), "\n"), "\n")
		fmt.Fprintf(w, "%-*s  %s\n", width, f.Key, lines[0])
		for _, l := range lines[1:] {
			fmt.Fprintf(w, "%s%s\n", indent, l)
		}
	}
}

// ---------------------------------------------------------------------------
// Interactive table
// ---------------------------------------------------------------------------

// factsModel is a bubbletea model listing facts in a scrollable table.
type factsModel struct {
	table table.Model
}

func newFactsModel(tbl *fact.Table) factsModel {
	keyWidth := len("KEY")
	rows := make([]table.Row, 0, tbl.Len())
	for _, f := range tbl.Facts() {
		keyWidth = max(keyWidth, len(f.Key))
		v := strings.ReplaceAll(strings.TrimPrefix(f.Value.String(), "\n"), "\n", " ⏎ ")
		rows = append(rows, table.Row{f.Key, v})
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "KEY", Width: keyWidth},
			{Title: "VALUE", Width: 72},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows), 20)),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return factsModel{table: t}
}

func (m factsModel) Init() tea.Cmd {
	return nil
}

func (m factsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width - 4)
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m factsModel) View() string {
	return m.table.View() + "\n  ↑/↓ scroll • q quit\n"
}
