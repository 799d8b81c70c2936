package ui

import (
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/safedep/blpfs/config"
)

// PrintPrincipalTable renders the credential store for the admin CLI.
func PrintPrincipalTable(creds config.Credentials) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Principal", "Clearance", "Trusted"})

	names := make([]string, 0, len(creds))
	for name := range creds {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		cred := creds[name]

		trusted := ""
		if cred.Trusted {
			trusted = "yes"
		}

		t.AppendRow(table.Row{name, LevelColor(cred.Level)("%s", cred.Level), trusted})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
}
