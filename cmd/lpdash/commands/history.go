package commands

import (
	"context"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sharanvkt/insane-dashboard-v2/history"
	"github.com/sharanvkt/insane-dashboard-v2/sym"
)

// HistoryCmd shows the change history of a domain, newest first
var HistoryCmd = &cobra.Command{
	Use:   "history <domain-id>",
	Short: sym.History + " Show the change history of a domain",
	Long: sym.History + ` history — Show the change history of a domain

Every create, edit, delete and schedule action on a domain is recorded with
the fields it changed and who made the change. Entries are shown newest first.

Examples:
  lpdash history <domain-id> --as editor@agency.io
  lpdash history <domain-id> --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

var historyLimit int

func init() {
	HistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show at most this many entries (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	actor, err := actorFrom(cmd)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.service.History(context.Background(), actor, args[0])
	if err != nil {
		return userError(err)
	}
	if len(entries) == 0 {
		pterm.Info.Println("No history recorded")
		return nil
	}
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}

	now := time.Now()
	rows := [][]string{{"When", "Action", "By", "Changes"}}
	for _, e := range entries {
		rows = append(rows, []string{
			history.RelativeTime(now, e.UpdatedAt),
			string(e.Action),
			e.UpdatedBy,
			summarizeChanges(e.Changes),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

// summarizeChanges renders a diff as one line per field for a table cell.
func summarizeChanges(changes history.Changes) string {
	formatted := history.FormatChanges(changes)
	lines := make([]string, 0, len(formatted))
	for _, fc := range formatted {
		lines = append(lines, fc.Field+": "+fc.New)
	}
	return strings.Join(lines, "\n")
}
