package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sharanvkt/insane-dashboard-v2/access"
	"github.com/sharanvkt/insane-dashboard-v2/am"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
	"github.com/sharanvkt/insane-dashboard-v2/sym"
)

// AccessCmd inspects the permission table
var AccessCmd = &cobra.Command{
	Use:   "access",
	Short: sym.Access + " Inspect what an identity may access",
	Long: sym.Access + ` access — Inspect what an identity may access

The permission table lives under [access] in am.toml. Explicit grants win
over trusted email domains, which win over the default role.

Examples:
  lpdash access check alice@agency.io
  lpdash access check alice@agency.io Alpha`,
}

var accessCheckCmd = &cobra.Command{
	Use:   "check <identity> [domain-name]",
	Short: "Resolve an identity, optionally against one domain",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAccessCheck,
}

func init() {
	AccessCmd.AddCommand(accessCheckCmd)
}

func runAccessCheck(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	table, err := access.NewTable(cfg.Access)
	if err != nil {
		return err
	}
	resolver := access.NewResolver(table, logger.ComponentLogger("access"))

	identity := args[0]
	res := resolver.Resolve(identity)

	domains := strings.Join(res.DomainList(), ", ")
	if res.Scope == access.ScopeAll {
		domains = "(all)"
	}
	rows := [][]string{
		{"Identity", identity},
		{"Role", string(res.Role)},
		{"Scope", string(res.Scope)},
		{"Domains", domains},
		{"Source", res.Source},
		{"Table version", resolver.Version()},
	}
	if err := pterm.DefaultTable.WithData(rows).Render(); err != nil {
		return err
	}

	if len(args) < 2 {
		return nil
	}
	name := args[1]
	if !resolver.CanAccess(identity, name) {
		return fmt.Errorf("%s may not access %q", identity, name)
	}
	pterm.Success.Printf("%s may access %q\n", identity, name)
	return nil
}
