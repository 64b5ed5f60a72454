package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sharanvkt/insane-dashboard-v2/history"
	"github.com/sharanvkt/insane-dashboard-v2/sym"
)

// DomainCmd groups the domain record commands
var DomainCmd = &cobra.Command{
	Use:   "domain",
	Short: sym.Domain + " Manage landing-page domains",
	Long: sym.Domain + ` domain — Manage landing-page domains

Fields: name, url, content1, content2, content3, content4.
Values are given as field=value arguments. URLs are stored as https://<host>.

Examples:
  lpdash domain ls --as editor@agency.io
  lpdash domain add name=Alpha url=alpha.example.com content1="Welcome" --as editor@agency.io
  lpdash domain edit <id> content2="Now with free shipping" --as editor@agency.io
  lpdash domain rm <id> --as editor@agency.io`,
}

var domainLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the domains you may access",
	Args:  cobra.NoArgs,
	RunE:  runDomainLs,
}

var domainAddCmd = &cobra.Command{
	Use:   "add field=value...",
	Short: "Create a domain (name and url are required)",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runDomainAdd,
}

var domainEditCmd = &cobra.Command{
	Use:   "edit <id> field=value...",
	Short: "Update fields of a domain immediately",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runDomainEdit,
}

var domainRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a domain and cancel its pending schedules",
	Args:  cobra.ExactArgs(1),
	RunE:  runDomainRm,
}

func init() {
	DomainCmd.AddCommand(domainLsCmd)
	DomainCmd.AddCommand(domainAddCmd)
	DomainCmd.AddCommand(domainEditCmd)
	DomainCmd.AddCommand(domainRmCmd)
}

func runDomainLs(cmd *cobra.Command, args []string) error {
	actor, err := actorFrom(cmd)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	domains, err := a.service.ListDomains(context.Background(), actor)
	if err != nil {
		return userError(err)
	}
	if len(domains) == 0 {
		pterm.Info.Println("No domains visible to " + actor)
		return nil
	}

	rows := [][]string{{"ID", "Name", "URL", "Last updated", "By"}}
	for _, d := range domains {
		rows = append(rows, []string{
			d.ID,
			d.Name,
			d.URL,
			d.LastUpdated.Local().Format("2006-01-02 15:04"),
			d.UpdatedBy,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runDomainAdd(cmd *cobra.Command, args []string) error {
	actor, err := actorFrom(cmd)
	if err != nil {
		return err
	}
	fields, err := parseAssignments(args)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.service.CreateDomain(context.Background(), actor, fields)
	if err != nil {
		return userError(err)
	}
	pterm.Success.Printf("Created %s (%s) at %s\n", d.Name, d.ID, d.URL)
	return nil
}

func runDomainEdit(cmd *cobra.Command, args []string) error {
	actor, err := actorFrom(cmd)
	if err != nil {
		return err
	}
	update, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	d, changes, err := a.service.EditDomain(context.Background(), actor, args[0], update)
	if err != nil {
		return userError(err)
	}
	if len(changes) == 0 {
		pterm.Info.Printf("%s unchanged\n", d.Name)
		return nil
	}
	pterm.Success.Printf("Updated %s\n", d.Name)
	printChanges(changes)
	return nil
}

func runDomainRm(cmd *cobra.Command, args []string) error {
	actor, err := actorFrom(cmd)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.DeleteDomain(context.Background(), actor, args[0]); err != nil {
		return userError(err)
	}
	pterm.Success.Printf("Deleted domain %s\n", args[0])
	return nil
}

// printChanges lists a diff the way the history view shows it.
func printChanges(changes history.Changes) {
	for _, fc := range history.FormatChanges(changes) {
		if fc.Old != "" {
			pterm.Printf("  %s %s\n    %s\n", pterm.Yellow(fc.Field+":"), fc.New, pterm.Gray(fc.Old))
			continue
		}
		pterm.Printf("  %s %s\n", pterm.Yellow(fc.Field+":"), fc.New)
	}
}

