package commands

import (
	"context"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sharanvkt/insane-dashboard-v2/dashboard"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/pulse/schedule"
	"github.com/sharanvkt/insane-dashboard-v2/sym"
)

// ScheduleCmd groups the scheduled update commands
var ScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: sym.Pulse + " Manage scheduled domain updates",
	Long: sym.Pulse + ` schedule — Manage scheduled domain updates

A schedule applies field=value updates to a domain at a future time, once or
on a daily, weekly or monthly recurrence. Schedules are applied by
` + "`lpdash pulse tick`" + ` or the ticker inside ` + "`lpdash server`" + `.

Examples:
  lpdash schedule add <domain-id> --at 2026-05-01T09:00:00Z content1="Spring sale"
  lpdash schedule add <domain-id> --at 2026-05-04T08:00:00Z --every weekly --interval 2 content3="Fortnightly deal"
  lpdash schedule ls <domain-id>
  lpdash schedule upcoming
  lpdash schedule cancel <schedule-id>`,
}

var scheduleLsCmd = &cobra.Command{
	Use:   "ls <domain-id>",
	Short: "List pending schedules of a domain",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleLs,
}

var scheduleUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List pending schedules across the domains you may access",
	Args:  cobra.NoArgs,
	RunE:  runScheduleUpcoming,
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <domain-id> field=value...",
	Short: "Schedule an update",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runScheduleAdd,
}

var scheduleCancelCmd = &cobra.Command{
	Use:   "cancel <schedule-id>",
	Short: "Cancel a pending schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleCancel,
}

var (
	scheduleAt       string
	scheduleIn       time.Duration
	scheduleEvery    string
	scheduleInterval int
)

func init() {
	scheduleAddCmd.Flags().StringVar(&scheduleAt, "at", "", "Execution time (RFC 3339, e.g. 2026-05-01T09:00:00Z)")
	scheduleAddCmd.Flags().DurationVar(&scheduleIn, "in", 0, "Execute after this delay instead of --at (e.g. 90m)")
	scheduleAddCmd.Flags().StringVar(&scheduleEvery, "every", "", "Recur daily, weekly or monthly (omit for a one-time schedule)")
	scheduleAddCmd.Flags().IntVar(&scheduleInterval, "interval", 1, "Recurrence interval, e.g. 2 with --every weekly")

	ScheduleCmd.AddCommand(scheduleLsCmd)
	ScheduleCmd.AddCommand(scheduleUpcomingCmd)
	ScheduleCmd.AddCommand(scheduleAddCmd)
	ScheduleCmd.AddCommand(scheduleCancelCmd)
}

// buildScheduleRequest turns the add flags and assignments into a request.
func buildScheduleRequest(at string, in time.Duration, every string, interval int, assignments []string, now time.Time) (dashboard.ScheduleRequest, error) {
	var req dashboard.ScheduleRequest

	switch {
	case at != "" && in != 0:
		return req, errors.New("use either --at or --in, not both")
	case at != "":
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return req, errors.Wrapf(err, "invalid --at %q (want RFC 3339)", at)
		}
		req.ExecuteAt = t.UTC()
	case in != 0:
		req.ExecuteAt = now.Add(in).UTC()
	default:
		return req, errors.New("an execution time is required: pass --at or --in")
	}

	req.Kind = schedule.KindOnce
	if every != "" {
		req.Kind = schedule.KindRecurring
		req.Recurrence = &schedule.Recurrence{
			Unit:     schedule.Unit(strings.ToLower(strings.TrimSpace(every))),
			Interval: interval,
		}
	}

	updates, err := parseAssignments(assignments)
	if err != nil {
		return req, err
	}
	req.Updates = updates
	return req, nil
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	actor, err := actorFrom(cmd)
	if err != nil {
		return err
	}
	req, err := buildScheduleRequest(scheduleAt, scheduleIn, scheduleEvery, scheduleInterval, args[1:], time.Now())
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.service.ScheduleUpdate(context.Background(), actor, args[0], req)
	if err != nil {
		return userError(err)
	}
	pterm.Success.Printf("Scheduled %s for %s (%s)\n", u.ID, u.ExecuteAt.Local().Format("2006-01-02 15:04"), u.Recurrence.String())
	return nil
}

func runScheduleLs(cmd *cobra.Command, args []string) error {
	actor, err := actorFrom(cmd)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	schedules, err := a.service.ListSchedules(context.Background(), actor, args[0])
	if err != nil {
		return userError(err)
	}
	if len(schedules) == 0 {
		pterm.Info.Println("No pending schedules")
		return nil
	}

	rows := [][]string{{"ID", "Executes", "Recurrence", "Fields", "Created by"}}
	for _, u := range schedules {
		rows = append(rows, scheduleRow(u))
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runScheduleUpcoming(cmd *cobra.Command, args []string) error {
	actor, err := actorFrom(cmd)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	upcoming, err := a.service.UpcomingSchedules(context.Background(), actor)
	if err != nil {
		return userError(err)
	}
	if len(upcoming) == 0 {
		pterm.Info.Println("Nothing scheduled")
		return nil
	}

	rows := [][]string{{"Domain", "ID", "Executes", "Recurrence", "Fields", "Created by"}}
	for _, u := range upcoming {
		rows = append(rows, append([]string{u.DomainName}, scheduleRow(u.ScheduledUpdate)...))
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runScheduleCancel(cmd *cobra.Command, args []string) error {
	actor, err := actorFrom(cmd)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.service.CancelSchedule(context.Background(), actor, args[0])
	if err != nil {
		return userError(err)
	}
	if u.Status != schedule.StatusCancelled {
		pterm.Warning.Printf("Schedule %s was already %s\n", u.ID, u.Status)
		return nil
	}
	pterm.Success.Printf("Cancelled schedule %s\n", u.ID)
	return nil
}

func scheduleRow(u *schedule.ScheduledUpdate) []string {
	fields := make([]string, 0, len(u.Updates.Fields()))
	for _, f := range u.Updates.Fields() {
		fields = append(fields, string(f))
	}
	return []string{
		u.ID,
		u.ExecuteAt.Local().Format("2006-01-02 15:04"),
		u.Recurrence.String(),
		strings.Join(fields, ", "),
		u.CreatedBy,
	}
}

