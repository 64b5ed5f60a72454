package history

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sharanvkt/insane-dashboard-v2/domain"
)

// FormattedChange is a change prepared for display.
type FormattedChange struct {
	Field string `json:"field"`
	Old   string `json:"old,omitempty"`
	New   string `json:"new"`
}

var fieldDisplayNames = map[string]string{
	string(domain.FieldName):     "Domain Name",
	string(domain.FieldURL):      "URL",
	string(domain.FieldContent1): "Content 1",
	string(domain.FieldContent2): "Content 2",
	string(domain.FieldContent3): "Content 3",
	string(domain.FieldContent4): "Content 4",
}

// FormatChanges renders changes for display: tracked fields first in
// canonical order, then pseudo-fields by name. Pseudo-field payloads are
// decoded into one summary line; undecodable payloads are shown raw.
func FormatChanges(changes Changes) []FormattedChange {
	var out []FormattedChange
	for _, f := range domain.Fields {
		if c, ok := changes[string(f)]; ok {
			out = append(out, FormattedChange{Field: fieldDisplayNames[string(f)], Old: c.Old, New: c.New})
		}
	}

	var rest []string
	for field := range changes {
		if _, tracked := fieldDisplayNames[field]; !tracked {
			rest = append(rest, field)
		}
	}
	sort.Strings(rest)

	for _, field := range rest {
		out = append(out, formatPseudoField(field, changes[field]))
	}
	return out
}

func formatPseudoField(field string, c Change) FormattedChange {
	switch field {
	case FieldScheduleCreated, FieldScheduleCancelled:
		label := "Schedule Details"
		if field == FieldScheduleCancelled {
			label = "Cancelled Schedule"
		}
		raw := c.New
		if raw == "" {
			raw = c.Old
		}
		var p SchedulePayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return FormattedChange{Field: label, Old: c.Old, New: c.New}
		}
		old := ""
		if c.Old != "" {
			old = "Previous: " + c.Old
		}
		return FormattedChange{Field: label, Old: old, New: formatScheduleInfo(p)}

	case FieldCreation:
		var p DomainPayload
		if err := json.Unmarshal([]byte(c.New), &p); err != nil {
			return FormattedChange{Field: "Creation Details", Old: c.Old, New: c.New}
		}
		return FormattedChange{Field: "Initial Domain Data", New: formatDomainInfo(p)}

	case FieldDeletion:
		var p DomainPayload
		if err := json.Unmarshal([]byte(c.Old), &p); err != nil {
			return FormattedChange{Field: "Deletion Details", Old: c.Old, New: c.New}
		}
		return FormattedChange{Field: "Deleted Domain Data", Old: formatDomainInfo(p), New: "DELETED"}
	}

	label := field
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	return FormattedChange{Field: label, Old: c.Old, New: c.New}
}

func formatScheduleInfo(p SchedulePayload) string {
	var parts []string
	switch p.Type {
	case "once":
		parts = append(parts, "Type: One-time")
	case "":
	default:
		parts = append(parts, "Type: Recurring")
	}
	if !p.ExecuteAt.IsZero() {
		parts = append(parts, "Execute: "+p.ExecuteAt.Format("2006-01-02")+" at "+p.ExecuteAt.Format("15:04"))
	}
	if p.Updates != "" {
		parts = append(parts, "Updates: "+p.Updates)
	}
	if p.Recurrence != "" && p.Recurrence != "none" {
		parts = append(parts, "Recurrence: "+p.Recurrence)
	}
	return strings.Join(parts, " • ")
}

const contentPreviewLen = 50

func formatDomainInfo(p DomainPayload) string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, "Name: "+p.Name)
	}
	if p.URL != "" {
		parts = append(parts, "URL: "+p.URL)
	}
	for _, c := range []struct{ field, value string }{
		{"content1", p.Content1},
		{"content2", p.Content2},
		{"content3", p.Content3},
		{"content4", p.Content4},
	} {
		if c.value == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %q", c.field, preview(c.value)))
	}
	return strings.Join(parts, " • ")
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= contentPreviewLen {
		return s
	}
	return string(r[:contentPreviewLen]) + "..."
}

// RelativeTime describes t relative to now ("just now", "5 minutes ago",
// "in 2 hours"). Anything 30 days or more away is shown as a date.
func RelativeTime(now, t time.Time) string {
	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}

	var amount int
	var unit string
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		amount, unit = int(d/time.Minute), "minute"
	case d < 24*time.Hour:
		amount, unit = int(d/time.Hour), "hour"
	case d < 30*24*time.Hour:
		amount, unit = int(d/(24*time.Hour)), "day"
	default:
		return t.Format("2006-01-02")
	}

	if amount > 1 {
		unit += "s"
	}
	if future {
		return fmt.Sprintf("in %d %s", amount, unit)
	}
	return fmt.Sprintf("%d %s ago", amount, unit)
}
