// Package history keeps the append-only audit trail of domain changes.
//
// Every direct edit, scheduled application and lifecycle event (create,
// delete, schedule created/cancelled) produces one Entry holding the
// field-level differences it caused. Entries are never edited or deleted.
package history

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/internal/util"
)

// Action classifies what produced an entry.
type Action string

const (
	ActionCreate          Action = "create"
	ActionUpdate          Action = "update"
	ActionDelete          Action = "delete"
	ActionScheduleCreate  Action = "schedule_create"
	ActionScheduleCancel  Action = "schedule_cancel"
	ActionScheduledUpdate Action = "scheduled_update"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete,
		ActionScheduleCreate, ActionScheduleCancel, ActionScheduledUpdate:
		return true
	}
	return false
}

// Pseudo-fields carrying JSON payloads for non-field actions.
const (
	FieldCreation          = "creation"
	FieldDeletion          = "deletion"
	FieldScheduleCreated   = "schedule_created"
	FieldScheduleCancelled = "schedule_cancelled"
)

// Change is the before/after value of one field.
type Change struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Changes maps a field (or pseudo-field) name to its change.
type Changes map[string]Change

// Entry is one immutable history record.
type Entry struct {
	ID        string    `json:"id"`
	DomainID  string    `json:"domainId"`
	Changes   Changes   `json:"changes"`
	UpdatedBy string    `json:"updatedBy"`
	Action    Action    `json:"action"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ComputeDiff compares the tracked fields of two snapshots.
// Values are trimmed and nil counts as "", so whitespace-only and
// nil-vs-empty differences are not changes.
func ComputeDiff(before, after domain.Snapshot) Changes {
	changes := Changes{}
	for _, f := range domain.Fields {
		oldValue := normalize(before[f])
		newValue := normalize(after[f])
		if oldValue != newValue {
			changes[string(f)] = Change{Old: oldValue, New: newValue}
		}
	}
	return changes
}

func normalize(v *string) string {
	return strings.TrimSpace(util.Deref(v))
}

// PayloadChange builds a pseudo-field change whose side holds v encoded as JSON.
// onNew selects whether the payload goes in New (creation, schedule events)
// or Old (deletion).
func PayloadChange(field string, v interface{}, onNew bool) (Changes, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	c := Change{Old: string(data)}
	if onNew {
		c = Change{New: string(data)}
	}
	return Changes{field: c}, nil
}

// DomainPayload is the creation/deletion payload.
type DomainPayload struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Content1 string `json:"content1,omitempty"`
	Content2 string `json:"content2,omitempty"`
	Content3 string `json:"content3,omitempty"`
	Content4 string `json:"content4,omitempty"`
}

// NewDomainPayload captures the tracked fields of d.
func NewDomainPayload(d *domain.Domain) DomainPayload {
	return DomainPayload{
		Name:     d.Name,
		URL:      d.URL,
		Content1: normalize(d.Content1),
		Content2: normalize(d.Content2),
		Content3: normalize(d.Content3),
		Content4: normalize(d.Content4),
	}
}

// SchedulePayload is the schedule_created/schedule_cancelled payload.
type SchedulePayload struct {
	Type       string    `json:"type"`
	ExecuteAt  time.Time `json:"executeAt"`
	Updates    string    `json:"updates"`
	Recurrence string    `json:"recurrence,omitempty"`
}
