// Package domain holds the landing-page records managed through the dashboard
// and the sparse update type shared by immediate edits and scheduled updates.
package domain

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/sharanvkt/insane-dashboard-v2/errors"
)

// Field names a tracked, updatable attribute of a domain.
type Field string

const (
	FieldName     Field = "name"
	FieldURL      Field = "url"
	FieldContent1 Field = "content1"
	FieldContent2 Field = "content2"
	FieldContent3 Field = "content3"
	FieldContent4 Field = "content4"
)

// Fields is the canonical order of the tracked field set.
var Fields = []Field{FieldName, FieldURL, FieldContent1, FieldContent2, FieldContent3, FieldContent4}

// ParseField validates a field name.
func ParseField(name string) (Field, error) {
	f := Field(strings.TrimSpace(name))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", errors.NewValidationErrorf("Unknown field %q", name)
}

// Domain is one managed landing page.
type Domain struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Content1    *string   `json:"content1"`
	Content2    *string   `json:"content2"`
	Content3    *string   `json:"content3"`
	Content4    *string   `json:"content4"`
	LastUpdated time.Time `json:"lastUpdated"`
	UpdatedBy   string    `json:"updatedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Snapshot is the nullable view of the tracked fields used for diffs and merges.
type Snapshot map[Field]*string

// Snapshot returns the tracked fields of d.
func (d *Domain) Snapshot() Snapshot {
	name, u := d.Name, d.URL
	return Snapshot{
		FieldName:     &name,
		FieldURL:      &u,
		FieldContent1: d.Content1,
		FieldContent2: d.Content2,
		FieldContent3: d.Content3,
		FieldContent4: d.Content4,
	}
}

// SetSnapshot overwrites the tracked fields of d from s.
func (d *Domain) SetSnapshot(s Snapshot) {
	if v := s[FieldName]; v != nil {
		d.Name = *v
	}
	if v := s[FieldURL]; v != nil {
		d.URL = *v
	}
	d.Content1 = s[FieldContent1]
	d.Content2 = s[FieldContent2]
	d.Content3 = s[FieldContent3]
	d.Content4 = s[FieldContent4]
}

// Update is a sparse field set: a field is changed only if present.
type Update struct {
	values map[Field]string
}

// NewUpdate builds an update from field→value pairs, rejecting unknown fields.
func NewUpdate(values map[string]string) (Update, error) {
	u := Update{values: make(map[Field]string, len(values))}
	for name, v := range values {
		f, err := ParseField(name)
		if err != nil {
			return Update{}, err
		}
		u.values[f] = v
	}
	return u, nil
}

// Set marks f as present with value v.
func (u *Update) Set(f Field, v string) {
	if u.values == nil {
		u.values = make(map[Field]string)
	}
	u.values[f] = v
}

// Get returns the value for f and whether it is present.
func (u Update) Get(f Field) (string, bool) {
	v, ok := u.values[f]
	return v, ok
}

// IsEmpty reports whether no field is present.
func (u Update) IsEmpty() bool {
	return len(u.values) == 0
}

// Fields lists the present fields in canonical order.
func (u Update) Fields() []Field {
	var out []Field
	for _, f := range Fields {
		if _, ok := u.values[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Map returns the update as plain field→value pairs.
func (u Update) Map() map[string]string {
	out := make(map[string]string, len(u.values))
	for f, v := range u.values {
		out[string(f)] = v
	}
	return out
}

// Apply returns s with the present fields replaced. s is not modified.
func (u Update) Apply(s Snapshot) Snapshot {
	merged := make(Snapshot, len(Fields))
	for f, v := range s {
		merged[f] = v
	}
	for f, v := range u.values {
		value := v
		merged[f] = &value
	}
	return merged
}

// Normalize trims name, canonicalizes url and rejects an empty name.
func (u Update) Normalize() (Update, error) {
	out := Update{values: make(map[Field]string, len(u.values))}
	for f, v := range u.values {
		switch f {
		case FieldName:
			v = strings.TrimSpace(v)
			if v == "" {
				return Update{}, errors.NewValidationError("Domain name is required")
			}
		case FieldURL:
			canonical, err := CanonicalURL(v)
			if err != nil {
				return Update{}, err
			}
			v = canonical
		}
		out.values[f] = v
	}
	return out, nil
}

// MarshalJSON encodes the update as a field→value object.
func (u Update) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Map())
}

// UnmarshalJSON decodes a field→value object, rejecting unknown fields.
func (u *Update) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.NewValidationErrorf("Invalid update set: %v", err)
	}
	parsed, err := NewUpdate(raw)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// CanonicalURL reduces user input to https://<host>.
// Scheme, path and query are dropped and the host is lower-cased.
func CanonicalURL(input string) (string, error) {
	s := strings.TrimSpace(input)
	lower := strings.ToLower(s)
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(lower, scheme) {
			s = s[len(scheme):]
			break
		}
	}
	if s == "" {
		return "", errors.NewValidationError("Domain URL is required")
	}

	parsed, err := url.Parse("https://" + s)
	if err != nil || parsed.Host == "" {
		return "", errors.NewValidationErrorf("Invalid domain URL %q", input)
	}
	host := strings.ToLower(parsed.Host)
	if strings.ContainsAny(host, " \t") {
		return "", errors.NewValidationErrorf("Invalid domain URL %q", input)
	}
	return "https://" + host, nil
}
