package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/internal/util"
)

func TestComputeDiff_IgnoresWhitespaceAndNil(t *testing.T) {
	before := domain.Snapshot{
		domain.FieldName:     util.Ptr("Alpha"),
		domain.FieldURL:      util.Ptr("https://a.com"),
		domain.FieldContent1: nil,
		domain.FieldContent2: util.Ptr("  hello "),
		domain.FieldContent3: util.Ptr(""),
	}
	after := domain.Snapshot{
		domain.FieldName:     util.Ptr("Alpha "),
		domain.FieldURL:      util.Ptr("https://a.com"),
		domain.FieldContent1: util.Ptr(""),
		domain.FieldContent2: util.Ptr("hello"),
		domain.FieldContent3: nil,
		domain.FieldContent4: util.Ptr("   "),
	}

	assert.Empty(t, ComputeDiff(before, after))
	assert.Empty(t, ComputeDiff(after, before))
}

func TestComputeDiff_ReportsTrimmedValues(t *testing.T) {
	before := domain.Snapshot{domain.FieldContent1: util.Ptr("X")}
	after := domain.Snapshot{domain.FieldContent1: util.Ptr(" Y "), domain.FieldContent4: util.Ptr("new")}

	changes := ComputeDiff(before, after)
	assert.Equal(t, Changes{
		"content1": {Old: "X", New: "Y"},
		"content4": {Old: "", New: "new"},
	}, changes)
}

func TestComputeDiff_IdenticalSnapshots(t *testing.T) {
	d := &domain.Domain{Name: "A", URL: "https://a.com", Content1: util.Ptr("x")}
	assert.Empty(t, ComputeDiff(d.Snapshot(), d.Snapshot()))
}

func TestPayloadChange(t *testing.T) {
	d := &domain.Domain{Name: "A", URL: "https://a.com", Content2: util.Ptr("two")}

	created, err := PayloadChange(FieldCreation, NewDomainPayload(d), true)
	require.NoError(t, err)
	assert.Empty(t, created[FieldCreation].Old)
	assert.JSONEq(t, `{"name":"A","url":"https://a.com","content2":"two"}`, created[FieldCreation].New)

	deleted, err := PayloadChange(FieldDeletion, NewDomainPayload(d), false)
	require.NoError(t, err)
	assert.Empty(t, deleted[FieldDeletion].New)
	assert.NotEmpty(t, deleted[FieldDeletion].Old)
}

func TestFormatChanges(t *testing.T) {
	d := &domain.Domain{Name: "Spring", URL: "https://spring.example.com", Content1: util.Ptr("Big sale")}
	creation, err := PayloadChange(FieldCreation, NewDomainPayload(d), true)
	require.NoError(t, err)

	changes := Changes{
		"content1":    {Old: "X", New: "Y"},
		"name":        {Old: "A", New: "B"},
		FieldCreation: creation[FieldCreation],
	}

	formatted := FormatChanges(changes)
	require.Len(t, formatted, 3)
	assert.Equal(t, FormattedChange{Field: "Domain Name", Old: "A", New: "B"}, formatted[0])
	assert.Equal(t, FormattedChange{Field: "Content 1", Old: "X", New: "Y"}, formatted[1])
	assert.Equal(t, "Initial Domain Data", formatted[2].Field)
	assert.Equal(t, `Name: Spring • URL: https://spring.example.com • content1: "Big sale"`, formatted[2].New)
}

func TestFormatChanges_SchedulePayload(t *testing.T) {
	at := time.Date(2026, 5, 1, 14, 30, 0, 0, time.UTC)
	created, err := PayloadChange(FieldScheduleCreated, SchedulePayload{
		Type:       "recurring",
		ExecuteAt:  at,
		Updates:    "content1",
		Recurrence: "every 2 weeks",
	}, true)
	require.NoError(t, err)

	formatted := FormatChanges(created)
	require.Len(t, formatted, 1)
	assert.Equal(t, "Schedule Details", formatted[0].Field)
	assert.Empty(t, formatted[0].Old)
	assert.Equal(t, "Type: Recurring • Execute: 2026-05-01 at 14:30 • Updates: content1 • Recurrence: every 2 weeks", formatted[0].New)
}

func TestFormatChanges_FallsBackOnBadPayload(t *testing.T) {
	formatted := FormatChanges(Changes{FieldDeletion: {Old: "{not json", New: ""}})
	require.Len(t, formatted, 1)
	assert.Equal(t, FormattedChange{Field: "Deletion Details", Old: "{not json"}, formatted[0])
}

func TestFormatDomainInfo_TruncatesContent(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "x"
	}
	info := formatDomainInfo(DomainPayload{Content3: long})
	assert.Contains(t, info, "...")
	assert.Len(t, info, len(`content3: ""`)+contentPreviewLen+3)
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-1 * time.Minute), "1 minute ago"},
		{now.Add(-5 * time.Minute), "5 minutes ago"},
		{now.Add(-2 * time.Hour), "2 hours ago"},
		{now.Add(-24 * time.Hour), "1 day ago"},
		{now.Add(-29 * 24 * time.Hour), "29 days ago"},
		{now.Add(-40 * 24 * time.Hour), "2026-05-06"},
		{now.Add(10 * time.Minute), "in 10 minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeTime(now, tt.t))
		})
	}
}
