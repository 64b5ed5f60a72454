package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sharanvkt/insane-dashboard-v2/access"
	"github.com/sharanvkt/insane-dashboard-v2/am"
	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
	dashtest "github.com/sharanvkt/insane-dashboard-v2/internal/testing"
)

func testTable() *access.Table {
	return access.MustTable(am.AccessConfig{
		Version: "1.0.0",
		Grants: []am.GrantConfig{
			{Identity: "alice@agency.io", Role: "editor", Scope: "specific", Domains: []string{"Alpha"}},
			{Identity: "root@agency.io", Role: "admin", Scope: "all"},
		},
	})
}

type recorderFixture struct {
	recorder *Recorder
	domains  *domain.Store
}

func newFixture(t *testing.T) recorderFixture {
	t.Helper()
	database := dashtest.CreateTestDB(t)
	domains := domain.NewStore(database)

	now := time.Now().UTC()
	for id, name := range map[string]string{"d1": "Alpha", "d2": "Beta"} {
		require.NoError(t, domains.Create(context.Background(), &domain.Domain{
			ID: id, Name: name, URL: "https://" + id + ".com",
			LastUpdated: now, UpdatedBy: "root@agency.io", CreatedAt: now,
		}))
	}

	return recorderFixture{
		recorder: NewRecorder(database, domains, testTable(), zaptest.NewLogger(t).Sugar()),
		domains:  domains,
	}
}

type captureListener struct{ entries []Entry }

func (c *captureListener) HistoryRecorded(e Entry) { c.entries = append(c.entries, e) }

func TestRecord_EmptyChangesWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.recorder.Record(ctx, "d1", Changes{}, "alice@agency.io", ActionUpdate)
	require.NoError(t, err)
	assert.Nil(t, entry)

	entries, err := f.recorder.Fetch(ctx, "d1", "alice@agency.io")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordAndFetch_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listener := &captureListener{}
	f.recorder.SetListener(listener)

	base := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	for i, value := range []string{"one", "two", "three"} {
		at := base.Add(time.Duration(i) * time.Minute)
		f.recorder.clock = func() time.Time { return at }
		_, err := f.recorder.Record(ctx, "d1", Changes{"content1": {Old: "", New: value}}, "alice@agency.io", ActionUpdate)
		require.NoError(t, err)
	}

	entries, err := f.recorder.Fetch(ctx, "d1", "alice@agency.io")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "three", entries[0].Changes["content1"].New)
	assert.Equal(t, "one", entries[2].Changes["content1"].New)
	assert.True(t, entries[0].UpdatedAt.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, ActionUpdate, entries[0].Action)

	assert.Len(t, listener.entries, 3)
}

func TestRecordAt_UsesGivenTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := time.Date(2026, 2, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	entry, err := f.recorder.RecordAt(ctx, at, "d1", Changes{"content1": {Old: "a", New: "b"}}, "root@agency.io", ActionScheduledUpdate)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, time.UTC, entry.UpdatedAt.Location())
	assert.True(t, entry.UpdatedAt.Equal(at))

	entries, err := f.recorder.Fetch(ctx, "d1", "root@agency.io")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].UpdatedAt.Equal(at))
}

func TestFetch_AccessDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.recorder.Record(ctx, "d2", Changes{"name": {Old: "B", New: "Beta"}}, "root@agency.io", ActionUpdate)
	require.NoError(t, err)

	entries, err := f.recorder.Fetch(ctx, "d2", "alice@agency.io")
	require.Error(t, err)
	assert.True(t, errors.IsAccessDenied(err))
	assert.Nil(t, entries)
	assert.Equal(t, "Access denied", errors.Message(err))

	entries, err = f.recorder.Fetch(ctx, "d2", "root@agency.io")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFetch_DomainNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.recorder.Fetch(context.Background(), "missing", "root@agency.io")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestFetch_OutlivesDomain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.recorder.Record(ctx, "d1", Changes{"content1": {New: "x"}}, "root@agency.io", ActionUpdate)
	require.NoError(t, err)
	require.NoError(t, f.domains.Delete(ctx, "d1"))

	// the rows survive even though the name can no longer be resolved
	rows, err := f.recorder.store.ListForDomain(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecord_PersistenceFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec("INSERT INTO domain_history").WillReturnError(sql.ErrConnDone)

	r := NewRecorder(mockDB, nil, nil, zaptest.NewLogger(t).Sugar())
	entry, err := r.Record(context.Background(), "d1", Changes{"url": {Old: "a", New: "b"}}, "x@y.z", ActionUpdate)
	require.Error(t, err)
	assert.Nil(t, entry)
	assert.True(t, errors.IsPersistenceError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordBestEffort_SwallowsFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec("INSERT INTO domain_history").WillReturnError(sql.ErrConnDone)

	core, logs := observer.New(zap.ErrorLevel)
	r := NewRecorder(mockDB, nil, nil, zap.New(core).Sugar())

	entry := r.RecordBestEffort(context.Background(), "d1", Changes{"url": {Old: "a", New: "b"}}, "x@y.z", ActionScheduledUpdate)
	assert.Nil(t, entry)

	require.Equal(t, 1, logs.Len())
	logged := logs.All()[0]
	assert.Equal(t, "Failed to record history", logged.Message)
	assert.Equal(t, "scheduled_update", logged.ContextMap()["action"])
}

func TestRecord_RejectsUnknownAction(t *testing.T) {
	f := newFixture(t)
	_, err := f.recorder.Record(context.Background(), "d1", Changes{"name": {New: "x"}}, "a", Action("rename"))
	assert.True(t, errors.IsValidationError(err))
}

func TestWithQuerier_JoinsTransaction(t *testing.T) {
	database := dashtest.CreateTestDB(t)
	ctx := context.Background()
	r := NewRecorder(database, nil, nil, zaptest.NewLogger(t).Sugar())
	listener := &captureListener{}
	r.SetListener(listener)

	tx, err := database.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = r.WithQuerier(tx).Record(ctx, "d1", Changes{"name": {New: "x"}}, "a", ActionDelete)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	rows, err := r.store.ListForDomain(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, listener.entries)
}
