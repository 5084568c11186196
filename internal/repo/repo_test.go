package repo

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"call-intake/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var callerRowColumns = []string{"id", "phone_number", "name", "course", "city", "state", "user_type", "calls", "created_at", "updated_at"}

func TestPostgresFindByPhoneNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .* FROM callers").
		WithArgs("+919800000001").
		WillReturnError(pgx.ErrNoRows)

	r := newPostgres(mock, "", logging.Discard())
	_, err = r.FindByPhone(context.Background(), "+919800000001")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertCall(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	history := `[{"id":"c1","date":"2026-10-15T09:30:00Z","summary":"asked about fees","callStatus":"Connected-IB","leadStatus":"Interested","remark":"call back","followUpDate":"N/A","followUpTime":"N/A","transcript":""}]`

	mock.ExpectQuery("INSERT INTO callers .* ON CONFLICT \\(phone_number\\) DO UPDATE").
		WithArgs(pgxmock.AnyArg(), "+919800000001", "Ravi Kumar", "Unknown", "Pune", "Maharashtra", "Unknown", pgxmock.AnyArg(), at).
		WillReturnRows(pgxmock.NewRows(callerRowColumns).
			AddRow("id-1", "+919800000001", "Ravi Kumar", "Unknown", "Pune", "Maharashtra", "Unknown", history, at, at))

	r := newPostgres(mock, "", logging.Discard())
	c, err := r.UpsertCall(context.Background(), CallerUpdate{
		PhoneNumber: "+919800000001",
		Profile:     Profile{Name: "Ravi Kumar", City: "Pune", State: "Maharashtra"},
		Call:        CallEntry{ID: "c1", Summary: "asked about fees", CallStatus: "Connected-IB", LeadStatus: "Interested"},
		At:          at,
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", c.ID)
	assert.Equal(t, "Ravi Kumar", c.Name)
	require.Len(t, c.Calls, 1)
	assert.Equal(t, "asked about fees", c.Calls[0].Summary)
	assert.True(t, c.IsNew())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertCallRequiresPhone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := newPostgres(mock, "", logging.Discard())
	_, err = r.UpsertCall(context.Background(), CallerUpdate{PhoneNumber: "  "})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertCallWrapsErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery("INSERT INTO callers").WillReturnError(boom)

	r := newPostgres(mock, "", logging.Discard())
	_, err = r.UpsertCall(context.Background(), CallerUpdate{PhoneNumber: "+919800000001"})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMigrationsRunsTopLevelFilesInOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	files := fstest.MapFS{
		"002_view.sql":        {Data: []byte("CREATE OR REPLACE VIEW v AS SELECT 1;")},
		"001_table.sql":       {Data: []byte("CREATE TABLE IF NOT EXISTS t (id TEXT);")},
		"sqlite/001_init.sql": {Data: []byte("CREATE TABLE lite (id TEXT);")},
	}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS t").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("CREATE OR REPLACE VIEW v").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCommit()

	require.NoError(t, ApplyMigrations(context.Background(), mock, files))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMigrationsRollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	files := fstest.MapFS{
		"001_table.sql": {Data: []byte("CREATE TABLE broken (")},
	}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE broken").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err = ApplyMigrations(context.Background(), mock, files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_table.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeepKnownSQL(t *testing.T) {
	got := keepKnownSQL("callers", "excluded", Profile{}.fields()[:1])
	assert.Equal(t, "name = CASE WHEN excluded.name IN ('', 'Unknown', 'N/A', 'Uncertain') THEN callers.name ELSE excluded.name END", got)
}
