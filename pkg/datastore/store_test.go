package datastore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type classRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

func newStoreMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return New(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestSelectSQLBuildsFiltersInOrder(t *testing.T) {
	q := From("scores", "id", "average").
		Where(Eq("period_id", "p1"), In("student_id", []string{"a", "b"}), ILike("note", "juz")).
		Range("created_at", "2024-01-01", nil).
		OrderBy("average", true).
		Page(20, 40)

	query, args, err := q.SelectSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, average FROM scores WHERE period_id = $1 AND student_id = ANY($2) AND note ILIKE $3 AND created_at >= $4 ORDER BY average DESC LIMIT 20 OFFSET 40", query)
	assert.Len(t, args, 4)
	assert.Equal(t, "%juz%", args[2])
}

func TestSelectSQLStrictComparisons(t *testing.T) {
	query, args, err := From("budget_items").Where(Gt("amount", 0), Lt("created_at", "2024-07-01"), Neq("status", "VOID")).SelectSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM budget_items WHERE amount > $1 AND created_at < $2 AND status <> $3", query)
	assert.Equal(t, []interface{}{0, "2024-07-01", "VOID"}, args)
}

func TestSelectSQLEmptyInMatchesNothing(t *testing.T) {
	query, args, err := From("students").Where(In("id", []string{})).SelectSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM students WHERE 1=0", query)
	assert.Empty(t, args)
}

func TestSelectSQLRejectsInjectedIdentifiers(t *testing.T) {
	_, _, err := From("students; DROP TABLE students").SelectSQL()
	assert.True(t, errors.Is(err, ErrInvalidIdentifier))

	_, _, err = From("students").OrderBy("name DESC, (SELECT 1)", false).SelectSQL()
	assert.True(t, errors.Is(err, ErrInvalidIdentifier))
}

func TestStoreSelectAndCount(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM classes WHERE name ILIKE $1 ORDER BY name ASC")).
		WithArgs("%a%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("c1", "Kelas A").AddRow("c2", "Kelas B"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM classes WHERE name ILIKE $1")).
		WithArgs("%a%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	q := From("classes", "id", "name").Where(ILike("name", "a")).OrderBy("name", false)
	var rows []classRow
	require.NoError(t, store.Select(context.Background(), &rows, q))
	total, err := store.Count(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, rows, 2)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetNoRows(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM classes WHERE id = $1 LIMIT 1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	var row classRow
	err := store.Get(context.Background(), &row, From("classes").Where(Eq("id", "missing")))
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreInsertUpdateDelete(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO classes (id, name) VALUES ($1, $2)")).
		WithArgs("c1", "Kelas A").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET name = $1 WHERE id = $2")).
		WithArgs("Kelas B", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classes WHERE id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, "classes", Values{"name": "Kelas A", "id": "c1"}))
	affected, err := store.UpdateByID(ctx, "classes", "c1", Values{"name": "Kelas B"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	affected, err = store.DeleteByID(ctx, "classes", "c1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpsertUpdatesNonKeyColumns(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendances (date, id, session, status, student_id) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (student_id, date, session) DO UPDATE SET status = EXCLUDED.status")).
		WithArgs("2024-08-01", "a1", "SUBUH", "HADIR", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Upsert(context.Background(), "attendances", Values{
		"id":         "a1",
		"student_id": "s1",
		"date":       "2024-08-01",
		"session":    "SUBUH",
		"status":     "HADIR",
	}, []string{"student_id", "date", "session"}, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpsertRequiresConflictValues(t *testing.T) {
	store, _, cleanup := newStoreMock(t)
	defer cleanup()

	err := store.Upsert(context.Background(), "attendances", Values{"id": "a1"}, []string{"student_id"}, nil)
	assert.Error(t, err)
}
