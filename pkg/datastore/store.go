// Package datastore is a thin table-addressed accessor over sqlx: filtered select,
// insert, update-by-id, delete-by-id and upsert-by-conflict-key.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ErrInvalidIdentifier is returned when a table or column name is not a plain snake_case identifier.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Values maps column names to values for inserts and updates.
type Values map[string]interface{}

// Store executes table queries against a database handle.
type Store struct {
	db sqlx.ExtContext
}

// New wraps a database handle. Passing a *sqlx.Tx runs statements inside that transaction.
func New(db sqlx.ExtContext) *Store {
	return &Store{db: db}
}

// Select loads all rows matching q into dest (a pointer to a slice).
func (s *Store) Select(ctx context.Context, dest interface{}, q Query) error {
	query, args, err := q.SelectSQL()
	if err != nil {
		return err
	}
	if err := sqlx.SelectContext(ctx, s.db, dest, query, args...); err != nil {
		return fmt.Errorf("select %s: %w", q.Table, err)
	}
	return nil
}

// Get loads a single row matching q into dest. The error wraps sql.ErrNoRows when nothing matches.
func (s *Store) Get(ctx context.Context, dest interface{}, q Query) error {
	q.Limit = 1
	query, args, err := q.SelectSQL()
	if err != nil {
		return err
	}
	if err := sqlx.GetContext(ctx, s.db, dest, query, args...); err != nil {
		return fmt.Errorf("get %s: %w", q.Table, err)
	}
	return nil
}

// Count returns the number of rows matching q.
func (s *Store) Count(ctx context.Context, q Query) (int, error) {
	query, args, err := q.CountSQL()
	if err != nil {
		return 0, err
	}
	var total int
	if err := sqlx.GetContext(ctx, s.db, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Table, err)
	}
	return total, nil
}

// Insert adds one row.
func (s *Store) Insert(ctx context.Context, table string, values Values) error {
	query, args, err := insertSQL(table, values)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// UpdateByID updates the row with the given id and reports the number of affected rows.
func (s *Store) UpdateByID(ctx context.Context, table, id string, values Values) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	columns, err := sortedColumns(values)
	if err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("update %s: no values", table)
	}
	sets := make([]string, len(columns))
	args := make([]interface{}, 0, len(columns)+1)
	for i, c := range columns {
		args = append(args, values[c])
		sets[i] = fmt.Sprintf("%s = $%d", c, len(args))
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(sets, ", "), len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

// DeleteByID hard-deletes the row with the given id.
func (s *Store) DeleteByID(ctx context.Context, table, id string) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

// Upsert inserts values or, when conflictColumns collide, updates updateColumns.
// With no updateColumns every non-conflict column is updated.
func (s *Store) Upsert(ctx context.Context, table string, values Values, conflictColumns, updateColumns []string) error {
	query, args, err := upsertSQL(table, values, conflictColumns, updateColumns)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

func insertSQL(table string, values Values) (string, []interface{}, error) {
	if err := checkIdentifier(table); err != nil {
		return "", nil, err
	}
	columns, err := sortedColumns(values)
	if err != nil {
		return "", nil, err
	}
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("insert %s: no values", table)
	}
	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, c := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[c]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	return query, args, nil
}

func upsertSQL(table string, values Values, conflictColumns, updateColumns []string) (string, []interface{}, error) {
	if len(conflictColumns) == 0 {
		return "", nil, fmt.Errorf("upsert %s: conflict columns required", table)
	}
	insert, args, err := insertSQL(table, values)
	if err != nil {
		return "", nil, err
	}
	conflict := make(map[string]bool, len(conflictColumns))
	for _, c := range conflictColumns {
		if err := checkIdentifier(c); err != nil {
			return "", nil, err
		}
		if _, ok := values[c]; !ok {
			return "", nil, fmt.Errorf("upsert %s: conflict column %s has no value", table, c)
		}
		conflict[c] = true
	}
	if len(updateColumns) == 0 {
		all, _ := sortedColumns(values)
		for _, c := range all {
			if !conflict[c] && c != "id" && c != "created_at" {
				updateColumns = append(updateColumns, c)
			}
		}
	}
	sets := make([]string, 0, len(updateColumns))
	for _, c := range updateColumns {
		if err := checkIdentifier(c); err != nil {
			return "", nil, err
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	query := fmt.Sprintf("%s ON CONFLICT (%s) %s", insert, strings.Join(conflictColumns, ", "), action)
	return query, args, nil
}

func sortedColumns(values Values) ([]string, error) {
	columns := make([]string, 0, len(values))
	for c := range values {
		if err := checkIdentifier(c); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return columns, nil
}
