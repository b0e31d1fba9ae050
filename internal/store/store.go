package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/laguz/internal/apperr"
)

// Row is one record to persist: field name to scalar value (string, int64,
// float64, or nil).
type Row map[string]any

// Action names a persistence operation for declarative loader specs.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionUpsert Action = "upsert"
)

// Geography is the persistence interface consumed by loaders and the query
// service. Callers depend on it rather than on *DB to allow test doubles.
type Geography interface {
	Do(action Action, table string, fields, keyFields []string, rows []Row) error
	Insert(table string, fields []string, rows []Row) error
	Update(table string, fields, keyFields []string, rows []Row) error
	Upsert(table string, fields, keyFields []string, rows []Row) error
	Select(table string, fields []string) ([][]any, error)
	SelectOne(table string, fields, whereFields []string, whereValues []any) ([]any, error)
	Close() error
}

var _ Geography = (*DB)(nil)

// identRe restricts table and field names to plain identifiers. Names come
// from in-code mapping tables, never user input, but they are interpolated
// into SQL text so they are still checked.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkIdents(names ...string) error {
	for _, n := range names {
		if !identRe.MatchString(n) {
			return fmt.Errorf("store: invalid identifier %q", n)
		}
	}
	return nil
}

// Do dispatches a named write action. Unknown actions are a programming
// error and return apperr.ErrUnknownAction.
func (db *DB) Do(action Action, table string, fields, keyFields []string, rows []Row) error {
	switch action {
	case ActionInsert:
		return db.Insert(table, fields, rows)
	case ActionUpdate:
		return db.Update(table, fields, keyFields, rows)
	case ActionUpsert:
		return db.Upsert(table, fields, keyFields, rows)
	}
	return fmt.Errorf("store: action %q: %w", action, apperr.ErrUnknownAction)
}

// Insert inserts rows, ignoring conflicts on the table's uniqueness
// constraint: no error, no overwrite. Re-running over partially loaded
// data is therefore safe. The whole batch is one transaction.
func (db *DB) Insert(table string, fields []string, rows []Row) error {
	if err := checkIdents(append([]string{table}, fields...)...); err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(fields, ", "),
		placeholders(len(fields)))
	return db.execBatch(query, fields, nil, rows)
}

// Update updates rows matched by keyFields. Rows whose key matches nothing
// are silently skipped; Update never creates.
func (db *DB) Update(table string, fields, keyFields []string, rows []Row) error {
	if len(keyFields) == 0 {
		return fmt.Errorf("store: update %s: no key fields", table)
	}
	if err := checkIdents(append(append([]string{table}, fields...), keyFields...)...); err != nil {
		return err
	}
	sets := make([]string, len(fields))
	for i, f := range fields {
		sets[i] = f + " = ?"
	}
	wheres := make([]string, len(keyFields))
	for i, f := range keyFields {
		wheres[i] = f + " = ?"
	}
	query := fmt.Sprintf("UPDATE OR IGNORE %s SET %s WHERE %s",
		table,
		strings.Join(sets, ", "),
		strings.Join(wheres, " AND "))
	return db.execBatch(query, fields, keyFields, rows)
}

// Upsert applies Insert then Update so the row exists and carries the
// current values of this caller's column subset. Loaders owning disjoint
// subsets enrich one logical row without clobbering columns they do not
// own.
func (db *DB) Upsert(table string, fields, keyFields []string, rows []Row) error {
	if err := db.Insert(table, fields, rows); err != nil {
		return err
	}
	return db.Update(table, fields, keyFields, rows)
}

// Select returns every row of table projected onto fields, each row as a
// tuple in the requested field order.
func (db *DB) Select(table string, fields []string) ([][]any, error) {
	if err := checkIdents(append([]string{table}, fields...)...); err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(fields, ", "), table)
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("store: select %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		tuple, err := scanTuple(rows, len(fields))
		if err != nil {
			return nil, fmt.Errorf("store: select %s: %w", table, err)
		}
		out = append(out, tuple)
	}
	return out, rows.Err()
}

// SelectOne returns the first row matching the equality filter, or
// apperr.ErrNotFound when nothing matches.
func (db *DB) SelectOne(table string, fields, whereFields []string, whereValues []any) ([]any, error) {
	if err := checkIdents(append(append([]string{table}, fields...), whereFields...)...); err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(fields, ", "), table)
	if len(whereFields) > 0 {
		conds := make([]string, len(whereFields))
		for i, f := range whereFields {
			conds[i] = f + " = ?"
		}
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " LIMIT 1"

	rows, err := db.conn.Query(query, whereValues...)
	if err != nil {
		return nil, fmt.Errorf("store: select one %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, apperr.ErrNotFound
	}
	tuple, err := scanTuple(rows, len(fields))
	if err != nil {
		return nil, fmt.Errorf("store: select one %s: %w", table, err)
	}
	return tuple, nil
}

// execBatch runs query once per row inside a single transaction: either
// every row is committed or none of it is. Parameter values are the row's
// fields in order, followed by its keyFields when present.
func (db *DB) execBatch(query string, fields, keyFields []string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, 0, len(fields)+len(keyFields))
		for _, f := range fields {
			args = append(args, row[f])
		}
		for _, f := range keyFields {
			args = append(args, row[f])
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("store: exec: %w", err)
		}
	}

	return tx.Commit()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// scanTuple scans the current row into a value tuple, normalising []byte
// column values to string.
func scanTuple(rows *sql.Rows, n int) ([]any, error) {
	tuple := make([]any, n)
	ptrs := make([]any, n)
	for i := range tuple {
		ptrs[i] = &tuple[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	for i, v := range tuple {
		if b, ok := v.([]byte); ok {
			tuple[i] = string(b)
		}
	}
	return tuple, nil
}
