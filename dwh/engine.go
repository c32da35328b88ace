// Package dwh wraps a Postgres connection behind the narrow storage contract
// the pipeline depends on: column introspection, row fetches as tagged value
// maps, and bulk inserts.
package dwh

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/clinregistry/dwhetl/rowmap"
)

// Store is the contract both the warehouse and the registry engine satisfy.
type Store interface {
	GetColumns(table string) ([]string, error)
	GetNotNullColumns(table string) ([]string, error)
	FetchRows(query string, args ...interface{}) (*ResultSet, error)
	SaveRows(rows []rowmap.Row, table string) error
	Dispose() error
}

// ResultSet holds fetched rows together with their column order.
type ResultSet struct {
	Columns []string
	Rows    []rowmap.Row
}

type columnMeta struct {
	Name     string `db:"column_name"`
	Nullable string `db:"is_nullable"`
}

// Engine is the sqlx-backed Store implementation. Column metadata is cached
// per table name for the life of the process.
type Engine struct {
	db      *sqlx.DB
	log     zerolog.Logger
	columns map[string][]columnMeta
}

// Connect opens a Postgres connection and returns an Engine around it.
func Connect(dsn string, log zerolog.Logger) (*Engine, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}
	return NewEngine(db, log), nil
}

func NewEngine(db *sqlx.DB, log zerolog.Logger) *Engine {
	return &Engine{
		db:      db,
		log:     log,
		columns: make(map[string][]columnMeta),
	}
}

func (e *Engine) tableColumns(table string) ([]columnMeta, error) {
	if cols, ok := e.columns[table]; ok {
		return cols, nil
	}
	var cols []columnMeta
	err := e.db.Select(&cols,
		`SELECT column_name, is_nullable FROM information_schema.columns
		 WHERE table_name = $1 ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s has no columns or does not exist", table)
	}
	e.columns[table] = cols
	return cols, nil
}

// GetColumns returns the column names of table in ordinal position order.
func (e *Engine) GetColumns(table string) ([]string, error) {
	cols, err := e.tableColumns(table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return names, nil
}

// GetNotNullColumns returns the names of the NOT NULL columns of table.
func (e *Engine) GetNotNullColumns(table string) ([]string, error) {
	cols, err := e.tableColumns(table)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, col := range cols {
		if col.Nullable == "NO" {
			names = append(names, col.Name)
		}
	}
	return names, nil
}

// FetchRows executes query and returns the result with every value converted
// to a tagged scalar; SQL NULLs come back as null values.
func (e *Engine) FetchRows(query string, args ...interface{}) (*ResultSet, error) {
	rows, err := e.db.Queryx(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error reading result columns: %w", err)
	}

	result := &ResultSet{Columns: columns}
	for rows.Next() {
		raw := make(map[string]interface{})
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		row := make(rowmap.Row, len(raw))
		for key, value := range raw {
			row[key] = rowmap.FromDriver(value)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	e.log.Debug().
		Int("rows", len(result.Rows)).
		Msg("Fetched rows")
	return result, nil
}

// SaveRows bulk-inserts rows into table with one multi-row statement. Every
// row must already be normalized to the table's full column set.
func (e *Engine) SaveRows(rows []rowmap.Row, table string) error {
	if len(rows) == 0 {
		return nil
	}
	columns, err := e.GetColumns(table)
	if err != nil {
		return err
	}

	args := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		arg := make(map[string]interface{}, len(columns))
		for _, col := range columns {
			arg[col] = row.Get(col).Interface()
		}
		args[i] = arg
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)",
		pq.QuoteIdentifier(table),
		strings.Join(columns, ", "),
		strings.Join(columns, ", :"))

	if _, err := e.db.NamedExec(query, args); err != nil {
		return fmt.Errorf("failed to insert %d rows into %s: %w", len(rows), table, err)
	}

	e.log.Debug().
		Str("table", table).
		Int("rows", len(rows)).
		Msg("Saved rows")
	return nil
}

// Dispose releases the connection resources.
func (e *Engine) Dispose() error {
	return e.db.Close()
}
