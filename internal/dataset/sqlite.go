package dataset

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// ReadSQLite loads every table of an SQLite file into its own dataset,
// keyed by table name.
func ReadSQLite(ctx context.Context, path string) (map[string]*Dataset, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite file %s: %w", path, err)
	}
	defer db.Close()

	tables, err := sqliteTables(ctx, db)
	if err != nil {
		return nil, err
	}

	datasets := make(map[string]*Dataset, len(tables))
	for _, table := range tables {
		ds, err := readTable(ctx, db, table)
		if err != nil {
			return nil, fmt.Errorf("unable to read table %s: %w", table, err)
		}
		datasets[table] = ds
	}
	return datasets, nil
}

func sqliteTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("unable to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("unable to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func readTable(ctx context.Context, db *sql.DB, table string) (*Dataset, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %q`, table))
	if err != nil {
		return nil, fmt.Errorf("select error: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("unable to read columns: %w", err)
	}

	ds := New(columns)
	for rows.Next() {
		cells := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		row := make(Row, len(columns))
		for i, cell := range cells {
			if b, ok := cell.([]byte); ok {
				row[i] = string(b)
				continue
			}
			row[i] = cell
		}
		if err := ds.Append(row); err != nil {
			return nil, err
		}
	}
	return ds, rows.Err()
}
