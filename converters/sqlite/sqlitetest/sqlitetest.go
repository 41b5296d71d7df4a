// Package sqlitetest builds SQLite database fixtures for tests.
package sqlitetest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// Column is a fixture column definition.
type Column struct {
	Name string
	Type string
}

// Table is a fixture table with its rows.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// TraficColumns are the columns of the road traffic table found in station exports.
var TraficColumns = []Column{
	{"Date_Jour_H_M_d", "TEXT"},
	{"PDM", "INTEGER"},
	{"TV_corrige", "REAL"},
	{"TV_brut", "INTEGER"},
}

// TraficRows returns n deterministic rows for the Trafic_Minute table.
func TraficRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{
			fmt.Sprintf("2024-03-01 08:%02d:00", i%60),
			i % 4,
			float64(i) + 0.5,
			i * 10,
		}
	}
	return rows
}

// Trafic returns a Trafic_Minute table with n rows.
func Trafic(n int) Table {
	return Table{Name: "Trafic_Minute", Columns: TraficColumns, Rows: TraficRows(n)}
}

// Create writes a database file named name into dir and returns its path.
func Create(t testing.TB, dir, name string, tables ...Table) string {
	t.Helper()
	path := filepath.Join(dir, name)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open fixture %s: %v", path, err)
	}
	defer db.Close()

	for _, tb := range tables {
		defs := make([]string, len(tb.Columns))
		names := make([]string, len(tb.Columns))
		for i, c := range tb.Columns {
			defs[i] = quote(c.Name) + " " + c.Type
			names[i] = quote(c.Name)
		}
		if _, err := db.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quote(tb.Name), strings.Join(defs, ", "))); err != nil {
			t.Fatalf("failed to create table %s: %v", tb.Name, err)
		}
		if len(tb.Rows) == 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			t.Fatalf("failed to begin: %v", err)
		}
		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(tb.Name), strings.Join(names, ", "), strings.Repeat("?, ", len(names)-1)+"?")
		stmt, err := tx.Prepare(insert)
		if err != nil {
			t.Fatalf("failed to prepare insert: %v", err)
		}
		for _, row := range tb.Rows {
			if _, err := stmt.Exec(row...); err != nil {
				t.Fatalf("failed to insert into %s: %v", tb.Name, err)
			}
		}
		stmt.Close()
		if err := tx.Commit(); err != nil {
			t.Fatalf("failed to commit: %v", err)
		}
	}
	return path
}

// Corrupt writes a file that is not a database and returns its path.
func Corrupt(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	junk := []byte(strings.Repeat("this is not a database file\n", 64))
	if err := os.WriteFile(path, junk, 0644); err != nil {
		t.Fatalf("failed to write corrupt fixture: %v", err)
	}
	return path
}

func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
