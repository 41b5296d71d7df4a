package common

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Engine describes a database engine able to open a legacy database file
// through database/sql and answer the handful of queries the Reader needs.
type Engine interface {
	// DriverName is the database/sql driver name.
	DriverName() string
	// DSN builds a read-only data source name for the file at path.
	DSN(path string) (string, error)
	// ProbeSQL returns a cheap query proving the file is a readable database.
	ProbeSQL() string
	// ListTablesSQL returns a query yielding one user table name per row.
	ListTablesSQL() string
	// ColumnsSQL returns a query taking the table name as its only argument
	// and yielding its column names in definition order.
	ColumnsSQL() string
	// QuoteIdent quotes a table or column identifier.
	QuoteIdent(name string) string
}

// SourceFile is one uploaded file: a display name and a way to read its content.
type SourceFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileSource returns a SourceFile backed by a file on disk.
func FileSource(path string) SourceFile {
	return SourceFile{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// BytesSource returns a SourceFile backed by an in-memory payload.
func BytesSource(name string, data []byte) SourceFile {
	return SourceFile{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// Table is one discovered table with its columns in definition order.
type Table struct {
	Name    string
	Columns []string
}

// Schema is the discovered structure of a database file.
type Schema struct {
	Tables []Table
}

// TableNames returns the table names in discovery order.
func (s Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// Lookup returns the table with the given name.
func (s Schema) Lookup(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// RowBatch is a chunk of extracted rows. Every row has len(Columns) values.
type RowBatch struct {
	Columns []string
	Rows    [][]any
}

// ConversionResult is the CSV output of one source file.
type ConversionResult struct {
	Source  string
	Name    string
	Payload []byte
	Rows    int
}

// ArchiveBundle is the final downloadable artifact of a run.
type ArchiveBundle struct {
	Name    string
	Payload []byte
}

// Progress is the position within a batch.
type Progress struct {
	Completed int     // files fully processed
	Total     int     // files in the batch
	Current   float64 // fraction of the current file, in [0,1]
	Status    string
}

// Fraction returns overall progress in [0,1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 1
	}
	f := (float64(p.Completed) + p.Current) / float64(p.Total)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// ProgressSink receives progress updates.
type ProgressSink interface {
	Report(Progress)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(Progress)

// Report implements ProgressSink.
func (f ProgressFunc) Report(p Progress) {
	f(p)
}
