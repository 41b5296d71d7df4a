// Package concat stacks CSV and Excel files into one combined table.
// Columns are matched by header name; cells a file does not have are left empty.
package concat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/darianmavgo/mkcsv/converters/common"
	"github.com/darianmavgo/mkcsv/converters/csv"
	"github.com/darianmavgo/mkcsv/converters/excel"
)

// OutputName is the name of the combined CSV.
const OutputName = "final_output.csv"

// Result is the outcome of a concatenation run.
type Result struct {
	Table  *csv.Table
	Merged int     // files whose rows were appended
	Errors []error // one per skipped file
}

// Encode renders the combined table as CSV. A run where nothing was merged yields an empty payload.
func (r *Result) Encode() ([]byte, error) {
	if r.Table == nil || len(r.Table.Header) == 0 {
		return nil, nil
	}
	rows := make([][]any, len(r.Table.Rows))
	for i, row := range r.Table.Rows {
		values := make([]any, len(r.Table.Header))
		for j := range values {
			if j < len(row) {
				values[j] = row[j]
			} else {
				values[j] = ""
			}
		}
		rows[i] = values
	}
	return csv.EncodeCSV(r.Table.Header, rows)
}

// Concat reads every file in order and appends its rows to one table.
// Unsupported or unreadable files are reported in Result.Errors and skipped.
// Only context cancellation aborts the run.
func Concat(ctx context.Context, files []common.SourceFile, config *common.ConversionConfig, sink common.ProgressSink, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	report := func(done int, status string) {
		if sink != nil {
			sink.Report(common.Progress{Completed: done, Total: len(files), Status: status})
		}
	}

	res := &Result{Table: &csv.Table{}}
	index := make(map[string]int)

	report(0, "starting")
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t, err := readFile(f, config)
		if err != nil {
			logger.Error("skipping file", "file", f.Name, "error", err)
			res.Errors = append(res.Errors, err)
			report(i+1, "skipped "+f.Name)
			continue
		}

		res.append(t, index)
		res.Merged++
		logger.Debug("file merged", "file", f.Name, "rows", len(t.Rows))
		report(i+1, "merged "+f.Name)
	}

	// Earlier rows are shorter when later files introduced new columns.
	width := len(res.Table.Header)
	for i, row := range res.Table.Rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			res.Table.Rows[i] = padded
		}
	}

	report(len(files), "done")
	return res, nil
}

func (r *Result) append(t *csv.Table, index map[string]int) {
	header := dedupeHeader(t.Header)
	positions := make([]int, len(header))
	for i, name := range header {
		pos, ok := index[name]
		if !ok {
			pos = len(r.Table.Header)
			index[name] = pos
			r.Table.Header = append(r.Table.Header, name)
		}
		positions[i] = pos
	}

	for _, row := range t.Rows {
		out := make([]string, len(r.Table.Header))
		for i, v := range row {
			if i < len(positions) {
				out[positions[i]] = v
			}
		}
		r.Table.Rows = append(r.Table.Rows, out)
	}
}

// dedupeHeader renames repeated column names within one file to name.1, name.2, ...
func dedupeHeader(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			out[i] = fmt.Sprintf("%s.%d", name, n+1)
			continue
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

func readFile(f common.SourceFile, config *common.ConversionConfig) (*csv.Table, error) {
	var read func(io.Reader, *common.ConversionConfig) (*csv.Table, error)
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".csv":
		read = csv.ReadTable
	case ".xlsx":
		read = excel.ReadTable
	default:
		return nil, common.New(common.ErrUnsupported, f.Name, "unsupported file format")
	}

	rc, err := f.Open()
	if err != nil {
		return nil, common.Wrap(common.ErrRead, f.Name, "failed to open upload", err)
	}
	defer rc.Close()

	t, err := read(rc, config)
	if err != nil {
		return nil, withPath(err, f.Name)
	}
	return t, nil
}

func withPath(err error, path string) error {
	var ce *common.ConversionError
	if errors.As(err, &ce) && ce.Path == "" {
		ce.Path = path
	}
	return err
}
