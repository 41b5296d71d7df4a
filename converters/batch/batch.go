// Package batch converts a set of uploaded database files into CSV files bundled
// in one zip archive. Files are processed one at a time; a failure on one file is
// recorded and the batch moves on to the next.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/darianmavgo/mkcsv/converters"
	"github.com/darianmavgo/mkcsv/converters/common"
	"github.com/darianmavgo/mkcsv/converters/csv"
	"github.com/darianmavgo/mkcsv/converters/zip"

	"github.com/google/uuid"
)

// Phase is the state of a run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDiscovering
	PhaseConverting
	PhasePackaging
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDiscovering:
		return "discovering"
	case PhaseConverting:
		return "converting"
	case PhasePackaging:
		return "packaging"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Selection is the table and column projection to extract.
// An empty Table triggers discovery; empty Columns means every column.
type Selection struct {
	Table   string
	Columns []string
}

// FileResult is the outcome for one source file.
type FileResult struct {
	Source     string
	Output     string
	Rows       int
	Err        error
	Superseded bool // a later file wrote the same output name
}

// OK reports whether the file was converted into the archive.
func (f FileResult) OK() bool {
	return f.Err == nil && !f.Superseded
}

// Report is the outcome of a completed run.
type Report struct {
	RunID      string
	Selection  Selection
	Bundle     *common.ArchiveBundle
	Files      []FileResult
	Succeeded  int
	Failed     int
	Superseded int
}

// Summary returns a one-line account of the run.
func (r *Report) Summary() string {
	s := fmt.Sprintf("%d succeeded, %d failed", r.Succeeded, r.Failed)
	if r.Superseded > 0 {
		s += fmt.Sprintf(", %d superseded", r.Superseded)
	}
	return s
}

// Run is the explicit state of one orchestration run.
type Run struct {
	ID       string
	Phase    Phase
	Results  map[string]common.ConversionResult
	Progress common.Progress
}

// Orchestrator drives the Reader, Encoder and archive writer over a batch of files.
// It is not safe for concurrent use; runs are sequential.
type Orchestrator struct {
	bridge *converters.Bridge
	config common.ConversionConfig
	logger *slog.Logger
	run    *Run
}

// New creates an Orchestrator. The bridge must be initialised before Run.
func New(bridge *converters.Bridge, config *common.ConversionConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		bridge: bridge,
		config: config.WithDefaults(),
		logger: logger,
		run:    &Run{Phase: PhaseIdle},
	}
}

// State returns a copy of the current run state.
func (o *Orchestrator) State() Run {
	return Run{ID: o.run.ID, Phase: o.run.Phase, Progress: o.run.Progress}
}

// Run converts files and returns the archive bundle with per-file outcomes.
// Per-file errors are reported in Report.Files. The returned error is non-nil only
// for batch-fatal conditions: configuration, packaging or context cancellation;
// no partial archive is returned in that case.
func (o *Orchestrator) Run(ctx context.Context, files []common.SourceFile, sel Selection, sink common.ProgressSink) (*Report, error) {
	run := &Run{
		ID:      uuid.NewString(),
		Phase:   PhaseIdle,
		Results: make(map[string]common.ConversionResult),
	}
	o.run = run
	defer func() {
		// The next run starts from Idle.
		final := run.Phase
		o.run = &Run{ID: run.ID, Phase: PhaseIdle, Progress: run.Progress}
		o.logger.Debug("run finished", "run", run.ID, "phase", final.String())
	}()

	logger := o.logger.With("run", run.ID)
	tracker := &progressTracker{run: run, sink: sink, total: len(files)}
	tracker.update(0, "starting")

	if err := o.bridge.Ready(); err != nil {
		run.Phase = PhaseFailed
		return nil, err
	}
	reader, err := converters.NewReader(o.bridge.Engine(), &o.config, logger)
	if err != nil {
		run.Phase = PhaseFailed
		return nil, err
	}

	if sel.Table == "" {
		sel.Table = o.config.TableName
	}
	if len(sel.Columns) == 0 {
		sel.Columns = o.config.Columns
	}

	report := &Report{RunID: run.ID, Files: make([]FileResult, len(files))}
	outputs := make([]string, len(files))
	// last is the index of the last file producing each output name. A result is
	// held back from the archive until no later file can replace it.
	last := make(map[string]int, len(files))
	for i, f := range files {
		outputs[i] = common.GenOutputName(f.Name)
		report.Files[i] = FileResult{Source: f.Name, Output: outputs[i]}
		last[outputs[i]] = i
	}
	owner := make(map[string]int, len(files))
	skip := make([]bool, len(files))

	if sel.Table == "" {
		run.Phase = PhaseDiscovering
		sel.Table, err = o.discover(ctx, reader, files, skip, report, tracker, logger)
		if err != nil {
			run.Phase = PhaseFailed
			return nil, err
		}
	}
	report.Selection = sel

	run.Phase = PhaseConverting
	var buf bytes.Buffer
	aw := zip.NewArchiveWriter(&buf)

	for start := 0; start < len(files); start += o.config.GroupSize {
		end := min(start+o.config.GroupSize, len(files))
		for i := start; i < end; i++ {
			if skip[i] {
				tracker.fileDone("skipped " + files[i].Name)
				continue
			}
			if err := ctx.Err(); err != nil {
				run.Phase = PhaseFailed
				return nil, err
			}

			tracker.startFile(files[i].Name)
			res, err := o.convert(ctx, reader, run.ID, files[i], outputs[i], sel, tracker)
			if err != nil {
				if ctx.Err() != nil {
					run.Phase = PhaseFailed
					return nil, ctx.Err()
				}
				report.Files[i].Err = err
				logger.Error("conversion failed", "file", files[i].Name, "error", err)
			} else {
				report.Files[i].Rows = res.Rows
				if prev, ok := owner[res.Name]; ok {
					report.Files[prev].Superseded = true
					logger.Warn("output replaced by a later file", "file", files[prev].Name, "by", files[i].Name, "output", res.Name)
				}
				owner[res.Name] = i
				run.Results[res.Name] = res
				logger.Info("file converted", "file", files[i].Name, "output", res.Name, "rows", res.Rows)
			}
			tracker.fileDone(files[i].Name)
		}

		if err := aw.AddAll(settled(run.Results, last, end)); err != nil {
			run.Phase = PhaseFailed
			return nil, err
		}
	}

	run.Phase = PhasePackaging
	if err := aw.Close(); err != nil {
		run.Phase = PhaseFailed
		return nil, err
	}
	report.Bundle = &common.ArchiveBundle{Name: o.config.ArchiveName, Payload: buf.Bytes()}

	for _, f := range report.Files {
		switch {
		case f.Superseded:
			report.Superseded++
		case f.Err != nil:
			report.Failed++
		default:
			report.Succeeded++
		}
	}

	run.Phase = PhaseDone
	tracker.finish()
	logger.Info("batch complete", "summary", report.Summary(), "entries", aw.Len())
	return report, nil
}

// discover picks a table from the first file whose schema can be read.
// Files that cannot be inspected are marked failed and skipped.
func (o *Orchestrator) discover(ctx context.Context, reader *converters.Reader, files []common.SourceFile, skip []bool, report *Report, tracker *progressTracker, logger *slog.Logger) (string, error) {
	for i, f := range files {
		if skip[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		var schema common.Schema
		err := o.withTempFile(f, report.RunID, func(path string) error {
			var err error
			schema, err = reader.DiscoverSchema(ctx, path)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			logger.Error("schema discovery failed", "file", f.Name, "error", err)
			report.Files[i].Err = err
			skip[i] = true
			continue
		}

		table := chooseTable(schema, o.config.DefaultTable)
		if table == "" {
			err := common.New(common.ErrQuery, f.Name, "database has no user tables")
			logger.Error("schema discovery failed", "file", f.Name, "error", err)
			report.Files[i].Err = err
			skip[i] = true
			continue
		}
		logger.Info("table selected", "file", f.Name, "table", table, "tables", schema.TableNames())
		tracker.update(0, "selected table "+table)
		return table, nil
	}

	// Nothing could be inspected; fall back to the default table.
	return o.config.DefaultTable, nil
}

// chooseTable returns the only table, the preferred table when present, or the first table.
func chooseTable(schema common.Schema, preferred string) string {
	switch len(schema.Tables) {
	case 0:
		return ""
	case 1:
		return schema.Tables[0].Name
	}
	if _, ok := schema.Lookup(preferred); ok {
		return preferred
	}
	return schema.Tables[0].Name
}

// convert extracts one file into a CSV payload.
func (o *Orchestrator) convert(ctx context.Context, reader *converters.Reader, runID string, src common.SourceFile, output string, sel Selection, tracker *progressTracker) (common.ConversionResult, error) {
	var res common.ConversionResult

	err := o.withTempFile(src, runID, func(path string) error {
		tracker.update(0.1, "reading "+src.Name)

		var payload bytes.Buffer
		var enc *csv.Encoder
		chunks := 0
		err := reader.Extract(ctx, path, sel.Table, sel.Columns, func(b common.RowBatch) error {
			if enc == nil {
				var err error
				if enc, err = csv.NewEncoder(&payload, b.Columns); err != nil {
					return err
				}
				tracker.update(0.3, "extracting "+src.Name)
			}
			if err := enc.WriteBatch(b); err != nil {
				return err
			}
			chunks++
			// Row counts are unknown up front; approach 0.8 as chunks arrive.
			tracker.update(0.8-0.5/float64(chunks+1), fmt.Sprintf("extracted %d rows from %s", enc.Rows(), src.Name))
			return nil
		})
		if err != nil {
			return withPath(err, src.Name)
		}
		tracker.update(0.8, "encoding "+src.Name)

		if err := enc.Flush(); err != nil {
			return withPath(err, src.Name)
		}
		tracker.update(0.9, "encoded "+src.Name)

		res = common.ConversionResult{
			Source:  src.Name,
			Name:    output,
			Payload: payload.Bytes(),
			Rows:    enc.Rows(),
		}
		return nil
	})
	if err != nil {
		return common.ConversionResult{}, err
	}
	tracker.update(1, "converted "+src.Name)
	return res, nil
}

// withTempFile materialises src into a temporary file for the duration of fn.
// The file is removed on every exit path.
func (o *Orchestrator) withTempFile(src common.SourceFile, runID string, fn func(path string) error) error {
	rc, err := src.Open()
	if err != nil {
		return common.Wrap(common.ErrConnection, src.Name, "failed to open upload", err)
	}
	defer rc.Close()

	ext := strings.ToLower(filepath.Ext(src.Name))
	tmp, err := os.CreateTemp(o.config.TempDir, "mkcsv-"+runID[:8]+"-*"+ext)
	if err != nil {
		return common.Wrap(common.ErrConnection, src.Name, "failed to create temp file", err)
	}
	path := tmp.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			o.logger.Warn("failed to remove temp file", "path", path, "error", err)
		}
	}()

	_, err = io.Copy(tmp, rc)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return common.Wrap(common.ErrConnection, src.Name, "failed to materialize upload", err)
	}

	return fn(path)
}

// settled removes from results every entry that no file at or after next can
// still replace, and returns their payloads.
func settled(results map[string]common.ConversionResult, last map[string]int, next int) map[string][]byte {
	out := make(map[string][]byte, len(results))
	for name, r := range results {
		if last[name] < next {
			out[name] = r.Payload
			delete(results, name)
		}
	}
	return out
}

// withPath replaces the temporary path in a ConversionError with the upload name.
func withPath(err error, name string) error {
	var ce *common.ConversionError
	if errors.As(err, &ce) {
		ce.Path = name
	}
	return err
}
