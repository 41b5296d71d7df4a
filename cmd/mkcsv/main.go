package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/darianmavgo/mkcsv/config"
	"github.com/darianmavgo/mkcsv/converters"
	_ "github.com/darianmavgo/mkcsv/converters/all"
	"github.com/darianmavgo/mkcsv/converters/batch"
	"github.com/darianmavgo/mkcsv/converters/common"
	"github.com/darianmavgo/mkcsv/converters/concat"
	"github.com/darianmavgo/mkcsv/converters/filesystem"

	"github.com/dustin/go-humanize"
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  mkcsv [flags] <file>...                  # Convert database files to CSV, bundled in a zip")
	fmt.Fprintln(out, "  mkcsv --inspect <file>                   # List tables and columns")
	fmt.Fprintln(out, "  mkcsv --concat [-o out.csv] <file>...    # Concatenate CSV and Excel files")
	fmt.Fprintln(out, "  mkcsv --export-config <path>             # Write the default configuration")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Database engines: %s.\n", strings.Join(converters.Engines(), ", "))
	fmt.Fprintln(out, "Access .mdb/.accdb files in Jet or ACE format cannot be read; export them to SQLite first.")
	fmt.Fprintln(out)
	flag.PrintDefaults()
}

// progressPrinter renders progress as a single updating line on w.
type progressPrinter struct {
	w io.Writer
}

func (p progressPrinter) Report(pr common.Progress) {
	fmt.Fprintf(p.w, "\r%5.1f%% %-60.60s", pr.Fraction()*100, pr.Status)
}

func (p progressPrinter) done() {
	fmt.Fprintln(p.w)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

func sources(paths []string) []common.SourceFile {
	files := make([]common.SourceFile, len(paths))
	for i, p := range paths {
		files[i] = common.FileSource(p)
	}
	return files
}

func convert(ctx context.Context, cfg *config.Config, paths []string, output string, logger *slog.Logger) error {
	bridge := converters.NewBridge(cfg.Engine)
	if err := bridge.Init(); err != nil {
		return err
	}

	conv := cfg.ConversionConfig()
	if output != "" {
		conv.ArchiveName = filepath.Base(output)
	} else {
		output = conv.ArchiveName
	}

	progress := progressPrinter{w: os.Stderr}
	report, err := batch.New(bridge, conv, logger).Run(ctx, sources(paths), batch.Selection{}, progress)
	progress.done()
	if err != nil {
		return err
	}

	for _, f := range report.Files {
		switch {
		case f.Superseded:
			fmt.Fprintf(os.Stderr, "  %s: replaced, %s was written again by a later file\n", f.Source, f.Output)
		case f.Err != nil:
			fmt.Fprintf(os.Stderr, "  %s: %v\n", f.Source, f.Err)
		}
	}

	if err := os.WriteFile(output, report.Bundle.Payload, 0644); err != nil {
		return common.Wrap(common.ErrPackaging, output, "failed to write archive", err)
	}
	fmt.Printf("Table %s: %s. Wrote %s (%s)\n",
		report.Selection.Table, report.Summary(), output, humanize.Bytes(uint64(len(report.Bundle.Payload))))
	if report.Succeeded == 0 && len(report.Files) > 0 {
		return fmt.Errorf("no file could be converted")
	}
	return nil
}

func inspect(ctx context.Context, cfg *config.Config, path string, logger *slog.Logger) error {
	bridge := converters.NewBridge(cfg.Engine)
	if err := bridge.Init(); err != nil {
		return err
	}
	reader, err := converters.NewReader(bridge.Engine(), cfg.ConversionConfig(), logger)
	if err != nil {
		return err
	}
	schema, err := reader.DiscoverSchema(ctx, path)
	if err != nil {
		return err
	}
	for _, t := range schema.Tables {
		fmt.Printf("%s: %s\n", t.Name, strings.Join(t.Columns, ", "))
	}
	return nil
}

func concatenate(ctx context.Context, cfg *config.Config, paths []string, output string, logger *slog.Logger) error {
	if output == "" {
		output = concat.OutputName
	}

	progress := progressPrinter{w: os.Stderr}
	res, err := concat.Concat(ctx, sources(paths), cfg.ConversionConfig(), progress, logger)
	progress.done()
	if err != nil {
		return err
	}
	for _, e := range res.Errors {
		fmt.Fprintf(os.Stderr, "  %v\n", e)
	}

	payload, err := res.Encode()
	if err != nil {
		return err
	}
	if payload == nil {
		return fmt.Errorf("no file could be concatenated")
	}
	if err := os.WriteFile(output, payload, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Printf("Concatenated %d files (%s rows) into %s (%s)\n",
		res.Merged, humanize.Comma(int64(len(res.Table.Rows))), output, humanize.Bytes(uint64(len(payload))))
	return nil
}

func main() {
	var (
		configPath   = flag.String("config", "", "HCL configuration file")
		exportPath   = flag.String("export-config", "", "write the default configuration to `path` and exit")
		inspectMode  = flag.Bool("inspect", false, "list the tables and columns of a database file")
		concatMode   = flag.Bool("concat", false, "concatenate CSV and Excel files into one CSV")
		table        = flag.String("table", "", "table to extract (default: discovered)")
		columns      = flag.String("columns", "", "comma separated columns to extract (default: all)")
		sheet        = flag.String("sheet", "", "workbook sheet read in concat mode (default: first sheet)")
		output       = flag.String("o", "", "output file")
		logMode      = flag.Bool("log", false, "enable detailed logging")
		encodingName = flag.String("encoding", "", "code page of legacy text columns, e.g. windows-1252")
	)
	flag.Usage = usage
	flag.Parse()

	if *exportPath != "" {
		if err := config.Export(*exportPath, config.DefaultConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default configuration to %s\n", *exportPath)
		return
	}

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *table != "" {
		cfg.Table = *table
	}
	if *columns != "" {
		cfg.Columns = common.ParseColumns(*columns)
	}
	if *sheet != "" {
		cfg.Sheet = *sheet
	}
	if *encodingName != "" {
		cfg.Encoding = *encodingName
	}
	cfg.Verbose = cfg.Verbose || *logMode
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exts := filesystem.DatabaseExtensions
	if *concatMode {
		exts = filesystem.TableExtensions
	}
	var paths []string
	if !*inspectMode {
		paths, err = filesystem.Collect(ctx, flag.Args(), exts, logger)
	}

	switch {
	case err != nil:
	case *inspectMode:
		err = inspect(ctx, cfg, flag.Arg(0), logger)
	case *concatMode:
		err = concatenate(ctx, cfg, paths, *output, logger)
	default:
		err = convert(ctx, cfg, paths, *output, logger)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
