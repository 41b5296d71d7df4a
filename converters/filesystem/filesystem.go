// Package filesystem expands command line paths into the input files they name.
// Directories are walked in lexical order so batches are reproducible.
package filesystem

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/darianmavgo/mkcsv/converters/common"
)

// DatabaseExtensions are the files picked up from directories in convert mode.
var DatabaseExtensions = []string{".accdb", ".mdb", ".db", ".sqlite", ".sqlite3"}

// TableExtensions are the files picked up from directories in concat mode.
var TableExtensions = []string{".csv", ".xlsx"}

// Kind is the container format recognised from a file's leading bytes.
type Kind string

const (
	KindUnknown Kind = ""
	KindSQLite  Kind = "sqlite"
	KindJet     Kind = "jet" // Access .mdb and .accdb
)

var (
	sqliteMagic = []byte("SQLite format 3\x00")
	jetMagic    = []byte("Standard Jet DB")
	aceMagic    = []byte("Standard ACE DB")
)

// Sniff reads the file header and reports which database container it holds.
func Sniff(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, err
	}
	defer f.Close()

	header := make([]byte, 32)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return KindUnknown, err
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, sqliteMagic):
		return KindSQLite, nil
	case len(header) >= 4 && (bytes.HasPrefix(header[4:], jetMagic) || bytes.HasPrefix(header[4:], aceMagic)):
		return KindJet, nil
	}
	return KindUnknown, nil
}

// Collect returns the files named by paths. Files are kept as given, whatever
// their extension; directories contribute every file below them whose extension
// is in exts. Unreadable subdirectories are skipped with a warning.
func Collect(ctx context.Context, paths []string, exts []string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			// Missing files are reported per file by the conversion.
			out = append(out, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			if err != nil {
				if errors.Is(err, fs.ErrPermission) && path != p {
					logger.Warn("skipping unreadable directory", "path", path, "error", err)
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return fs.SkipDir
				}
				return nil
			}
			if !slices.Contains(exts, strings.ToLower(filepath.Ext(path))) {
				return nil
			}
			if kind, err := Sniff(path); err == nil {
				logger.Debug("input found", "path", path, "kind", string(kind))
			}
			out = append(out, path)
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, common.Wrap(common.ErrConnection, p, "failed to scan directory", err)
		}
	}
	return out, nil
}
