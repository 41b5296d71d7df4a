// Package zip packages converted CSV payloads into a single archive.
package zip

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/darianmavgo/mkcsv/converters/common"

	"github.com/klauspost/compress/zip"
)

// ArchiveWriter adds entries to a zip archive incrementally, so callers can
// flush results in groups and release them before converting more files.
type ArchiveWriter struct {
	zw       *zip.Writer
	names    map[string]struct{}
	modified time.Time
	closed   bool
}

// NewArchiveWriter starts an archive written to w.
func NewArchiveWriter(w io.Writer) *ArchiveWriter {
	return &ArchiveWriter{
		zw:       zip.NewWriter(w),
		names:    make(map[string]struct{}),
		modified: time.Now(),
	}
}

// Add writes one deflated entry. Entry names must be unique within the archive.
func (a *ArchiveWriter) Add(name string, payload []byte) error {
	if a.closed {
		return common.New(common.ErrPackaging, name, "archive already closed")
	}
	if name == "" {
		return common.New(common.ErrPackaging, "", "entry name is empty")
	}
	if _, dup := a.names[name]; dup {
		return common.New(common.ErrPackaging, name, "duplicate archive entry")
	}

	w, err := a.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: a.modified,
	})
	if err != nil {
		return common.Wrap(common.ErrPackaging, name, "failed to create entry", err)
	}
	if _, err := w.Write(payload); err != nil {
		return common.Wrap(common.ErrPackaging, name, "failed to write entry", err)
	}
	a.names[name] = struct{}{}
	return nil
}

// AddAll writes every entry of the mapping in name order.
func (a *ArchiveWriter) AddAll(entries map[string][]byte) error {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := a.Add(name, entries[name]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of entries written so far.
func (a *ArchiveWriter) Len() int {
	return len(a.names)
}

// Close writes the central directory. The archive is only valid after Close.
func (a *ArchiveWriter) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if err := a.zw.Close(); err != nil {
		return common.Wrap(common.ErrPackaging, "", "failed to finalize archive", err)
	}
	return nil
}

// Pack bundles the mapping into a zip archive. An empty mapping yields a valid empty archive.
func Pack(entries map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	aw := NewArchiveWriter(&buf)
	if err := aw.AddAll(entries); err != nil {
		return nil, err
	}
	if err := aw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unpack reads every file entry of an archive back into a mapping.
func Unpack(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, common.Wrap(common.ErrPackaging, "", "failed to open archive", err)
	}

	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, common.Wrap(common.ErrPackaging, f.Name, "failed to open entry", err)
		}
		payload, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, common.Wrap(common.ErrPackaging, f.Name, "failed to read entry", err)
		}
		out[f.Name] = payload
	}
	return out, nil
}

// Names lists the entry names of an archive in stored order.
func Names(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}
