package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/darianmavgo/mkcsv/converters/sqlite/sqlitetest"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.accdb"), []byte("x"))
	writeFile(t, filepath.Join(root, "a.MDB"), []byte("x"))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("x"))
	writeFile(t, filepath.Join(root, "2024", "mars.db"), []byte("x"))
	writeFile(t, filepath.Join(root, ".cache", "hidden.db"), []byte("x"))
	loose := filepath.Join(t.TempDir(), "loose.bin")
	writeFile(t, loose, []byte("x"))

	got, err := Collect(context.Background(), []string{loose, root, "missing.accdb"}, DatabaseExtensions, nil)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	want := []string{
		loose,
		filepath.Join(root, "2024", "mars.db"),
		filepath.Join(root, "a.MDB"),
		filepath.Join(root, "b.accdb"),
		"missing.accdb",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectTableExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "janvier.csv"), []byte("a\n1\n"))
	writeFile(t, filepath.Join(root, "fevrier.xlsx"), []byte("x"))
	writeFile(t, filepath.Join(root, "station.accdb"), []byte("x"))

	got, err := Collect(context.Background(), []string{root}, TableExtensions, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(root, "fevrier.xlsx"), filepath.Join(root, "janvier.csv")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.db"), []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Collect(ctx, []string{root}, DatabaseExtensions, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSniff(t *testing.T) {
	dir := t.TempDir()
	db := sqlitetest.Create(t, dir, "station.db", sqlitetest.Trafic(1))

	jet := filepath.Join(dir, "legacy.mdb")
	writeFile(t, jet, append([]byte{0x00, 0x01, 0x00, 0x00}, []byte("Standard Jet DB\x00")...))
	ace := filepath.Join(dir, "modern.accdb")
	writeFile(t, ace, append([]byte{0x00, 0x01, 0x00, 0x00}, []byte("Standard ACE DB\x00")...))
	short := filepath.Join(dir, "short.db")
	writeFile(t, short, []byte("SQL"))

	tests := []struct {
		path string
		want Kind
	}{
		{db, KindSQLite},
		{jet, KindJet},
		{ace, KindJet},
		{short, KindUnknown},
		{sqlitetest.Corrupt(t, dir, "broken.db"), KindUnknown},
	}
	for _, tt := range tests {
		got, err := Sniff(tt.path)
		if err != nil {
			t.Errorf("Sniff(%s) error: %v", filepath.Base(tt.path), err)
			continue
		}
		if got != tt.want {
			t.Errorf("Sniff(%s) = %q, want %q", filepath.Base(tt.path), got, tt.want)
		}
	}

	if _, err := Sniff(filepath.Join(dir, "nope.db")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
