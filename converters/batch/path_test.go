package batch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/darianmavgo/mkcsv/converters/common"
)

func TestWithPathReplacesTempPath(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"Direct", common.New(common.ErrQuery, "/tmp/mkcsv-1234-5678.db", "no such table")},
		{"Wrapped", fmt.Errorf("extract: %w", common.New(common.ErrRead, "/tmp/mkcsv-1234-5678.db", "stopped"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := withPath(tt.err, "station.accdb")
			var ce *common.ConversionError
			if !errors.As(err, &ce) {
				t.Fatalf("lost ConversionError: %v", err)
			}
			if ce.Path != "station.accdb" {
				t.Errorf("Path = %q, want upload name", ce.Path)
			}
		})
	}

	plain := errors.New("boom")
	if got := withPath(plain, "station.accdb"); got != plain {
		t.Errorf("plain error changed: %v", got)
	}
}

func TestSettledHoldsReplaceableResults(t *testing.T) {
	results := map[string]common.ConversionResult{
		"a.csv":       {Name: "a.csv", Payload: []byte("a")},
		"station.csv": {Name: "station.csv", Payload: []byte("s")},
	}
	last := map[string]int{"a.csv": 0, "station.csv": 4}

	out := settled(results, last, 3)
	if len(out) != 1 || string(out["a.csv"]) != "a" {
		t.Errorf("settled = %v, want only a.csv", out)
	}
	if _, ok := results["station.csv"]; !ok || len(results) != 1 {
		t.Errorf("held results = %v, want station.csv", results)
	}

	if out := settled(results, last, 5); len(out) != 1 || len(results) != 0 {
		t.Errorf("final flush = %v, remaining %v", out, results)
	}
}
