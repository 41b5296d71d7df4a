package concat

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/darianmavgo/mkcsv/converters/common"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func xlsx(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestConcatMixedFormats(t *testing.T) {
	files := []common.SourceFile{
		common.BytesSource("janvier.csv", []byte("Date,PDM\n2024-01-01,1\n2024-01-02,2\n")),
		common.BytesSource("fevrier.xlsx", xlsx(t, [][]any{{"Date", "TV"}, {"2024-02-01", 40}})),
		common.BytesSource("mars.csv", []byte("PDM;Date\n3;2024-03-01\n")),
	}

	var fractions []float64
	sink := common.ProgressFunc(func(p common.Progress) { fractions = append(fractions, p.Fraction()) })

	res, err := Concat(context.Background(), files, nil, sink, nil)
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	if res.Merged != 3 || len(res.Errors) != 0 {
		t.Fatalf("Merged = %d, Errors = %v", res.Merged, res.Errors)
	}

	want := "Date,PDM,TV\n" +
		"2024-01-01,1,\n" +
		"2024-01-02,2,\n" +
		"2024-02-01,,40\n" +
		"2024-03-01,3,\n"
	got, err := res.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", got, want)
	}

	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Errorf("progress decreased: %v", fractions)
		}
	}
	if fractions[len(fractions)-1] != 1.0 {
		t.Errorf("final progress = %v, want 1", fractions[len(fractions)-1])
	}
}

func TestConcatSkipsBadFiles(t *testing.T) {
	files := []common.SourceFile{
		common.BytesSource("notes.txt", []byte("hello")),
		common.BytesSource("ok.csv", []byte("a\n1\n")),
		common.BytesSource("empty.csv", nil),
		{Name: "gone.csv", Open: func() (io.ReadCloser, error) { return nil, errors.New("upload expired") }},
	}

	res, err := Concat(context.Background(), files, nil, nil, nil)
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	if res.Merged != 1 {
		t.Errorf("Merged = %d, want 1", res.Merged)
	}
	if len(res.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %v", res.Errors)
	}
	if !common.Is(res.Errors[0], common.ErrUnsupported) {
		t.Errorf("expected UNSUPPORTED_FORMAT, got %v", res.Errors[0])
	}
	var ce *common.ConversionError
	if !errors.As(res.Errors[1], &ce) || ce.Path != "empty.csv" {
		t.Errorf("error not attributed to empty.csv: %v", res.Errors[1])
	}
}

func TestConcatDuplicateHeaders(t *testing.T) {
	files := []common.SourceFile{
		common.BytesSource("dup.csv", []byte("a,a,b\n1,2,3\n")),
	}
	res, err := Concat(context.Background(), files, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "a.1", "b"}, res.Table.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestConcatNothingMerged(t *testing.T) {
	res, err := Concat(context.Background(), nil, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	payload, err := res.Encode()
	if err != nil || len(payload) != 0 {
		t.Errorf("Encode() = %q, %v; want empty", payload, err)
	}
}

func TestConcatCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	files := []common.SourceFile{common.BytesSource("a.csv", []byte("a\n1\n"))}
	if _, err := Concat(ctx, files, nil, nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
