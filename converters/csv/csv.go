package csv

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/darianmavgo/mkcsv/converters/common"
)

// TimeLayout is the layout used for time values.
const TimeLayout = "2006-01-02 15:04:05"

// Encoder writes rows as UTF-8, comma separated CSV with a header row.
type Encoder struct {
	w       *csv.Writer
	columns []string
	rows    int
	record  []string
}

// NewEncoder writes the header for columns to w and returns an Encoder for the rows.
func NewEncoder(w io.Writer, columns []string) (*Encoder, error) {
	if len(columns) == 0 {
		return nil, common.New(common.ErrEncoding, "", "at least one column is required")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return nil, common.Wrap(common.ErrEncoding, "", "failed to write header", err)
	}

	return &Encoder{
		w:       cw,
		columns: append([]string(nil), columns...),
		record:  make([]string, len(columns)),
	}, nil
}

// Rows returns the number of data rows written so far.
func (e *Encoder) Rows() int {
	return e.rows
}

// Write encodes one row. The row must have exactly one value per column.
func (e *Encoder) Write(row []any) error {
	if len(row) != len(e.columns) {
		return common.New(common.ErrEncoding, "", fmt.Sprintf("row %d has %d values, want %d", e.rows+1, len(row), len(e.columns)))
	}
	for i, v := range row {
		s, err := FormatValue(v)
		if err != nil {
			return common.Wrap(common.ErrEncoding, "", fmt.Sprintf("row %d, column %s", e.rows+1, e.columns[i]), err)
		}
		e.record[i] = s
	}
	if err := e.w.Write(e.record); err != nil {
		return common.Wrap(common.ErrEncoding, "", "failed to write row", err)
	}
	e.rows++
	return nil
}

// WriteBatch encodes every row of b. The batch columns must match the header.
func (e *Encoder) WriteBatch(b common.RowBatch) error {
	if len(b.Columns) != len(e.columns) {
		return common.New(common.ErrEncoding, "", fmt.Sprintf("batch has %d columns, want %d", len(b.Columns), len(e.columns)))
	}
	for i, c := range b.Columns {
		if c != e.columns[i] {
			return common.New(common.ErrEncoding, "", fmt.Sprintf("batch column %d is %s, want %s", i, c, e.columns[i]))
		}
	}
	for _, row := range b.Rows {
		if err := e.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (e *Encoder) Flush() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return common.Wrap(common.ErrEncoding, "", "failed to flush", err)
	}
	return nil
}

// EncodeCSV encodes columns and rows into a CSV payload.
func EncodeCSV(columns []string, rows [][]any) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, columns)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := enc.Write(row); err != nil {
			return nil, err
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatValue renders one value as a CSV field.
// NULL becomes an empty field; unsupported types are an error.
func FormatValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return x.Format(TimeLayout), nil
	}
	return "", fmt.Errorf("unsupported value type %T", v)
}

// Table is a parsed CSV file: a header and rows padded to its width.
type Table struct {
	Header []string
	Rows   [][]string
}

var emptyPadding = make([]string, 1024)

// padRow pads or truncates the row to match the target length.
func padRow(row []string, targetLen int) []string {
	if len(row) < targetLen {
		needed := targetLen - len(row)
		if needed <= len(emptyPadding) {
			row = append(row, emptyPadding[:needed]...)
		} else {
			row = append(row, make([]string, needed)...)
		}
	} else if len(row) > targetLen {
		row = row[:targetLen]
	}
	return row
}

// ReadTable parses a CSV stream whose first record is the header.
// The delimiter is detected from the first line when config.Delimiter is 0.
func ReadTable(r io.Reader, config *common.ConversionConfig) (*Table, error) {
	var delimiter rune
	if config != nil {
		delimiter = config.Delimiter
	}

	br := bufio.NewReaderSize(r, 65536)
	// Skip a UTF-8 byte order mark, common in spreadsheet exports.
	if bom, _ := br.Peek(3); bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}

	if delimiter == 0 {
		peekBytes, _ := br.Peek(2048)
		sample := string(peekBytes)
		if idx := strings.IndexAny(sample, "\r\n"); idx != -1 {
			sample = sample[:idx]
		}
		delimiter = common.DetectDelimiter(sample)
	}

	reader := csv.NewReader(br)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, common.New(common.ErrRead, "", "CSV file is empty")
		}
		return nil, common.Wrap(common.ErrRead, "", "failed to read CSV header", err)
	}

	t := &Table{Header: header}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, common.Wrap(common.ErrRead, "", fmt.Sprintf("failed to read CSV row %d", len(t.Rows)+1), err)
		}
		t.Rows = append(t.Rows, padRow(row, len(header)))
	}
	return t, nil
}
