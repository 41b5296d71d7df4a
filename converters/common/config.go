package common

import (
	"strings"
	"time"
)

const (
	// DefaultChunkSize is the number of rows fetched per RowBatch.
	DefaultChunkSize = 10000
	// DefaultGroupSize is the number of files converted before results are flushed to the archive.
	DefaultGroupSize = 3
	// DefaultTableName is the table extracted when no selection is made and discovery is ambiguous.
	DefaultTableName = "Trafic_Minute"
	// DefaultArchiveName is the name given to the archive bundle.
	DefaultArchiveName = "converted.zip"
)

// ConversionConfig stores configuration options for the conversion process.
type ConversionConfig struct {
	Delimiter    rune     // Delimiter used for CSV parsing in concat mode (0 = detect)
	TableName    string   // Table to extract (empty = discover)
	Columns      []string // Column projection (empty = all columns)
	Sheet        string   // Workbook sheet read in concat mode (empty = first sheet)
	DefaultTable string   // Preferred table when discovery finds several
	ChunkSize    int      // Rows per fetched chunk
	GroupSize    int      // Files per flush group
	Encoding     string   // Legacy code page of text columns (empty = UTF-8)
	TempDir      string   // Directory for materialised uploads (empty = os.TempDir)
	ArchiveName  string   // Name of the produced archive
	StallTimeout string   // Duration string (e.g. "30s"); a read with no progress for this long is aborted
	Verbose      bool     // Enable detailed logging
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
// A nil receiver yields the full default configuration.
func (c *ConversionConfig) WithDefaults() ConversionConfig {
	var out ConversionConfig
	if c != nil {
		out = *c
		out.Columns = append([]string(nil), c.Columns...)
	}
	if out.ChunkSize <= 0 {
		out.ChunkSize = DefaultChunkSize
	}
	if out.GroupSize <= 0 {
		out.GroupSize = DefaultGroupSize
	}
	if out.DefaultTable == "" {
		out.DefaultTable = DefaultTableName
	}
	if out.ArchiveName == "" {
		out.ArchiveName = DefaultArchiveName
	}
	return out
}

// StallDuration parses StallTimeout. An empty string disables the timeout.
func (c *ConversionConfig) StallDuration() (time.Duration, error) {
	if c == nil || c.StallTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.StallTimeout)
	if err != nil {
		return 0, Wrap(ErrConfiguration, "", "invalid stall_timeout", err)
	}
	return d, nil
}

// DetectDelimiter attempts to detect the delimiter from a raw line of text.
// It checks common delimiters and returns the one that produces the most fields.
// Defaults to comma if line is empty or no clear winner.
func DetectDelimiter(line string) rune {
	if line == "" {
		return ','
	}

	delimiters := []rune{',', '\t', ';', '|'}
	maxCount := -1
	winner := ','

	for _, delim := range delimiters {
		count := strings.Count(line, string(delim))
		if count > maxCount {
			maxCount = count
			winner = delim
		}
	}

	return winner
}
