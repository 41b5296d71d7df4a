package converters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/darianmavgo/mkcsv/converters/common"

	"golang.org/x/text/encoding"
)

// Reader opens legacy database files through an Engine and streams rows out of them.
// A Reader holds no open resources between calls.
type Reader struct {
	engine    common.Engine
	chunkSize int
	encoding  encoding.Encoding
	stall     time.Duration
	logger    *slog.Logger
}

// NewReader creates a Reader for engine. A nil config uses the defaults.
func NewReader(engine common.Engine, config *common.ConversionConfig, logger *slog.Logger) (*Reader, error) {
	if engine == nil {
		return nil, common.New(common.ErrConfiguration, "", "reader requires an engine")
	}
	cfg := config.WithDefaults()

	enc, err := common.LookupEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	stall, err := cfg.StallDuration()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Reader{
		engine:    engine,
		chunkSize: cfg.ChunkSize,
		encoding:  enc,
		stall:     stall,
		logger:    logger,
	}, nil
}

// session is one scoped connection to one database file.
type session struct {
	db   *sql.DB
	conn *sql.Conn
}

func (s *session) Close() error {
	return errors.Join(s.conn.Close(), s.db.Close())
}

// open connects to the file at path and proves it is a readable database.
// On error nothing is left open.
func (r *Reader) open(ctx context.Context, path string) (*session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, common.Wrap(common.ErrConnection, path, "failed to stat database file", err)
	}
	if info.IsDir() {
		return nil, common.New(common.ErrConnection, path, "database path is a directory")
	}

	dsn, err := r.engine.DSN(path)
	if err != nil {
		return nil, common.Wrap(common.ErrConnection, path, "failed to build data source name", err)
	}

	db, err := sql.Open(r.engine.DriverName(), dsn)
	if err != nil {
		return nil, common.Wrap(common.ErrConnection, path, "failed to open database", err)
	}
	// One file, one connection.
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, common.Wrap(common.ErrConnection, path, "failed to connect", err)
	}

	var probe any
	if err := conn.QueryRowContext(ctx, r.engine.ProbeSQL()).Scan(&probe); err != nil {
		conn.Close()
		db.Close()
		return nil, common.Wrap(common.ErrConnection, path, "file is not a readable database", err)
	}

	r.logger.Debug("connected", "path", path, "engine", r.engine.DriverName())
	return &session{db: db, conn: conn}, nil
}

// Extract runs one projection query against table and hands the rows to yield
// in batches of at most ChunkSize rows. Columns default to every column in schema
// order. At least one batch is always yielded so an empty table still reports
// its columns. An error returned by yield stops the read and is returned unchanged.
func (r *Reader) Extract(ctx context.Context, path, table string, columns []string, yield func(common.RowBatch) error) error {
	query, err := common.GenSelectSQL(r.engine.QuoteIdent, table, columns)
	if err != nil {
		return common.Wrap(common.ErrQuery, path, "invalid selection", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wd := common.NewWatchdog(r.stall)
	done := wd.Start()
	defer wd.Stop()
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()

	s, err := r.open(ctx, path)
	if err != nil {
		if wd.Fired() {
			return stalled(path, wd, err)
		}
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			r.logger.Warn("failed to close connection", "path", path, "error", cerr)
		}
	}()

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		if wd.Fired() {
			return stalled(path, wd, err)
		}
		return common.Wrap(common.ErrQuery, path, fmt.Sprintf("query on table %s failed", table), err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return common.Wrap(common.ErrRead, path, "failed to read result columns", err)
	}
	if len(columns) > 0 {
		if len(columns) != len(names) {
			return common.New(common.ErrQuery, path, fmt.Sprintf("requested %d columns, query returned %d", len(columns), len(names)))
		}
		names = append([]string(nil), columns...)
	}

	var dec *encoding.Decoder
	if r.encoding != nil {
		dec = r.encoding.NewDecoder()
	}

	batch := common.RowBatch{Columns: names, Rows: make([][]any, 0, min(r.chunkSize, 1024))}
	yielded, total := 0, 0

	for rows.Next() {
		values := make([]any, len(names))
		dest := make([]any, len(names))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return common.Wrap(common.ErrRead, path, fmt.Sprintf("failed to scan row %d", total+1), err)
		}
		for i, v := range values {
			nv, err := normalizeValue(dec, v)
			if err != nil {
				return common.Wrap(common.ErrRead, path, fmt.Sprintf("failed to decode column %s", names[i]), err)
			}
			values[i] = nv
		}
		batch.Rows = append(batch.Rows, values)
		total++

		if len(batch.Rows) >= r.chunkSize {
			if err := yield(batch); err != nil {
				return err
			}
			yielded++
			wd.Kick()
			r.logger.Debug("chunk extracted", "path", path, "table", table, "chunk", yielded, "rows", total)
			batch = common.RowBatch{Columns: names, Rows: make([][]any, 0, min(r.chunkSize, 1024))}
		}
	}
	if err := rows.Err(); err != nil {
		if wd.Fired() {
			return stalled(path, wd, err)
		}
		return common.Wrap(common.ErrRead, path, fmt.Sprintf("extraction stopped after %d rows", total), err)
	}

	if len(batch.Rows) > 0 || yielded == 0 {
		if err := yield(batch); err != nil {
			return err
		}
	}
	r.logger.Debug("table extracted", "path", path, "table", table, "rows", total)
	return nil
}

// stalled reports a read cancelled by the watchdog, whichever step it interrupted.
func stalled(path string, wd *common.Watchdog, err error) error {
	return common.Wrap(common.ErrRead, path, fmt.Sprintf("no progress within %s", wd.Timeout()), errors.Join(common.ErrStalled, err))
}

// normalizeValue turns driver values into the types the encoder understands.
// Text is decoded from the configured legacy code page when dec is set.
func normalizeValue(dec *encoding.Decoder, v any) (any, error) {
	switch x := v.(type) {
	case []byte:
		if dec != nil {
			return dec.String(string(x))
		}
		return string(x), nil
	case string:
		if dec != nil {
			return dec.String(x)
		}
		return x, nil
	}
	return v, nil
}
