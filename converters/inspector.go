package converters

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/darianmavgo/mkcsv/converters/common"
)

// DiscoverSchema lists the user tables of the database at path and the columns
// of each, in definition order. System tables are left out by the engine's query.
func (r *Reader) DiscoverSchema(ctx context.Context, path string) (common.Schema, error) {
	s, err := r.open(ctx, path)
	if err != nil {
		return common.Schema{}, err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			r.logger.Warn("failed to close connection", "path", path, "error", cerr)
		}
	}()

	names, err := queryStrings(ctx, s.conn, r.engine.ListTablesSQL())
	if err != nil {
		return common.Schema{}, common.Wrap(common.ErrQuery, path, "failed to list tables", err)
	}

	schema := common.Schema{Tables: make([]common.Table, 0, len(names))}
	for _, name := range names {
		cols, err := queryStrings(ctx, s.conn, r.engine.ColumnsSQL(), name)
		if err != nil {
			return common.Schema{}, common.Wrap(common.ErrQuery, path, fmt.Sprintf("failed to list columns of %s", name), err)
		}
		schema.Tables = append(schema.Tables, common.Table{Name: name, Columns: cols})
	}

	r.logger.Debug("schema discovered", "path", path, "tables", len(schema.Tables))
	return schema, nil
}

func queryStrings(ctx context.Context, conn *sql.Conn, query string, args ...any) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
