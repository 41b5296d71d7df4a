// Package sqlite registers the "sqlite" engine, reading desktop database files
// through the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/darianmavgo/mkcsv/converters"
	"github.com/darianmavgo/mkcsv/converters/common"

	_ "modernc.org/sqlite"
)

// Name is the engine name used in configuration.
const Name = "sqlite"

func init() {
	converters.Register(Name, &Engine{})
}

// Engine implements common.Engine for SQLite database files.
type Engine struct{}

// Ensure Engine implements common.Engine
var _ common.Engine = (*Engine)(nil)

// DriverName implements common.Engine
func (e *Engine) DriverName() string {
	return "sqlite"
}

// DSN implements common.Engine. Files are opened read-only so a missing
// path fails instead of creating an empty database.
func (e *Engine) DSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // volume-prefixed paths
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "mode=ro"}
	return u.String(), nil
}

// ProbeSQL implements common.Engine
func (e *Engine) ProbeSQL() string {
	return "SELECT count(*) FROM sqlite_master"
}

// ListTablesSQL implements common.Engine
func (e *Engine) ListTablesSQL() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'`
}

// ColumnsSQL implements common.Engine
func (e *Engine) ColumnsSQL() string {
	return "SELECT name FROM pragma_table_info(?) ORDER BY cid"
}

// QuoteIdent implements common.Engine. Backticks are used because SQLite
// treats an unknown double-quoted identifier as a string literal.
func (e *Engine) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
