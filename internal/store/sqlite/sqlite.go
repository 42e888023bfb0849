package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/csvchat/csvchat/internal/config"
	"github.com/csvchat/csvchat/internal/profiler"
	"github.com/csvchat/csvchat/internal/store"
)

// Handler implements store.DialectHandler for the embedded SQLite engine.
type Handler struct{}

func init() {
	store.RegisterDialectHandler("sqlite", &Handler{})
}

// Open opens the SQLite database at cfg.Path. An empty path opens an
// in-memory database.
func (h *Handler) Open(cfg config.StoreConfig) (*sql.DB, error) {
	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// The modernc driver serializes access through a single connection.
	db.SetMaxOpenConns(1)
	return db, nil
}

func (h *Handler) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (h *Handler) ColumnType(columnType profiler.ColumnType) string {
	switch columnType {
	case profiler.TypeInteger:
		return "INTEGER"
	case profiler.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}
