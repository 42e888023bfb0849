package duckdb

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/csvchat/csvchat/internal/config"
	"github.com/csvchat/csvchat/internal/profiler"
	"github.com/csvchat/csvchat/internal/store"
)

// Handler implements store.DialectHandler for the embedded DuckDB engine.
type Handler struct{}

func init() {
	store.RegisterDialectHandler("duckdb", &Handler{})
}

// Open opens the DuckDB database at cfg.Path. An empty path opens an
// in-memory database.
func (h *Handler) Open(cfg config.StoreConfig) (*sql.DB, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb database: %w", err)
	}
	return db, nil
}

func (h *Handler) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (h *Handler) ColumnType(columnType profiler.ColumnType) string {
	switch columnType {
	case profiler.TypeInteger:
		return "BIGINT"
	case profiler.TypeFloat:
		return "DOUBLE"
	default:
		return "VARCHAR"
	}
}
