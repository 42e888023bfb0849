package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/csvchat/csvchat/internal/config"
	"github.com/csvchat/csvchat/internal/profiler"
)

// DialectHandler abstracts the engine-specific parts of the backing store:
// opening a connection, identifier quoting, and DDL type mapping.
type DialectHandler interface {
	Open(cfg config.StoreConfig) (*sql.DB, error)
	QuoteIdentifier(name string) string
	ColumnType(columnType profiler.ColumnType) string
}

var (
	dialectHandlers = make(map[string]DialectHandler)
	mu              sync.RWMutex
)

func RegisterDialectHandler(engine string, handler DialectHandler) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := dialectHandlers[engine]; exists {
		log.Printf("WARN: Dialect handler for '%s' is being overwritten.", engine)
	}
	dialectHandlers[engine] = handler
}

func GetDialectHandler(engine string) (DialectHandler, error) {
	mu.RLock()
	defer mu.RUnlock()
	handler, ok := dialectHandlers[engine]
	if !ok {
		return nil, fmt.Errorf("unsupported store engine: %s", engine)
	}
	return handler, nil
}

// Store holds the connection to the session's backing analytical store. The
// store is exclusively owned by one session; no locking beyond what the engine
// provides by default is needed.
type Store struct {
	Pool    *sql.DB
	Handler DialectHandler
	Config  config.StoreConfig
}

// Result is the outcome of one successful query execution: column names plus
// rows in order. It is ephemeral and never retained across queries.
type Result struct {
	Columns []string
	Rows    [][]any
}

func New(cfg config.StoreConfig) (*Store, error) {
	handler, err := GetDialectHandler(cfg.Engine)
	if err != nil {
		return nil, err
	}

	pool, err := handler.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store for engine %s: %w", cfg.Engine, err)
	}

	if err := pool.PingContext(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to store (ping failed) for engine %s: %w", cfg.Engine, err)
	}

	return &Store{
		Pool:    pool,
		Handler: handler,
		Config:  cfg,
	}, nil
}

// Replace materializes the dataset under the given table name, dropping any
// prior table of that name first. Re-materialization within a session simply
// overwrites.
func (s *Store) Replace(ctx context.Context, table string, schema profiler.TableSchema, rows [][]any) error {
	if len(schema.Columns) == 0 {
		return fmt.Errorf("cannot materialize table '%s': schema has no columns", table)
	}

	if err := s.DropTable(ctx, table); err != nil {
		return err
	}

	columnDefs := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		columnDefs[i] = fmt.Sprintf("%s %s", s.Handler.QuoteIdentifier(col.Name), s.Handler.ColumnType(col.Type))
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", s.Handler.QuoteIdentifier(table), strings.Join(columnDefs, ", "))
	if _, err := s.Pool.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table '%s': %w", table, err)
	}

	if len(rows) == 0 {
		return nil
	}

	placeholders := make([]string, len(schema.Columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s VALUES (%s)", s.Handler.QuoteIdentifier(table), strings.Join(placeholders, ", "))

	tx, err := s.Pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin bulk load transaction: %w", err)
	}
	for i, row := range rows {
		if len(row) != len(schema.Columns) {
			tx.Rollback()
			return fmt.Errorf("row %d has %d values, expected %d", i+1, len(row), len(schema.Columns))
		}
		if _, err := tx.ExecContext(ctx, insertSQL, row...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert row %d into '%s': %w", i+1, table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bulk load for '%s': %w", table, err)
	}
	return nil
}

// Query executes an arbitrary SQL string and returns the rows, or the
// execution fault as an error. No validation of the query is performed here.
func (s *Store) Query(ctx context.Context, sqlText string) (Result, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return Result{}, fmt.Errorf("query is empty")
	}

	rows, err := s.Pool.QueryContext(ctx, sqlText)
	if err != nil {
		return Result{}, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read result columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("failed to scan result row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("failed to iterate result rows: %w", err)
	}

	return Result{Columns: columns, Rows: resultRows}, nil
}

// DropTable removes the named table if it exists.
func (s *Store) DropTable(ctx context.Context, table string) error {
	dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", s.Handler.QuoteIdentifier(table))
	if _, err := s.Pool.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("failed to drop table '%s': %w", table, err)
	}
	return nil
}

// Close releases the store connection.
func (s *Store) Close() error {
	if s.Pool != nil {
		return s.Pool.Close()
	}
	return nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
