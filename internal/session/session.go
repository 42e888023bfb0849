package session

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/csvchat/csvchat/internal/config"
	"github.com/csvchat/csvchat/internal/dataset"
	"github.com/csvchat/csvchat/internal/enricher"
	"github.com/csvchat/csvchat/internal/genai"
	"github.com/csvchat/csvchat/internal/profiler"
	"github.com/csvchat/csvchat/internal/store"
	"github.com/csvchat/csvchat/internal/translator"
)

// State tracks the session lifecycle. Closed is terminal.
type State int

const (
	StateUninitialized State = iota
	StateMaterialized
	StateEnriched
	StateClosed
)

// Options configures a session.
type Options struct {
	CSVPath         string
	TableName       string // store table name; defaults to the dataset name
	ReferenceSchema string // optional static reference-table description
	Store           config.StoreConfig
	DropOnClose     bool // drop the ingested table before releasing the store
}

// QueryResult is the outcome of one Ask: the generated query plus either rows
// or an explicit failure reason. Never retained across questions.
type QueryResult struct {
	Query         string
	Columns       []string
	Rows          [][]any
	FailureReason string
}

// Failed reports whether the ask ended in a translation or execution failure.
func (r QueryResult) Failed() bool {
	return r.FailureReason != ""
}

// Session is the aggregate root of one interactive run. It exclusively owns
// the backing store, the profiled schema, the enriched schema, and the
// completion client handle. Sessions are single-user and strictly sequential;
// only Close is guarded for exactly-once execution.
type Session struct {
	opts       Options
	llm        genai.CompletionClient
	enricher   *enricher.Service
	translator *translator.Service

	store    *store.Store
	data     *dataset.Dataset
	schema   profiler.TableSchema
	enriched string
	state    State

	closeOnce sync.Once
}

// New constructs a session with its dependencies injected. The store is not
// opened until Start.
func New(opts Options, llm genai.CompletionClient) *Session {
	return &Session{
		opts:       opts,
		llm:        llm,
		enricher:   enricher.NewService(llm),
		translator: translator.NewService(llm, dialectName(opts.Store.Engine)),
	}
}

func dialectName(engine string) string {
	switch engine {
	case "sqlite":
		return "SQLite"
	default:
		return "DuckDB"
	}
}

// TableName returns the name the dataset is materialized under.
func (s *Session) TableName() string {
	if s.opts.TableName != "" {
		return s.opts.TableName
	}
	if s.data != nil {
		return s.data.Name
	}
	return ""
}

// EnrichedSchema returns the cached enriched schema ("" before EnrichOnce).
func (s *Session) EnrichedSchema() string {
	return s.enriched
}

// Schema returns the profiled table schema.
func (s *Session) Schema() profiler.TableSchema {
	return s.schema
}

// Start ingests the dataset, profiles it, and materializes it into the store
// under the session table name. Ingestion failures abort the start; no
// partial session survives them.
func (s *Session) Start(ctx context.Context) error {
	if s.state == StateClosed {
		return ErrSessionClosed
	}

	ds, err := dataset.LoadCSV(s.opts.CSVPath)
	if err != nil {
		return &ErrIngestion{Msg: "failed to load dataset", Err: err}
	}
	s.data = ds
	s.schema = profiler.Profile(ds)

	if s.store == nil {
		st, err := store.New(s.opts.Store)
		if err != nil {
			return &ErrIngestion{Msg: "failed to open store", Err: err}
		}
		s.store = st
	}

	rows, err := typedRows(s.schema, ds)
	if err != nil {
		return &ErrIngestion{Msg: "failed to convert dataset rows", Err: err}
	}
	if err := s.store.Replace(ctx, s.TableName(), s.schema, rows); err != nil {
		return &ErrIngestion{Msg: "failed to materialize dataset", Err: err}
	}

	log.Printf("INFO: Materialized table '%s' (%d columns, %d rows) into %s store.",
		s.TableName(), len(s.schema.Columns), len(rows), s.opts.Store.Engine)
	s.state = StateMaterialized
	return nil
}

// EnrichOnce invokes the schema enricher exactly once per session. Subsequent
// calls return the cached result without touching the completion capability.
func (s *Session) EnrichOnce(ctx context.Context) (string, error) {
	if s.state == StateClosed {
		return "", ErrSessionClosed
	}
	if s.state == StateUninitialized {
		return "", &ErrEnrichment{Msg: "session not started", Err: fmt.Errorf("call Start before EnrichOnce")}
	}
	if s.enriched != "" {
		return s.enriched, nil
	}

	enriched, err := s.enricher.Enrich(ctx, s.schema)
	if err != nil {
		return "", &ErrEnrichment{Msg: "schema enrichment failed", Err: err}
	}
	s.enriched = enriched
	s.state = StateEnriched
	return s.enriched, nil
}

// Ask translates one natural-language question and executes the resulting
// query. Translation and execution failures are reported inside the
// QueryResult and never end the session; each ask is independent.
func (s *Session) Ask(ctx context.Context, question string) (QueryResult, error) {
	if s.state == StateClosed {
		return QueryResult{}, ErrSessionClosed
	}
	if s.enriched == "" {
		return QueryResult{}, ErrNotEnriched
	}
	if strings.TrimSpace(question) == "" {
		return QueryResult{}, ErrBlankQuestion
	}

	query, err := s.translator.Translate(ctx, s.enriched, question, s.opts.ReferenceSchema)
	if err != nil {
		return QueryResult{FailureReason: fmt.Sprintf("translation failed: %v", err)}, nil
	}

	result, err := s.store.Query(ctx, query)
	if err != nil {
		return QueryResult{Query: query, FailureReason: err.Error()}, nil
	}

	return QueryResult{
		Query:   query,
		Columns: result.Columns,
		Rows:    result.Rows,
	}, nil
}

// Close tears the session down exactly once: best-effort drop of the ingested
// table (when configured), then release of the store connection. Failures are
// logged, never re-raised; a drop failure does not prevent the release. After
// Close the session is terminal.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.store != nil {
			if s.opts.DropOnClose && s.TableName() != "" {
				if err := s.store.DropTable(context.Background(), s.TableName()); err != nil {
					log.Printf("WARN: Failed to drop table '%s' during teardown: %v", s.TableName(), err)
				}
			}
			if err := s.store.Close(); err != nil {
				log.Printf("WARN: Failed to release store connection during teardown: %v", err)
			}
		}
		s.state = StateClosed
	})
}

// typedRows converts raw dataset cells into store values according to the
// profiled column types. Empty cells become NULL; text is lowercased so that
// lowercased query literals match stored values.
func typedRows(schema profiler.TableSchema, ds *dataset.Dataset) ([][]any, error) {
	rows := make([][]any, len(ds.Rows))
	for r, raw := range ds.Rows {
		row := make([]any, len(schema.Columns))
		for c, col := range schema.Columns {
			var cell string
			if c < len(raw) {
				cell = strings.TrimSpace(raw[c])
			}
			if cell == "" {
				row[c] = nil
				continue
			}
			switch col.Type {
			case profiler.TypeInteger:
				n, err := strconv.ParseInt(cell, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("row %d, column '%s': %w", r+1, col.Name, err)
				}
				row[c] = n
			case profiler.TypeFloat:
				f, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("row %d, column '%s': %w", r+1, col.Name, err)
				}
				row[c] = f
			default:
				row[c] = strings.ToLower(cell)
			}
		}
		rows[r] = row
	}
	return rows, nil
}
