package session

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvchat/csvchat/internal/config"
	"github.com/csvchat/csvchat/internal/dataset"
	"github.com/csvchat/csvchat/internal/profiler"
	"github.com/csvchat/csvchat/internal/store"
)

type fakeCompletionClient struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeCompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no fake response configured")
	}
	response := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return response, nil
}

func (f *fakeCompletionClient) IsAPIKeyValid(ctx context.Context) error { return nil }

func (f *fakeCompletionClient) Close() error { return nil }

type testDialectHandler struct{}

func (h *testDialectHandler) Open(cfg config.StoreConfig) (*sql.DB, error) {
	db, _, err := sqlmock.New()
	return db, err
}

func (h *testDialectHandler) QuoteIdentifier(name string) string {
	return `"` + name + `"`
}

func (h *testDialectHandler) ColumnType(columnType profiler.ColumnType) string {
	switch columnType {
	case profiler.TypeInteger:
		return "BIGINT"
	case profiler.TypeFloat:
		return "DOUBLE"
	default:
		return "VARCHAR"
	}
}

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scores.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newTestSession builds a session over a sqlmock-backed store and registers
// the expectations for Start's materialization of the test CSV.
func newTestSession(t *testing.T, llm *fakeCompletionClient) (*Session, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	sess := New(Options{
		CSVPath:     writeTempCSV(t, "name,score\nAlice,3\nBob,5\n"),
		TableName:   "scores",
		Store:       config.StoreConfig{Engine: "duckdb"},
		DropOnClose: true,
	}, llm)
	sess.store = &store.Store{Pool: db, Handler: &testDialectHandler{}}

	mock.ExpectExec(`DROP TABLE IF EXISTS "scores"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE "scores" ("name" VARCHAR, "score" BIGINT)`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "scores" VALUES (?, ?)`).WithArgs("alice", int64(3)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO "scores" VALUES (?, ?)`).WithArgs("bob", int64(5)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	return sess, mock
}

func TestStartIngestionFailure(t *testing.T) {
	sess := New(Options{
		CSVPath: filepath.Join(t.TempDir(), "missing.csv"),
		Store:   config.StoreConfig{Engine: "duckdb"},
	}, &fakeCompletionClient{})

	err := sess.Start(context.Background())
	require.Error(t, err)

	var ingestionErr *ErrIngestion
	assert.ErrorAs(t, err, &ingestionErr)
}

func TestStartMaterializesLowercasedText(t *testing.T) {
	// The insert expectations in newTestSession assert that text cells are
	// lowercased and numeric cells are typed.
	sess, mock := newTestSession(t, &fakeCompletionClient{})
	defer sess.Close()

	require.NoError(t, sess.Start(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "scores", sess.TableName())
}

func TestAskRequiresEnrichment(t *testing.T) {
	llm := &fakeCompletionClient{responses: []string{"SELECT 1"}}
	sess, _ := newTestSession(t, llm)
	defer sess.Close()

	require.NoError(t, sess.Start(context.Background()))

	_, err := sess.Ask(context.Background(), "what is the average score?")
	assert.ErrorIs(t, err, ErrNotEnriched)
	assert.Equal(t, 0, llm.calls)
}

func TestEnrichOnceIsIdempotent(t *testing.T) {
	llm := &fakeCompletionClient{responses: []string{"enriched text"}}
	sess, _ := newTestSession(t, llm)
	defer sess.Close()

	require.NoError(t, sess.Start(context.Background()))

	first, err := sess.EnrichOnce(context.Background())
	require.NoError(t, err)
	second, err := sess.EnrichOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "enriched text", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, llm.calls, "completion capability must be invoked exactly once")
}

func TestEnrichmentFailureBlocksInteractivePhase(t *testing.T) {
	llm := &fakeCompletionClient{err: errors.New("api unreachable")}
	sess, _ := newTestSession(t, llm)
	defer sess.Close()

	require.NoError(t, sess.Start(context.Background()))

	_, err := sess.EnrichOnce(context.Background())
	require.Error(t, err)
	var enrichmentErr *ErrEnrichment
	assert.ErrorAs(t, err, &enrichmentErr)

	_, err = sess.Ask(context.Background(), "anything?")
	assert.ErrorIs(t, err, ErrNotEnriched)
}

func TestAskBlankQuestion(t *testing.T) {
	llm := &fakeCompletionClient{responses: []string{"enriched text"}}
	sess, _ := newTestSession(t, llm)
	defer sess.Close()

	require.NoError(t, sess.Start(context.Background()))
	_, err := sess.EnrichOnce(context.Background())
	require.NoError(t, err)

	_, err = sess.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrBlankQuestion)
	assert.Equal(t, 1, llm.calls, "blank input must not reach the completion capability")
}

func TestAskExecutesTranslatedQuery(t *testing.T) {
	llm := &fakeCompletionClient{responses: []string{"enriched text", "SELECT avg(score) FROM scores"}}
	sess, mock := newTestSession(t, llm)
	defer sess.Close()

	require.NoError(t, sess.Start(context.Background()))
	_, err := sess.EnrichOnce(context.Background())
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT avg(score) FROM scores`).
		WillReturnRows(sqlmock.NewRows([]string{"avg(score)"}).AddRow(4.0))

	result, err := sess.Ask(context.Background(), "what is the average score?")
	require.NoError(t, err)

	assert.False(t, result.Failed())
	assert.Equal(t, "SELECT avg(score) FROM scores", result.Query)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, 4.0, result.Rows[0][0])
}

func TestAskTranslationFailureKeepsSessionOpen(t *testing.T) {
	llm := &fakeCompletionClient{responses: []string{"enriched text"}}
	sess, mock := newTestSession(t, llm)
	defer sess.Close()

	require.NoError(t, sess.Start(context.Background()))
	_, err := sess.EnrichOnce(context.Background())
	require.NoError(t, err)

	llm.err = errors.New("api unreachable")
	result, err := sess.Ask(context.Background(), "how many rows?")
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Contains(t, result.FailureReason, "translation failed")

	// The session stays usable for the next question.
	llm.err = nil
	llm.responses = []string{"SELECT count(*) FROM scores"}
	mock.ExpectQuery(`SELECT count(*) FROM scores`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	result, err = sess.Ask(context.Background(), "how many rows?")
	require.NoError(t, err)
	assert.False(t, result.Failed())
}

func TestAskExecutionFailureIsIsolated(t *testing.T) {
	llm := &fakeCompletionClient{responses: []string{"enriched text", "SELECT nope FROM scores", "SELECT count(*) FROM scores"}}
	sess, mock := newTestSession(t, llm)
	defer sess.Close()

	require.NoError(t, sess.Start(context.Background()))
	_, err := sess.EnrichOnce(context.Background())
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT nope FROM scores`).WillReturnError(errors.New(`column "nope" does not exist`))

	result, err := sess.Ask(context.Background(), "a question that yields bad sql")
	require.NoError(t, err, "execution failures must not surface as session faults")
	assert.True(t, result.Failed())
	assert.Equal(t, "SELECT nope FROM scores", result.Query)
	assert.Contains(t, result.FailureReason, "nope")

	mock.ExpectQuery(`SELECT count(*) FROM scores`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	result, err = sess.Ask(context.Background(), "how many rows?")
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, int64(2), result.Rows[0][0])
}

func TestCloseDropsTableAndReleasesStore(t *testing.T) {
	llm := &fakeCompletionClient{responses: []string{"enriched text"}}
	sess, mock := newTestSession(t, llm)

	require.NoError(t, sess.Start(context.Background()))

	mock.ExpectExec(`DROP TABLE IF EXISTS "scores"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	sess.Close()
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err := sess.Ask(context.Background(), "anything?")
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = sess.EnrichOnce(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestCloseIsIdempotentAndBestEffort(t *testing.T) {
	llm := &fakeCompletionClient{}
	sess, mock := newTestSession(t, llm)

	require.NoError(t, sess.Start(context.Background()))

	// A drop failure must not prevent releasing the connection.
	mock.ExpectExec(`DROP TABLE IF EXISTS "scores"`).WillReturnError(errors.New("table is locked"))
	mock.ExpectClose()

	sess.Close()
	sess.Close() // second call is a no-op
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTypedRows(t *testing.T) {
	schema := profiler.TableSchema{
		Table: "t",
		Columns: []profiler.ColumnProfile{
			{Name: "n", Type: profiler.TypeInteger},
			{Name: "f", Type: profiler.TypeFloat},
			{Name: "s", Type: profiler.TypeString},
		},
	}
	ds := &dataset.Dataset{
		Name:    "t",
		Columns: []string{"n", "f", "s"},
		Rows:    [][]string{{"7", "1.5", "MiXeD Case"}, {"", "", ""}},
	}

	rows, err := typedRows(schema, ds)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []any{int64(7), 1.5, "mixed case"}, rows[0])
	assert.Equal(t, []any{nil, nil, nil}, rows[1])
}
