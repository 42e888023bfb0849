package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/csvchat/csvchat/internal/genai"
)

// Service maps a natural-language question to a single executable SQL string,
// grounded on the enriched schema. Best effort only: the output carries no
// correctness guarantee relative to user intent, and malformed queries are
// expected to surface at execution time.
type Service struct {
	llm     genai.CompletionClient
	dialect string
}

// NewService creates a translator targeting the given SQL dialect name
// (e.g. "DuckDB" or "SQLite"), which is named in the prompt.
func NewService(llm genai.CompletionClient, dialect string) *Service {
	if dialect == "" {
		dialect = "DuckDB"
	}
	return &Service{llm: llm, dialect: dialect}
}

// Translate builds the translation prompt from the enriched schema, the
// literal question, and the optional static reference schema, and returns the
// completion text with markdown fences and surrounding whitespace stripped.
// No further sanitization or validation of the query is performed.
func (s *Service) Translate(ctx context.Context, enrichedSchema, question, referenceSchema string) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("completion client is not configured")
	}
	if strings.TrimSpace(enrichedSchema) == "" {
		return "", fmt.Errorf("enriched schema is empty")
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question is empty")
	}

	text, err := s.llm.Complete(ctx, s.buildTranslationPrompt(enrichedSchema, question, referenceSchema))
	if err != nil {
		return "", fmt.Errorf("query translation failed: %w", err)
	}

	query := strings.TrimSpace(stripMarkdownSQL(text))
	if query == "" {
		return "", fmt.Errorf("query translation returned an empty result")
	}
	return query, nil
}

func (s *Service) buildTranslationPrompt(enrichedSchema, question, referenceSchema string) string {
	var reference string
	if strings.TrimSpace(referenceSchema) != "" {
		reference = fmt.Sprintf(`
	A second, static reference table is also available. The question may concern
	the main table, the reference table, or both; produce joins or filters that
	span both tables when the question warrants it.

	********** Reference Table Schema **********
	%s
	********** End Reference Table Schema **********
	`, referenceSchema)
	}

	return fmt.Sprintf(`
	Your task is to translate a natural-language question into a single %s SQL query.

	********** Enriched Schema **********
	%s
	********** End Enriched Schema **********
	%s
	**Question:** %s

	**Instructions:**
	1. Return ONLY the SQL query text. No prose, no explanation, no markdown formatting.
	2. Use only the tables and columns described in the schemas above.
	3. Write all literal string filter values in lowercase; stored text is lowercased.
	4. Produce exactly one query.

	SQL query:
	`, s.dialect, enrichedSchema, reference, question)
}

// stripMarkdownSQL removes a ```sql fenced block if the model added one
// despite the instructions.
func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
