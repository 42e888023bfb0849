package enricher

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/csvchat/csvchat/internal/genai"
	"github.com/csvchat/csvchat/internal/profiler"
)

// Service turns a profiled table schema into a semantically enriched one by
// sending it through the completion capability. Invoked exactly once per
// session, before any question can be answered.
type Service struct {
	llm genai.CompletionClient
}

func NewService(llm genai.CompletionClient) *Service {
	return &Service{llm: llm}
}

// Enrich serializes the schema into a prompt and returns the raw completion
// text as the enriched schema. The completion's exact formatting is not
// contractually guaranteed, so the text is accepted as-is (trimmed); no
// structured re-parsing is attempted.
func (s *Service) Enrich(ctx context.Context, schema profiler.TableSchema) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("completion client is not configured")
	}
	if len(schema.Columns) == 0 {
		return "", fmt.Errorf("schema for table '%s' has no columns", schema.Table)
	}

	startTime := time.Now()
	log.Printf("INFO: Starting schema enrichment for table '%s' (%d columns)...", schema.Table, len(schema.Columns))

	text, err := s.llm.Complete(ctx, buildEnrichmentPrompt(schema))
	if err != nil {
		return "", fmt.Errorf("schema enrichment failed for table '%s': %w", schema.Table, err)
	}

	enriched := strings.TrimSpace(text)
	if enriched == "" {
		return "", fmt.Errorf("schema enrichment for table '%s' returned an empty result", schema.Table)
	}

	log.Printf("INFO: Schema enrichment completed in %s.", time.Since(startTime))
	return enriched, nil
}

// buildEnrichmentPrompt renders the instructions and the profiled schema sent
// to the completion capability.
func buildEnrichmentPrompt(schema profiler.TableSchema) string {
	return fmt.Sprintf(`
	Your task is to enrich the following database schema with semantic descriptions.
	The schema was derived automatically from a tabular dataset; each column lists
	its name, declared type, value range (numeric columns only), and distinct values
	(or a note that there are too many to display). Column definitions are currently
	placeholders.

	********** Schema **********
	%s
	********** End Schema **********

	**Instructions:**
	1. For every column, describe what the column most likely means.
	2. Explain the typical values the column holds, using the listed ranges and distinct values.
	3. Identify relationships or dependencies between columns where the data suggests them.
	4. Mention potential use cases for each column in analytical queries.
	5. Keep the enriched schema in the same column order as the input.

	Produce the enriched schema now:
	`, schema.PromptText())
}
