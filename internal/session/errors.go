package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for lifecycle misuse. These surface to the caller directly
// rather than as QueryResult failures because no query is ever attempted.
var (
	ErrBlankQuestion = errors.New("question is empty")
	ErrNotEnriched   = errors.New("schema has not been enriched yet")
	ErrSessionClosed = errors.New("session is closed")
)

// ErrIngestion represents a failure reading or materializing the source
// dataset. Fatal to session start; no partial session is created.
type ErrIngestion struct {
	Msg string
	Err error
}

// ErrEnrichment represents a failure of the one-shot schema enrichment.
// Fatal to session start; the interactive phase never begins.
type ErrEnrichment struct {
	Msg string
	Err error
}

func (e *ErrIngestion) Error() string {
	return fmt.Sprintf("ingestion error: %s: %v", e.Msg, e.Err)
}

func (e *ErrIngestion) Unwrap() error {
	return e.Err
}

func (e *ErrEnrichment) Error() string {
	return fmt.Sprintf("enrichment error: %s: %v", e.Msg, e.Err)
}

func (e *ErrEnrichment) Unwrap() error {
	return e.Err
}
