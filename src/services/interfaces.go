package services

import (
	"context"
	"io"

	"github.com/username/folioimport/src/models"
)

// ResolvedInstrument is one "valid" entry of a resolver response. The symbol
// may be exchange-qualified and differ from what was submitted.
type ResolvedInstrument struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Sector   string `json:"sector"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
}

// ResolveResult is the outcome of one batched resolver call.
type ResolveResult struct {
	Valid      []ResolvedInstrument `json:"valid"`
	Unresolved []string             `json:"unresolved"`
}

// ResolverService maps ticker symbols (plus optional currency hints) to
// exchange-qualified instruments. Batched, order-independent.
type ResolverService interface {
	ResolveTickers(ctx context.Context, symbols []string, currencyHints []string) (*ResolveResult, error)
}

// SearchService performs fuzzy/prefix ticker search.
type SearchService interface {
	SearchTicker(ctx context.Context, query string) ([]models.Suggestion, error)
}

// PositionService creates positions in a portfolio in bulk.
type PositionService interface {
	CreatePositions(ctx context.Context, portfolioID int64, positions []models.PositionRequest) (*models.ImportReport, error)
}

// SessionSummary carries per-status row counts for one import session.
type SessionSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Valid      int `json:"valid"`
	Unresolved int `json:"unresolved"`
	Importing  int `json:"importing"`
	Imported   int `json:"imported"`
	Failed     int `json:"failed"`
}

// SessionSnapshot is the state of one import session as returned to the
// caller after every operation.
type SessionSnapshot struct {
	ID      string             `json:"id"`
	Rows    []models.ParsedRow `json:"rows"`
	Summary SessionSummary     `json:"summary"`
}

// ImportService drives the import workflow: materialize a file into a
// session, reconcile tickers against the resolver, support corrections, and
// commit the valid rows as positions.
type ImportService interface {
	CreateSession(ctx context.Context, file io.Reader, filename string) (*SessionSnapshot, error)
	GetSession(sessionID string) (*SessionSnapshot, error)
	UpdateTicker(sessionID, rowID, ticker string) error
	GetSuggestions(sessionID, rowID string) ([]models.Suggestion, error)
	SelectSuggestion(ctx context.Context, sessionID, rowID, symbol string) (*SessionSnapshot, error)
	Revalidate(ctx context.Context, sessionID string) (*SessionSnapshot, error)
	Commit(ctx context.Context, sessionID string, portfolioID int64) (*models.ImportReport, error)
	CloseSession(sessionID string)
}
