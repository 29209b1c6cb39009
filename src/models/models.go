package models

import "math"

// RowStatus tracks a parsed row through reconciliation and commit.
type RowStatus string

const (
	StatusPending    RowStatus = "PENDING"
	StatusValid      RowStatus = "VALID"
	StatusUnresolved RowStatus = "UNRESOLVED"
	StatusImporting  RowStatus = "IMPORTING"
	StatusImported   RowStatus = "IMPORTED"
	StatusFailed     RowStatus = "FAILED"
)

// Terminal reports whether no further transition is possible for the status.
func (s RowStatus) Terminal() bool {
	return s == StatusImported || s == StatusFailed
}

// Resolution is the enrichment returned by the resolver for a matched ticker.
// It is replaced wholesale on re-validation, never merged.
type Resolution struct {
	Name     string `json:"name"`
	Sector   string `json:"sector"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
}

// ParsedRow is one candidate position extracted from an uploaded file.
type ParsedRow struct {
	ID string `json:"id"`

	// OriginalTicker is exactly as read from the file; immutable once created.
	OriginalTicker string `json:"original_ticker"`
	// CorrectedTicker is a user- or resolver-supplied replacement. Once set it
	// takes priority over OriginalTicker for search, resolution and commit.
	CorrectedTicker string `json:"corrected_ticker,omitempty"`

	Shares        float64 `json:"shares"`
	PurchasePrice float64 `json:"purchase_price"`

	Currency            string `json:"currency"`
	CurrencyWasExplicit bool   `json:"currency_was_explicit"`

	// EntryDate is canonical YYYY-MM-DD.
	EntryDate string `json:"entry_date"`

	Resolution *Resolution `json:"resolution,omitempty"`

	Status       RowStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`

	// Suggestions holds the current fuzzy-search results for this row while
	// the user is correcting an unresolved ticker.
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// EffectiveTicker returns CorrectedTicker if set, else OriginalTicker.
func (r *ParsedRow) EffectiveTicker() string {
	if r.CorrectedTicker != "" {
		return r.CorrectedTicker
	}
	return r.OriginalTicker
}

// Importable reports whether the row carries quantities a position could be
// built from. Unparseable numbers normalize to 0, so a zero value here means
// the source cell was broken; such rows never leave Pending.
func (r *ParsedRow) Importable() bool {
	return r.Shares > 0 && r.PurchasePrice > 0 && !math.IsInf(r.PurchasePrice, 1)
}

// Batch is the ordered set of rows extracted from one uploaded file. It lives
// for one import session and is never persisted.
type Batch struct {
	Rows []*ParsedRow `json:"rows"`
}

// Suggestion is one fuzzy-search result for a ticker correction.
type Suggestion struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Sector     string `json:"sector"`
	Country    string `json:"country"`
	AssetClass string `json:"asset_class"`
	Currency   string `json:"currency"`
}

// PositionRequest is one entry of the bulk position-creation payload.
type PositionRequest struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	EntryPrice  float64 `json:"entry_price"`
	EntryDate   string  `json:"entry_date"`
	Currency    string  `json:"currency,omitempty"`
	PricingMode string  `json:"pricing_mode"`
}

// FailedPosition is one per-row failure reported by the position service.
type FailedPosition struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// CreatedPosition is one successfully created position.
type CreatedPosition struct {
	Symbol string `json:"symbol"`
	ID     int64  `json:"id"`
}

// ImportReport aggregates the outcome of one commit. Partial success is a
// terminal, accepted outcome.
type ImportReport struct {
	Imported int               `json:"imported"`
	Errors   int               `json:"errors"`
	Created  []CreatedPosition `json:"created,omitempty"`
	Failed   []FailedPosition  `json:"failed,omitempty"`
	// Message carries the top-level error text when the whole commit failed.
	Message string `json:"message,omitempty"`
}
