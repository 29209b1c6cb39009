package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/models"
	"github.com/username/folioimport/src/parsers"
)

// importSession is one live Batch plus the bookkeeping around it. All field
// access goes through mu; the per-row search timers are cancel-and-replace
// keyed by row id.
type importSession struct {
	id string

	mu         sync.Mutex
	batch      *models.Batch
	timers     map[string]*time.Timer
	committing bool
}

func (s *importSession) row(rowID string) *models.ParsedRow {
	for _, r := range s.batch.Rows {
		if r.ID == rowID {
			return r
		}
	}
	return nil
}

// stopTimers cancels all pending debounced searches. Called under mu or when
// the session is being discarded.
func (s *importSession) stopTimers() {
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

type importServiceImpl struct {
	resolver  ResolverService
	search    SearchService
	positions PositionService
	sessions  *cache.Cache
	debounce  time.Duration
	strict    bool
}

// NewImportService wires the reconciliation engine and import orchestrator.
// Sessions live in the given cache and are discarded on expiry; a Batch is
// never persisted.
func NewImportService(
	resolver ResolverService,
	search SearchService,
	positions PositionService,
	sessions *cache.Cache,
	debounce time.Duration,
	strict bool,
) ImportService {
	sessions.OnEvicted(func(key string, value interface{}) {
		if sess, ok := value.(*importSession); ok {
			sess.mu.Lock()
			sess.stopTimers()
			sess.mu.Unlock()
			logger.L.Info("Import session discarded", "sessionID", key)
		}
	})
	return &importServiceImpl{
		resolver:  resolver,
		search:    search,
		positions: positions,
		sessions:  sessions,
		debounce:  debounce,
		strict:    strict,
	}
}

func (s *importServiceImpl) session(sessionID string) (*importSession, error) {
	v, found := s.sessions.Get(sessionID)
	if !found {
		return nil, ErrSessionNotFound
	}
	return v.(*importSession), nil
}

func (s *importServiceImpl) CreateSession(ctx context.Context, file io.Reader, filename string) (*SessionSnapshot, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	parser, err := parsers.GetParser(ext, s.strict)
	if err != nil {
		return nil, err
	}

	batch, err := parser.Parse(file)
	if err != nil {
		if err == parsers.ErrNoColumns {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	sess := &importSession{
		id:     uuid.New().String(),
		batch:  batch,
		timers: make(map[string]*time.Timer),
	}
	s.sessions.Set(sess.id, sess, cache.DefaultExpiration)
	logger.L.Info("Import session created", "sessionID", sess.id, "filename", filename, "rows", len(batch.Rows))

	s.runValidationRound(ctx, sess)
	return s.snapshot(sess), nil
}

func (s *importServiceImpl) GetSession(sessionID string) (*SessionSnapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(sess), nil
}

// UpdateTicker stores a draft ticker edit without changing the row's status
// (no status flicker while the user types) and schedules a debounced fuzzy
// search. A new edit for the same row cancels and replaces the pending one.
func (s *importServiceImpl) UpdateTicker(sessionID, rowID, ticker string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	row := sess.row(rowID)
	if row == nil {
		return ErrRowNotFound
	}
	row.CorrectedTicker = strings.TrimSpace(ticker)

	if t, ok := sess.timers[rowID]; ok {
		t.Stop()
	}
	sess.timers[rowID] = time.AfterFunc(s.debounce, func() {
		s.runRowSearch(sessionID, rowID)
	})
	return nil
}

// runRowSearch fires after the debounce window. It re-reads the row's current
// text under the session lock so the query always reflects the latest edit.
func (s *importServiceImpl) runRowSearch(sessionID, rowID string) {
	sess, err := s.session(sessionID)
	if err != nil {
		return // session expired while the timer was pending
	}

	sess.mu.Lock()
	delete(sess.timers, rowID)
	row := sess.row(rowID)
	if row == nil {
		sess.mu.Unlock()
		return
	}
	query := row.EffectiveTicker()
	sess.mu.Unlock()

	if query == "" {
		return
	}

	results, err := s.search.SearchTicker(context.Background(), query)
	if err != nil {
		logger.L.Warn("Ticker search failed", "sessionID", sessionID, "rowID", rowID, "query", query, "error", err)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if row := sess.row(rowID); row != nil {
		row.Suggestions = results
	}
}

func (s *importServiceImpl) GetSuggestions(sessionID, rowID string) ([]models.Suggestion, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	row := sess.row(rowID)
	if row == nil {
		return nil, ErrRowNotFound
	}
	out := make([]models.Suggestion, len(row.Suggestions))
	copy(out, row.Suggestions)
	return out, nil
}

// SelectSuggestion applies a search result to a row and revalidates the whole
// batch: the same symbol may appear in multiple rows and batching keeps the
// resolver round efficient.
func (s *importServiceImpl) SelectSuggestion(ctx context.Context, sessionID, rowID, symbol string) (*SessionSnapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	row := sess.row(rowID)
	if row == nil {
		sess.mu.Unlock()
		return nil, ErrRowNotFound
	}
	row.CorrectedTicker = strings.TrimSpace(symbol)
	row.Suggestions = nil
	row.Status = models.StatusPending
	row.ErrorMessage = ""
	if t, ok := sess.timers[rowID]; ok {
		t.Stop()
		delete(sess.timers, rowID)
	}
	sess.mu.Unlock()

	s.runValidationRound(ctx, sess)
	return s.snapshot(sess), nil
}

func (s *importServiceImpl) Revalidate(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.runValidationRound(ctx, sess)
	return s.snapshot(sess), nil
}

// runValidationRound submits every reconcilable row's effective ticker to the
// resolver in one batched call and applies the outcome. A submitted row never
// stays Pending after the round: it either becomes Valid or Unresolved.
func (s *importServiceImpl) runValidationRound(ctx context.Context, sess *importSession) {
	sess.mu.Lock()
	var submitted []*models.ParsedRow
	var symbols, hints []string
	for _, row := range sess.batch.Rows {
		if row.Status.Terminal() || row.Status == models.StatusImporting {
			continue
		}
		if row.EffectiveTicker() == "" {
			continue
		}
		if !row.Importable() {
			// Zero shares or a broken price can never become a position;
			// leave the row Pending for manual review.
			row.ErrorMessage = "invalid shares or purchase price"
			continue
		}
		submitted = append(submitted, row)
		symbols = append(symbols, row.EffectiveTicker())
		if row.CurrencyWasExplicit {
			hints = append(hints, row.Currency)
		} else {
			hints = append(hints, "")
		}
	}
	sess.mu.Unlock()

	if len(submitted) == 0 {
		return
	}

	result, err := s.resolver.ResolveTickers(ctx, symbols, hints)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err != nil {
		// Downgrade, never crash: every still-Pending submitted row becomes
		// Unresolved with a human-readable message so the user can retry.
		logger.L.Warn("Validation round failed", "sessionID", sess.id, "error", err)
		for _, row := range submitted {
			if row.Status == models.StatusPending {
				row.Status = models.StatusUnresolved
				row.ErrorMessage = fmt.Sprintf("ticker validation failed: %v", err)
			}
		}
		return
	}

	unresolved := make(map[string]bool, len(result.Unresolved))
	for _, sym := range result.Unresolved {
		unresolved[strings.ToUpper(sym)] = true
	}

	for i, row := range submitted {
		sym := symbols[i]
		if inst, ok := matchResolved(sym, result.Valid); ok {
			row.Status = models.StatusValid
			row.ErrorMessage = ""
			if !strings.EqualFold(inst.Symbol, row.EffectiveTicker()) {
				row.CorrectedTicker = inst.Symbol
			}
			row.Resolution = &models.Resolution{
				Name:     inst.Name,
				Sector:   inst.Sector,
				Country:  inst.Country,
				Currency: inst.Currency,
			}
			continue
		}
		row.Status = models.StatusUnresolved
		if unresolved[strings.ToUpper(sym)] {
			row.ErrorMessage = fmt.Sprintf("ticker %q could not be resolved", sym)
		} else {
			row.ErrorMessage = fmt.Sprintf("ticker %q not recognized by resolver", sym)
		}
	}
	logger.L.Info("Validation round applied", "sessionID", sess.id, "submitted", len(submitted))
}

// Commit builds position-creation payloads from all Valid rows and submits
// them in exactly one batched call. Partial success is a terminal outcome:
// succeeded rows stay Imported even when others fail.
func (s *importServiceImpl) Commit(ctx context.Context, sessionID string, portfolioID int64) (*models.ImportReport, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.committing {
		sess.mu.Unlock()
		return nil, ErrCommitInFlight
	}
	if portfolioID <= 0 {
		sess.mu.Unlock()
		return nil, ErrNoPortfolio
	}

	var rows []*models.ParsedRow
	var payload []models.PositionRequest
	for _, row := range sess.batch.Rows {
		if row.Status != models.StatusValid {
			continue
		}
		currency := row.Currency
		if row.Resolution != nil && row.Resolution.Currency != "" {
			currency = row.Resolution.Currency
		}
		rows = append(rows, row)
		payload = append(payload, models.PositionRequest{
			Symbol:      row.EffectiveTicker(),
			Quantity:    row.Shares,
			EntryPrice:  row.PurchasePrice,
			EntryDate:   row.EntryDate,
			Currency:    currency,
			PricingMode: "market",
		})
	}
	if len(rows) == 0 {
		sess.mu.Unlock()
		return nil, ErrNothingToImport
	}

	sess.committing = true
	for _, row := range rows {
		row.Status = models.StatusImporting
	}
	sess.mu.Unlock()

	report, err := s.positions.CreatePositions(ctx, portfolioID, payload)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.committing = false

	if err != nil {
		// The whole commit failed before any per-row outcome was known.
		logger.L.Error("Commit failed", "sessionID", sessionID, "portfolioID", portfolioID, "error", err)
		msg := err.Error()
		for _, row := range rows {
			row.Status = models.StatusFailed
			row.ErrorMessage = msg
		}
		return &models.ImportReport{
			Imported: 0,
			Errors:   len(rows),
			Message:  msg,
		}, nil
	}

	failedBySymbol := make(map[string]string, len(report.Failed))
	for _, f := range report.Failed {
		failedBySymbol[strings.ToUpper(f.Symbol)] = f.Error
	}
	for _, row := range rows {
		if msg, failed := failedBySymbol[strings.ToUpper(row.EffectiveTicker())]; failed {
			row.Status = models.StatusFailed
			row.ErrorMessage = msg
		} else {
			row.Status = models.StatusImported
			row.ErrorMessage = ""
		}
	}
	logger.L.Info("Commit completed", "sessionID", sessionID, "imported", report.Imported, "errors", report.Errors)
	return report, nil
}

func (s *importServiceImpl) CloseSession(sessionID string) {
	if sess, err := s.session(sessionID); err == nil {
		sess.mu.Lock()
		sess.stopTimers()
		sess.mu.Unlock()
	}
	s.sessions.Delete(sessionID)
}

// snapshot copies the session state for the caller. Rows are copied by value
// so JSON encoding never races with a concurrent mutation.
func (s *importServiceImpl) snapshot(sess *importSession) *SessionSnapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	snap := &SessionSnapshot{
		ID:   sess.id,
		Rows: make([]models.ParsedRow, 0, len(sess.batch.Rows)),
	}
	for _, row := range sess.batch.Rows {
		snap.Rows = append(snap.Rows, *row)
		snap.Summary.Total++
		switch row.Status {
		case models.StatusPending:
			snap.Summary.Pending++
		case models.StatusValid:
			snap.Summary.Valid++
		case models.StatusUnresolved:
			snap.Summary.Unresolved++
		case models.StatusImporting:
			snap.Summary.Importing++
		case models.StatusImported:
			snap.Summary.Imported++
		case models.StatusFailed:
			snap.Summary.Failed++
		}
	}
	return snap
}
