package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/username/folioimport/src/logger"
)

// cachedResolution is one memoized per-symbol resolver outcome.
type cachedResolution struct {
	valid      bool
	instrument ResolvedInstrument
}

type resolveRequest struct {
	Symbols       []string  `json:"symbols"`
	CurrencyHints []*string `json:"currency_hints"`
}

type resolverServiceImpl struct {
	client *apiClient
	cache  *cache.Cache
}

// NewResolverService creates the batched ticker-resolution client. Resolver
// outcomes are cached per (symbol, hint) pair so repeated validation rounds
// only pay for symbols not seen before.
func NewResolverService(client *apiClient, resolutionCache *cache.Cache) ResolverService {
	return &resolverServiceImpl{client: client, cache: resolutionCache}
}

func resolveCacheKey(symbol, hint string) string {
	return fmt.Sprintf("resolve:%s:%s", strings.ToUpper(symbol), strings.ToUpper(hint))
}

func (s *resolverServiceImpl) ResolveTickers(ctx context.Context, symbols []string, currencyHints []string) (*ResolveResult, error) {
	result := &ResolveResult{}
	if len(symbols) == 0 {
		return result, nil
	}

	var missingSymbols []string
	var missingHints []*string
	for i, sym := range symbols {
		hint := ""
		if i < len(currencyHints) {
			hint = currencyHints[i]
		}
		if cached, found := s.cache.Get(resolveCacheKey(sym, hint)); found {
			entry := cached.(cachedResolution)
			if entry.valid {
				result.Valid = append(result.Valid, entry.instrument)
			} else {
				result.Unresolved = append(result.Unresolved, sym)
			}
			continue
		}
		missingSymbols = append(missingSymbols, sym)
		if hint == "" {
			missingHints = append(missingHints, nil)
		} else {
			h := hint
			missingHints = append(missingHints, &h)
		}
	}

	if len(missingSymbols) == 0 {
		logger.L.Debug("Resolver round served entirely from cache", "symbols", len(symbols))
		return result, nil
	}

	var resp ResolveResult
	err := s.client.doJSON(ctx, http.MethodPost, "/market-data/validate-tickers",
		resolveRequest{Symbols: missingSymbols, CurrencyHints: missingHints}, &resp)
	if err != nil {
		return nil, err
	}

	// Populate the per-symbol cache from the batched response. A resolved
	// instrument may come back under an exchange-qualified symbol, so cache
	// it under the submitted key it matches.
	for i, sym := range missingSymbols {
		hint := ""
		if missingHints[i] != nil {
			hint = *missingHints[i]
		}
		if inst, ok := matchResolved(sym, resp.Valid); ok {
			s.cache.Set(resolveCacheKey(sym, hint), cachedResolution{valid: true, instrument: inst}, cache.DefaultExpiration)
		} else if containsFold(resp.Unresolved, sym) {
			s.cache.Set(resolveCacheKey(sym, hint), cachedResolution{valid: false}, cache.DefaultExpiration)
		}
	}

	result.Valid = append(result.Valid, resp.Valid...)
	result.Unresolved = append(result.Unresolved, resp.Unresolved...)
	logger.L.Info("Resolver round completed",
		"submitted", len(missingSymbols), "valid", len(resp.Valid), "unresolved", len(resp.Unresolved))
	return result, nil
}

// SymbolRoot returns the part of a ticker before the first dot, uppercased.
// It tolerates the resolver qualifying a bare symbol with an exchange suffix.
func SymbolRoot(symbol string) string {
	root, _, _ := strings.Cut(symbol, ".")
	return strings.ToUpper(root)
}

// matchResolved finds the valid entry for a submitted symbol: exact match
// first, then root-before-first-dot equality.
func matchResolved(submitted string, valid []ResolvedInstrument) (ResolvedInstrument, bool) {
	for _, inst := range valid {
		if strings.EqualFold(inst.Symbol, submitted) {
			return inst, true
		}
	}
	for _, inst := range valid {
		if SymbolRoot(inst.Symbol) == SymbolRoot(submitted) {
			return inst, true
		}
	}
	return ResolvedInstrument{}, false
}

func containsFold(list []string, target string) bool {
	for _, s := range list {
		if strings.EqualFold(s, target) {
			return true
		}
	}
	return false
}
