package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func newTestClient(t *testing.T, handler http.Handler) (*apiClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewAPIClient(server.URL, "test-token", 5*time.Second, 100, 100)
	return client, server
}

func TestResolveTickersBatchedCall(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/market-data/validate-tickers", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req resolveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"RACE", "BOGUS"}, req.Symbols)
		require.Len(t, req.CurrencyHints, 2)
		require.NotNil(t, req.CurrencyHints[0])
		assert.Equal(t, "EUR", *req.CurrencyHints[0])
		assert.Nil(t, req.CurrencyHints[1])

		json.NewEncoder(w).Encode(ResolveResult{
			Valid: []ResolvedInstrument{
				{Symbol: "RACE.MI", Name: "Ferrari N.V.", Sector: "Consumer Cyclical", Country: "IT", Currency: "EUR"},
			},
			Unresolved: []string{"BOGUS"},
		})
	}))

	svc := NewResolverService(client, cache.New(time.Minute, time.Minute))
	result, err := svc.ResolveTickers(context.Background(), []string{"RACE", "BOGUS"}, []string{"EUR", ""})
	require.NoError(t, err)

	require.Len(t, result.Valid, 1)
	assert.Equal(t, "RACE.MI", result.Valid[0].Symbol)
	assert.Equal(t, []string{"BOGUS"}, result.Unresolved)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestResolveTickersServesRepeatsFromCache(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(ResolveResult{
			Valid:      []ResolvedInstrument{{Symbol: "RACE.MI", Name: "Ferrari N.V.", Currency: "EUR"}},
			Unresolved: []string{"BOGUS"},
		})
	}))

	svc := NewResolverService(client, cache.New(time.Minute, time.Minute))

	first, err := svc.ResolveTickers(context.Background(), []string{"RACE", "BOGUS"}, []string{"EUR", ""})
	require.NoError(t, err)
	second, err := svc.ResolveTickers(context.Background(), []string{"RACE", "BOGUS"}, []string{"EUR", ""})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second round must be served from cache")
	require.Len(t, second.Valid, 1)
	assert.Equal(t, first.Valid[0].Symbol, second.Valid[0].Symbol)
	assert.Equal(t, []string{"BOGUS"}, second.Unresolved)
}

func TestResolveTickersEmptyBatch(t *testing.T) {
	svc := NewResolverService(nil, cache.New(time.Minute, time.Minute))
	result, err := svc.ResolveTickers(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Valid)
	assert.Empty(t, result.Unresolved)
}

func TestResolveTickersServiceError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))

	svc := NewResolverService(client, cache.New(time.Minute, time.Minute))
	_, err := svc.ResolveTickers(context.Background(), []string{"RACE"}, []string{""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSymbolRoot(t *testing.T) {
	assert.Equal(t, "RACE", SymbolRoot("RACE.MI"))
	assert.Equal(t, "RACE", SymbolRoot("race"))
	assert.Equal(t, "NOVO-B", SymbolRoot("novo-b.CO"))
}

func TestMatchResolved(t *testing.T) {
	valid := []ResolvedInstrument{
		{Symbol: "RACE.MI"},
		{Symbol: "AAPL"},
	}

	t.Run("exact match wins", func(t *testing.T) {
		inst, ok := matchResolved("AAPL", valid)
		require.True(t, ok)
		assert.Equal(t, "AAPL", inst.Symbol)
	})

	t.Run("root match tolerates exchange suffix", func(t *testing.T) {
		inst, ok := matchResolved("RACE", valid)
		require.True(t, ok)
		assert.Equal(t, "RACE.MI", inst.Symbol)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := matchResolved("TSLA", valid)
		assert.False(t, ok)
	})
}

func TestSearchTicker(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/market-data/search/rac", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]string{
			{"symbol": "RACE.MI", "name": "Ferrari N.V.", "asset_class": "Equity", "currency": "EUR"},
		})
	}))

	svc := NewSearchService(client)
	results, err := svc.SearchTicker(context.Background(), "rac")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "RACE.MI", results[0].Symbol)
	assert.Equal(t, "EUR", results[0].Currency)
}

func TestSearchTickerEmptyQuery(t *testing.T) {
	svc := NewSearchService(nil)
	results, err := svc.SearchTicker(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCreatePositions(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/portfolios/7/import", r.URL.Path)

		var req createPositionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Positions, 2)
		assert.Equal(t, "RACE.MI", req.Positions[0].Symbol)
		assert.Equal(t, "market", req.Positions[0].PricingMode)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"imported": 1,
			"errors":   1,
			"failed":   []map[string]string{{"symbol": "XYZ", "error": "not found"}},
		})
	}))

	svc := NewPositionService(client)
	report, err := svc.CreatePositions(context.Background(), 7, []models.PositionRequest{
		{Symbol: "RACE.MI", Quantity: 10, EntryPrice: 350, EntryDate: "2024-01-15", Currency: "EUR", PricingMode: "market"},
		{Symbol: "XYZ", Quantity: 1, EntryPrice: 1, EntryDate: "2024-01-15", PricingMode: "market"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Errors)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "XYZ", report.Failed[0].Symbol)
}
