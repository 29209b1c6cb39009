package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/models"
)

const maxSuggestions = 15

type searchServiceImpl struct {
	client *apiClient
}

// NewSearchService creates the fuzzy ticker-search client.
func NewSearchService(client *apiClient) SearchService {
	return &searchServiceImpl{client: client}
}

func (s *searchServiceImpl) SearchTicker(ctx context.Context, query string) ([]models.Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var results []models.Suggestion
	err := s.client.doJSON(ctx, http.MethodGet, "/market-data/search/"+url.PathEscape(query), nil, &results)
	if err != nil {
		return nil, err
	}
	if len(results) > maxSuggestions {
		results = results[:maxSuggestions]
	}
	logger.L.Debug("Ticker search completed", "query", query, "results", len(results))
	return results, nil
}
