package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/models"
)

type createPositionsRequest struct {
	Positions []models.PositionRequest `json:"positions"`
}

type positionServiceImpl struct {
	client *apiClient
}

// NewPositionService creates the bulk position-creation client.
func NewPositionService(client *apiClient) PositionService {
	return &positionServiceImpl{client: client}
}

func (s *positionServiceImpl) CreatePositions(ctx context.Context, portfolioID int64, positions []models.PositionRequest) (*models.ImportReport, error) {
	var report models.ImportReport
	path := fmt.Sprintf("/portfolios/%d/import", portfolioID)
	err := s.client.doJSON(ctx, http.MethodPost, path, createPositionsRequest{Positions: positions}, &report)
	if err != nil {
		return nil, err
	}
	logger.L.Info("Bulk position creation completed",
		"portfolioID", portfolioID, "submitted", len(positions),
		"imported", report.Imported, "errors", report.Errors)
	return &report, nil
}
