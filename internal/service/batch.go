package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/clever-forecast/internal/models"
)

// BatchItem is the outcome of one request in a batch
type BatchItem struct {
	Index  int
	Result *models.PredictionResult
	Err    error
}

// PredictBatch runs requests concurrently. One request failing never affects
// the others; items are returned in request order.
func (s *PredictionService) PredictBatch(ctx context.Context, reqs []*models.GameRequest) []BatchItem {
	items := make([]BatchItem, len(reqs))

	g := new(errgroup.Group)
	g.SetLimit(s.batchLimit)
	for i, req := range reqs {
		g.Go(func() error {
			result, err := s.Predict(ctx, req)
			items[i] = BatchItem{Index: i, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return items
}
