package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/yourusername/clever-forecast/internal/models"
)

// CatalogReader is the subset of the model catalog repository the store needs
type CatalogReader interface {
	GetActive(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState, family models.ModelFamily) (*models.ModelRecord, error)
	ListActive(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState) ([]*models.ModelRecord, error)
}

// CatalogStore resolves artifacts through the Postgres model catalog and
// reads estimator bodies from files relative to a base directory.
type CatalogStore struct {
	catalog CatalogReader
	files   *FileStore
}

// NewCatalogStore creates a catalog-backed artifact store
func NewCatalogStore(catalog CatalogReader, files *FileStore) *CatalogStore {
	return &CatalogStore{catalog: catalog, files: files}
}

// Load resolves the active catalog record for key and reads its artifact
func (s *CatalogStore) Load(ctx context.Context, key Key) (*Document, error) {
	record, err := s.catalog.GetActive(ctx, key.Sport, key.Market, key.State, key.Family)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrModelNotFound, key)
		}
		return nil, fmt.Errorf("failed to query model catalog: %w", err)
	}

	path := record.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.files.Root(), path)
	}
	doc, err := s.files.ReadDocument(path)
	if err != nil {
		return nil, err
	}
	if err := doc.bind(key); err != nil {
		return nil, err
	}
	if doc.SchemaVersion != record.SchemaVersion {
		return nil, fmt.Errorf("%w: %s catalog schema %q, file schema %q",
			ErrInvalidArtifact, key, record.SchemaVersion, doc.SchemaVersion)
	}

	doc.Version = record.Version
	if record.Accuracy != nil {
		if doc.Calibration == nil {
			doc.Calibration = &Calibration{}
		}
		accuracy := *record.Accuracy
		doc.Calibration.Accuracy = &accuracy
	}
	if doc.Calibration != nil {
		if v, ok := recordMetric(record, "brier_score"); ok {
			doc.Calibration.BrierScore = &v
		}
		if v, ok := recordMetric(record, "log_loss"); ok {
			doc.Calibration.LogLoss = &v
		}
	}
	return doc, nil
}

// recordMetric reads a numeric metric from the catalog record's metrics JSON
func recordMetric(record *models.ModelRecord, name string) (float64, bool) {
	value, err := record.GetMetric(name)
	if err != nil {
		return 0, false
	}
	f, ok := value.(float64)
	return f, ok
}

// Families lists the families with an active catalog record
func (s *CatalogStore) Families(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState) ([]models.ModelFamily, error) {
	records, err := s.catalog.ListActive(ctx, sport, market, state)
	if err != nil {
		return nil, fmt.Errorf("failed to list model catalog: %w", err)
	}
	families := make([]models.ModelFamily, 0, len(records))
	for _, record := range records {
		families = append(families, record.Family)
	}
	return families, nil
}
