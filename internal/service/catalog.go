package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-forecast/internal/logger"
	"github.com/yourusername/clever-forecast/internal/models"
	"github.com/yourusername/clever-forecast/internal/registry"
	"github.com/yourusername/clever-forecast/internal/repository"
)

// CatalogService registers artifact files in the model catalog and switches
// the active version of a slot.
type CatalogService struct {
	repo     repository.ModelCatalogRepository
	files    *registry.FileStore
	registry *registry.Registry
	logger   *logrus.Logger
	audit    *logger.AuditLogger
	now      func() time.Time
}

// NewCatalogService creates a catalog service. reg may be nil when no
// registry cache needs invalidating.
func NewCatalogService(repo repository.ModelCatalogRepository, files *registry.FileStore, reg *registry.Registry, log *logrus.Logger) *CatalogService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CatalogService{
		repo:     repo,
		files:    files,
		registry: reg,
		logger:   log,
		audit:    logger.NewAuditLogger(log),
		now:      time.Now,
	}
}

// Register records the artifact at path, relative to the artifact root,
// as a new inactive catalog entry.
func (c *CatalogService) Register(ctx context.Context, path string) (*models.ModelRecord, error) {
	key, err := c.files.KeyForPath(path)
	if err != nil {
		return nil, err
	}
	doc, err := c.files.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(c.files.Root(), c.files.Path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact path: %w", err)
	}

	record := &models.ModelRecord{
		ID:            uuid.New(),
		Sport:         key.Sport,
		Market:        key.Market,
		State:         key.State,
		Family:        key.Family,
		Version:       doc.Version,
		SchemaVersion: doc.SchemaVersion,
		Path:          filepath.ToSlash(rel),
		TrainedAt:     c.now().UTC(),
	}
	if record.Version == "" {
		return nil, fmt.Errorf("%w: %s has no version", registry.ErrInvalidArtifact, key)
	}
	if cal := doc.Calibration; cal != nil {
		record.Accuracy = cal.Accuracy
		if !cal.CalibratedAt.IsZero() {
			record.TrainedAt = cal.CalibratedAt.UTC()
		}
		metrics, err := calibrationMetrics(cal)
		if err != nil {
			return nil, err
		}
		record.Metrics = metrics
	}

	if err := c.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"component": "catalog",
		"id":        record.ID,
		"key":       key.String(),
		"version":   record.Version,
	}).Info("Model artifact registered")
	return record, nil
}

// Activate makes a catalog entry the active version of its slot and drops
// the cached artifact so the next prediction loads it.
func (c *CatalogService) Activate(ctx context.Context, id uuid.UUID) (*models.ModelRecord, error) {
	if err := c.repo.SetActive(ctx, id); err != nil {
		return nil, err
	}
	record, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := registry.Key{Sport: record.Sport, Market: record.Market, State: record.State, Family: record.Family}
	if c.registry != nil {
		c.registry.Reload(key)
	}
	c.audit.LogModelActivation(record.ID.String(), key.String(), record.Version, true, c.now())
	return record, nil
}

func calibrationMetrics(cal *registry.Calibration) (json.RawMessage, error) {
	metrics := map[string]interface{}{}
	if cal.BrierScore != nil {
		metrics["brier_score"] = *cal.BrierScore
	}
	if cal.LogLoss != nil {
		metrics["log_loss"] = *cal.LogLoss
	}
	if cal.SampleSize > 0 {
		metrics["sample_size"] = cal.SampleSize
	}
	if len(metrics) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calibration metrics: %w", err)
	}
	return data, nil
}
