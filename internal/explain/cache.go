package explain

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/clever-forecast/internal/metrics"
	"github.com/yourusername/clever-forecast/internal/models"
)

// cacheNamespace scopes report cache keys
var cacheNamespace = uuid.MustParse("6f1c2a7e-5b9d-4c1e-9a43-0d6e2f8b7c15")

// CacheKey derives a stable key from the artifact and its exact inputs
func CacheKey(req Request) string {
	buf := make([]byte, 0, len(req.ArtifactID)+8*len(req.Values)+16*len(req.Features))
	buf = append(buf, req.ArtifactID...)
	for i, name := range req.Features {
		buf = append(buf, 0)
		buf = append(buf, name...)
		if i < len(req.Values) {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(req.Values[i]))
		}
	}
	return uuid.NewSHA1(cacheNamespace, buf).String()
}

// ReportCache provides in-memory caching for explainability reports
type ReportCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewReportCache creates a new report cache
func NewReportCache(ttl time.Duration, maxSize int) *ReportCache {
	return &ReportCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached report
func (rc *ReportCache) Get(key string) ([]models.FeatureImportance, bool) {
	value, found := rc.cache.Get(key)

	rc.mu.Lock()
	if found {
		rc.hitCount++
	} else {
		rc.missCount++
	}
	rc.mu.Unlock()
	rc.updateMetrics()

	if !found {
		return nil, false
	}
	report, ok := value.([]models.FeatureImportance)
	if !ok {
		return nil, false
	}
	return append([]models.FeatureImportance(nil), report...), true
}

// Set stores a report in cache
func (rc *ReportCache) Set(key string, report []models.FeatureImportance) {
	if rc.maxSize > 0 && rc.cache.ItemCount() >= rc.maxSize {
		rc.cache.DeleteExpired()
		if rc.cache.ItemCount() >= rc.maxSize {
			return
		}
	}
	rc.cache.Set(key, append([]models.FeatureImportance(nil), report...), rc.ttl)
	rc.updateMetrics()
}

// Clear flushes the entire cache
func (rc *ReportCache) Clear() {
	rc.cache.Flush()

	rc.mu.Lock()
	rc.hitCount = 0
	rc.missCount = 0
	rc.mu.Unlock()
}

// Stats returns cache statistics
func (rc *ReportCache) Stats() (hits, misses uint64, ratio float64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	hits = rc.hitCount
	misses = rc.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (rc *ReportCache) ItemCount() int {
	return rc.cache.ItemCount()
}

func (rc *ReportCache) updateMetrics() {
	_, _, ratio := rc.Stats()
	metrics.UpdateExplainCache(ratio, rc.cache.ItemCount())
}

// CachedExplainer serves repeated explain requests from a ReportCache
type CachedExplainer struct {
	next  Explainer
	cache *ReportCache
}

// NewCachedExplainer wraps next with a report cache
func NewCachedExplainer(next Explainer, cache *ReportCache) *CachedExplainer {
	return &CachedExplainer{next: next, cache: cache}
}

// Explain returns a cached report or fetches and caches a fresh one
func (c *CachedExplainer) Explain(ctx context.Context, req Request) ([]models.FeatureImportance, error) {
	key := CacheKey(req)
	if report, ok := c.cache.Get(key); ok {
		return report, nil
	}

	report, err := c.next.Explain(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, report)
	return report, nil
}
