package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/clever-forecast/internal/models"
)

const (
	artifactExt    = ".json"
	calibrationExt = ".calibration.yaml"
)

// FileStore reads artifacts laid out as <root>/<sport>/<market>/<state>/<family>.json
// with an optional <family>.calibration.yaml sidecar.
type FileStore struct {
	root string
}

// NewFileStore creates a file-backed artifact store
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Root returns the store's base directory
func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) dir(sport models.Sport, market models.Market, state models.TemporalState) string {
	return filepath.Join(s.root, string(sport), strings.ToLower(string(market)), string(state))
}

// Path returns the artifact path for a key
func (s *FileStore) Path(key Key) string {
	return filepath.Join(s.dir(key.Sport, key.Market, key.State), string(key.Family)+artifactExt)
}

// KeyForPath derives the artifact key from a path laid out under the store
// root as <sport>/<market>/<state>/<family>.json.
func (s *FileStore) KeyForPath(path string) (Key, error) {
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return Key{}, fmt.Errorf("%w: %s is outside %s", ErrInvalidArtifact, path, s.root)
		}
		path = rel
	}
	parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	if len(parts) != 4 || parts[0] == ".." || !strings.HasSuffix(parts[3], artifactExt) {
		return Key{}, fmt.Errorf("%w: %s is not <sport>/<market>/<state>/<family>%s", ErrInvalidArtifact, path, artifactExt)
	}

	key := Key{
		Sport:  models.Sport(parts[0]),
		Market: models.Market(strings.ToUpper(parts[1])),
		State:  models.TemporalState(parts[2]),
		Family: models.ModelFamily(strings.TrimSuffix(parts[3], artifactExt)),
	}
	if !key.Market.Valid() || !key.State.Valid() {
		return Key{}, fmt.Errorf("%w: %s has unknown market or state", ErrInvalidArtifact, path)
	}
	return key, nil
}

// Load reads and decodes the artifact document for key
func (s *FileStore) Load(ctx context.Context, key Key) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := s.ReadDocument(s.Path(key))
	if err != nil {
		return nil, err
	}
	if err := doc.bind(key); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReadDocument decodes an artifact file and merges its calibration sidecar
func (s *FileStore) ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, path, err)
	}

	sidecar := strings.TrimSuffix(path, artifactExt) + calibrationExt
	calibration, err := readCalibration(sidecar)
	if err != nil {
		return nil, err
	}
	if calibration != nil {
		doc.Calibration = calibration
	}
	return &doc, nil
}

func readCalibration(path string) (*Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read calibration: %w", err)
	}

	var calibration Calibration
	if err := yaml.Unmarshal(data, &calibration); err != nil {
		return nil, fmt.Errorf("%w: calibration %s: %v", ErrInvalidArtifact, path, err)
	}
	if calibration.Accuracy != nil && !models.ValidProbability(*calibration.Accuracy) {
		return nil, fmt.Errorf("%w: calibration accuracy %v outside [0,1]", ErrInvalidArtifact, *calibration.Accuracy)
	}
	return &calibration, nil
}

// Families lists the families with an artifact file under the key's directory
func (s *FileStore) Families(ctx context.Context, sport models.Sport, market models.Market, state models.TemporalState) ([]models.ModelFamily, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir(sport, market, state))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	families := make([]models.ModelFamily, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, artifactExt) {
			continue
		}
		families = append(families, models.ModelFamily(strings.TrimSuffix(name, artifactExt)))
	}
	sort.Slice(families, func(i, j int) bool { return families[i] < families[j] })
	return families, nil
}

// bind fills empty identity fields from key and rejects contradicting ones
func (d *Document) bind(key Key) error {
	check := func(field, got, want string) error {
		if got != "" && got != want {
			return fmt.Errorf("%w: %s declares %s %q", ErrInvalidArtifact, key, field, got)
		}
		return nil
	}
	if err := check("sport", string(d.Sport), string(key.Sport)); err != nil {
		return err
	}
	if err := check("market", string(d.Market), string(key.Market)); err != nil {
		return err
	}
	if err := check("temporal_state", string(d.State), string(key.State)); err != nil {
		return err
	}
	if err := check("family", string(d.Family), string(key.Family)); err != nil {
		return err
	}
	d.Sport, d.Market, d.State, d.Family = key.Sport, key.Market, key.State, key.Family
	return nil
}
