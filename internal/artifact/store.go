// Package artifact loads, validates, and caches persisted model definitions.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecaller/internal/metrics"
	"github.com/yourusername/racecaller/internal/models"
	"github.com/yourusername/racecaller/internal/scoring"
)

// Validation failure reasons. All of them reject the artifact wholesale.
var (
	ErrNoFeatures      = errors.New("artifact declares no features")
	ErrUnknownFeature  = errors.New("artifact declares an unknown feature")
	ErrNonFiniteWeight = errors.New("artifact weight is missing or non-finite")
	ErrBadIntercept    = errors.New("artifact intercept is non-finite")
	ErrBadCalibration  = errors.New("artifact calibration is non-finite")
)

// Store is a path-keyed, read-mostly cache over model artifact files. A load
// result (including "nothing usable at this path") is cached until the caller
// invalidates it explicitly.
type Store struct {
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewStore creates an artifact store.
func NewStore(logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		cache:  cache.New(cache.NoExpiration, cache.NoExpiration),
		logger: logger,
	}
}

// Load returns the validated artifact persisted at path, or nil when the
// file is missing or invalid. Absence is not an error: callers fall back to
// the heuristic scorer.
func (s *Store) Load(path string) *models.ModelArtifact {
	if path == "" {
		return nil
	}
	key := resolveKey(path)

	if cached, found := s.cache.Get(key); found {
		metrics.ArtifactLoadsTotal.WithLabelValues("cached").Inc()
		if artifact, ok := cached.(*models.ModelArtifact); ok {
			return artifact
		}
		return nil
	}

	artifact := s.loadFromDisk(key)
	s.cache.Set(key, artifact, cache.NoExpiration)
	return artifact
}

// Invalidate drops the cached result for path so the next Load re-reads the
// file. Used after the trainer writes a new artifact.
func (s *Store) Invalidate(path string) {
	s.cache.Delete(resolveKey(path))
}

func (s *Store) loadFromDisk(path string) *models.ModelArtifact {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", path).Warn("Failed to read model artifact")
		}
		metrics.ArtifactLoadsTotal.WithLabelValues("missing").Inc()
		return nil
	}

	artifact := &models.ModelArtifact{}
	if err := json.Unmarshal(data, artifact); err != nil {
		s.logger.WithError(err).WithField("path", path).Warn("Rejecting malformed model artifact")
		metrics.ArtifactLoadsTotal.WithLabelValues("invalid").Inc()
		return nil
	}
	if err := Validate(artifact); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"path":    path,
			"version": artifact.Version,
		}).Warn("Rejecting invalid model artifact")
		metrics.ArtifactLoadsTotal.WithLabelValues("invalid").Inc()
		return nil
	}

	s.logger.WithFields(logrus.Fields{
		"path":     path,
		"version":  artifact.Version,
		"features": len(artifact.Features),
	}).Info("Loaded model artifact")
	metrics.ArtifactLoadsTotal.WithLabelValues("loaded").Inc()
	return artifact
}

// Validate checks an artifact against the canonical feature set. Any failure
// rejects the artifact in full; weights are never partially applied.
func Validate(a *models.ModelArtifact) error {
	if a == nil {
		return fmt.Errorf("%w: artifact is nil", models.ErrInvalidArtifact)
	}
	if !isFinite(a.Intercept) {
		return fmt.Errorf("%w: %v", models.ErrInvalidArtifact, ErrBadIntercept)
	}
	if len(a.Features) == 0 {
		return fmt.Errorf("%w: %v", models.ErrInvalidArtifact, ErrNoFeatures)
	}
	for _, name := range a.Features {
		if !scoring.IsCanonicalFeature(name) {
			return fmt.Errorf("%w: %v: %q", models.ErrInvalidArtifact, ErrUnknownFeature, name)
		}
		weight, ok := a.Weights[name]
		if !ok || !isFinite(weight) {
			return fmt.Errorf("%w: %v: %q", models.ErrInvalidArtifact, ErrNonFiniteWeight, name)
		}
	}
	if cal := a.Calibration; cal != nil {
		if !isFinite(cal.A) || !isFinite(cal.B) {
			return fmt.Errorf("%w: %v", models.ErrInvalidArtifact, ErrBadCalibration)
		}
	}
	return nil
}

// Save validates and writes an artifact as JSON. Only the trainer writes
// artifacts; the engine treats them as read-only.
func Save(a *models.ModelArtifact, path string) error {
	if err := Validate(a); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

func resolveKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
