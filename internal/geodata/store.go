// Package geodata loads country boundaries per detail level, resolves each
// country's ISO identity and caches the result until ClearCache.
package geodata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"globemap/internal/geom"
	"globemap/internal/isocode"
	"globemap/internal/logging"
	"globemap/internal/metrics"
)

// LoadError wraps a failed load of one detail level.
type LoadError struct {
	Level Level
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s detail boundaries: %v", e.Level, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Store owns the per-level feature cache.
type Store struct {
	src    Source
	table  *isocode.Table
	object string
	log    zerolog.Logger

	mu    sync.RWMutex
	cache map[Level]*geom.FeatureCollection
	gen   uint64
	group singleflight.Group
}

type Option func(*Store)

// WithTable swaps the name→ISO table.
func WithTable(t *isocode.Table) Option {
	return func(s *Store) { s.table = t }
}

// WithObject selects the TopoJSON object holding countries.
func WithObject(name string) Option {
	return func(s *Store) { s.object = name }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func New(src Source, opts ...Option) *Store {
	s := &Store{
		src:   src,
		table: isocode.Default(),
		log:   logging.Component("geodata"),
		cache: make(map[Level]*geom.FeatureCollection),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load returns the feature collection for level, reading and decoding it on
// first use. Concurrent first loads share one read.
func (s *Store) Load(ctx context.Context, level Level) (*geom.FeatureCollection, error) {
	s.mu.RLock()
	fc, ok := s.cache[level]
	gen := s.gen
	s.mu.RUnlock()
	if ok {
		metrics.RecordTopologyLoad(level.String(), 0, true, nil)
		return fc, nil
	}

	key := fmt.Sprintf("%s/%d", level, gen)
	v, err, _ := s.group.Do(key, func() (any, error) {
		start := time.Now()
		fc, err := s.read(ctx, level)
		metrics.RecordTopologyLoad(level.String(), time.Since(start), false, err)
		if err != nil {
			s.log.Error().Err(err).Str("level", level.String()).Msg("boundary load failed")
			return nil, &LoadError{Level: level, Err: err}
		}

		s.mu.Lock()
		if s.gen == gen {
			s.cache[level] = fc
		}
		s.mu.Unlock()

		s.log.Info().
			Str("level", level.String()).
			Int("features", len(fc.Features)).
			Dur("took", time.Since(start)).
			Msg("boundaries loaded")
		return fc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*geom.FeatureCollection), nil
}

func (s *Store) read(ctx context.Context, level Level) (*geom.FeatureCollection, error) {
	rc, err := s.src.Open(ctx, level)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	fc, err := geom.Read(rc, s.object)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.enrich(fc)
	return fc, nil
}

// LoadWithFallback loads preferred and, when a High load fails, retries at
// Low. The returned level is the one actually served.
func (s *Store) LoadWithFallback(ctx context.Context, preferred Level) (*geom.FeatureCollection, Level, error) {
	fc, err := s.Load(ctx, preferred)
	if err == nil || preferred == Low {
		return fc, preferred, err
	}
	s.log.Warn().Err(err).Msg("falling back to low detail boundaries")
	fc, lowErr := s.Load(ctx, Low)
	if lowErr != nil {
		return nil, preferred, errors.Join(err, lowErr)
	}
	return fc, Low, nil
}

// FindByCode matches an alpha-2 or alpha-3 code case-insensitively, then
// falls back to the table's canonical name for the code. A miss is
// (nil, false, nil).
func (s *Store) FindByCode(ctx context.Context, code string, level Level) (*geom.Feature, bool, error) {
	fc, err := s.Load(ctx, level)
	if err != nil {
		return nil, false, err
	}
	if f := fc.ByCode(code); f != nil {
		return f, true, nil
	}
	c, ok := s.table.ByCode(code)
	if !ok {
		return nil, false, nil
	}
	want := isocode.Normalize(c.Name)
	for _, f := range fc.Features {
		if isocode.Normalize(f.Name) == want {
			return f, true, nil
		}
	}
	return nil, false, nil
}

// ClearCache drops every cached level. Loads already in flight finish but
// are not cached.
func (s *Store) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[Level]*geom.FeatureCollection)
	s.gen++
	s.mu.Unlock()
	s.log.Debug().Msg("boundary cache cleared")
}

// Cached reports whether level is resident.
func (s *Store) Cached(level Level) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[level]
	return ok
}

// Table exposes the ISO table used for enrichment.
func (s *Store) Table() *isocode.Table { return s.table }
