// Package asset loads the globe's country meshes from a GLB model, a
// pre-triangulated JSON mesh file, or by triangulating boundary data in
// process.
package asset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"globemap/internal/logging"
	"globemap/internal/mesh"
	"globemap/internal/metrics"
)

// ErrLoadTimeout is returned when a load outlives its deadline.
var ErrLoadTimeout = errors.New("globe asset load timed out")

// Loader produces a scene of world-space country meshes.
type Loader interface {
	Load(ctx context.Context) (*mesh.Scene, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*mesh.Scene, error)

func (f LoaderFunc) Load(ctx context.Context) (*mesh.Scene, error) { return f(ctx) }

// ForPath picks a loader by file extension: .glb/.gltf as a model, anything
// else as JSON mesh data.
func ForPath(path string) Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".gltf":
		return GLBLoader{Path: path, YUp: true}
	default:
		return MeshDataLoader{Path: path}
	}
}

// LoadWithTimeout runs l with a deadline. Loaders that ignore ctx are
// abandoned on timeout; their result is discarded.
func LoadWithTimeout(ctx context.Context, l Loader, timeout time.Duration) (*mesh.Scene, error) {
	log := logging.Component("asset")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		scene *mesh.Scene
		err   error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		s, err := l.Load(ctx)
		done <- result{s, err}
	}()

	var r result
	select {
	case r = <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			r.err = fmt.Errorf("%w: %v", ErrLoadTimeout, r.err)
		}
	case <-ctx.Done():
		r.err = ctx.Err()
		if errors.Is(r.err, context.DeadlineExceeded) {
			r.err = fmt.Errorf("%w after %s", ErrLoadTimeout, timeout)
		}
	}

	switch {
	case errors.Is(r.err, ErrLoadTimeout):
		metrics.AssetLoads.WithLabelValues("timeout").Inc()
	case r.err != nil:
		metrics.AssetLoads.WithLabelValues("error").Inc()
	default:
		metrics.AssetLoads.WithLabelValues("ok").Inc()
	}
	if r.err != nil {
		log.Error().Err(r.err).Msg("globe asset load failed")
		return nil, r.err
	}
	if r.scene == nil {
		r.scene = &mesh.Scene{}
	}
	log.Info().
		Int("nodes", len(r.scene.Nodes)).
		Int("triangles", r.scene.Triangles()).
		Dur("took", time.Since(start)).
		Msg("globe asset loaded")
	return r.scene, nil
}
