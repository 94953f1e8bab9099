package asset

import (
	"context"

	"globemap/internal/geom"
	"globemap/internal/mesh"
)

// GlobeBuilder triangulates boundary data in process. Features is called
// at load time so the builder can wait on a boundary load.
type GlobeBuilder struct {
	Features func(ctx context.Context) (*geom.FeatureCollection, error)
	Options  mesh.GlobeOptions
}

func (b GlobeBuilder) Load(ctx context.Context) (*mesh.Scene, error) {
	fc, err := b.Features(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mesh.BuildGlobe(fc, b.Options), nil
}
