package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thejerf/suture/v4"

	"globemap/internal/asset"
	"globemap/internal/logging"
	"globemap/internal/mesh"
)

// SlotState is the lifecycle of an AssetSlot.
type SlotState int32

const (
	SlotLoading SlotState = iota
	SlotReady
	SlotFailed
)

func (s SlotState) String() string {
	switch s {
	case SlotReady:
		return "ready"
	case SlotFailed:
		return "failed"
	default:
		return "loading"
	}
}

// AssetSlot loads the globe asset and publishes its mesh index. Until
// then, and after a failure, Index returns nil and rendering goes on with
// an empty scene. Reload discards the index and loads the asset again.
type AssetSlot struct {
	Loader  asset.Loader
	Timeout time.Duration
	Names   mesh.NameTable
	// OnReady is called with every published index.
	OnReady func(*mesh.Index)
	// OnSettle is called after every load, failed or not.
	OnSettle func(SlotState)

	index atomic.Pointer[mesh.Index]
	state atomic.Int32

	// loading serializes Serve and Reload.
	loading sync.Mutex

	mu      sync.Mutex
	ready   chan struct{}
	settled bool
	err     error
}

func NewAssetSlot(l asset.Loader, timeout time.Duration) *AssetSlot {
	return &AssetSlot{Loader: l, Timeout: timeout, Names: mesh.DefaultNameTable(), ready: make(chan struct{})}
}

// Index is the published index or nil.
func (s *AssetSlot) Index() *mesh.Index { return s.index.Load() }

func (s *AssetSlot) State() SlotState { return SlotState(s.state.Load()) }

// Err is the failure of the last load, if any.
func (s *AssetSlot) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed when the current load settles either way. A Reload
// starts a new channel.
func (s *AssetSlot) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Publish installs idx directly.
func (s *AssetSlot) Publish(idx *mesh.Index) {
	s.index.Store(idx)
	if s.OnReady != nil {
		s.OnReady(idx)
	}
	s.finish(SlotReady, nil)
}

// Serve implements suture.Service. It runs the first load and then asks
// not to be restarted; later loads go through Reload.
func (s *AssetSlot) Serve(ctx context.Context) error {
	s.loading.Lock()
	defer s.loading.Unlock()
	if s.State() != SlotLoading {
		return suture.ErrDoNotRestart
	}
	if err := s.fetch(ctx); err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return suture.ErrDoNotRestart
}

// Reload drops the published index and loads the asset again. Readers see
// a nil index until the new one is published. The returned error is the
// load failure, also kept in Err.
func (s *AssetSlot) Reload(ctx context.Context) error {
	s.loading.Lock()
	defer s.loading.Unlock()

	s.index.Store(nil)
	s.mu.Lock()
	if s.settled {
		s.ready = make(chan struct{})
		s.settled = false
	}
	s.err = nil
	s.state.Store(int32(SlotLoading))
	s.mu.Unlock()

	err := s.fetch(ctx)
	if err != nil {
		s.finish(SlotFailed, err)
	}
	return err
}

// fetch loads and indexes the asset. A load cut short by ctx is returned
// without settling the slot.
func (s *AssetSlot) fetch(ctx context.Context) error {
	log := logging.Component("syncer")
	scene, err := asset.LoadWithTimeout(ctx, s.Loader, s.Timeout)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return err
		}
		s.finish(SlotFailed, err)
		log.Warn().Err(err).Msg("globe asset unavailable, continuing without meshes")
		return err
	}

	idx := mesh.BuildIndex(scene, s.Names)
	if n := len(idx.Unresolved()); n > 0 {
		log.Debug().Int("count", n).Strs("nodes", idx.Unresolved()).Msg("meshes without a country")
	}
	log.Info().Int("meshes", idx.Len()).Int("countries", idx.Countries()).Msg("mesh index published")
	s.Publish(idx)
	return nil
}

func (s *AssetSlot) finish(st SlotState, err error) {
	s.mu.Lock()
	if s.settled {
		s.mu.Unlock()
		return
	}
	s.settled = true
	s.err = err
	s.state.Store(int32(st))
	close(s.ready)
	s.mu.Unlock()
	if s.OnSettle != nil {
		s.OnSettle(st)
	}
}

func (s *AssetSlot) String() string { return "asset-slot" }
