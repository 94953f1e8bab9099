package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"globemap/internal/geodata"
	"globemap/internal/geom"
	"globemap/internal/gesture"
	"globemap/internal/syncer"
)

// Boundaries serves country geometry; *geodata.Store satisfies it.
type Boundaries interface {
	syncer.FeatureSource
	FindByCode(ctx context.Context, code string, level geodata.Level) (*geom.Feature, bool, error)
}

// base is the state Map and Globe share: boundary data, selection, color
// inputs and the gesture recognizer.
type base struct {
	opts   Options
	data   Boundaries
	colors *colorBook
	sel    selector
	log    zerolog.Logger

	loading atomic.Bool
	fcMu    sync.RWMutex
	fc      *geom.FeatureCollection

	gmu      sync.Mutex
	gestures *gesture.Recognizer

	invalidate func()
}

func (b *base) init(data Boundaries, opts Options, log zerolog.Logger, h gesture.Handler, invalidate func()) {
	b.opts = opts
	b.data = data
	b.colors = newColorBook(opts.Palette, opts.Table)
	b.log = log
	b.gestures = gesture.NewRecognizer(opts.Gesture, h)
	b.invalidate = invalidate
}

// loadFeatures fetches low-detail boundaries once at a time.
func (b *base) loadFeatures(ctx context.Context) (*geom.FeatureCollection, error) {
	if !b.loading.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer b.loading.Store(false)

	fc, level, err := b.data.LoadWithFallback(ctx, geodata.Low)
	if err != nil {
		return nil, err
	}
	b.fcMu.Lock()
	b.fc = fc
	b.fcMu.Unlock()
	b.log.Info().Str("level", level.String()).Int("countries", len(fc.Features)).Msg("boundaries ready")
	return fc, nil
}

// Features is the loaded low-detail collection, nil before Load.
func (b *base) Features() *geom.FeatureCollection {
	b.fcMu.RLock()
	defer b.fcMu.RUnlock()
	return b.fc
}

// find resolves code against the loaded collection, then the store's
// name fallback.
func (b *base) find(code string) (*geom.Feature, error) {
	fc := b.Features()
	if fc == nil {
		return nil, ErrNotLoaded
	}
	if f := fc.ByCode(code); f != nil {
		return f, nil
	}
	f, ok, err := b.data.FindByCode(context.Background(), code, geodata.Low)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownCode
	}
	return f, nil
}

// OnCountrySelect registers fn for selection changes; nil means cleared.
func (b *base) OnCountrySelect(fn func(*geom.Feature)) { b.sel.onSelect(fn) }

func (b *base) Selection() (Selection, bool) { return b.sel.get() }

// SetStatuses replaces the status map used for colors.
func (b *base) SetStatuses(m map[string]Status) {
	b.colors.setStatuses(m)
	b.invalidate()
}

// SetVisited replaces the visited set used for highlighting.
func (b *base) SetVisited(codes []string) {
	b.colors.setVisited(codes)
	b.invalidate()
}

func (b *base) Status(code string) Status { return b.colors.status(code) }

// ColorFor is the fill for a country given selection, status and visited.
func (b *base) ColorFor(code string) Color { return b.colors.colorFor(code, b.sel.code()) }

// Pointer feeds one pointer event to the gesture recognizer.
func (b *base) Pointer(ev gesture.Event) {
	b.gmu.Lock()
	defer b.gmu.Unlock()
	b.gestures.Handle(ev)
}

// Scroll feeds wheel notches; positive zooms in.
func (b *base) Scroll(x, y float64, steps int) {
	b.gmu.Lock()
	defer b.gmu.Unlock()
	b.gestures.Scroll(x, y, steps)
}

// FlushGestures releases a single tap whose double-tap window has passed.
func (b *base) FlushGestures(now time.Time) {
	b.gmu.Lock()
	defer b.gmu.Unlock()
	b.gestures.Flush(now)
}

func (b *base) selectFeature(f *geom.Feature, iso string) {
	if f == nil && iso == "" {
		b.sel.set(nil)
	} else {
		b.sel.set(&Selection{ISO: iso, Feature: f})
	}
	b.invalidate()
}
