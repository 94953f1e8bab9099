package geodata

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globemap/internal/geom"
	"globemap/internal/isocode"
)

const worldLow = `{
  "type": "Topology",
  "objects": {
    "countries": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "arcs": [[0]], "properties": {"name": "France"}},
        {"type": "Polygon", "arcs": [[1]], "properties": {"name": "Atlantis"}},
        {"type": "Polygon", "arcs": [[2]], "properties": {"name": "Dem. Rep. Congo"}},
        {"type": "Polygon", "arcs": [[3]], "properties": {"name": "Republique Francaise", "ISO_A2": "FR"}}
      ]
    }
  },
  "arcs": [
    [[-5, 42], [8, 42], [8, 51], [-5, 51], [-5, 42]],
    [[-40, 20], [-30, 20], [-30, 30], [-40, 30], [-40, 20]],
    [[12, -13], [31, -13], [31, 5], [12, 5], [12, -13]],
    [[55, -21], [56, -21], [56, -20], [55, -20], [55, -21]]
  ]
}`

type countingSource struct {
	fs    fs.FS
	opens atomic.Int32
}

func (c *countingSource) Open(ctx context.Context, level Level) (io.ReadCloser, error) {
	c.opens.Add(1)
	return FSSource{FS: c.fs, LowPath: "low.json", HighPath: "high.json"}.Open(ctx, level)
}

func newFS() fstest.MapFS {
	return fstest.MapFS{
		"low.json":  {Data: []byte(worldLow)},
		"high.json": {Data: []byte(`{"type":"Topology","objects":{"countries":{"type":"Polygon","arcs":[[9]]}},"arcs":[]}`)},
	}
}

func TestLoadEnrichesISOCodes(t *testing.T) {
	t.Parallel()
	s := New(FSSource{FS: newFS(), LowPath: "low.json"})

	fc, err := s.Load(context.Background(), Low)
	require.NoError(t, err)
	require.Len(t, fc.Features, 4)

	fr := fc.Features[0]
	assert.Equal(t, "FR", fr.ISO2)
	assert.Equal(t, "FRA", fr.ISO3)

	assert.Empty(t, fc.Features[1].Key(), "unknown names stay unresolved")
	assert.Equal(t, "COD", fc.Features[2].Key())

	// second FR claimant loses its code so the key stays unique
	assert.Empty(t, fc.Features[3].Key())
	assert.Len(t, fc.Features[3].Geometry, 1, "still renderable")
}

func TestLoadCachesPerLevel(t *testing.T) {
	t.Parallel()
	src := &countingSource{fs: newFS()}
	s := New(src)
	ctx := context.Background()

	first, err := s.Load(ctx, Low)
	require.NoError(t, err)
	second, err := s.Load(ctx, Low)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, src.opens.Load())
	assert.True(t, s.Cached(Low))
	assert.False(t, s.Cached(High))

	s.ClearCache()
	assert.False(t, s.Cached(Low))
	third, err := s.Load(ctx, Low)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.EqualValues(t, 2, src.opens.Load())
}

func TestConcurrentFirstLoadsShareOneRead(t *testing.T) {
	t.Parallel()
	src := &countingSource{fs: newFS()}
	s := New(src)

	var wg sync.WaitGroup
	results := make([]*geom.FeatureCollection, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fc, err := s.Load(context.Background(), Low)
			assert.NoError(t, err)
			results[i] = fc
		}(i)
	}
	wg.Wait()
	for _, fc := range results {
		assert.Same(t, results[0], fc)
	}
	assert.LessOrEqual(t, src.opens.Load(), int32(16))
	assert.True(t, s.Cached(Low))
}

func TestLoadErrorWrapsCause(t *testing.T) {
	t.Parallel()
	s := New(FSSource{FS: newFS(), LowPath: "low.json", HighPath: "high.json"})

	_, err := s.Load(context.Background(), High)
	require.Error(t, err)
	var lerr *LoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, High, lerr.Level)
	var terr *geom.TopologyError
	assert.True(t, errors.As(err, &terr))
	assert.False(t, s.Cached(High))

	_, err = New(FSSource{FS: newFS(), LowPath: "missing.json"}).Load(context.Background(), Low)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadWithFallback(t *testing.T) {
	t.Parallel()
	s := New(FSSource{FS: newFS(), LowPath: "low.json", HighPath: "high.json"})

	fc, level, err := s.LoadWithFallback(context.Background(), High)
	require.NoError(t, err)
	assert.Equal(t, Low, level)
	assert.Len(t, fc.Features, 4)

	_, _, err = New(FSSource{FS: newFS()}).LoadWithFallback(context.Background(), High)
	assert.Error(t, err)
}

func TestFindByCode(t *testing.T) {
	t.Parallel()
	s := New(FSSource{FS: newFS(), LowPath: "low.json"})
	ctx := context.Background()

	for _, code := range []string{"FR", "fr", "FRA", "fra"} {
		f, ok, err := s.FindByCode(ctx, code, Low)
		require.NoError(t, err)
		require.True(t, ok, code)
		assert.Equal(t, "France", f.Name)
	}

	_, ok, err := s.FindByCode(ctx, "DEU", Low)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindByCodeFallsBackToName(t *testing.T) {
	t.Parallel()
	tbl := isocode.New([]isocode.Country{
		{Alpha2: "CD", Alpha3: "COD", Name: "Dem. Rep. Congo"},
	}, nil)
	s := New(FSSource{FS: newFS(), LowPath: "low.json"}, WithTable(tbl))
	fc, err := s.Load(context.Background(), Low)
	require.NoError(t, err)
	cod := fc.Features[2]
	require.Equal(t, "COD", cod.Key())
	// with the codes gone only the reverse name lookup can find it
	cod.ISO2, cod.ISO3 = "", ""

	f, ok, err := s.FindByCode(context.Background(), "cd", Low)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, cod, f)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	l, err := ParseLevel("high")
	require.NoError(t, err)
	assert.Equal(t, High, l)
	_, err = ParseLevel("medium")
	assert.Error(t, err)
}
