package geom

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DecodeGeoJSON reads country polygons from a GeoJSON FeatureCollection,
// Feature or bare Polygon/MultiPolygon. Other geometry types are skipped.
func DecodeGeoJSON(data []byte) (*FeatureCollection, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &TopologyError{Reason: "invalid json", Err: err}
	}

	var feats []*geojson.Feature
	switch head.Type {
	case "FeatureCollection":
		gfc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, &TopologyError{Reason: "invalid feature collection", Err: err}
		}
		feats = gfc.Features
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, &TopologyError{Reason: "invalid feature", Err: err}
		}
		feats = []*geojson.Feature{f}
	case "Polygon", "MultiPolygon":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, &TopologyError{Reason: "invalid geometry", Err: err}
		}
		feats = []*geojson.Feature{geojson.NewFeature(g.Geometry())}
	default:
		return nil, &TopologyError{Reason: fmt.Sprintf("unsupported geojson type %q", head.Type)}
	}

	fc := &FeatureCollection{}
	for _, gf := range feats {
		mp := toMultiPolygon(gf.Geometry)
		if len(mp) == 0 {
			continue
		}
		props := map[string]any(gf.Properties)
		if props == nil {
			props = map[string]any{}
		}
		if gf.ID != nil {
			if _, ok := props["id"]; !ok {
				props["id"] = gf.ID
			}
		}
		f := NewFeature(propString(props, nameKeys...), mp, props)
		f.ISO2 = isoProp(props, 2, iso2Keys...)
		f.ISO3 = isoProp(props, 3, iso3Keys...)
		fc.Features = append(fc.Features, f)
	}
	if len(fc.Features) == 0 {
		return nil, &TopologyError{Reason: "no polygon features"}
	}
	return fc, nil
}

func toMultiPolygon(g orb.Geometry) orb.MultiPolygon {
	switch g := g.(type) {
	case orb.MultiPolygon:
		return g
	case orb.Polygon:
		return orb.MultiPolygon{g}
	case orb.Collection:
		var mp orb.MultiPolygon
		for _, c := range g {
			mp = append(mp, toMultiPolygon(c)...)
		}
		return mp
	}
	return nil
}

// Decode sniffs the document type and dispatches to DecodeTopology or
// DecodeGeoJSON.
func Decode(data []byte, object string) (*FeatureCollection, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &TopologyError{Reason: "invalid json", Err: err}
	}
	if head.Type == "Topology" {
		return DecodeTopology(data, object)
	}
	return DecodeGeoJSON(data)
}

// ReadFile loads a TopoJSON or GeoJSON document from disk.
func ReadFile(path, object string) (*FeatureCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, object)
}

// Read loads a TopoJSON or GeoJSON document from r.
func Read(r io.Reader, object string) (*FeatureCollection, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return Decode(buf.Bytes(), object)
}
