package geodata

import (
	"globemap/internal/geom"
)

// enrich resolves ISO codes in place. Codes carried by the data win over
// name lookup. A key already claimed by an earlier feature is not assigned
// again; the later feature stays renderable without a code.
func (s *Store) enrich(fc *geom.FeatureCollection) {
	seen := make(map[string]string, len(fc.Features))
	unresolved := 0
	for _, f := range fc.Features {
		s.resolve(f)
		key := f.Key()
		if key == "" {
			unresolved++
			continue
		}
		if prev, dup := seen[key]; dup {
			s.log.Warn().
				Str("iso", key).
				Str("name", f.Name).
				Str("first", prev).
				Msg("duplicate ISO key, leaving feature unresolved")
			f.ISO2, f.ISO3 = "", ""
			unresolved++
			continue
		}
		seen[key] = f.Name
	}
	if unresolved > 0 {
		s.log.Debug().Int("unresolved", unresolved).Msg("features without ISO code")
	}
}

func (s *Store) resolve(f *geom.Feature) {
	if f.ISO3 != "" || f.ISO2 != "" {
		code := f.ISO3
		if code == "" {
			code = f.ISO2
		}
		if c, ok := s.table.ByCode(code); ok {
			if f.ISO2 == "" {
				f.ISO2 = c.Alpha2
			}
			if f.ISO3 == "" {
				f.ISO3 = c.Alpha3
			}
			if f.Name == "" {
				f.Name = c.Name
			}
		}
		return
	}
	if c, ok := s.table.Lookup(f.Name); ok {
		f.ISO2, f.ISO3 = c.Alpha2, c.Alpha3
	}
}
