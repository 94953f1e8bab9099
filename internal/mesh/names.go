package mesh

import (
	"regexp"
	"strings"

	"globemap/internal/isocode"
)

var blenderSuffix = regexp.MustCompile(`\.\d{3}$`)

// NameTable resolves a mesh node to an ISO alpha-3 code. The zero value
// uses isocode.Default.
type NameTable struct {
	Table *isocode.Table
	// Prefix marks country nodes, "GEO-" by default.
	Prefix string
	// Overrides maps a cleaned node name straight to a code.
	Overrides map[string]string
}

// DefaultNameTable is the "GEO-XXX" convention over the default ISO table.
func DefaultNameTable() NameTable {
	return NameTable{Table: isocode.Default(), Prefix: "GEO-"}
}

func (nt NameTable) table() *isocode.Table {
	if nt.Table == nil {
		return isocode.Default()
	}
	return nt.Table
}

// Resolve tries node metadata first, then the node name with the prefix and
// any ".001"-style duplicate suffix removed, matched as a code and then as a
// country name.
func (nt NameTable) Resolve(n *Node) (string, bool) {
	if code, ok := n.Meta(MetaCountryCode); ok {
		if iso, ok := nt.code(code); ok {
			return iso, true
		}
	}
	return nt.ResolveName(n.Name)
}

// ResolveName resolves a bare node name.
func (nt NameTable) ResolveName(name string) (string, bool) {
	clean := strings.TrimSpace(blenderSuffix.ReplaceAllString(name, ""))
	prefix := nt.Prefix
	if prefix == "" {
		prefix = "GEO-"
	}
	if len(clean) >= len(prefix) && strings.EqualFold(clean[:len(prefix)], prefix) {
		clean = clean[len(prefix):]
	}
	if clean == "" {
		return "", false
	}
	if iso, ok := nt.Overrides[clean]; ok {
		return nt.code(iso)
	}
	if iso, ok := nt.code(clean); ok {
		return iso, true
	}
	c, ok := nt.table().Lookup(strings.ReplaceAll(clean, "_", " "))
	if !ok {
		return "", false
	}
	return c.Alpha3, true
}

func (nt NameTable) code(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 && len(code) != 3 {
		return "", false
	}
	c, ok := nt.table().ByCode(code)
	if !ok {
		return "", false
	}
	return c.Alpha3, true
}
