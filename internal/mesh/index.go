package mesh

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Entry is one indexed country mesh.
type Entry struct {
	ISO  string
	Node *Node
	Min  mgl64.Vec3
	Max  mgl64.Vec3
}

// Index maps meshes to country codes. It is built once per asset load and
// never mutated afterwards, so readers need no locking.
type Index struct {
	entries    []Entry
	byISO      map[string][]int
	unresolved []string
}

// BuildIndex resolves every non-empty node in scene. Nodes whose names do
// not resolve are left out and reported by Unresolved.
func BuildIndex(scene *Scene, names NameTable) *Index {
	ix := &Index{byISO: make(map[string][]int)}
	if scene == nil {
		return ix
	}
	for _, n := range scene.Nodes {
		min, max, ok := n.Bounds()
		if !ok {
			continue
		}
		iso, ok := names.Resolve(n)
		if !ok {
			ix.unresolved = append(ix.unresolved, n.Name)
			continue
		}
		ix.byISO[iso] = append(ix.byISO[iso], len(ix.entries))
		ix.entries = append(ix.entries, Entry{ISO: iso, Node: n, Min: min, Max: max})
	}
	sort.Strings(ix.unresolved)
	return ix
}

// Entries is the indexed meshes in scene order. Callers must not modify it.
func (ix *Index) Entries() []Entry {
	if ix == nil {
		return nil
	}
	return ix.entries
}

// Len is the number of indexed meshes.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// Countries is the number of distinct codes.
func (ix *Index) Countries() int {
	if ix == nil {
		return 0
	}
	return len(ix.byISO)
}

// Lookup returns every mesh of a country; split islands yield several.
func (ix *Index) Lookup(iso string) []Entry {
	if ix == nil {
		return nil
	}
	idx := ix.byISO[iso]
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, ix.entries[i])
	}
	return out
}

// Unresolved lists node names that matched no country.
func (ix *Index) Unresolved() []string {
	if ix == nil {
		return nil
	}
	return ix.unresolved
}
