// Package isocode resolves country display names to ISO 3166-1 alpha-2 and
// alpha-3 codes and back. The table is plain data and can be replaced
// wholesale with New.
package isocode

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Country is one row of the lookup table.
type Country struct {
	Alpha2 string
	Alpha3 string
	Name   string
}

// Table is an immutable, case and diacritic insensitive lookup table.
type Table struct {
	byName   map[string]Country
	byAlpha2 map[string]Country
	byAlpha3 map[string]Country
}

// New builds a table from rows and extra name aliases. Alias values are
// alpha-3 codes; aliases pointing at unknown codes are ignored. Later rows
// never overwrite earlier ones.
func New(rows []Country, aliases map[string]string) *Table {
	t := &Table{
		byName:   make(map[string]Country, len(rows)+len(aliases)),
		byAlpha2: make(map[string]Country, len(rows)),
		byAlpha3: make(map[string]Country, len(rows)),
	}
	for _, c := range rows {
		c.Alpha2 = strings.ToUpper(c.Alpha2)
		c.Alpha3 = strings.ToUpper(c.Alpha3)
		if _, dup := t.byAlpha3[c.Alpha3]; dup {
			continue
		}
		t.byAlpha3[c.Alpha3] = c
		if c.Alpha2 != "" {
			t.byAlpha2[c.Alpha2] = c
		}
		t.byName[Normalize(c.Name)] = c
	}
	for alias, a3 := range aliases {
		c, ok := t.byAlpha3[strings.ToUpper(a3)]
		if !ok {
			continue
		}
		key := Normalize(alias)
		if _, taken := t.byName[key]; !taken {
			t.byName[key] = c
		}
	}
	return t
}

// Lookup resolves a display name.
func (t *Table) Lookup(name string) (Country, bool) {
	c, ok := t.byName[Normalize(name)]
	return c, ok
}

// ByCode resolves an alpha-2 or alpha-3 code, case-insensitively.
func (t *Table) ByCode(code string) (Country, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch len(code) {
	case 2:
		c, ok := t.byAlpha2[code]
		return c, ok
	case 3:
		c, ok := t.byAlpha3[code]
		return c, ok
	}
	return Country{}, false
}

// Len reports the number of distinct countries.
func (t *Table) Len() int { return len(t.byAlpha3) }

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds a name for lookup: diacritics removed, lower case,
// punctuation dropped, "&" spelled out, whitespace collapsed.
func Normalize(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range folded {
		switch {
		case r == '&':
			if !space {
				b.WriteByte(' ')
			}
			b.WriteString("and ")
			space = true
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case r == '\'' || r == '’' || r == '.':
			// "Côte d'Ivoire" and "St. Lucia" fold without a gap
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

var defaultTable = New(countries, aliases)

// Default returns the built-in ISO 3166-1 table with Natural Earth aliases.
func Default() *Table { return defaultTable }
