package tui

import (
	"sort"
	"strings"

	list "github.com/charmbracelet/bubbles/list"
)

type countryItem struct {
	name, code string
	status     string
}

func (c countryItem) Title() string { return c.name }
func (c countryItem) Description() string {
	if c.status == "" || c.status == "none" {
		return c.code
	}
	return c.code + " · " + c.status
}
func (c countryItem) FilterValue() string { return c.name + " " + c.code }

// refreshCountries lists every coded feature of the current view by name.
func (m *Model) refreshCountries() {
	v := m.view()
	if v == nil {
		return
	}
	fc := v.Features()
	if fc == nil {
		return
	}
	items := make([]list.Item, 0, len(fc.Features))
	for _, f := range fc.Features {
		code := f.Key()
		if code == "" {
			continue
		}
		items = append(items, countryItem{name: f.Name, code: code, status: v.Status(code).String()})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].(countryItem).name < items[j].(countryItem).name
	})
	m.items = items
	m.l.SetItems(items)
}

// resolveGoto maps goto input to a code: codes pass through, names are
// matched against the country list.
func (m Model) resolveGoto(in string) string {
	in = strings.TrimSpace(in)
	for _, it := range m.items {
		c := it.(countryItem)
		if strings.EqualFold(c.name, in) {
			return c.code
		}
	}
	return strings.ToUpper(in)
}
