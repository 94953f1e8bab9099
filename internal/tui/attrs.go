package tui

import (
	"fmt"
	"sort"

	table "github.com/charmbracelet/bubbles/table"
	json "github.com/goccy/go-json"

	"globemap/internal/engine"
	"globemap/internal/geom"
)

var attrColumns = []table.Column{
	{Title: "field", Width: 16},
	{Title: "value", Width: 32},
}

// refreshAttrs rebuilds the table for the current selection.
func (m *Model) refreshAttrs(sel engine.Selection, ok bool) {
	if !ok || sel.Feature == nil {
		m.tbl.SetRows(nil)
		return
	}
	m.tbl.SetRows(attrRows(sel.Feature, m.view().Status(sel.ISO)))
	m.tbl.GotoTop()
}

// attrRows lists identity fields first, then properties by key.
func attrRows(f *geom.Feature, st engine.Status) []table.Row {
	rows := []table.Row{
		{"name", f.Name},
		{"iso2", f.ISO2},
		{"iso3", f.ISO3},
		{"status", st.String()},
	}
	keys := make([]string, 0, len(f.Properties))
	for k := range f.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, table.Row{k, formatValue(f.Properties[k])})
	}
	return rows
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		bs, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(bs)
	}
}
