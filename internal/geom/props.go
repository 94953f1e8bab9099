package geom

import "strings"

var (
	nameKeys = []string{"name", "NAME", "ADMIN", "admin", "name_long", "NAME_LONG"}
	iso2Keys = []string{"ISO_A2", "iso_a2", "ISO_A2_EH", "iso2", "country_code_2"}
	iso3Keys = []string{"ISO_A3", "iso_a3", "ADM0_A3", "adm0_a3", "iso3", "country_code"}
)

func propString(props map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := props[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// isoProp reads an n-letter ISO code property. Natural Earth marks missing
// codes as "-99".
func isoProp(props map[string]any, n int, keys ...string) string {
	for _, k := range keys {
		v, ok := props[k].(string)
		if !ok {
			continue
		}
		v = strings.ToUpper(strings.TrimSpace(v))
		if len(v) != n || v == "-99" {
			continue
		}
		return v
	}
	return ""
}
