package engine

import (
	"fmt"
	"strings"

	"globemap/internal/geom"
)

// Status is a country's travel lifecycle state. It only affects color.
type Status int

const (
	StatusNone Status = iota
	StatusWishlist
	StatusPlanned
	StatusVisited
	StatusLived
)

var statusNames = map[Status]string{
	StatusNone:     "none",
	StatusWishlist: "wishlist",
	StatusPlanned:  "planned",
	StatusVisited:  "visited",
	StatusLived:    "lived",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ParseStatus accepts the names above, case-insensitively, plus a few
// synonyms.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return StatusNone, nil
	case "wishlist", "want", "wish":
		return StatusWishlist, nil
	case "planned", "plan", "upcoming":
		return StatusPlanned, nil
	case "visited", "been", "done":
		return StatusVisited, nil
	case "lived", "home":
		return StatusLived, nil
	}
	return StatusNone, fmt.Errorf("unknown status %q", s)
}

// StatusesFromRows converts CSV rows. Rows with an unknown status are
// returned in the error but do not stop the conversion.
func StatusesFromRows(rows []geom.StatusRow) (map[string]Status, error) {
	out := make(map[string]Status, len(rows))
	var bad []string
	for _, r := range rows {
		st, err := ParseStatus(r.Status)
		if err != nil {
			bad = append(bad, r.Code)
			continue
		}
		out[strings.ToUpper(r.Code)] = st
	}
	if len(bad) > 0 {
		return out, fmt.Errorf("unrecognized status for %s", strings.Join(bad, ", "))
	}
	return out, nil
}
