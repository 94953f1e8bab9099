package geom

import "fmt"

// TopologyError reports malformed boundary input.
type TopologyError struct {
	Object string
	Reason string
	Err    error
}

func (e *TopologyError) Error() string {
	msg := "topology"
	if e.Object != "" {
		msg += " object " + e.Object
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TopologyError) Unwrap() error { return e.Err }
