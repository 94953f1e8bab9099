package engine

import "errors"

var (
	// ErrUnknownCode is returned when no loaded country carries a code.
	ErrUnknownCode = errors.New("unknown country code")
	// ErrNotLoaded is returned before boundary data has been loaded.
	ErrNotLoaded = errors.New("map data not loaded")
	// ErrBusy is returned when a load is already in flight.
	ErrBusy = errors.New("load already in progress")
)
