package sync

import "errors"

var (
	// ErrListing is returned when the upstream listing call fails; the cycle
	// is abandoned and the watermark stays put.
	ErrListing = errors.New("listing failed")

	// ErrNoItems is returned when the listing yields no usable videos. The
	// watermark is not advanced so the next cycle retries the same window.
	ErrNoItems = errors.New("no videos found")

	// ErrInFlight is returned when a cycle for the same source is already
	// running. The caller drops the trigger; the running cycle covers it.
	ErrInFlight = errors.New("sync already in flight")
)
