// Package core defines the fundamental interfaces and types shared by nodes and the aggregator.
package core

import (
	"context"
	"time"
)

// Delivery is the unit a node hands to the aggregator for one successful send.
// Packet carries the encoded wire text, not a parsed value.
type Delivery struct {
	Source int
	Dest   int
	Packet string
}

// Receipt records how the aggregator handled one delivery.
type Receipt struct {
	Delivery  Delivery
	Latency   time.Duration // between packet stamping and handling
	Malformed bool
}

// Handler processes one delivery. The collector never runs two handlers at once.
type Handler func(Delivery) Receipt

// Reporter is the interface nodes use to hand deliveries to the aggregator.
// Report must not block on the handling of earlier deliveries.
type Reporter interface {
	Report(Delivery)
}

// Worker is anything the coordinator can run on its own goroutine.
type Worker interface {
	ID() int
	Run(ctx context.Context, rep Reporter) error
}
