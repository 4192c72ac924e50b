package collector_test

import (
	"fmt"
	"strings"
	"time"

	"netplayer/internal/collector"
	"netplayer/internal/core"
)

func ExampleNewCollector() {
	// The handler runs on the collector goroutine, one delivery at a time
	handler := func(d core.Delivery) core.Receipt {
		fmt.Printf("%d -> %d: %s\n", d.Source, d.Dest, d.Packet)
		return core.Receipt{Delivery: d}
	}
	c := collector.NewCollector(handler, 0)

	c.Report(core.Delivery{Source: 1, Dest: 2, Packet: "hello"})
	c.Report(core.Delivery{Source: 2, Dest: 1, Packet: "world"})
	c.Close()

	fmt.Printf("Handled %d deliveries\n", c.Processed())
	// Output:
	// 1 -> 2: hello
	// 2 -> 1: world
	// Handled 2 deliveries
}

func ExampleComputeMetrics() {
	receipts := []core.Receipt{
		{Delivery: core.Delivery{Source: 1, Dest: 2}},
		{Delivery: core.Delivery{Source: 1, Dest: 3}},
		{Delivery: core.Delivery{Source: 2, Dest: 1}, Malformed: true},
		{Delivery: core.Delivery{Source: 3, Dest: 1}},
	}

	m := collector.ComputeMetrics(receipts, 2*time.Second)

	fmt.Printf("Total: %d, Malformed: %d, Rate: %.0f/s, From node 1: %d\n",
		m.TotalDeliveries, m.MalformedCount, m.DeliveriesPerSec, m.BySource[1])
	// Output: Total: 4, Malformed: 1, Rate: 2/s, From node 1: 2
}

func ExampleFormatText() {
	receipts := []core.Receipt{
		{Delivery: core.Delivery{Source: 1, Dest: 2}, Latency: 2 * time.Millisecond},
	}

	var sb strings.Builder
	collector.FormatText(&sb, collector.ComputeMetrics(receipts, time.Second))
	fmt.Println(strings.Contains(sb.String(), "Delivered:      1"))
	// Output: true
}
