package collector

import (
	"sort"
	"time"

	"netplayer/internal/core"
)

// Metrics summarizes one run as seen by the aggregator.
type Metrics struct {
	TotalDeliveries  int             `json:"totalDeliveries"`
	MalformedCount   int             `json:"malformedCount"`
	DeliveriesPerSec float64         `json:"deliveriesPerSec"`
	RunDuration      time.Duration   `json:"runDuration"`
	Latency          DurationMetrics `json:"latency"`
	BySource         map[int]int     `json:"bySource"`
	ByDest           map[int]int     `json:"byDest"`
}

// DurationMetrics contains queue latency statistics.
type DurationMetrics struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	Avg time.Duration `json:"avg"`
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

// ComputeMetrics computes metrics from receipts. Pure function, no side effects.
func ComputeMetrics(receipts []core.Receipt, runDuration time.Duration) *Metrics {
	m := &Metrics{
		RunDuration: runDuration,
		BySource:    make(map[int]int),
		ByDest:      make(map[int]int),
	}
	if len(receipts) == 0 {
		return m
	}

	latencies := make([]time.Duration, 0, len(receipts))
	for _, r := range receipts {
		m.TotalDeliveries++
		if r.Malformed {
			m.MalformedCount++
		}
		m.BySource[r.Delivery.Source]++
		m.ByDest[r.Delivery.Dest]++
		latencies = append(latencies, r.Latency)
	}

	if m.RunDuration > 0 {
		m.DeliveriesPerSec = float64(m.TotalDeliveries) / m.RunDuration.Seconds()
	}
	m.Latency = ComputeDurationMetrics(latencies)
	return m
}

// ComputePercentile returns the nearest-rank percentile of an ascending slice.
// p is in [0,1].
func ComputePercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

// ComputeDurationMetrics calculates all duration statistics from an unsorted slice.
func ComputeDurationMetrics(durations []time.Duration) DurationMetrics {
	if len(durations) == 0 {
		return DurationMetrics{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return DurationMetrics{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: total / time.Duration(len(sorted)),
		P50: ComputePercentile(sorted, 0.50),
		P90: ComputePercentile(sorted, 0.90),
		P95: ComputePercentile(sorted, 0.95),
		P99: ComputePercentile(sorted, 0.99),
	}
}
