package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
)

// FormatText writes metrics in human-readable format.
func FormatText(w io.Writer, m *Metrics) {
	if m.TotalDeliveries == 0 {
		fmt.Fprintln(w, "No packets delivered")
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "netplayer - Run Summary")
	fmt.Fprintln(w, "=======================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Duration:       %v\n", m.RunDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "Delivered:      %s\n", formatNumber(m.TotalDeliveries))
	fmt.Fprintf(w, "Malformed:      %s\n", formatNumber(m.MalformedCount))
	fmt.Fprintf(w, "Packets/sec:    %.1f\n", m.DeliveriesPerSec)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Queue Latency:")
	fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(m.Latency.Min))
	fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(m.Latency.Avg))
	fmt.Fprintf(w, "  P50:    %s\n", FormatDuration(m.Latency.P50))
	fmt.Fprintf(w, "  P90:    %s\n", FormatDuration(m.Latency.P90))
	fmt.Fprintf(w, "  P95:    %s\n", FormatDuration(m.Latency.P95))
	fmt.Fprintf(w, "  P99:    %s\n", FormatDuration(m.Latency.P99))
	fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(m.Latency.Max))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "By Source:")
	for _, id := range sortedKeys(m.BySource) {
		fmt.Fprintf(w, "  node %-6d %s sent\n", id, formatNumber(m.BySource[id]))
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "By Destination:")
	for _, id := range sortedKeys(m.ByDest) {
		fmt.Fprintf(w, "  node %-6d %s received\n", id, formatNumber(m.ByDest[id]))
	}
}

// FormatJSON writes metrics in JSON format.
func FormatJSON(w io.Writer, m *Metrics) {
	output := struct {
		Duration         string              `json:"duration"`
		TotalDeliveries  int                 `json:"totalDeliveries"`
		MalformedCount   int                 `json:"malformedCount"`
		DeliveriesPerSec float64             `json:"deliveriesPerSec"`
		Latency          jsonDurationMetrics `json:"latency"`
		BySource         map[string]int      `json:"bySource"`
		ByDest           map[string]int      `json:"byDest"`
	}{
		Duration:         m.RunDuration.Round(time.Millisecond).String(),
		TotalDeliveries:  m.TotalDeliveries,
		MalformedCount:   m.MalformedCount,
		DeliveriesPerSec: m.DeliveriesPerSec,
		Latency:          toJSONDurationMetrics(m.Latency),
		BySource:         stringKeys(m.BySource),
		ByDest:           stringKeys(m.ByDest),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output) // terminal write errors are unrecoverable
}

type jsonDurationMetrics struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P90 string `json:"p90"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

func toJSONDurationMetrics(d DurationMetrics) jsonDurationMetrics {
	return jsonDurationMetrics{
		Min: FormatDuration(d.Min),
		Max: FormatDuration(d.Max),
		Avg: FormatDuration(d.Avg),
		P50: FormatDuration(d.P50),
		P90: FormatDuration(d.P90),
		P95: FormatDuration(d.P95),
		P99: FormatDuration(d.P99),
	}
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

func formatNumber(n int) string {
	if n < 1000 {
		return strconv.Itoa(n)
	}
	return formatNumber(n/1000) + fmt.Sprintf(",%03d", n%1000)
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func stringKeys(m map[int]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v
	}
	return out
}
