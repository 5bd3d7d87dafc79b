package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type callKey struct {
	operation string
	outcome   string
}

type histogram struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// Collector records guarded remote calls by operation and outcome.
type Collector struct {
	mu      sync.Mutex
	calls   map[callKey]uint64
	latency map[string]*histogram
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		calls:   make(map[callKey]uint64),
		latency: make(map[string]*histogram),
	}
}

var defaultCollector = NewCollector()

// Default returns the process-wide collector.
func Default() *Collector {
	return defaultCollector
}

// ObserveCall records one finished call. Outcome is a short label such as
// "ok", "error" or "cancelled".
func (c *Collector) ObserveCall(operation, outcome string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[callKey{operation: operation, outcome: outcome}]++

	hist := c.latency[operation]
	if hist == nil {
		hist = newHistogram()
		c.latency[operation] = hist
	}
	hist.observe(duration.Seconds())
}

// Count returns how many calls were recorded for operation and outcome.
func (c *Collector) Count(operation, outcome string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[callKey{operation: operation, outcome: outcome}]
}

func newHistogram() *histogram {
	buckets := []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) observe(value float64) {
	h.count++
	h.sum += value
	// Values above the last bound only show up in the +Inf bucket via h.count.
	for idx, bound := range h.buckets {
		if value <= bound {
			for i := idx; i < len(h.counts); i++ {
				h.counts[i]++
			}
			return
		}
	}
}

// Render formats the collected metrics in Prometheus text exposition format.
func (c *Collector) Render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	type callMetric struct {
		callKey
		value uint64
	}
	calls := make([]callMetric, 0, len(c.calls))
	for key, value := range c.calls {
		calls = append(calls, callMetric{callKey: key, value: value})
	}
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].operation == calls[j].operation {
			return calls[i].outcome < calls[j].outcome
		}
		return calls[i].operation < calls[j].operation
	})

	operations := make([]string, 0, len(c.latency))
	for op := range c.latency {
		operations = append(operations, op)
	}
	sort.Strings(operations)

	var builder strings.Builder
	builder.Grow(1024)

	builder.WriteString("# HELP pgai_openai_calls_total Total number of guarded OpenAI calls.\n")
	builder.WriteString("# TYPE pgai_openai_calls_total counter\n")
	for _, metric := range calls {
		builder.WriteString(fmt.Sprintf("pgai_openai_calls_total{operation=\"%s\",outcome=\"%s\"} %d\n",
			escape(metric.operation), escape(metric.outcome), metric.value))
	}

	builder.WriteString("# HELP pgai_openai_call_duration_seconds Guarded OpenAI call duration in seconds.\n")
	builder.WriteString("# TYPE pgai_openai_call_duration_seconds histogram\n")
	for _, op := range operations {
		hist := c.latency[op]
		for idx, bound := range hist.buckets {
			builder.WriteString(fmt.Sprintf("pgai_openai_call_duration_seconds_bucket{operation=\"%s\",le=\"%s\"} %d\n",
				escape(op), formatFloat(bound), hist.counts[idx]))
		}
		builder.WriteString(fmt.Sprintf("pgai_openai_call_duration_seconds_bucket{operation=\"%s\",le=\"+Inf\"} %d\n",
			escape(op), hist.count))
		builder.WriteString(fmt.Sprintf("pgai_openai_call_duration_seconds_sum{operation=\"%s\"} %s\n",
			escape(op), formatFloat(hist.sum)))
		builder.WriteString(fmt.Sprintf("pgai_openai_call_duration_seconds_count{operation=\"%s\"} %d\n",
			escape(op), hist.count))
	}

	return builder.String()
}

func escape(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
