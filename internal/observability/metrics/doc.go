// Package metrics keeps in-process counters and latency histograms for the
// OpenAI calls made through the cancellation guard and renders them in the
// Prometheus text exposition format.
package metrics
