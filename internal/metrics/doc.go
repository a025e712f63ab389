// Package metrics publishes each run's headline numbers for Prometheus.
//
// A batch process cannot host a scrape endpoint, so WriteTextfile emits the
// standard textfile-collector form instead: gauges (status counts, anomaly
// total, record counts, last-run timestamp) encoded in text exposition
// format and renamed atomically into the collector directory.
package metrics
