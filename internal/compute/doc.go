// Package compute is the activity classification engine: it turns a corpus
// of publication records into per-organization statuses and display data.
//
// windows.go partitions a run's "now" into the monitoring window, the
// contiguous trailing baseline window (modeled as 30-day months), and the
// auxiliary recent-activity sub-window.
//
// baseline.go aggregates the corpus into per-organization monthly baseline
// profiles (mean over active months, sample standard deviation with ≥3
// months) plus monitoring/recent counts and last-seen tracking.
//
// classify.go provides the pure Classify function that maps a current count
// and an optional baseline profile to one of Growth, Normal or Declining
// using the mean*0.5 / mean*2.5 band; Inactive comes from the report
// assembler's reconciliation against the official organization list.
// Deviation is a tagged value so "unbounded growth from zero" never rides on
// a magic number except at the JSON boundary.
//
// timeline.go builds the fixed 13-point display series per organization.
//
// Every function takes its clock as an argument; nothing here reads
// time.Now(), so tests are deterministic.
package compute
