// Package report assembles and writes the analysis output document.
//
// Assemble merges three disjoint organization groups into one listing:
// profiled organizations (classified against their baseline), newly active
// ones (monitoring-window records, no baseline), and official-list
// organizations absent from the corpus entirely (Inactive). It applies the
// two sort orders (anomalies by deviation magnitude, the full listing by
// signed deviation with Inactive pinned last) and derives the per-status
// metadata totals.
//
// Write emits the document wholesale as indented JSON, creating parent
// directories; each run overwrites the previous report.
package report
