// Package ingest reads the CVE record corpus from disk.
//
// ReadTree walks a records root for .json files, decodes each as a CVE v5
// record document and extracts the three fields the engine needs: assigner
// org id, short name (provider metadata first, assigner fallback) and the
// publication timestamp. Files that fail to decode are counted and skipped
// (the first few logged verbosely); decoded records without a usable
// timestamp are dropped silently. Nothing in here aborts a run except a
// missing root.
package ingest
