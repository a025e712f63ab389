// Package registry resolves CNA short names and assigner ids to display
// identities (organization name, advisory URL) using the official CNA list.
//
// Fetch downloads CNAsList.json and builds a Registry with three lookup
// indexes tried in order: exact short name, lowercased short name, UUID.
// A miss synthesizes an identity from the short name, so a failed or skipped
// download never blocks classification; the run just shows short names.
// The canonical Entries list (aliases excluded) is what the report assembler
// reconciles against to find organizations that never published.
package registry
