package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OrgInfo is the resolved identity of one organization.
type OrgInfo struct {
	DisplayName string
	AdvisoryURL string
	ShortName   string
	UUID        string
}

// Registry resolves organization short names and ids to display identities.
// It is built once per run and passed explicitly through the pipeline;
// lookups never mutate it, so it needs no locking.
type Registry struct {
	byShort map[string]OrgInfo
	byLower map[string]OrgInfo
	byUUID  map[string]OrgInfo
	order   []string // short names in first-seen order, deduplicated
}

// New builds a Registry from resolved entries. A duplicate short name
// overwrites the earlier entry without producing a second canonical row.
func New(entries []OrgInfo) *Registry {
	r := &Registry{
		byShort: make(map[string]OrgInfo, len(entries)),
		byLower: make(map[string]OrgInfo, len(entries)),
		byUUID:  make(map[string]OrgInfo, len(entries)),
	}
	for _, e := range entries {
		if e.ShortName != "" {
			if _, seen := r.byShort[e.ShortName]; !seen {
				r.order = append(r.order, e.ShortName)
			}
			r.byShort[e.ShortName] = e
			r.byLower[strings.ToLower(e.ShortName)] = e
		}
		if e.UUID != "" {
			r.byUUID[e.UUID] = e
		}
	}
	return r
}

// Empty returns a registry with no entries; every lookup synthesizes its
// result. Used when the list fetch fails and the run degrades to short names.
func Empty() *Registry {
	return New(nil)
}

// Len reports the number of canonical short-named entries.
func (r *Registry) Len() int {
	return len(r.order)
}

// Entries returns the canonical organizations in first-seen order. Lookup
// aliases (lowercased names, UUIDs) do not appear as rows of their own.
func (r *Registry) Entries() []OrgInfo {
	out := make([]OrgInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byShort[name])
	}
	return out
}

// Lookup resolves an organization, trying exact short name, lowercase short
// name, then id, and synthesizing an identity from the short name itself
// when nothing matches.
func (r *Registry) Lookup(shortName, id string) OrgInfo {
	if e, ok := r.byShort[shortName]; ok {
		return e
	}
	if shortName != "" {
		if e, ok := r.byLower[strings.ToLower(shortName)]; ok {
			return e
		}
	}
	if e, ok := r.byUUID[id]; ok {
		return e
	}

	display := shortName
	if display == "" {
		display = "Unknown"
	}
	return OrgInfo{DisplayName: display, ShortName: shortName, UUID: id}
}

// listEntry is the subset of one CNAsList.json item the registry reads.
// Field casing has varied across list revisions; encoding/json matches the
// tag case-insensitively, which covers shortName/ShortName and UUID/uuid.
type listEntry struct {
	ShortName          string `json:"shortName"`
	CNAShortName       string `json:"cnaShortName"`
	OrganizationName   string `json:"organizationName"`
	UUID               string `json:"uuid"`
	SecurityAdvisories struct {
		Advisories []advisory `json:"advisories"`
	} `json:"securityAdvisories"`
	Advisories []advisory `json:"advisories"`
}

type advisory struct {
	URL string `json:"url"`
}

func (e listEntry) toOrgInfo() OrgInfo {
	short := e.ShortName
	if short == "" {
		short = e.CNAShortName
	}

	display := e.OrganizationName
	if display == "" {
		display = short
	}

	url := ""
	if adv := e.SecurityAdvisories.Advisories; len(adv) > 0 {
		url = adv[0].URL
	}
	if url == "" && len(e.Advisories) > 0 {
		url = e.Advisories[0].URL
	}

	return OrgInfo{
		DisplayName: display,
		AdvisoryURL: url,
		ShortName:   short,
		UUID:        e.UUID,
	}
}

// Fetch downloads and parses the official list into a Registry.
//
// Callers treat any error as a degraded-but-running condition: the run
// proceeds with Empty() and short names only. The client carries the
// request timeout.
func Fetch(ctx context.Context, client *http.Client, url string) (*Registry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: fetch list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: fetch list: unexpected status %d from %s", resp.StatusCode, url)
	}

	var items []listEntry
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("registry: decode list: %w", err)
	}

	entries := make([]OrgInfo, 0, len(items))
	for _, it := range items {
		entries = append(entries, it.toOrgInfo())
	}
	return New(entries), nil
}
