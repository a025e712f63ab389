package report

import (
	"math"
	"sort"
	"time"

	"github.com/cnawatch/cnawatch/internal/compute"
	"github.com/cnawatch/cnawatch/internal/registry"
)

// Entry is one organization's row in the report. The json names are the
// report's wire contract; downstream dashboards key on them.
type Entry struct {
	AssignerID    string            `json:"assigner_id"`
	Name          string            `json:"cna_name"`
	OrgName       string            `json:"cna_org_name"`
	AdvisoryURL   string            `json:"cna_advisory_url"`
	Status        compute.Status    `json:"status"`
	BaselineAvg   float64           `json:"baseline_avg"`
	CurrentCount  int               `json:"current_count"`
	Deviation     compute.Deviation `json:"deviation_pct"`
	DaysSinceLast *int              `json:"days_since_last_cve"`
	RecentCount   int               `json:"recent_count"`
	StdDev        *float64          `json:"std_dev"`
	ThresholdLow  float64           `json:"threshold_low"`
	ThresholdHigh float64           `json:"threshold_high"`
	Timeline      []compute.Point   `json:"timeline_13months"`
}

// Metadata describes the run that produced the report: window boundaries,
// generation time and per-status totals.
type Metadata struct {
	GeneratedAt          string `json:"generated_at"`
	MonitoringWindowDays int    `json:"monitoring_window_days"`
	BaselineMonths       int    `json:"baseline_months"`
	MonitoringStart      string `json:"monitoring_start"`
	MonitoringEnd        string `json:"monitoring_end"`
	BaselineStart        string `json:"baseline_start"`
	BaselineEnd          string `json:"baseline_end"`
	TotalCNAs            int    `json:"total_cnas"`
	TotalAnomalies       int    `json:"total_anomalies"`
	Growth               int    `json:"cnas_growth"`
	Normal               int    `json:"cnas_normal"`
	Declining            int    `json:"cnas_declining"`
	Inactive             int    `json:"cnas_inactive"`
}

// Report is the full output document: run metadata, one entry per known
// organization, and the anomalous subset. Constructed once, written once.
type Report struct {
	Metadata  Metadata `json:"metadata"`
	CNAs      []Entry  `json:"cnas"`
	Anomalies []Entry  `json:"anomalies"`
}

// Assemble builds the report from the aggregated corpus and the official
// organization list. Entries come from three disjoint groups: organizations
// with a baseline profile, organizations active in the monitoring window
// without one, and official-list organizations never seen in the corpus.
func Assemble(w compute.Windows, act *compute.Activity, reg *registry.Registry) *Report {
	entries := make([]Entry, 0, len(act.Baselines)+reg.Len())
	anomalies := make([]Entry, 0)

	add := func(e Entry) {
		entries = append(entries, e)
		if e.Status.IsAnomaly() {
			anomalies = append(anomalies, e)
		}
	}

	// Profiled organizations, in deterministic id order so that identical
	// inputs always produce an identical report.
	profiledIDs := make([]string, 0, len(act.Baselines))
	for id := range act.Baselines {
		profiledIDs = append(profiledIDs, id)
	}
	sort.Strings(profiledIDs)
	for _, orgID := range profiledIDs {
		b := act.Baselines[orgID]
		cls := compute.Classify(act.Current[orgID], b)
		e := buildEntry(orgID, b.ShortName, cls, w, act, reg)
		e.StdDev = wireStdDev(b.StdDev)
		e.Timeline = compute.BuildTimeline(w.Now, b.MonthlyCounts, cls.CurrentCount)
		add(e)
	}

	// Newly active organizations: monitoring-window records, no profile.
	currentIDs := make([]string, 0, len(act.Current))
	for id := range act.Current {
		currentIDs = append(currentIDs, id)
	}
	sort.Strings(currentIDs)
	for _, orgID := range currentIDs {
		if _, profiled := act.Baselines[orgID]; profiled {
			continue
		}
		current := act.Current[orgID]
		if current == 0 {
			continue
		}
		cls := compute.Classify(current, nil)
		e := buildEntry(orgID, act.ShortNames[orgID], cls, w, act, reg)
		e.Timeline = compute.BuildTimeline(w.Now, nil, current)
		add(e)
	}

	// Official-list organizations with no records anywhere in the corpus.
	// Reconciled by short name: the corpus and the list share no id space.
	seen := make(map[string]bool)
	markSeen := func(orgID string) {
		if name := act.ShortNames[orgID]; name != "Unknown" {
			seen[name] = true
		}
	}
	for orgID := range act.Baselines {
		markSeen(orgID)
	}
	for orgID := range act.Current {
		markSeen(orgID)
	}
	for _, info := range reg.Entries() {
		if seen[info.ShortName] {
			continue
		}
		entries = append(entries, Entry{
			AssignerID:  "unknown",
			Name:        info.ShortName,
			OrgName:     info.DisplayName,
			AdvisoryURL: info.AdvisoryURL,
			Status:      compute.StatusInactive,
			Timeline:    compute.BuildTimeline(w.Now, nil, 0),
		})
	}

	sortAnomalies(anomalies)
	sortEntries(entries)

	return &Report{
		Metadata:  buildMetadata(w, entries, anomalies),
		CNAs:      entries,
		Anomalies: anomalies,
	}
}

// buildEntry fills the fields shared by profiled and newly active
// organizations; the caller sets StdDev and Timeline.
func buildEntry(orgID, shortName string, cls compute.Classification, w compute.Windows, act *compute.Activity, reg *registry.Registry) Entry {
	info := reg.Lookup(shortName, orgID)
	e := Entry{
		AssignerID:    orgID,
		Name:          shortName,
		OrgName:       info.DisplayName,
		AdvisoryURL:   info.AdvisoryURL,
		Status:        cls.Status,
		BaselineAvg:   round2(cls.BaselineAvg),
		CurrentCount:  cls.CurrentCount,
		Deviation:     cls.Deviation,
		RecentCount:   act.Recent[orgID],
		ThresholdLow:  round2(cls.ThresholdLow),
		ThresholdHigh: round2(cls.ThresholdHigh),
	}
	if last, ok := act.LastSeen[orgID]; ok {
		days := w.DaysSince(last)
		e.DaysSinceLast = &days
	}
	return e
}

// sortAnomalies ranks by deviation magnitude, largest first. Unbounded
// deviations rank above every bounded value by rule, not by comparing the
// wire sentinel.
func sortAnomalies(anomalies []Entry) {
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Deviation.Magnitude() > anomalies[j].Deviation.Magnitude()
	})
}

// sortEntries ranks the full listing by signed deviation, largest first,
// with Inactive entries pinned to the bottom regardless of their zero
// deviation.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return listRank(entries[i]) > listRank(entries[j])
	})
}

func listRank(e Entry) float64 {
	if e.Status == compute.StatusInactive {
		return math.Inf(-1)
	}
	return e.Deviation.SortValue()
}

func buildMetadata(w compute.Windows, entries, anomalies []Entry) Metadata {
	m := Metadata{
		GeneratedAt:          w.Now.Format(time.RFC3339),
		MonitoringWindowDays: w.MonitoringDays,
		BaselineMonths:       w.BaselineMonths,
		MonitoringStart:      w.MonitoringStart.Format(time.RFC3339),
		MonitoringEnd:        w.Now.Format(time.RFC3339),
		BaselineStart:        w.BaselineStart.Format(time.RFC3339),
		BaselineEnd:          w.BaselineEnd.Format(time.RFC3339),
		TotalCNAs:            len(entries),
		TotalAnomalies:       len(anomalies),
	}
	for _, e := range entries {
		switch e.Status {
		case compute.StatusGrowth:
			m.Growth++
		case compute.StatusNormal:
			m.Normal++
		case compute.StatusDeclining:
			m.Declining++
		case compute.StatusInactive:
			m.Inactive++
		}
	}
	return m
}

// wireStdDev maps a profile's standard deviation to its wire form: absent or
// zero values emit null, everything else rounds to two decimals.
func wireStdDev(sd *float64) *float64 {
	if sd == nil || *sd <= 0 {
		return nil
	}
	v := round2(*sd)
	return &v
}

// round2 rounds to two decimals with ties going to the even digit, matching
// how every other producer of this wire format rounds.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
