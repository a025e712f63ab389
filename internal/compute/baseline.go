package compute

import (
	"math"
	"time"

	"github.com/cnawatch/cnawatch/internal/ingest"
)

// minStdDevMonths is the smallest number of active baseline months for which
// a standard deviation is reported. Below it the sample is too small to be
// meaningful, so the value is absent rather than zero or estimated.
const minStdDevMonths = 3

// Month identifies one calendar month, the bucket key for baseline counts.
type Month struct {
	Year  int
	Month time.Month
}

// monthOf returns the bucket key t falls in.
func monthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Baseline is one organization's historical publication profile. A profile
// exists only for organizations with at least one baseline-window record;
// an absent profile is distinct from a profile whose mean is zero.
type Baseline struct {
	// ShortName is the organization's short name as last seen in the corpus.
	ShortName string

	// MonthlyCounts holds publications per (year, month) for months that had
	// at least one record. Months without records are absent, not zero: the
	// mean divides by active months, not by the window length.
	MonthlyCounts map[Month]int

	// MeanMonthly is the total baseline publications divided by the number
	// of active months.
	MeanMonthly float64

	// StdDev is the sample standard deviation of the monthly counts, or nil
	// when fewer than minStdDevMonths months have data.
	StdDev *float64
}

// Activity is the aggregated view of one run's record corpus, keyed by
// organization id throughout. It is what the classifier and the report
// assembler consume.
type Activity struct {
	// Baselines holds a profile per organization with baseline-window records.
	Baselines map[string]*Baseline

	// Current counts monitoring-window publications per organization.
	Current map[string]int

	// Recent counts publications in the auxiliary recent sub-window. It is
	// carried through to the report and never affects classification.
	Recent map[string]int

	// LastSeen tracks each organization's most recent publication anywhere in
	// the corpus, including outside both statistical windows.
	LastSeen map[string]time.Time

	// ShortNames maps organization id to the short name the records carried.
	ShortNames map[string]string
}

// Aggregate scans the record corpus once and derives the per-organization
// state a run needs. Records outside both windows still update last-seen
// tracking and the id → short name mapping.
func Aggregate(records []ingest.Record, w Windows) *Activity {
	act := &Activity{
		Baselines:  make(map[string]*Baseline),
		Current:    make(map[string]int),
		Recent:     make(map[string]int),
		LastSeen:   make(map[string]time.Time),
		ShortNames: make(map[string]string),
	}

	baselineMonths := make(map[string]map[Month]int)

	for _, rec := range records {
		act.ShortNames[rec.OrgID] = rec.ShortName

		if last, ok := act.LastSeen[rec.OrgID]; !ok || rec.Published.After(last) {
			act.LastSeen[rec.OrgID] = rec.Published
		}

		switch {
		case w.InMonitoring(rec.Published):
			act.Current[rec.OrgID]++
			if w.InRecent(rec.Published) {
				act.Recent[rec.OrgID]++
			}
		case w.InBaseline(rec.Published):
			months := baselineMonths[rec.OrgID]
			if months == nil {
				months = make(map[Month]int)
				baselineMonths[rec.OrgID] = months
			}
			months[monthOf(rec.Published)]++
		}
	}

	for orgID, months := range baselineMonths {
		var total int
		for _, n := range months {
			total += n
		}
		b := &Baseline{
			ShortName:     act.ShortNames[orgID],
			MonthlyCounts: months,
			MeanMonthly:   float64(total) / float64(len(months)),
		}
		if len(months) >= minStdDevMonths {
			sd := sampleStdDev(months)
			b.StdDev = &sd
		}
		act.Baselines[orgID] = b
	}

	return act
}

// DaysSince returns whole days between t and the window's now, clamped to
// zero so publications dated in the future (clock skew, timezone drift)
// never report negative ages.
func (w Windows) DaysSince(t time.Time) int {
	days := int(w.Now.Sub(t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// sampleStdDev computes the sample standard deviation of the bucket counts.
func sampleStdDev(months map[Month]int) float64 {
	n := float64(len(months))
	var sum float64
	for _, c := range months {
		sum += float64(c)
	}
	mean := sum / n

	var ss float64
	for _, c := range months {
		d := float64(c) - mean
		ss += d * d
	}
	return math.Sqrt(ss / (n - 1))
}
