package compute

import "time"

// daysPerMonth is the fixed month length used to size the baseline window.
// The baseline is modeled as baseline_months blocks of 30 days rather than
// true calendar months. The 13-point timeline in timeline.go steps in the
// same 30-day increments, so this approximation must stay as-is: switching
// to calendar months would shift which bucket a publication lands in.
const daysPerMonth = 30

// Windows holds the date boundaries a single analysis run operates on.
//
// A publication in [MonitoringStart, Now] is current; in
// [BaselineStart, BaselineEnd) it is baseline; outside both it contributes
// nothing to the statistics but still counts for last-seen tracking.
type Windows struct {
	// Now is the instant the run was started; every boundary derives from it.
	Now time.Time

	// MonitoringStart is Now minus the monitoring window length.
	MonitoringStart time.Time

	// BaselineStart and BaselineEnd bound the historical reference period.
	// BaselineEnd equals MonitoringStart: the windows are contiguous with no
	// gap and no overlap.
	BaselineStart time.Time
	BaselineEnd   time.Time

	// RecentCutoff bounds the auxiliary recent-activity sub-window inside the
	// monitoring window. It feeds the recent count only, never classification.
	RecentCutoff time.Time

	// MonitoringDays and BaselineMonths echo the inputs for report metadata.
	MonitoringDays int
	BaselineMonths int
}

// Partition derives the run's window boundaries from now.
//
// now is passed explicitly so callers (and tests) control the clock without
// sleeping. Use time.Now().UTC() in production.
func Partition(now time.Time, monitoringDays, baselineMonths, recentDays int) Windows {
	monitoringStart := now.AddDate(0, 0, -monitoringDays)
	return Windows{
		Now:             now,
		MonitoringStart: monitoringStart,
		BaselineStart:   monitoringStart.AddDate(0, 0, -baselineMonths*daysPerMonth),
		BaselineEnd:     monitoringStart,
		RecentCutoff:    now.AddDate(0, 0, -recentDays),
		MonitoringDays:  monitoringDays,
		BaselineMonths:  baselineMonths,
	}
}

// InMonitoring reports whether t falls inside [MonitoringStart, Now].
func (w Windows) InMonitoring(t time.Time) bool {
	return !t.Before(w.MonitoringStart) && !t.After(w.Now)
}

// InBaseline reports whether t falls inside [BaselineStart, BaselineEnd).
func (w Windows) InBaseline(t time.Time) bool {
	return !t.Before(w.BaselineStart) && t.Before(w.BaselineEnd)
}

// InRecent reports whether t falls inside [RecentCutoff, Now].
func (w Windows) InRecent(t time.Time) bool {
	return !t.Before(w.RecentCutoff) && !t.After(w.Now)
}
