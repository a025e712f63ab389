package compute

import (
	"encoding/json"
	"math"
	"strconv"
)

// Status labels one organization's monitoring-window activity relative to
// its baseline.
type Status string

// Status values assigned during a run. Exactly one applies per organization.
const (
	StatusGrowth    Status = "Growth"
	StatusNormal    Status = "Normal"
	StatusDeclining Status = "Declining"
	StatusInactive  Status = "Inactive"
)

// Threshold factors applied to the baseline mean.
// Normal activity sits inside [mean*0.5, mean*2.5]; a single month at half or
// 2.5x the historical mean happens organically, so the band absorbs ordinary
// month-to-month variance while still catching step changes.
const (
	ThresholdLowFactor  = 0.5
	ThresholdHighFactor = 2.5
)

// MinDecliningBaseline is the smallest mean that can flag Declining.
// Near-zero baselines would otherwise flag every quiet month.
const MinDecliningBaseline = 0.5

// deviationSentinel is the historical wire value standing in for an
// unbounded deviation. Values at or above it decode back to Unbounded.
const deviationSentinel = 999999

// Deviation is the relative difference between the current-window count and
// the baseline mean, as a percentage. Unbounded marks growth from a zero
// baseline: it has no finite percentage, is never produced by division, and
// ranks above every bounded value.
type Deviation struct {
	Unbounded bool
	Pct       float64
}

// Magnitude is the absolute size used to rank anomalies.
func (d Deviation) Magnitude() float64 {
	if d.Unbounded {
		return math.Inf(1)
	}
	return math.Abs(d.Pct)
}

// SortValue is the signed ranking value used to order the full listing.
func (d Deviation) SortValue() float64 {
	if d.Unbounded {
		return math.Inf(1)
	}
	return d.Pct
}

// MarshalJSON writes the percentage rounded to one decimal (ties to even,
// like the report's two-decimal fields), or the sentinel when unbounded.
func (d Deviation) MarshalJSON() ([]byte, error) {
	if d.Unbounded {
		return []byte(strconv.Itoa(deviationSentinel)), nil
	}
	return json.Marshal(math.RoundToEven(d.Pct*10) / 10)
}

// UnmarshalJSON accepts what MarshalJSON writes.
func (d *Deviation) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v >= deviationSentinel {
		*d = Deviation{Unbounded: true}
	} else {
		*d = Deviation{Pct: v}
	}
	return nil
}

// Classification is the classifier's verdict for one organization.
type Classification struct {
	Status        Status
	BaselineAvg   float64
	CurrentCount  int
	Deviation     Deviation
	ThresholdLow  float64
	ThresholdHigh float64
}

// Classify assigns a status from the monitoring-window count and the
// organization's baseline profile, if any. Rules are mutually exclusive and
// checked in order:
//
//  1. No profile → Growth with an unbounded deviation (a new or newly active
//     organization; callers only reach this with current > 0).
//  2. Profile present → compare against the [mean*0.5, mean*2.5] band.
//     Above the band is Growth. Below it is Declining, but only when the
//     baseline is meaningful (mean ≥ MinDecliningBaseline).
//  3. Otherwise Normal.
//
// Inactive is never assigned here: it comes from reconciling the official
// organization list against the corpus, which is the report assembler's job.
func Classify(current int, b *Baseline) Classification {
	if b == nil {
		return Classification{
			Status:       StatusGrowth,
			CurrentCount: current,
			Deviation:    Deviation{Unbounded: true},
		}
	}

	mean := b.MeanMonthly
	low := mean * ThresholdLowFactor
	high := mean * ThresholdHighFactor

	status := StatusNormal
	switch {
	case float64(current) > high:
		status = StatusGrowth
	case float64(current) < low && mean >= MinDecliningBaseline:
		status = StatusDeclining
	}

	var dev Deviation
	if mean > 0 {
		dev.Pct = (float64(current) - mean) / mean * 100
	}

	return Classification{
		Status:        status,
		BaselineAvg:   mean,
		CurrentCount:  current,
		Deviation:     dev,
		ThresholdLow:  low,
		ThresholdHigh: high,
	}
}

// IsAnomaly reports whether the status marks anomalous activity. Normal and
// Inactive are expected conditions, not anomalies.
func (s Status) IsAnomaly() bool {
	return s == StatusGrowth || s == StatusDeclining
}
