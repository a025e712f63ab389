package compute

import "time"

// timelinePoints is the fixed length of the display series: twelve baseline
// buckets plus the current period.
const timelinePoints = 13

// timelineSpanDays is how far back the first bucket starts.
const timelineSpanDays = 365

// Point is one bucket in the 13-point display timeline.
type Point struct {
	Month     string `json:"month"`
	Count     int    `json:"count"`
	IsCurrent bool   `json:"is_current"`
}

// BuildTimeline produces the fixed 13-point series for one organization:
// twelve 30-day buckets starting a year before now, each labeled with its
// approximate calendar month oldest-first, then the current monitoring
// period. counts may be nil for organizations without a baseline profile.
//
// Presentation data only; nothing here feeds back into classification.
func BuildTimeline(now time.Time, counts map[Month]int, current int) []Point {
	points := make([]Point, 0, timelinePoints)

	start := now.AddDate(0, 0, -timelineSpanDays)
	for i := 0; i < timelinePoints-1; i++ {
		bucket := start.AddDate(0, 0, daysPerMonth*i)
		points = append(points, Point{
			Month: bucket.Format("Jan 2006"),
			Count: counts[monthOf(bucket)],
		})
	}

	return append(points, Point{
		Month:     now.Format("Jan 2006") + " (Current)",
		Count:     current,
		IsCurrent: true,
	})
}
