package matcher

import "studybuddy-matcher/internal/models"

const (
	weekdayPoints = 25
	weekendPoints = 50
	maxSchedule   = 100
)

// scheduleOverlap scores shared availability on a 0-100 scale. Weekday and
// weekend sets are compared independently and only when both sides declared
// at least one day; a shared weekend day is worth twice a shared weekday.
func scheduleOverlap(a, b models.Availability) float64 {
	score := 0
	if len(a.Weekdays) > 0 && len(b.Weekdays) > 0 {
		score += len(intersect(a.Weekdays, b.Weekdays)) * weekdayPoints
	}
	if len(a.Weekends) > 0 && len(b.Weekends) > 0 {
		score += len(intersect(a.Weekends, b.Weekends)) * weekendPoints
	}
	if score > maxSchedule {
		score = maxSchedule
	}
	return float64(score)
}

// intersect returns the distinct entries of a that also appear in b, in a's order.
func intersect(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, v := range b {
		in[v] = struct{}{}
	}

	out := make([]string, 0)
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if _, ok := in[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

// distinct counts the distinct entries of a.
func distinct(a []string) int {
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	return len(seen)
}
