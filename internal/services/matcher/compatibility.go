// Package matcher implements the study partner compatibility engine and the
// service that feeds it with stored profiles.
package matcher

import (
	"fmt"
	"math"
	"strings"

	"studybuddy-matcher/internal/models"
)

// Factor weights. They sum to 1.0; goals alignment is reserved and never scored,
// so the highest reachable total is 95.
const (
	WeightSubjects = 0.30
	WeightLevel    = 0.20
	WeightDistance = 0.20
	WeightSchedule = 0.15
	WeightStyle    = 0.10
	WeightGoals    = 0.05
)

const (
	// DistanceCutoffKm is the distance at which the geographic factor reaches zero.
	DistanceCutoffKm = 25.0
	// NearbyThresholdKm is the largest distance labelled "Nearby location".
	NearbyThresholdKm = 10.0
	// CompatibleScheduleThreshold is the schedule overlap above which schedules are called compatible.
	CompatibleScheduleThreshold = 50.0
	// MaxReasons caps how many reasons a match carries.
	MaxReasons = 3
)

// ScorePair validates both profiles and scores them with CalculateCompatibility.
// A nil profile or a blank uid returns models.ErrInvalidProfile.
func ScorePair(a, b *models.Profile) (models.Compatibility, error) {
	for _, side := range []struct {
		name string
		p    *models.Profile
	}{{"requester", a}, {"candidate", b}} {
		if side.p == nil {
			return models.Compatibility{}, fmt.Errorf("%s: %w: nil profile", side.name, models.ErrInvalidProfile)
		}
		if strings.TrimSpace(side.p.UID) == "" {
			return models.Compatibility{}, fmt.Errorf("%s: %w: %w", side.name, models.ErrInvalidProfile, models.ErrMissingUID)
		}
	}
	return CalculateCompatibility(a, b), nil
}

// CalculateCompatibility scores b from a's point of view. Overlap factors are
// normalized by a's set sizes, so the result is not symmetric in general.
// Both profiles must be non-nil; ScorePair checks unvalidated input.
func CalculateCompatibility(a, b *models.Profile) models.Compatibility {
	var details models.ScoreBreakdown
	reasons := make([]string, 0, 5)

	// Subject overlap (30%)
	subjectOverlap := intersect(a.Subjects, b.Subjects)
	subjectPct := overlapPercent(len(subjectOverlap), distinct(a.Subjects))
	details.Subjects = models.SubjectDetail{
		Score:      weighted(subjectPct, WeightSubjects),
		Overlap:    subjectOverlap,
		Percentage: round(subjectPct),
	}
	if len(subjectOverlap) > 0 {
		reasons = append(reasons, fmt.Sprintf("%d shared subjects", len(subjectOverlap)))
	}

	// Academic level (20%)
	levelMatch := a.AcademicLevel == b.AcademicLevel
	levelPct := 0.0
	if levelMatch {
		levelPct = 100
	}
	details.Level = models.LevelDetail{
		Score: weighted(levelPct, WeightLevel),
		Match: levelMatch,
	}
	if levelMatch {
		reasons = append(reasons, "Same academic level")
	}

	// Geographic proximity (20%)
	distance := RegionDistance(a.Region, b.Region)
	distancePct := math.Max(0, (DistanceCutoffKm-distance)/DistanceCutoffKm*100)
	details.Distance = models.DistanceDetail{
		Score:    weighted(distancePct, WeightDistance),
		Distance: round(distance),
		Unit:     "km",
	}
	if distance <= NearbyThresholdKm {
		reasons = append(reasons, "Nearby location")
	}

	// Schedule overlap (15%)
	schedulePct := scheduleOverlap(a.Availability, b.Availability)
	details.Schedule = models.ScheduleDetail{
		Score:   weighted(schedulePct, WeightSchedule),
		Overlap: round(schedulePct),
	}
	if schedulePct > CompatibleScheduleThreshold {
		reasons = append(reasons, "Compatible schedules")
	}

	// Study style (10%)
	styleOverlap := intersect(a.StudyPreferences.StudyStyle, b.StudyPreferences.StudyStyle)
	stylePct := overlapPercent(len(styleOverlap), distinct(a.StudyPreferences.StudyStyle))
	details.Style = models.StyleDetail{
		Score:   weighted(stylePct, WeightStyle),
		Overlap: styleOverlap,
	}
	if len(styleOverlap) > 0 {
		reasons = append(reasons, "Similar learning styles")
	}

	details.Goals = models.GoalsDetail{Reserved: true}

	total := details.Subjects.Score +
		details.Level.Score +
		details.Distance.Score +
		details.Schedule.Score +
		details.Style.Score

	if len(reasons) > MaxReasons {
		reasons = reasons[:MaxReasons]
	}

	return models.Compatibility{
		Total:   total,
		Reasons: reasons,
		Details: details,
	}
}

// overlapPercent divides by max(size, 1) so empty sets contribute zero.
func overlapPercent(shared, size int) float64 {
	if size < 1 {
		size = 1
	}
	return float64(shared) / float64(size) * 100
}

func weighted(pct, weight float64) int {
	return round(pct * weight)
}

func round(v float64) int {
	return int(math.Round(v))
}
