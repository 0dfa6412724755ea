// Package models defines the data structures for the study partner matcher.
package models

import (
	"time"
)

// ColorTag is the visual indicator attached to a compatibility tier.
type ColorTag string

const (
	ColorGreen  ColorTag = "green"
	ColorTeal   ColorTag = "teal"
	ColorYellow ColorTag = "yellow"
	ColorOrange ColorTag = "orange"
	ColorGray   ColorTag = "gray"
)

var colorHex = map[ColorTag]string{
	ColorGreen:  "#28a745",
	ColorTeal:   "#17a2b8",
	ColorYellow: "#ffc107",
	ColorOrange: "#fd7e14",
	ColorGray:   "#6c757d",
}

// Hex returns the CSS color used when rendering the tag.
func (c ColorTag) Hex() string {
	if hex, ok := colorHex[c]; ok {
		return hex
	}
	return colorHex[ColorGray]
}

// Tier is a discrete compatibility bucket.
type Tier struct {
	Name     string   `json:"name"`
	MinScore int      `json:"min_score"`
	Message  string   `json:"message"`
	Color    ColorTag `json:"color"`
}

// SubjectDetail explains the subject overlap factor.
type SubjectDetail struct {
	Score      int      `json:"score"`
	Overlap    []string `json:"overlap"`
	Percentage int      `json:"percentage"`
}

// LevelDetail explains the academic level factor.
type LevelDetail struct {
	Score int  `json:"score"`
	Match bool `json:"match"`
}

// DistanceDetail explains the geographic factor. Distance is rounded to whole km.
type DistanceDetail struct {
	Score    int    `json:"score"`
	Distance int    `json:"distance"`
	Unit     string `json:"unit"`
}

// ScheduleDetail explains the schedule factor.
type ScheduleDetail struct {
	Score   int `json:"score"`
	Overlap int `json:"overlap"`
}

// StyleDetail explains the study style factor.
type StyleDetail struct {
	Score   int      `json:"score"`
	Overlap []string `json:"overlap"`
}

// GoalsDetail is the reserved goals alignment factor. It never contributes.
type GoalsDetail struct {
	Score    int  `json:"score"`
	Reserved bool `json:"reserved"`
}

// ScoreBreakdown holds the per-factor sub-scores and raw metrics.
type ScoreBreakdown struct {
	Subjects SubjectDetail  `json:"subjects"`
	Level    LevelDetail    `json:"level"`
	Distance DistanceDetail `json:"distance"`
	Schedule ScheduleDetail `json:"schedule"`
	Style    StyleDetail    `json:"style"`
	Goals    GoalsDetail    `json:"goals"`
}

// Compatibility is the result of scoring one profile against another.
type Compatibility struct {
	Total   int            `json:"total"`
	Reasons []string       `json:"reasons"`
	Details ScoreBreakdown `json:"details"`
}

// MatchResult is a ranked, annotated partner for a requester.
type MatchResult struct {
	CandidateID        string         `json:"candidateId"`
	CompatibilityScore int            `json:"compatibilityScore"`
	ColorTag           ColorTag       `json:"colorTag"`
	Message            string         `json:"message"`
	Reasons            []string       `json:"reasons"`
	ScoreBreakdown     ScoreBreakdown `json:"scoreBreakdown"`
}

// PartnerMatch is a persisted match row.
type PartnerMatch struct {
	ID           int64          `json:"id" db:"id"`
	RequesterUID string         `json:"requester_uid" db:"requester_uid"`
	CandidateUID string         `json:"candidate_uid" db:"candidate_uid"`
	Score        int            `json:"score" db:"score"`
	ColorTag     ColorTag       `json:"color_tag" db:"color_tag"`
	Reasons      []string       `json:"reasons" db:"reasons"`
	Breakdown    ScoreBreakdown `json:"breakdown" db:"breakdown"`
	ComputedAt   time.Time      `json:"computed_at" db:"computed_at"`
}

// PartnerSearchResult is what the matching service returns for one requester.
type PartnerSearchResult struct {
	RequesterUID    string        `json:"requester_uid"`
	CandidatesSeen  int           `json:"candidates_seen"`
	Matches         []MatchResult `json:"matches"`
	FromCache       bool          `json:"from_cache"`
	ProcessingTime  time.Duration `json:"-"`
	ProcessingMilli int64         `json:"processing_ms"`
}
