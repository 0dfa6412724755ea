// Package models defines the data structures for the study partner matcher.
package models

import (
	"strings"
	"time"
)

// Region is one of the fixed geographic regions a student can belong to.
type Region string

const (
	RegionGreaterAccra Region = "Greater Accra"
	RegionAshanti      Region = "Ashanti"
	RegionWestern      Region = "Western"
	RegionCentral      Region = "Central"
	RegionEastern      Region = "Eastern"
	RegionVolta        Region = "Volta"
	RegionNorthern     Region = "Northern"
)

// DefaultRegion is used whenever a profile carries an unknown region.
const DefaultRegion = RegionGreaterAccra

// ValidRegions returns all known regions.
func ValidRegions() []Region {
	return []Region{
		RegionGreaterAccra,
		RegionAshanti,
		RegionWestern,
		RegionCentral,
		RegionEastern,
		RegionVolta,
		RegionNorthern,
	}
}

// IsValid checks if the region is one of the known regions.
func (r Region) IsValid() bool {
	for _, valid := range ValidRegions() {
		if r == valid {
			return true
		}
	}
	return false
}

// NormalizeRegion converts free-form region input to a known Region.
// Unknown values are returned trimmed and unchanged so validation can reject them.
func NormalizeRegion(region string) Region {
	normalized := strings.ToLower(strings.TrimSpace(region))
	normalized = strings.ReplaceAll(normalized, "_", " ")
	normalized = strings.ReplaceAll(normalized, "-", " ")
	normalized = strings.TrimSuffix(normalized, " region")

	regionMap := map[string]Region{
		"greater accra": RegionGreaterAccra,
		"greateraccra":  RegionGreaterAccra,
		"accra":         RegionGreaterAccra,
		"ashanti":       RegionAshanti,
		"kumasi":        RegionAshanti,
		"western":       RegionWestern,
		"central":       RegionCentral,
		"eastern":       RegionEastern,
		"volta":         RegionVolta,
		"northern":      RegionNorthern,
		"tamale":        RegionNorthern,
	}

	if mapped, ok := regionMap[normalized]; ok {
		return mapped
	}

	return Region(strings.TrimSpace(region))
}

// StudyPreferences holds how a student likes to study.
type StudyPreferences struct {
	GroupSize     string   `json:"groupSize,omitempty"`
	SessionLength string   `json:"sessionLength,omitempty"`
	PreferredTime []string `json:"preferredTime,omitempty"`
	StudyStyle    []string `json:"studyStyle,omitempty"`
}

// Availability lists the days a student is free to meet.
type Availability struct {
	Weekdays []string `json:"weekdays,omitempty"`
	Weekends []string `json:"weekends,omitempty"`
}

// Preferences holds account level preferences.
type Preferences struct {
	Notifications  bool     `json:"notifications"`
	Visibility     string   `json:"visibility,omitempty"`
	MatchingRadius int      `json:"matchingRadius,omitempty"`
	Languages      []string `json:"languagePreference,omitempty"`
}

// Profile is a student profile as seen by the matcher.
// Nil slices are treated as empty sets everywhere.
type Profile struct {
	UID              string           `json:"uid" db:"uid" validate:"required,max=128"`
	Name             string           `json:"name,omitempty" db:"name" validate:"max=200"`
	School           string           `json:"school,omitempty" db:"school" validate:"max=200"`
	Email            string           `json:"email,omitempty" db:"email" validate:"omitempty,email"`
	AcademicLevel    string           `json:"academicLevel" db:"academic_level" validate:"max=100"`
	Region           Region           `json:"region" db:"region" validate:"region"`
	Subjects         []string         `json:"subjects,omitempty" db:"subjects" validate:"dive,required"`
	StudyPreferences StudyPreferences `json:"studyPreferences" db:"-"`
	Availability     Availability     `json:"availability" db:"-"`
	Preferences      Preferences      `json:"preferences" db:"-"`
	BatchID          string           `json:"batchId,omitempty" db:"batch_id"`
	IsActive         bool             `json:"isActive" db:"is_active"`
	CreatedAt        time.Time        `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt,omitempty" db:"updated_at"`
}

// Registration is the data a student supplies when signing up.
type Registration struct {
	Name          string `json:"name" validate:"required"`
	School        string `json:"school" validate:"required"`
	AcademicLevel string `json:"academicLevel" validate:"required"`
	Region        string `json:"region" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
}

// DefaultPreferences returns the preferences of a profile that states none.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications:  true,
		Visibility:     "public",
		MatchingRadius: 25,
		Languages:      []string{"English", "Twi"},
	}
}

// NewProfile builds a fresh profile for a newly registered student with the
// default study preferences new accounts start with.
func NewProfile(uid string, reg Registration) *Profile {
	now := time.Now().UTC()
	return &Profile{
		UID:           uid,
		Name:          strings.TrimSpace(reg.Name),
		School:        strings.TrimSpace(reg.School),
		Email:         strings.TrimSpace(reg.Email),
		AcademicLevel: strings.TrimSpace(reg.AcademicLevel),
		Region:        NormalizeRegion(reg.Region),
		Subjects:      []string{},
		StudyPreferences: StudyPreferences{
			GroupSize:     "2-4_people",
			SessionLength: "2-3_hours",
			PreferredTime: []string{"weekends"},
			StudyStyle:    []string{"visual_learner"},
		},
		Preferences: DefaultPreferences(),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Normalize trims identifiers, canonicalizes the region and removes blank and
// duplicate set entries. It returns a copy and leaves p untouched.
func (p *Profile) Normalize() *Profile {
	out := *p
	out.UID = strings.TrimSpace(p.UID)
	out.Email = strings.TrimSpace(p.Email)
	out.AcademicLevel = strings.TrimSpace(p.AcademicLevel)
	out.Region = NormalizeRegion(string(p.Region))
	out.Subjects = cleanSet(p.Subjects)
	out.StudyPreferences.StudyStyle = cleanSet(p.StudyPreferences.StudyStyle)
	out.StudyPreferences.PreferredTime = cleanSet(p.StudyPreferences.PreferredTime)
	out.Availability.Weekdays = cleanSet(p.Availability.Weekdays)
	out.Availability.Weekends = cleanSet(p.Availability.Weekends)
	out.Preferences.Languages = cleanSet(p.Preferences.Languages)
	return &out
}

func cleanSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// BulkInsertResult contains the results of a bulk insert operation.
type BulkInsertResult struct {
	InsertedCount int      `json:"inserted_count"`
	FailedCount   int      `json:"failed_count"`
	Errors        []string `json:"errors,omitempty"`
}
