package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"studybuddy-matcher/internal/models"
)

const profileColumns = `uid, name, school, email, academic_level, region, subjects,
	study_style, preferred_time, group_size, session_length, weekdays, weekends,
	notifications, visibility, matching_radius, languages, batch_id, is_active,
	created_at, updated_at`

const upsertProfileSQL = `
	INSERT INTO profiles (` + profileColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, true, $19, $19)
	ON CONFLICT (uid) DO UPDATE SET
		name = EXCLUDED.name,
		school = EXCLUDED.school,
		email = EXCLUDED.email,
		academic_level = EXCLUDED.academic_level,
		region = EXCLUDED.region,
		subjects = EXCLUDED.subjects,
		study_style = EXCLUDED.study_style,
		preferred_time = EXCLUDED.preferred_time,
		group_size = EXCLUDED.group_size,
		session_length = EXCLUDED.session_length,
		weekdays = EXCLUDED.weekdays,
		weekends = EXCLUDED.weekends,
		notifications = EXCLUDED.notifications,
		visibility = EXCLUDED.visibility,
		matching_radius = EXCLUDED.matching_radius,
		languages = EXCLUDED.languages,
		batch_id = EXCLUDED.batch_id,
		is_active = true,
		updated_at = EXCLUDED.updated_at`

// ProfileRepository handles profile database operations.
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert validates and stores a profile, replacing any existing row with the same uid.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	p := profile.Normalize()
	if err := models.ValidateProfile(p); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, upsertProfileSQL, profileArgs(p, time.Now().UTC())...); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// BulkUpsert stores many profiles in one transaction. Invalid profiles are
// counted as failures and do not abort the batch.
func (r *ProfileRepository) BulkUpsert(ctx context.Context, profiles []*models.Profile) (*models.BulkInsertResult, error) {
	result := &models.BulkInsertResult{Errors: []string{}}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		batch := &pgx.Batch{}
		queued := make([]string, 0, len(profiles))

		for _, profile := range profiles {
			p := profile.Normalize()
			if err := models.ValidateProfile(p); err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("profile %s: %v", p.UID, err))
				continue
			}
			batch.Queue(upsertProfileSQL, profileArgs(p, now)...)
			queued = append(queued, p.UID)
		}

		if len(queued) == 0 {
			return nil
		}

		br := tx.SendBatch(ctx, batch)
		for _, uid := range queued {
			if _, err := br.Exec(); err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("profile %s: %v", uid, err))
			} else {
				result.InsertedCount++
			}
		}
		return br.Close()
	})

	if err != nil {
		return result, fmt.Errorf("bulk upsert failed: %w", err)
	}

	return result, nil
}

// GetByUID retrieves an active profile. It returns models.ErrProfileNotFound when missing.
func (r *ProfileRepository) GetByUID(ctx context.Context, uid string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE uid = $1 AND is_active = true`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, uid))
	if isNoRows(err) {
		return nil, fmt.Errorf("%w: %s", models.ErrProfileNotFound, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetAllActive retrieves every active, publicly visible profile. This is the candidate pool.
func (r *ProfileRepository) GetAllActive(ctx context.Context) ([]*models.Profile, error) {
	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE is_active = true AND visibility <> 'private'
		ORDER BY uid`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// Deactivate hides a profile from matching without deleting it.
func (r *ProfileRepository) Deactivate(ctx context.Context, uid string) error {
	n, err := r.db.ExecContext(ctx, `UPDATE profiles SET is_active = false, updated_at = $2 WHERE uid = $1`, uid, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to deactivate profile: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", models.ErrProfileNotFound, uid)
	}
	return nil
}

// CountActive returns the number of active profiles.
func (r *ProfileRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles WHERE is_active = true").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return count, nil
}

func profileArgs(p *models.Profile, now time.Time) []any {
	return []any{
		p.UID,
		p.Name,
		p.School,
		p.Email,
		p.AcademicLevel,
		string(p.Region),
		nonNil(p.Subjects),
		nonNil(p.StudyPreferences.StudyStyle),
		nonNil(p.StudyPreferences.PreferredTime),
		p.StudyPreferences.GroupSize,
		p.StudyPreferences.SessionLength,
		nonNil(p.Availability.Weekdays),
		nonNil(p.Availability.Weekends),
		p.Preferences.Notifications,
		visibilityOrDefault(p.Preferences.Visibility),
		radiusOrDefault(p.Preferences.MatchingRadius),
		nonNil(p.Preferences.Languages),
		p.BatchID,
		now,
	}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	var region string

	err := row.Scan(
		&p.UID,
		&p.Name,
		&p.School,
		&p.Email,
		&p.AcademicLevel,
		&region,
		&p.Subjects,
		&p.StudyPreferences.StudyStyle,
		&p.StudyPreferences.PreferredTime,
		&p.StudyPreferences.GroupSize,
		&p.StudyPreferences.SessionLength,
		&p.Availability.Weekdays,
		&p.Availability.Weekends,
		&p.Preferences.Notifications,
		&p.Preferences.Visibility,
		&p.Preferences.MatchingRadius,
		&p.Preferences.Languages,
		&p.BatchID,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Region = models.Region(region)
	return &p, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func visibilityOrDefault(v string) string {
	if v == "" {
		return "public"
	}
	return v
}

func radiusOrDefault(r int) int {
	if r <= 0 {
		return 25
	}
	return r
}
