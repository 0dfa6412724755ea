package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"studybuddy-matcher/internal/models"
)

// MatchRepository handles partner match database operations.
type MatchRepository struct {
	db *DB
}

// NewMatchRepository creates a new match repository.
func NewMatchRepository(db *DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// ReplaceForRequester stores the latest ranking for a requester, dropping rows
// for candidates that no longer qualify.
func (r *MatchRepository) ReplaceForRequester(ctx context.Context, requesterUID string, matches []models.MatchResult) (int, error) {
	inserted := 0

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		inserted = 0
		if _, err := tx.Exec(ctx, `DELETE FROM partner_matches WHERE requester_uid = $1`, requesterUID); err != nil {
			return fmt.Errorf("failed to clear matches: %w", err)
		}

		now := time.Now().UTC()
		for _, m := range matches {
			breakdown, err := json.Marshal(m.ScoreBreakdown)
			if err != nil {
				return fmt.Errorf("failed to encode breakdown for %s: %w", m.CandidateID, err)
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO partner_matches (
					requester_uid, candidate_uid, score, color_tag, reasons, breakdown, computed_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (requester_uid, candidate_uid) DO UPDATE SET
					score = EXCLUDED.score,
					color_tag = EXCLUDED.color_tag,
					reasons = EXCLUDED.reasons,
					breakdown = EXCLUDED.breakdown,
					computed_at = EXCLUDED.computed_at`,
				requesterUID,
				m.CandidateID,
				m.CompatibilityScore,
				string(m.ColorTag),
				nonNil(m.Reasons),
				breakdown,
				now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert match %s: %w", m.CandidateID, err)
			}
			inserted++
		}
		return nil
	})

	return inserted, err
}

// ListForRequester returns stored matches for a requester, best first.
func (r *MatchRepository) ListForRequester(ctx context.Context, requesterUID string, limit int) ([]*models.PartnerMatch, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, requester_uid, candidate_uid, score, color_tag, reasons, breakdown, computed_at
		FROM partner_matches
		WHERE requester_uid = $1
		ORDER BY score DESC, id ASC
		LIMIT $2`, requesterUID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var results []*models.PartnerMatch
	for rows.Next() {
		var m models.PartnerMatch
		var colorTag string
		var breakdown []byte

		if err := rows.Scan(
			&m.ID,
			&m.RequesterUID,
			&m.CandidateUID,
			&m.Score,
			&colorTag,
			&m.Reasons,
			&breakdown,
			&m.ComputedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}

		m.ColorTag = models.ColorTag(colorTag)
		if err := json.Unmarshal(breakdown, &m.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to decode breakdown: %w", err)
		}
		results = append(results, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	return results, nil
}

// DeleteAll removes every stored match.
func (r *MatchRepository) DeleteAll(ctx context.Context) (int64, error) {
	n, err := r.db.ExecContext(ctx, `DELETE FROM partner_matches`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear matches: %w", err)
	}
	return n, nil
}
