package matcher

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"studybuddy-matcher/internal/models"
)

// MinCompatibilityScore is the lowest score a candidate needs to be returned.
const MinCompatibilityScore = 60

// defaultParallelThreshold is the pool size from which scoring is spread across workers.
const defaultParallelThreshold = 256

// Engine ranks candidate pools. It holds no per-request state and is safe for concurrent use.
type Engine struct {
	workers           int
	parallelThreshold int
}

// NewEngine creates an engine scoring with up to workers goroutines.
// workers <= 0 uses GOMAXPROCS; 1 disables parallel scoring.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		workers:           workers,
		parallelThreshold: defaultParallelThreshold,
	}
}

// FindPartners scores every candidate except the requester, keeps those scoring
// at least MinCompatibilityScore and returns them by descending score. Ties keep
// the candidates' input order.
func (e *Engine) FindPartners(requester *models.Profile, candidates []*models.Profile) ([]models.MatchResult, error) {
	if requester == nil || strings.TrimSpace(requester.UID) == "" {
		return nil, fmt.Errorf("requester: %w: %w", models.ErrInvalidProfile, models.ErrMissingUID)
	}

	pool, err := candidatePool(requester, candidates)
	if err != nil {
		return nil, err
	}

	slots := make([]*models.MatchResult, len(pool))
	if e.workers > 1 && len(pool) >= e.parallelThreshold {
		e.scoreParallel(requester, pool, slots)
	} else {
		scoreRange(requester, pool, slots, 0, len(pool))
	}

	matches := make([]models.MatchResult, 0, len(pool))
	for _, m := range slots {
		if m != nil {
			matches = append(matches, *m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CompatibilityScore > matches[j].CompatibilityScore
	})

	return matches, nil
}

// candidatePool drops the requester and rejects candidates without a usable uid.
func candidatePool(requester *models.Profile, candidates []*models.Profile) ([]*models.Profile, error) {
	self := strings.TrimSpace(requester.UID)
	pool := make([]*models.Profile, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for i, c := range candidates {
		if c == nil {
			return nil, fmt.Errorf("candidate %d: %w: nil profile", i, models.ErrInvalidProfile)
		}
		uid := strings.TrimSpace(c.UID)
		if uid == "" {
			return nil, fmt.Errorf("candidate %d: %w: %w", i, models.ErrInvalidProfile, models.ErrMissingUID)
		}
		if _, dup := seen[uid]; dup {
			return nil, fmt.Errorf("candidate %d: %w: %s", i, models.ErrDuplicateCandidate, uid)
		}
		seen[uid] = struct{}{}

		if uid == self {
			continue
		}
		pool = append(pool, c)
	}

	return pool, nil
}

func (e *Engine) scoreParallel(requester *models.Profile, pool []*models.Profile, slots []*models.MatchResult) {
	chunk := (len(pool) + e.workers - 1) / e.workers

	var g errgroup.Group
	g.SetLimit(e.workers)
	for start := 0; start < len(pool); start += chunk {
		end := min(start+chunk, len(pool))
		g.Go(func() error {
			scoreRange(requester, pool, slots, start, end)
			return nil
		})
	}
	_ = g.Wait()
}

// scoreRange fills slots[start:end]; each slot is written by exactly one goroutine.
func scoreRange(requester *models.Profile, pool []*models.Profile, slots []*models.MatchResult, start, end int) {
	for i := start; i < end; i++ {
		score := CalculateCompatibility(requester, pool[i])
		if score.Total < MinCompatibilityScore {
			continue
		}
		result := newMatchResult(pool[i].UID, score)
		slots[i] = &result
	}
}

func newMatchResult(candidateID string, score models.Compatibility) models.MatchResult {
	tier := TierFor(score.Total)
	return models.MatchResult{
		CandidateID:        candidateID,
		CompatibilityScore: score.Total,
		ColorTag:           tier.Color,
		Message:            tier.Message,
		Reasons:            score.Reasons,
		ScoreBreakdown:     score.Details,
	}
}

var defaultEngine = NewEngine(1)

// FindPartners ranks candidates for requester with a sequential engine.
func FindPartners(requester *models.Profile, candidates []*models.Profile) ([]models.MatchResult, error) {
	return defaultEngine.FindPartners(requester, candidates)
}
