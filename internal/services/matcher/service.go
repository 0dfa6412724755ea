package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"studybuddy-matcher/internal/metrics"
	"studybuddy-matcher/internal/models"
	"studybuddy-matcher/internal/services/ses"
	"studybuddy-matcher/internal/utils"
)

// ProfileStore loads requesters and the candidate pool.
type ProfileStore interface {
	GetByUID(ctx context.Context, uid string) (*models.Profile, error)
	GetAllActive(ctx context.Context) ([]*models.Profile, error)
}

// MatchStore persists the latest ranking of a requester.
type MatchStore interface {
	ReplaceForRequester(ctx context.Context, requesterUID string, matches []models.MatchResult) (int, error)
}

// ResultCache holds rankings between searches.
type ResultCache interface {
	Get(ctx context.Context, uid string) ([]models.MatchResult, bool, error)
	Set(ctx context.Context, uid string, matches []models.MatchResult) error
}

// Notifier delivers partner digests.
type Notifier interface {
	SendPartnerDigest(ctx context.Context, profile *models.Profile, matches []models.MatchResult) (*ses.SendEmailResult, error)
}

// Service wires the engine to storage, caching and notifications.
type Service struct {
	engine   *Engine
	profiles ProfileStore
	matches  MatchStore
	cache    ResultCache
	notifier Notifier
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithMatchStore persists every fresh ranking.
func WithMatchStore(store MatchStore) Option {
	return func(s *Service) { s.matches = store }
}

// WithCache serves repeated searches from cache.
func WithCache(cache ResultCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithNotifier enables NotifyPartners.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService creates a matching service. A nil engine uses a sequential one.
func NewService(engine *Engine, profiles ProfileStore, opts ...Option) *Service {
	if engine == nil {
		engine = defaultEngine
	}
	s := &Service{engine: engine, profiles: profiles}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindPartnersFor ranks the active pool for the profile identified by uid.
func (s *Service) FindPartnersFor(ctx context.Context, uid string) (*models.PartnerSearchResult, error) {
	start := time.Now()

	uid = strings.TrimSpace(uid)
	if uid == "" {
		metrics.PartnerSearches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidProfile, models.ErrMissingUID)
	}
	logger := utils.ComponentLogger("matcher").With(zap.String("uid", uid))

	if cached, ok := s.cached(ctx, uid); ok {
		metrics.PartnerSearches.WithLabelValues("cached").Inc()
		elapsed := time.Since(start)
		return &models.PartnerSearchResult{
			RequesterUID:    uid,
			Matches:         cached,
			FromCache:       true,
			ProcessingTime:  elapsed,
			ProcessingMilli: elapsed.Milliseconds(),
		}, nil
	}

	requester, err := s.profiles.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			metrics.PartnerSearches.WithLabelValues("not_found").Inc()
		} else {
			metrics.PartnerSearches.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	pool, err := s.profiles.GetAllActive(ctx)
	if err != nil {
		metrics.PartnerSearches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	matches, err := s.engine.FindPartners(requester, pool)
	if err != nil {
		metrics.PartnerSearches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to rank partners: %w", err)
	}

	seen := candidatesSeen(uid, pool)
	metrics.CandidatesScored.Add(float64(seen))
	metrics.MatchesReturned.Observe(float64(len(matches)))

	if s.matches != nil {
		if _, err := s.matches.ReplaceForRequester(ctx, uid, matches); err != nil {
			logger.Warn("Failed to persist matches", zap.Error(err))
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, uid, matches); err != nil {
			logger.Warn("Failed to cache matches", zap.Error(err))
		}
	}

	elapsed := time.Since(start)
	metrics.SearchLatency.Observe(elapsed.Seconds())
	metrics.PartnerSearches.WithLabelValues("ok").Inc()

	logger.Info("Ranked partners",
		zap.Int("candidates", seen),
		zap.Int("matches", len(matches)),
		zap.Duration("elapsed", elapsed),
	)

	return &models.PartnerSearchResult{
		RequesterUID:    uid,
		CandidatesSeen:  seen,
		Matches:         matches,
		ProcessingTime:  elapsed,
		ProcessingMilli: elapsed.Milliseconds(),
	}, nil
}

// cached returns a cached ranking. Cache errors count as misses.
func (s *Service) cached(ctx context.Context, uid string) ([]models.MatchResult, bool) {
	if s.cache == nil {
		return nil, false
	}

	matches, ok, err := s.cache.Get(ctx, uid)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		utils.ComponentLogger("matcher").Warn("Partner cache lookup failed", zap.String("uid", uid), zap.Error(err))
		return nil, false
	case !ok:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	default:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return matches, true
	}
}

// NotifyPartners e-mails uid their top partners. It returns the number of
// partners included in the digest; zero means nothing was sent.
func (s *Service) NotifyPartners(ctx context.Context, uid string) (int, error) {
	if s.notifier == nil {
		return 0, errors.New("notifier not configured")
	}

	requester, err := s.profiles.GetByUID(ctx, strings.TrimSpace(uid))
	if err != nil {
		return 0, err
	}
	if !requester.Preferences.Notifications {
		return 0, fmt.Errorf("%w: %s", models.ErrNotificationsDisabled, requester.UID)
	}

	result, err := s.FindPartnersFor(ctx, requester.UID)
	if err != nil {
		return 0, err
	}
	if len(result.Matches) == 0 {
		utils.ComponentLogger("matcher").Info("No partners to notify about", zap.String("uid", requester.UID))
		return 0, nil
	}

	sent, err := s.notifier.SendPartnerDigest(ctx, requester, result.Matches)
	if err != nil {
		return 0, fmt.Errorf("failed to send partner digest: %w", err)
	}

	included := min(len(result.Matches), ses.DigestSize)
	utils.ComponentLogger("matcher").Info("Sent partner digest",
		zap.String("uid", requester.UID),
		zap.Int("partners", included),
		zap.String("messageId", sent.MessageID),
	)
	return included, nil
}

func candidatesSeen(uid string, pool []*models.Profile) int {
	n := 0
	for _, p := range pool {
		if p != nil && strings.TrimSpace(p.UID) != uid {
			n++
		}
	}
	return n
}
