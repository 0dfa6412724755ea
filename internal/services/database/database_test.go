package database_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studybuddy-matcher/internal/models"
	"studybuddy-matcher/internal/services/database"
	"studybuddy-matcher/internal/services/matcher"
)

var testDB *database.DB

func TestMain(m *testing.M) {
	// Integration tests only run against a real database.
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		os.Exit(0)
	}

	var err error
	testDB, err = database.NewFromURL(url)
	if err != nil {
		panic("Failed to connect to test database: " + err.Error())
	}
	if err := testDB.Migrate(context.Background()); err != nil {
		panic("Failed to migrate test database: " + err.Error())
	}

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}

func testProfile(uid string, region models.Region) *models.Profile {
	return &models.Profile{
		UID:           uid,
		Name:          "Test Student",
		AcademicLevel: "SHS 3",
		Region:        region,
		Subjects:      []string{"Mathematics", "Physics"},
		StudyPreferences: models.StudyPreferences{
			StudyStyle: []string{"visual_learner"},
		},
		Availability: models.Availability{
			Weekends: []string{"Saturday", "Sunday"},
		},
		Preferences: models.Preferences{Notifications: true},
	}
}

func uniqueUID(t *testing.T) string {
	t.Helper()
	return "test-" + uuid.New().String()[:8]
}

func TestHealthCheck(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, testDB.HealthCheck(ctx))
}

func TestProfileRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := database.NewProfileRepository(testDB)
	uid := uniqueUID(t)

	require.NoError(t, repo.Upsert(ctx, testProfile(uid, models.RegionAshanti)))

	got, err := repo.GetByUID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, models.RegionAshanti, got.Region)
	assert.Equal(t, []string{"Mathematics", "Physics"}, got.Subjects)
	assert.Equal(t, "public", got.Preferences.Visibility)
	assert.Equal(t, 25, got.Preferences.MatchingRadius)

	updated := testProfile(uid, models.RegionVolta)
	require.NoError(t, repo.Upsert(ctx, updated))
	got, err = repo.GetByUID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, models.RegionVolta, got.Region)

	require.NoError(t, repo.Deactivate(ctx, uid))
	_, err = repo.GetByUID(ctx, uid)
	assert.ErrorIs(t, err, models.ErrProfileNotFound)

	assert.ErrorIs(t, repo.Deactivate(ctx, "missing-"+uid), models.ErrProfileNotFound)
}

func TestProfileRepository_UpsertRejectsInvalid(t *testing.T) {
	repo := database.NewProfileRepository(testDB)

	err := repo.Upsert(context.Background(), testProfile(uniqueUID(t), "Atlantis"))
	assert.ErrorIs(t, err, models.ErrInvalidProfile)
}

func TestProfileRepository_BulkUpsert(t *testing.T) {
	ctx := context.Background()
	repo := database.NewProfileRepository(testDB)
	a, b := uniqueUID(t), uniqueUID(t)

	result, err := repo.BulkUpsert(ctx, []*models.Profile{
		testProfile(a, models.RegionGreaterAccra),
		testProfile(b, models.RegionGreaterAccra),
		testProfile("", models.RegionGreaterAccra),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.InsertedCount)
	assert.Equal(t, 1, result.FailedCount)

	pool, err := repo.GetAllActive(ctx)
	require.NoError(t, err)
	uids := make(map[string]bool, len(pool))
	for _, p := range pool {
		uids[p.UID] = true
	}
	assert.True(t, uids[a])
	assert.True(t, uids[b])

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 2)

	t.Cleanup(func() {
		_ = repo.Deactivate(ctx, a)
		_ = repo.Deactivate(ctx, b)
	})
}

func TestMatchRepository_ReplaceForRequester(t *testing.T) {
	ctx := context.Background()
	matches := database.NewMatchRepository(testDB)
	requester := testProfile(uniqueUID(t), models.RegionGreaterAccra)
	candidates := []*models.Profile{
		testProfile(uniqueUID(t), models.RegionGreaterAccra),
		testProfile(uniqueUID(t), models.RegionGreaterAccra),
	}

	ranked, err := matcher.FindPartners(requester, candidates)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	n, err := matches.ReplaceForRequester(ctx, requester.UID, ranked)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = matches.ReplaceForRequester(ctx, requester.UID, ranked[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := matches.ListForRequester(ctx, requester.UID, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, ranked[0].CandidateID, stored[0].CandidateUID)
	assert.Equal(t, 95, stored[0].Score)
	assert.Equal(t, models.ColorGreen, stored[0].ColorTag)
	assert.Equal(t, ranked[0].ScoreBreakdown.Subjects.Score, stored[0].Breakdown.Subjects.Score)
}
