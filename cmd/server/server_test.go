package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"studybuddy-matcher/internal/handlers"
	"studybuddy-matcher/internal/models"
)

type fakePartners struct {
	mock.Mock
}

func (f *fakePartners) FindPartnersFor(ctx context.Context, uid string) (*models.PartnerSearchResult, error) {
	args := f.Called(uid)
	r, _ := args.Get(0).(*models.PartnerSearchResult)
	return r, args.Error(1)
}

func (f *fakePartners) NotifyPartners(ctx context.Context, uid string) (int, error) {
	args := f.Called(uid)
	return args.Int(0), args.Error(1)
}

type fakeProfiles struct {
	mock.Mock
}

func (f *fakeProfiles) Upsert(ctx context.Context, profile *models.Profile) error {
	return f.Called(profile).Error(0)
}

func (f *fakeProfiles) Deactivate(ctx context.Context, uid string) error {
	return f.Called(uid).Error(0)
}

func (f *fakeProfiles) CountActive(ctx context.Context) (int, error) {
	args := f.Called()
	return args.Int(0), args.Error(1)
}

type fakeMatches struct {
	mock.Mock
}

func (f *fakeMatches) ListForRequester(ctx context.Context, uid string, limit int) ([]*models.PartnerMatch, error) {
	args := f.Called(uid, limit)
	r, _ := args.Get(0).([]*models.PartnerMatch)
	return r, args.Error(1)
}

func (f *fakeMatches) DeleteAll(ctx context.Context) (int64, error) {
	args := f.Called()
	return args.Get(0).(int64), args.Error(1)
}

type fakeImporter struct {
	mock.Mock
}

func (f *fakeImporter) Import(ctx context.Context, content []byte, source string) (*handlers.ProfileImportResult, error) {
	args := f.Called(string(content), source)
	r, _ := args.Get(0).(*handlers.ProfileImportResult)
	return r, args.Error(1)
}

type fakeCache struct {
	mock.Mock
}

func (f *fakeCache) InvalidateAll(ctx context.Context) (int, error) {
	args := f.Called()
	return args.Int(0), args.Error(1)
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body apiResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

const profileJSON = `{
	"uid": %q,
	"academicLevel": "SHS 3",
	"region": "Greater Accra",
	"subjects": ["Mathematics", "Physics"],
	"studyPreferences": {"studyStyle": ["visual_learner"]},
	"availability": {"weekends": ["Saturday", "Sunday"]}
}`

func TestCompatibilityEndpoint(t *testing.T) {
	h := NewServer(Deps{}).Routes()

	payload := fmt.Sprintf(`{"requester": %s, "candidate": %s}`,
		fmt.Sprintf(profileJSON, "ama"), fmt.Sprintf(profileJSON, "kofi"))
	rec, body := do(t, h, httptest.NewRequest(http.MethodPost, "/api/compatibility", strings.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code)
	var result CompatibilityResponse
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.Equal(t, 95, result.Compatibility.Total)
	assert.Equal(t, "perfect", result.Tier.Name)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodPost, "/api/compatibility", strings.NewReader(`{"requester": {}}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	blank := fmt.Sprintf(`{"requester": %s, "candidate": %s}`,
		fmt.Sprintf(profileJSON, " "), fmt.Sprintf(profileJSON, "kofi"))
	rec, body = do(t, h, httptest.NewRequest(http.MethodPost, "/api/compatibility", strings.NewReader(blank)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Error, "uid")

	rec, _ = do(t, h, httptest.NewRequest(http.MethodPost, "/api/compatibility", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTierEndpoint(t *testing.T) {
	h := NewServer(Deps{}).Routes()

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/tier?score=72", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var tier models.Tier
	require.NoError(t, json.Unmarshal(body.Data, &tier))
	assert.Equal(t, "great", tier.Name)
	assert.Equal(t, models.ColorYellow, tier.Color)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/tier?score=high", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStorageEndpointsWithoutStorage(t *testing.T) {
	h := NewServer(Deps{}).Routes()

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/partners?uid=ama", nil),
		httptest.NewRequest(http.MethodPost, "/api/profiles", strings.NewReader(`{}`)),
		httptest.NewRequest(http.MethodGet, "/api/matches?uid=ama", nil),
		httptest.NewRequest(http.MethodGet, "/api/stats", nil),
		httptest.NewRequest(http.MethodPut, "/api/upload", strings.NewReader("uid")),
		httptest.NewRequest(http.MethodPost, "/api/notify?uid=ama", nil),
	} {
		rec, body := do(t, h, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, req.URL.String())
		assert.Equal(t, "storage not configured", body.Error)
	}
}

func TestPartnersEndpoint(t *testing.T) {
	partners := new(fakePartners)
	partners.On("FindPartnersFor", "ama").Return(&models.PartnerSearchResult{
		RequesterUID: "ama",
		Matches:      []models.MatchResult{{CandidateID: "kofi", CompatibilityScore: 88}},
	}, nil)
	partners.On("FindPartnersFor", "ghost").Return(nil, fmt.Errorf("lookup: %w", models.ErrProfileNotFound))
	partners.On("FindPartnersFor", "broken").Return(nil, errors.New("connection reset"))

	h := NewServer(Deps{Partners: partners}).Routes()

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/partners?uid=ama", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.PartnerSearchResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "kofi", result.Matches[0].CandidateID)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/partners?uid=ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/partners?uid=broken", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", body.Error)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/partners", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodPost, "/api/partners?uid=ama", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProfilesEndpoint(t *testing.T) {
	profiles := new(fakeProfiles)
	cache := new(fakeCache)
	profiles.On("Upsert", mock.MatchedBy(func(p *models.Profile) bool { return p.UID == "ama" })).Return(nil)
	profiles.On("Deactivate", "ama").Return(nil)
	profiles.On("Deactivate", "ghost").Return(models.ErrProfileNotFound)
	cache.On("InvalidateAll").Return(3, nil)

	h := NewServer(Deps{Profiles: profiles, Cache: cache}).Routes()

	rec, body := do(t, h, httptest.NewRequest(http.MethodPost, "/api/profiles", strings.NewReader(fmt.Sprintf(profileJSON, "ama"))))
	require.Equal(t, http.StatusCreated, rec.Code)
	var saved models.Profile
	require.NoError(t, json.Unmarshal(body.Data, &saved))
	assert.Equal(t, models.RegionGreaterAccra, saved.Region)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/profiles?uid=ama", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/profiles?uid=ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	cache.AssertNumberOfCalls(t, "InvalidateAll", 2)
}

func TestProfilesEndpoint_DefaultsPreferences(t *testing.T) {
	profiles := new(fakeProfiles)
	profiles.On("Upsert", mock.MatchedBy(func(p *models.Profile) bool {
		return p.UID == "ama" && p.Preferences.Notifications && p.Preferences.MatchingRadius == 25
	})).Return(nil)
	profiles.On("Upsert", mock.MatchedBy(func(p *models.Profile) bool {
		return p.UID == "yaw" && !p.Preferences.Notifications && p.Preferences.Visibility == "public"
	})).Return(nil)

	h := NewServer(Deps{Profiles: profiles}).Routes()

	rec, body := do(t, h, httptest.NewRequest(http.MethodPost, "/api/profiles", strings.NewReader(fmt.Sprintf(profileJSON, "ama"))))
	require.Equal(t, http.StatusCreated, rec.Code)
	var saved models.Profile
	require.NoError(t, json.Unmarshal(body.Data, &saved))
	assert.Equal(t, models.DefaultPreferences(), saved.Preferences)

	optOut := `{"uid": "yaw", "region": "Volta", "preferences": {"notifications": false}}`
	rec, _ = do(t, h, httptest.NewRequest(http.MethodPost, "/api/profiles", strings.NewReader(optOut)))
	require.Equal(t, http.StatusCreated, rec.Code)

	profiles.AssertNumberOfCalls(t, "Upsert", 2)
}

func TestRegisterEndpoint(t *testing.T) {
	profiles := new(fakeProfiles)
	profiles.On("Upsert", mock.MatchedBy(func(p *models.Profile) bool {
		return p.UID == "esi" && p.Region == models.RegionAshanti
	})).Return(nil)

	h := NewServer(Deps{Profiles: profiles}).Routes()

	reg := `{"name":"Esi","school":"Wesley Girls","academicLevel":"SHS 2","region":"kumasi","email":"esi@example.com"}`
	rec, _ := do(t, h, httptest.NewRequest(http.MethodPost, "/api/register?uid=esi", strings.NewReader(reg)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	bad := `{"name":"Esi","school":"Wesley Girls","academicLevel":"SHS 2","region":"Atlantis","email":"esi@example.com"}`
	rec, _ = do(t, h, httptest.NewRequest(http.MethodPost, "/api/register?uid=esi", strings.NewReader(bad)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(reg)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	profiles.AssertNumberOfCalls(t, "Upsert", 1)
}

func TestUploadEndpoint(t *testing.T) {
	const csv = "uid,academic_level,region\nama,SHS 3,Greater Accra\n"
	importer := new(fakeImporter)
	importer.On("Import", csv, "class.csv").Return(&handlers.ProfileImportResult{
		Message:  "CSV processed successfully",
		Inserted: 1,
	}, nil)
	importer.On("Import", "garbage", "bad.csv").Return(nil, errors.New("missing required columns: uid"))

	h := NewServer(Deps{Importer: importer}).Routes()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "class.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec, body := do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CSV processed successfully", body.Message)

	rec, body = do(t, h, httptest.NewRequest(http.MethodPut, "/api/upload?filename=bad.csv", strings.NewReader("garbage")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Error, "missing required columns")

	buf.Reset()
	form = multipart.NewWriter(&buf)
	part, _ = form.CreateFormFile("file", "notes.txt")
	_, _ = part.Write([]byte("hello"))
	require.NoError(t, form.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec, _ = do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMatchesEndpoint(t *testing.T) {
	matches := new(fakeMatches)
	matches.On("ListForRequester", "ama", 5).Return([]*models.PartnerMatch{{RequesterUID: "ama", CandidateUID: "kofi", Score: 90}}, nil)
	matches.On("ListForRequester", "new", 0).Return(nil, nil)
	matches.On("DeleteAll").Return(int64(4), nil)

	h := NewServer(Deps{Matches: matches}).Routes()

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/matches?uid=ama&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stored []models.PartnerMatch
	require.NoError(t, json.Unmarshal(body.Data, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, "kofi", stored[0].CandidateUID)

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/matches?uid=new", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(body.Data))

	rec, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/matches", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	matches.AssertCalled(t, "DeleteAll")
}

func TestNotifyEndpoint(t *testing.T) {
	partners := new(fakePartners)
	partners.On("NotifyPartners", "ama").Return(2, nil)
	partners.On("NotifyPartners", "esi").Return(0, models.ErrNotificationsDisabled)

	h := NewServer(Deps{Partners: partners, NotifyEnabled: true}).Routes()

	rec, _ := do(t, h, httptest.NewRequest(http.MethodPost, "/api/notify?uid=ama", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodPost, "/api/notify?uid=esi", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatsAndHealth(t *testing.T) {
	profiles := new(fakeProfiles)
	profiles.On("CountActive").Return(42, nil)

	h := NewServer(Deps{Profiles: profiles}).Routes()

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active_profiles":42}`, string(body.Data))

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
