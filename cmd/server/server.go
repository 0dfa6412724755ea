package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"studybuddy-matcher/internal/handlers"
	"studybuddy-matcher/internal/models"
	"studybuddy-matcher/internal/services/matcher"
	"studybuddy-matcher/internal/utils"
)

// maxUploadBytes bounds CSV uploads.
const maxUploadBytes = 10 << 20

type partnerService interface {
	FindPartnersFor(ctx context.Context, uid string) (*models.PartnerSearchResult, error)
	NotifyPartners(ctx context.Context, uid string) (int, error)
}

type profileStore interface {
	Upsert(ctx context.Context, profile *models.Profile) error
	Deactivate(ctx context.Context, uid string) error
	CountActive(ctx context.Context) (int, error)
}

type matchStore interface {
	ListForRequester(ctx context.Context, requesterUID string, limit int) ([]*models.PartnerMatch, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type profileImporter interface {
	Import(ctx context.Context, content []byte, source string) (*handlers.ProfileImportResult, error)
}

// Deps are the collaborators of a Server. Storage-backed fields may be nil,
// in which case the matching endpoints answer 503 and scoring still works.
type Deps struct {
	Health        *handlers.HealthHandler
	Partners      partnerService
	Profiles      profileStore
	Matches       matchStore
	Importer      profileImporter
	Cache         handlers.CacheInvalidator
	NotifyEnabled bool
}

// Server holds all dependencies
type Server struct {
	Deps
}

// Response represents a standard API response
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CompatibilityRequest is the body of POST /api/compatibility.
type CompatibilityRequest struct {
	Requester *models.Profile `json:"requester"`
	Candidate *models.Profile `json:"candidate"`
}

// CompatibilityResponse pairs a score with its tier.
type CompatibilityResponse struct {
	Compatibility models.Compatibility `json:"compatibility"`
	Tier          models.Tier          `json:"tier"`
}

// NewServer creates a server over deps.
func NewServer(deps Deps) *Server {
	if deps.Health == nil {
		deps.Health = handlers.NewHealthHandler()
	}
	return &Server{Deps: deps}
}

// Routes returns the HTTP handler with CORS applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/partners", s.partnersHandler)
	mux.HandleFunc("/api/compatibility", s.compatibilityHandler)
	mux.HandleFunc("/api/tier", s.tierHandler)
	mux.HandleFunc("/api/profiles", s.profilesHandler)
	mux.HandleFunc("/api/register", s.registerHandler)
	mux.HandleFunc("/api/upload", s.uploadHandler)
	mux.HandleFunc("/api/notify", s.notifyHandler)
	mux.HandleFunc("/api/matches", s.matchesHandler)
	mux.HandleFunc("/api/stats", s.statsHandler)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	report, status := s.Health.Report(r.Context())
	writeJSON(w, status, Response{
		Success: status == http.StatusOK,
		Message: "StudyBuddy matcher API is running",
		Data:    report,
	})
}

func (s *Server) partnersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Partners == nil {
		writeUnavailable(w)
		return
	}

	uid := strings.TrimSpace(r.URL.Query().Get("uid"))
	if uid == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "uid is required"})
		return
	}

	result, err := s.Partners.FindPartnersFor(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

func (s *Server) compatibilityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CompatibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "Invalid request body"})
		return
	}
	if req.Requester == nil || req.Candidate == nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "requester and candidate are required"})
		return
	}

	score, err := matcher.ScorePair(req.Requester.Normalize(), req.Candidate.Normalize())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: CompatibilityResponse{
			Compatibility: score,
			Tier:          matcher.TierFor(score.Total),
		},
	})
}

func (s *Server) tierHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	score, err := strconv.Atoi(r.URL.Query().Get("score"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "score must be an integer"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: matcher.TierFor(score)})
}

func (s *Server) profilesHandler(w http.ResponseWriter, r *http.Request) {
	if s.Profiles == nil {
		writeUnavailable(w)
		return
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut:
		// Absent preference fields keep their defaults.
		profile := models.Profile{Preferences: models.DefaultPreferences()}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&profile); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Error: "Invalid request body"})
			return
		}
		s.saveProfile(w, r, &profile)

	case http.MethodDelete:
		uid := strings.TrimSpace(r.URL.Query().Get("uid"))
		if uid == "" {
			writeJSON(w, http.StatusBadRequest, Response{Error: "uid is required"})
			return
		}
		if err := s.Profiles.Deactivate(r.Context(), uid); err != nil {
			writeError(w, err)
			return
		}
		s.invalidateCache(r.Context())
		writeJSON(w, http.StatusOK, Response{Success: true, Message: "Profile deactivated"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Profiles == nil {
		writeUnavailable(w)
		return
	}

	uid := strings.TrimSpace(r.URL.Query().Get("uid"))
	if uid == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "uid is required"})
		return
	}

	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "Invalid request body"})
		return
	}
	if err := models.ValidateRegistration(&reg); err != nil {
		writeError(w, err)
		return
	}

	s.saveProfile(w, r, models.NewProfile(uid, reg))
}

func (s *Server) saveProfile(w http.ResponseWriter, r *http.Request, profile *models.Profile) {
	if err := s.Profiles.Upsert(r.Context(), profile); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateCache(r.Context())

	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Profile saved",
		Data:    profile.Normalize(),
	})
}

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if s.Importer == nil {
		writeUnavailable(w)
		return
	}

	var (
		content  []byte
		filename string
		err      error
	)

	switch r.Method {
	case http.MethodPost:
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Error: "Failed to parse form: " + err.Error()})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Error: "No file provided"})
			return
		}
		defer file.Close()

		filename = header.Filename
		if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
			writeJSON(w, http.StatusBadRequest, Response{Error: "Only CSV files are allowed"})
			return
		}
		content, err = io.ReadAll(file)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, Response{Error: "Failed to read file"})
			return
		}

	case http.MethodPut:
		filename = r.URL.Query().Get("filename")
		content, err = io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, Response{Error: "Failed to read body"})
			return
		}

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := s.Importer.Import(r.Context(), content, filename)
	if err != nil {
		utils.GetLogger().Warn("Profile import failed", utils.String("file", filename), utils.Error(err))
		writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: result.Message,
		Data:    result,
	})
}

func (s *Server) notifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Partners == nil || !s.NotifyEnabled {
		writeUnavailable(w)
		return
	}

	uid := strings.TrimSpace(r.URL.Query().Get("uid"))
	if uid == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "uid is required"})
		return
	}

	n, err := s.Partners.NotifyPartners(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Partner digest processed",
		Data:    map[string]any{"uid": uid, "partners": n},
	})
}

func (s *Server) matchesHandler(w http.ResponseWriter, r *http.Request) {
	if s.Matches == nil {
		writeUnavailable(w)
		return
	}

	switch r.Method {
	case http.MethodGet:
		uid := strings.TrimSpace(r.URL.Query().Get("uid"))
		if uid == "" {
			writeJSON(w, http.StatusBadRequest, Response{Error: "uid is required"})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		matches, err := s.Matches.ListForRequester(r.Context(), uid, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if matches == nil {
			matches = []*models.PartnerMatch{}
		}
		writeJSON(w, http.StatusOK, Response{Success: true, Data: matches})

	case http.MethodDelete:
		n, err := s.Matches.DeleteAll(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		s.invalidateCache(r.Context())
		utils.GetLogger().Info("Cleared stored matches", utils.Int64("rows", n))
		writeJSON(w, http.StatusOK, Response{Success: true, Message: "All matches cleared"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Profiles == nil {
		writeUnavailable(w)
		return
	}

	count, err := s.Profiles.CountActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]int{"active_profiles": count},
	})
}

func (s *Server) invalidateCache(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if _, err := s.Cache.InvalidateAll(ctx); err != nil {
		utils.GetLogger().Warn("Failed to invalidate partner cache", utils.Error(err))
	}
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	status, message := handlers.StatusForError(err)
	if status == http.StatusInternalServerError {
		utils.GetLogger().Error("Request failed", utils.Error(err))
	}
	writeJSON(w, status, Response{Error: message})
}

func writeUnavailable(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, Response{Error: "storage not configured"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
