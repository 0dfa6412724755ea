package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checks []HealthCheck
}

// NewHealthHandler creates a new health handler probing checks on every request.
func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HealthResponse is the response structure for health checks.
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Service    string            `json:"service"`
	Version    string            `json:"version"`
	Stage      string            `json:"stage"`
	Components map[string]string `json:"components,omitempty"`
}

// Report runs every check and returns the response with its HTTP status.
func (h *HealthHandler) Report(ctx context.Context) (HealthResponse, int) {
	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Service:    "studybuddy-matcher",
		Version:    getEnvOrDefault("SERVICE_VERSION", "1.0.0"),
		Stage:      getEnvOrDefault("STAGE", "unknown"),
		Components: make(map[string]string, len(h.checks)),
	}

	for _, c := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := c.Check(checkCtx)
		cancel()

		if err != nil {
			response.Components[c.Name] = "disconnected"
			response.Status = "degraded"
		} else {
			response.Components[c.Name] = "connected"
		}
	}

	if response.Status != "healthy" {
		return response, http.StatusServiceUnavailable
	}
	return response, http.StatusOK
}

// Handle processes health check requests.
func (h *HealthHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	response, status := h.Report(ctx)
	return jsonResponse(corsHeaders("GET,OPTIONS"), status, response)
}

// getEnvOrDefault returns environment variable or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
