package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"studybuddy-matcher/internal/models"
	"studybuddy-matcher/internal/utils"
)

// PartnerFinder ranks partners for a stored profile.
type PartnerFinder interface {
	FindPartnersFor(ctx context.Context, uid string) (*models.PartnerSearchResult, error)
}

// FindPartnersHandler serves ranked partners over API Gateway.
type FindPartnersHandler struct {
	finder PartnerFinder
}

// NewFindPartnersHandler creates a new find partners handler.
func NewFindPartnersHandler(finder PartnerFinder) *FindPartnersHandler {
	return &FindPartnersHandler{finder: finder}
}

// Handle expects the requester uid as the "uid" path or query parameter.
func (h *FindPartnersHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := corsHeaders("GET,OPTIONS")

	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    headers,
		}, nil
	}

	uid := request.PathParameters["uid"]
	if uid == "" {
		uid = request.QueryStringParameters["uid"]
	}
	if strings.TrimSpace(uid) == "" {
		return errorResponse(headers, http.StatusBadRequest, "uid is required")
	}

	result, err := h.finder.FindPartnersFor(ctx, uid)
	if err != nil {
		status, message := StatusForError(err)
		if status == http.StatusInternalServerError {
			utils.GetLogger().Error("Partner search failed", utils.String("uid", uid), utils.Error(err))
		}
		return errorResponse(headers, status, message)
	}

	return jsonResponse(headers, http.StatusOK, result)
}

// StatusForError maps domain errors onto HTTP status codes and a client-safe message.
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrProfileNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrInvalidProfile),
		errors.Is(err, models.ErrDuplicateCandidate):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrNotificationsDisabled):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
