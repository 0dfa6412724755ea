package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"studybuddy-matcher/internal/utils"
)

// maxNotifyBatch bounds how many requesters one call may notify.
const maxNotifyBatch = 50

// PartnerNotifier sends partner digests.
type PartnerNotifier interface {
	NotifyPartners(ctx context.Context, uid string) (int, error)
}

// NotifyHandler triggers partner digest e-mails.
type NotifyHandler struct {
	notifier PartnerNotifier
}

// NewNotifyHandler creates a new notify handler.
func NewNotifyHandler(notifier PartnerNotifier) *NotifyHandler {
	return &NotifyHandler{notifier: notifier}
}

// NotifyRequest is the request body for triggering digests.
type NotifyRequest struct {
	UID  string   `json:"uid,omitempty"`
	UIDs []string `json:"uids,omitempty"`
}

// NotifyOutcome reports the digest sent to one requester.
type NotifyOutcome struct {
	UID      string `json:"uid"`
	Partners int    `json:"partners"`
	Error    string `json:"error,omitempty"`
}

// NotifyResponse is the response structure for notify requests.
type NotifyResponse struct {
	Sent    int             `json:"sent"`
	Failed  int             `json:"failed"`
	Results []NotifyOutcome `json:"results"`
}

// Handle processes POST requests naming one or more requester uids.
func (h *NotifyHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := utils.GetLogger()
	headers := corsHeaders("POST,OPTIONS")

	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    headers,
		}, nil
	}

	if request.HTTPMethod != http.MethodPost {
		return errorResponse(headers, http.StatusMethodNotAllowed, "Method not allowed")
	}

	var req NotifyRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(headers, http.StatusBadRequest, "Invalid request body")
	}

	uids := req.UIDs
	if req.UID != "" {
		uids = append([]string{req.UID}, uids...)
	}
	if len(uids) == 0 {
		return errorResponse(headers, http.StatusBadRequest, "uid or uids is required")
	}
	if len(uids) > maxNotifyBatch {
		return errorResponse(headers, http.StatusBadRequest, "too many uids")
	}

	response := NotifyResponse{Results: make([]NotifyOutcome, 0, len(uids))}
	for _, uid := range uids {
		uid = strings.TrimSpace(uid)
		n, err := h.notifier.NotifyPartners(ctx, uid)
		outcome := NotifyOutcome{UID: uid, Partners: n}
		if err != nil {
			outcome.Error = err.Error()
			response.Failed++
			logger.Warn("Failed to notify partners", utils.String("uid", uid), utils.Error(err))
		} else if n > 0 {
			response.Sent++
		}
		response.Results = append(response.Results, outcome)
	}

	logger.Info("Processed notify request",
		utils.Int("requested", len(uids)),
		utils.Int("sent", response.Sent),
		utils.Int("failed", response.Failed))

	return jsonResponse(headers, http.StatusOK, response)
}
