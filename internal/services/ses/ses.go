// Package ses provides email notification services via AWS SES
package ses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	appConfig "studybuddy-matcher/internal/config"
	"studybuddy-matcher/internal/models"
	"studybuddy-matcher/internal/utils"
)

// DigestSize is the number of partners included in a digest e-mail.
const DigestSize = 5

// ErrNoRecipient is returned when the profile has no e-mail address.
var ErrNoRecipient = errors.New("profile has no email address")

// Service handles SES email operations
type Service struct {
	client       *ses.Client
	fromEmail    string
	dashboardURL string
}

// EmailParams represents parameters for sending an email
type EmailParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	ReplyTo  string
}

// PartnerDigestParams contains data for the partner digest email
type PartnerDigestParams struct {
	UserName     string
	UserEmail    string
	MatchCount   int
	TopPartners  []PartnerInfo
	DashboardURL string
}

// PartnerInfo describes one recommended partner in a digest.
type PartnerInfo struct {
	CandidateID string
	Score       int
	Message     string
	Color       string
	Reasons     []string
}

// SendEmailResult contains the result of sending an email
type SendEmailResult struct {
	MessageID string
	SentAt    time.Time
}

// NewService creates a new SES service
func NewService(ctx context.Context, appCfg *appConfig.Config) (*Service, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(appCfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Service{
		client:       ses.NewFromConfig(cfg),
		fromEmail:    appCfg.SESSenderEmail,
		dashboardURL: appCfg.DashboardURL,
	}, nil
}

// SendEmail sends a basic email
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (*SendEmailResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{params.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}

	if params.HTMLBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(params.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.TextBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(params.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.ReplyTo != "" {
		input.ReplyToAddresses = []string{params.ReplyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		utils.Logger.Error("Failed to send email",
			zap.String("to", params.To),
			zap.String("subject", params.Subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	utils.Logger.Info("Email sent successfully",
		zap.String("to", params.To),
		zap.String("subject", params.Subject),
		zap.String("messageId", messageID),
	)

	return &SendEmailResult{
		MessageID: messageID,
		SentAt:    time.Now(),
	}, nil
}

// SendPartnerDigest e-mails a requester their best study partners.
func (s *Service) SendPartnerDigest(ctx context.Context, profile *models.Profile, matches []models.MatchResult) (*SendEmailResult, error) {
	if profile.Email == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoRecipient, profile.UID)
	}

	params := BuildPartnerDigestParams(profile, matches, s.dashboardURL)

	htmlBody, err := RenderPartnerDigestHTML(params)
	if err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	return s.SendEmail(ctx, EmailParams{
		To:       params.UserEmail,
		Subject:  DigestSubject(params),
		HTMLBody: htmlBody,
		TextBody: RenderPartnerDigestText(params),
	})
}

// BuildPartnerDigestParams keeps the first DigestSize matches; matches must already be ranked.
func BuildPartnerDigestParams(profile *models.Profile, matches []models.MatchResult, dashboardURL string) PartnerDigestParams {
	top := matches
	if len(top) > DigestSize {
		top = top[:DigestSize]
	}

	partners := make([]PartnerInfo, 0, len(top))
	for _, m := range top {
		partners = append(partners, PartnerInfo{
			CandidateID: m.CandidateID,
			Score:       m.CompatibilityScore,
			Message:     m.Message,
			Color:       m.ColorTag.Hex(),
			Reasons:     m.Reasons,
		})
	}

	name := profile.Name
	if name == "" {
		name = profile.UID
	}

	return PartnerDigestParams{
		UserName:     name,
		UserEmail:    profile.Email,
		MatchCount:   len(matches),
		TopPartners:  partners,
		DashboardURL: dashboardURL,
	}
}

// DigestSubject returns the subject line for a digest.
func DigestSubject(params PartnerDigestParams) string {
	if params.MatchCount == 1 {
		return fmt.Sprintf("%s, we found 1 study partner for you", params.UserName)
	}
	return fmt.Sprintf("%s, we found %d study partners for you", params.UserName, params.MatchCount)
}

const digestTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #17a2b8; color: white; padding: 30px; border-radius: 10px 10px 0 0; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
        .partner-card { background: white; border-radius: 8px; padding: 20px; margin: 15px 0; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .partner-card h3 { margin: 0 0 10px 0; }
        .score-badge { display: inline-block; color: white; padding: 5px 12px; border-radius: 20px; font-weight: bold; }
        .cta-button { display: inline-block; background: #17a2b8; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px; font-weight: bold; margin-top: 20px; }
        .footer { text-align: center; margin-top: 30px; color: #999; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>New Study Partners</h1>
        <p>Hi {{.UserName}}, {{.MatchCount}} students are a good fit for you</p>
    </div>
    <div class="content">
        {{range .TopPartners}}
        <div class="partner-card">
            <h3>{{.CandidateID}} <span class="score-badge" style="background: {{.Color}};">{{.Score}}%</span></h3>
            <p>{{.Message}}</p>
            {{if .Reasons}}<ul>{{range .Reasons}}<li>{{.}}</li>{{end}}</ul>{{end}}
        </div>
        {{end}}
        {{if .DashboardURL}}
        <div style="text-align: center;">
            <a href="{{.DashboardURL}}" class="cta-button">View All Partners</a>
        </div>
        {{end}}
    </div>
    <div class="footer">
        <p>This email was sent by StudyBuddy</p>
        <p>You received this because partner notifications are enabled on your profile.</p>
    </div>
</body>
</html>`

var digestTmpl = template.Must(template.New("partner_digest").Parse(digestTemplate))

// RenderPartnerDigestHTML renders the HTML email body
func RenderPartnerDigestHTML(params PartnerDigestParams) (string, error) {
	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPartnerDigestText renders plain text version
func RenderPartnerDigestText(params PartnerDigestParams) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Hi %s,\n\n", params.UserName)
	fmt.Fprintf(&buf, "We found %d students who would make good study partners.\n\n", params.MatchCount)
	buf.WriteString("Here are your top matches:\n\n")

	for i, p := range params.TopPartners {
		fmt.Fprintf(&buf, "%d. %s (%d%%) - %s\n", i+1, p.CandidateID, p.Score, p.Message)
		for _, reason := range p.Reasons {
			fmt.Fprintf(&buf, "   * %s\n", reason)
		}
		buf.WriteString("\n")
	}

	if params.DashboardURL != "" {
		fmt.Fprintf(&buf, "View all partners: %s\n\n", params.DashboardURL)
	}

	buf.WriteString("Happy studying,\nThe StudyBuddy Team\n")

	return buf.String()
}
