package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"

	"littletoes/internal/report"
)

// ReportMailer sends practice report summaries to parents and teachers
// via Amazon SES. When no from address is configured the mailer is
// disabled and sends are skipped.
type ReportMailer struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
}

// NewReportMailer creates a new report mailer
func NewReportMailer(awsRegion, fromEmail, fromName string) (*ReportMailer, error) {
	if fromEmail == "" {
		log.Info().Msg("Report mailer disabled: SES_FROM_EMAIL not configured")
		return &ReportMailer{enabled: false}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sesv2.NewFromConfig(cfg)
	log.Info().Str("from", fromEmail).Str("region", awsRegion).Msg("Report mailer enabled")

	return &ReportMailer{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
	}, nil
}

// IsEnabled returns whether the mailer is configured to send
func (m *ReportMailer) IsEnabled() bool {
	return m.enabled
}

// SendReportSummary emails the average scores for a learner's session.
// answered is the number of scored questions behind the averages.
func (m *ReportMailer) SendReportSummary(ctx context.Context, toEmail, learnerName string, unitID int64, means report.Means, answered int) error {
	if !m.enabled {
		log.Debug().Str("to", toEmail).Msg("Report mailer disabled, skipping send")
		return nil
	}
	if toEmail == "" {
		return fmt.Errorf("recipient email is required")
	}

	subject := fmt.Sprintf("Speaking practice report for %s (Unit %d)", learnerName, unitID)

	htmlBody := fmt.Sprintf(`
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Speaking Practice Report</h2>
	<p><strong>%s</strong> completed %d question(s) in Unit %d.</p>
	<table border="0" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
		<tr><td><strong>Pronunciation</strong></td><td>%.2f / 5</td></tr>
		<tr><td><strong>Grammar</strong></td><td>%.2f / 5</td></tr>
		<tr><td><strong>Relevance</strong></td><td>%.2f / 5</td></tr>
	</table>
	<p>Download the full report from the app for per-question details.</p>
</body>
</html>`, learnerName, answered, unitID, means.Pronunciation, means.Grammar, means.Relevance)

	textBody := fmt.Sprintf(
		"Speaking Practice Report\n\n%s completed %d question(s) in Unit %d.\n\nPronunciation: %.2f / 5\nGrammar: %.2f / 5\nRelevance: %.2f / 5\n\nDownload the full report from the app for per-question details.\n",
		learnerName, answered, unitID, means.Pronunciation, means.Grammar, means.Relevance)

	return m.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (m *ReportMailer) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := m.fromEmail
	if m.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	log.Info().Str("to", toEmail).Str("subject", subject).Msg("Email sent successfully")
	return nil
}
