// internal/mailer/ses.go
package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"stayflow-messaging/internal/common/config"
)

// SESService is the slice of the SES client the mailer uses, kept as an
// interface for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends email through AWS SES.
type SESMailer struct {
	client SESService
	from   string
}

func NewSESMailer(ctx context.Context, cfg config.EmailConfig) (*SESMailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}

	return &SESMailer{
		client: ses.NewFromConfig(awsCfg),
		from:   from,
	}, nil
}

// NewSESMailerWithClient wires an existing SES client, used by tests.
func NewSESMailerWithClient(client SESService, from string) *SESMailer {
	return &SESMailer{client: client, from: from}
}

func (m *SESMailer) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	out, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
			},
		},
		Source: aws.String(m.from),
	})
	if err != nil {
		return "", err
	}
	if out == nil || out.MessageId == nil {
		return "", fmt.Errorf("no message id returned by SES")
	}
	return *out.MessageId, nil
}
