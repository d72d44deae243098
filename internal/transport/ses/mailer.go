// Package ses sends outbound mail through Amazon SES.
package ses

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// ErrNoSender is returned when the mailer has no From address.
var ErrNoSender = errors.New("mail sender is not configured")

// Client is the subset of the SES API the mailer needs.
type Client interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Config holds SES settings.
type Config struct {
	Region string
	From   string
}

// Mailer sends plain-text mail.
type Mailer struct {
	client Client
	from   string
	logger *zap.Logger
}

// New loads the default AWS credential chain for cfg.Region.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Mailer, error) {
	if cfg.From == "" {
		return nil, ErrNoSender
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(ses.NewFromConfig(awsCfg), cfg.From, logger), nil
}

// NewWithClient creates a Mailer over an existing SES client.
func NewWithClient(client Client, from string, logger *zap.Logger) *Mailer {
	return &Mailer{client: client, from: from, logger: logger}
}

// Send delivers one message to all recipients.
func (m *Mailer) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	out, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(m.from),
		Destination: &types.Destination{ToAddresses: to},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	m.logger.Debug("Mail sent",
		zap.Int("recipients", len(to)),
		zap.String("message_id", aws.ToString(out.MessageId)),
	)
	return nil
}
