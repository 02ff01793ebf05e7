package channel

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/havenwell/notify-engine/internal/config"
	"github.com/havenwell/notify-engine/internal/domain"
	"github.com/havenwell/notify-engine/internal/pkg/logger"
)

// EmailAdapter delivers notifications via AWS SES using the SDK v2.
type EmailAdapter struct {
	client    *sesv2.Client
	fromName  string
	fromEmail string
}

// NewEmailAdapter creates the SES email adapter. Returns a nil Adapter when
// credentials are absent so the registry simply drops the email channel. The
// interface return matters: a typed-nil *EmailAdapter would slip past the
// registry's nil check.
func NewEmailAdapter(cfg config.SESConfig) Adapter {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		log.Printf("[Email] Warning: failed to initialize AWS config: %v", err)
		return nil
	}

	return &EmailAdapter{
		client:    sesv2.NewFromConfig(awsCfg),
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
	}
}

func (a *EmailAdapter) Channel() domain.Channel { return domain.ChannelEmail }

// Send delivers one notification email through SES.
func (a *EmailAdapter) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	if msg.Email == "" {
		return &SendResult{Success: false, Detail: "no recipient address"}, nil
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", a.fromName, a.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{msg.Email}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Title), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := a.client.SendEmail(ctx, input)
	if err != nil {
		log.Printf("[Email] Failed to send to %s: %v", logger.RedactEmail(msg.Email), err)
		return &SendResult{Success: false, Detail: err.Error()}, nil
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	return &SendResult{Success: true, Detail: messageID, SentAt: time.Now()}, nil
}
