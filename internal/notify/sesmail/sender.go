// Package sesmail implements the notify sender on AWS SES v2, for
// deployments that already run on AWS instead of Resend.
package sesmail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/leadlab/engage/internal/notify"
)

// API is the slice of the SESv2 client the sender needs.
type API interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Sender delivers notification email through SES v2.
type Sender struct {
	client API
}

// Options holds SES credentials and region.
type Options struct {
	Region    string
	AccessKey string
	SecretKey string
}

// New creates a Sender. With empty AccessKey the default AWS credential
// chain applies (IAM role on ECS/Lambda).
func New(ctx context.Context, opts Options) (*Sender, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Sender{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// NewWith wraps an existing SESv2 API (tests).
func NewWith(client API) *Sender {
	return &Sender{client: client}
}

// Send delivers one email via SendEmail with simple content.
func (s *Sender) Send(ctx context.Context, email notify.Email) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(email.From),
		Destination: &types.Destination{
			ToAddresses: email.To,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(email.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(email.HTML)},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
