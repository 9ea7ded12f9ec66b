// Package notify delivers report-ready notifications over SES email and SNS
// topics. Delivery is best-effort: a notification failure never fails the
// turn that produced the report.
package notify

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"study-advisor/internal/common/config"
	"study-advisor/internal/common/logger"
	"study-advisor/internal/models"
)

// sesAPI and snsAPI narrow the AWS clients to what this package calls.
type sesAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type snsAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Service fans a report notification out to the enabled channels.
type Service struct {
	cfg    config.NotificationConfig
	ses    sesAPI
	sns    snsAPI
	logger logger.Logger
}

// New builds the notification service from config. When neither channel is
// enabled it returns a service that does nothing.
func New(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Service, error) {
	s := &Service{
		cfg:    cfg,
		logger: log.With(map[string]interface{}{"component": "notify"}),
	}
	if !cfg.AWS.SES.Enabled && !cfg.AWS.SNS.Enabled {
		return s, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.AWS.SES.Enabled {
		s.ses = ses.NewFromConfig(awsCfg)
	}
	if cfg.AWS.SNS.Enabled {
		s.sns = sns.NewFromConfig(awsCfg)
	}
	return s, nil
}

// NotifyReportReady sends the rendered report by email and publishes a short
// message to the topic. The first channel error is returned after all
// channels were attempted.
func (s *Service) NotifyReportReady(ctx context.Context, sessionID string, report *models.Report) error {
	var firstErr error

	if s.ses != nil {
		if err := s.sendEmail(ctx, sessionID, report); err != nil {
			s.logger.WithError(err).Warn("ses delivery failed", map[string]interface{}{"sessionId": sessionID})
			firstErr = err
		}
	}
	if s.sns != nil {
		if err := s.publish(ctx, sessionID, report); err != nil {
			s.logger.WithError(err).Warn("sns publish failed", map[string]interface{}{"sessionId": sessionID})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Service) sendEmail(ctx context.Context, sessionID string, report *models.Report) error {
	subject := "Your study abroad advisory report is ready"
	if report.IsPartial {
		subject = "Your study abroad advisory report is ready (partial)"
	}

	_, err := s.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.cfg.AWS.SES.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: s.cfg.AWS.SES.ToEmails,
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(report.Render())},
			},
		},
	})
	return err
}

func (s *Service) publish(ctx context.Context, sessionID string, report *models.Report) error {
	msg := fmt.Sprintf("Report %s ready for session %s (partial=%t)", report.RunID, sessionID, report.IsPartial)
	_, err := s.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.cfg.AWS.SNS.TopicARN),
		Message:  aws.String(msg),
	})
	return err
}
