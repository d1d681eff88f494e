// Package notify sends account emails through SES and publishes account
// events to SNS or Kafka.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sesAPI is the part of *sesv2.Client the mailer uses.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

const (
	confirmSubject = "Email Verification Request"
	resetSubject   = "Wallet Reset Request"

	confirmIntro = "Dear customer,\n\nWe have received a request to authorize this email address. " +
		"If you requested this verification, please click the following link:\n\n"
	resetIntro = "Dear customer,\n\nWe have received a request to reset the wallet of your account. " +
		"If you requested the reset, please click the following link:\n\n"
	signature = "\n\nSincerely,\n\nThe Wallet Team"
)

type SESMailer struct {
	client sesAPI
	from   string
}

func NewSESMailer(client sesAPI, from string) *SESMailer {
	return &SESMailer{client: client, from: from}
}

// ConfirmLink and ResetLink build the links the emails carry.
func ConfirmLink(origin, receipt string) string {
	return strings.TrimRight(origin, "/") + "/confirm/" + receipt
}

func ResetLink(origin, receipt string) string {
	return strings.TrimRight(origin, "/") + "/reset/" + receipt
}

func (m *SESMailer) SendConfirmEmail(ctx context.Context, email, receipt, origin string) error {
	return m.send(ctx, email, confirmSubject, confirmIntro+ConfirmLink(origin, receipt)+signature)
}

func (m *SESMailer) SendResetEmail(ctx context.Context, email, receipt, origin string) error {
	return m.send(ctx, email, resetSubject, resetIntro+ResetLink(origin, receipt)+signature)
}

func (m *SESMailer) send(ctx context.Context, to, subject, body string) error {
	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body:    &types.Body{Text: &types.Content{Data: aws.String(body)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}
