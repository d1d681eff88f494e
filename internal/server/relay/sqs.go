// Package relay queues forward transactions for the relayer process.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophwallet/internal/server/models"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSDispatcher sends relay messages as JSON. On FIFO queues all messages
// share one group, so the relayer sees them in order.
type SQSDispatcher struct {
	client   sqsAPI
	queueURL string
	fifo     bool
}

const messageGroup = "relay"

func NewSQSDispatcher(client sqsAPI, queueURL string) *SQSDispatcher {
	return &SQSDispatcher{
		client:   client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

func (d *SQSDispatcher) Enqueue(ctx context.Context, msg models.RelayMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal relay message: %w", err)
	}

	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(d.queueURL),
		MessageBody: aws.String(string(body)),
	}
	if d.fifo {
		in.MessageGroupId = aws.String(messageGroup)
		in.MessageDeduplicationId = aws.String(uuid.NewString())
	}

	if _, err := d.client.SendMessage(ctx, in); err != nil {
		return fmt.Errorf("sqs error: %w", err)
	}
	return nil
}
