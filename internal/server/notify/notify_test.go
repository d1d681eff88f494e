package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophwallet/internal/server/models"
)

type fakeSES struct {
	in  []*sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = append(f.in, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

type fakeSNS struct {
	in []*sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = append(f.in, in)
	return &sns.PublishOutput{}, nil
}

func TestSESMailer(t *testing.T) {
	ses := &fakeSES{}
	m := NewSESMailer(ses, "no-reply@wallet.example")
	ctx := context.Background()

	require.NoError(t, m.SendConfirmEmail(ctx, "a@b.com", "RCPT", "https://wallet.example/"))
	require.NoError(t, m.SendResetEmail(ctx, "a@b.com", "RST", "https://wallet.example"))
	require.Len(t, ses.in, 2)

	confirm := ses.in[0]
	assert.Equal(t, "no-reply@wallet.example", *confirm.FromEmailAddress)
	assert.Equal(t, []string{"a@b.com"}, confirm.Destination.ToAddresses)
	assert.Contains(t, *confirm.Content.Simple.Body.Text.Data, "https://wallet.example/confirm/RCPT")
	assert.Contains(t, *ses.in[1].Content.Simple.Body.Text.Data, "https://wallet.example/reset/RST")

	ses.err = errors.New("throttled")
	err := m.SendConfirmEmail(ctx, "a@b.com", "RCPT", "o")
	assert.ErrorContains(t, err, "ses send email: throttled")
}

func TestSNSPublisher(t *testing.T) {
	client := &fakeSNS{}
	p := NewSNSPublisher(client, "arn:aws:sns:us-east-1:000000000000:accounts")

	event := models.WalletCreated{AccountID: "id", Email: "a@b.com", SignerAddr: "0x01"}
	require.NoError(t, p.Publish(context.Background(), "WalletCreated::0x01", event))

	require.Len(t, client.in, 1)
	assert.Equal(t, "WalletCreated::0x01", *client.in[0].Subject)
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:accounts", *client.in[0].TopicArn)
	assert.JSONEq(t, `{"accountId":"id","email":"a@b.com","signerAddr":"0x01"}`, *client.in[0].Message)
}

func TestKafkaPublisher(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		if string(key) != "WalletCreated::0x01" {
			return errors.New("unexpected key " + string(key))
		}
		raw, _ := msg.Value.Encode()
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return err
		}
		if env.Subject != "WalletCreated::0x01" || env.EventID == "" {
			return errors.New("bad envelope")
		}
		var ev models.WalletCreated
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return err
		}
		if ev.SignerAddr != "0x01" {
			return errors.New("bad payload")
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisher(producer, "account-events")
	ctx := context.Background()
	event := models.WalletCreated{AccountID: "id", Email: "a@b.com", SignerAddr: "0x01"}

	require.NoError(t, p.Publish(ctx, "WalletCreated::0x01", event))
	err := p.Publish(ctx, "WalletCreated::0x01", event)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	require.NoError(t, p.Close())
}

func TestKafkaPublisher_CanceledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	p := NewKafkaPublisher(producer, "account-events")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "s", struct{}{}), context.Canceled)
	require.NoError(t, p.Close())
}

func TestNotifier(t *testing.T) {
	ses := &fakeSES{}
	client := &fakeSNS{}
	n := NewNotifier(NewSESMailer(ses, "from@x.io"), NewSNSPublisher(client, "arn"))

	require.NoError(t, n.SendConfirmEmail(context.Background(), "a@b.com", "R", "o"))
	require.NoError(t, n.Publish(context.Background(), "s", map[string]string{"k": "v"}))
	assert.Len(t, ses.in, 1)
	assert.Len(t, client.in, 1)
}

func TestNewKafkaSyncProducer_NoBrokers(t *testing.T) {
	_, err := NewKafkaSyncProducer(nil)
	assert.Error(t, err)
}
