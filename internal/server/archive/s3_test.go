package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophwallet/internal/server/models"
)

type fakeS3 struct {
	bucket, key string
	body        []byte
	err         error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket, f.key = *in.Bucket, *in.Key
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveWallet(t *testing.T) {
	client := &fakeS3{}
	a := NewS3Archive(client, "wallet-archive")

	rec := models.WalletArchive{
		AccountID:  "357e44ed-bd9a-4370-b6ca-8de9847d1da8",
		OldAddress: "0x01",
		NewAddress: "0x02",
		Wallet:     `{"address":"0x01"}`,
		ReplacedAt: 1700000000,
	}
	require.NoError(t, a.ArchiveWallet(context.Background(), rec))

	assert.Equal(t, "wallet-archive", client.bucket)
	assert.Equal(t, "accounts/357e44ed-bd9a-4370-b6ca-8de9847d1da8/wallets/1700000000.json", client.key)
	assert.JSONEq(t, `{
		"accountId":"357e44ed-bd9a-4370-b6ca-8de9847d1da8",
		"oldAddress":"0x01",
		"newAddress":"0x02",
		"wallet":"{\"address\":\"0x01\"}",
		"replacedAt":1700000000
	}`, string(client.body))

	client.err = errors.New("no such bucket")
	assert.ErrorContains(t, a.ArchiveWallet(context.Background(), rec), "no such bucket")
}
