// Package archive stores replaced wallets in S3.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/gophwallet/internal/server/models"
)

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Archive struct {
	client s3API
	bucket string
}

func NewS3Archive(client s3API, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket}
}

// Key returns the object key of an archived wallet.
func Key(rec models.WalletArchive) string {
	return fmt.Sprintf("accounts/%s/wallets/%d.json", rec.AccountID, rec.ReplacedAt)
}

func (a *S3Archive) ArchiveWallet(ctx context.Context, rec models.WalletArchive) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal archive: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(Key(rec)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", Key(rec), err)
	}
	return nil
}
