package syncx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/codereg/internal/server/config"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes an archive request manifest per call into the archive
// bucket, where the preservation pipeline picks it up.
type S3Archiver struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

type manifest struct {
	CodeID      int64     `json:"code_id"`
	Source      string    `json:"source"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewS3Archiver(ctx context.Context, cfg *config.Config) (*S3Archiver, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Archiver{client: client, bucket: cfg.S3Bucket, now: time.Now}, nil
}

// ObjectKey places manifests under the record and the request day.
func ObjectKey(codeID int64, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("records/%d/%d/%02d/%02d/%v.json", codeID, at.Year(), at.Month(), at.Day(), uuid.New())
}

func (a *S3Archiver) Archive(ctx context.Context, codeID int64, source string) error {
	at := a.now().UTC()
	body, err := json.Marshal(manifest{CodeID: codeID, Source: source, RequestedAt: at})
	if err != nil {
		return err
	}

	key := ObjectKey(codeID, at)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
