// Package archive uploads a completed run's SQLite database to S3 for
// long-term storage once a sweep no longer needs it on local disk.
package archive

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader uploads run databases to a fixed S3 bucket.
type Uploader struct {
	client *s3.Client
	bucket string
}

// NewUploader returns an Uploader targeting bucket. When
// LARGEWORLD_S3_ACCESS_KEY and LARGEWORLD_S3_SECRET_KEY are both set, those
// static credentials override the default chain; otherwise the default
// chain (env vars, shared config, instance role) is used. Disabled callers
// should simply not construct one — archival is optional and the rest of
// the service runs without it.
func NewUploader(ctx context.Context, bucket string) (*Uploader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if ak, sk := os.Getenv("LARGEWORLD_S3_ACCESS_KEY"), os.Getenv("LARGEWORLD_S3_SECRET_KEY"); ak != "" && sk != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ak, sk, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}
	return &Uploader{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// UploadRun uploads the SQLite file at dbPath under key "<runID>.db".
func (u *Uploader) UploadRun(ctx context.Context, runID, dbPath string) error {
	f, err := os.Open(dbPath)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", dbPath, err)
	}
	defer f.Close()

	uploader := manager.NewUploader(u.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(runID + ".db"),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("archive: upload run %s: %w", runID, err)
	}
	return nil
}
