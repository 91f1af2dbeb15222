// Package archive optionally uploads completed snapshots to S3 for
// off-box retention. It is additive: pkg/recovery never reads through it,
// so a node with archival disabled or unreachable behaves exactly as one
// with archival never configured.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config names the destination bucket/prefix for a node's snapshots.
// Region and credentials resolve the standard SDK way (environment,
// shared config file, container/instance role) unless AccessKeyID is set,
// in which case static credentials are used instead.
type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Uploader pushes completed snapshot files to S3.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// New resolves cfg into an AWS session and returns an Uploader.
func New(ctx context.Context, cfg Config) (*Uploader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	return &Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Upload reads the snapshot file at localPath and puts it to the
// configured bucket under prefix/<basename>. Callers should treat a
// failure here as a warning, not a reason to fail the checkpoint: the
// snapshot is already durable on local disk by the time Upload is called.
func (u *Uploader) Upload(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", localPath, err)
	}
	defer f.Close()

	key := u.prefix + filepath.Base(localPath)
	if _, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return fmt.Errorf("archive: put %s/%s: %w", u.bucket, key, err)
	}
	return nil
}
