package vault

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"filesentry/internal/config"
)

// S3Vault archives exports to an S3-compatible bucket. It works against
// AWS proper as well as MinIO-style endpoints via the base endpoint option.
type S3Vault struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Vault builds the S3 client from the archive configuration. When no
// static credentials are configured, the default AWS credential chain
// (environment, shared config, instance role) applies.
func NewS3Vault(ctx context.Context, cfg config.ArchiveConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3_bucket required for s3 archive")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			// Bucket-in-path addressing, required by MinIO-style endpoints.
			o.UsePathStyle = true
		}
	})

	return &S3Vault{
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
	}, nil
}

// Archive uploads data under the configured prefix.
func (v *S3Vault) Archive(ctx context.Context, name string, data []byte) error {
	key := name
	if v.prefix != "" {
		key = path.Join(v.prefix, name)
	}
	_, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(v.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}
