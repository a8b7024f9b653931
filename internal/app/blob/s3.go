package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dalemusser/waffle/pantry/storage"
)

// S3Config configures an S3 (or S3-compatible) store. Application buckets
// live as prefixes inside the single S3 bucket named by Bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional; set for MinIO or other compatible services
	AccessKey string // optional; default credential chain when empty
	SecretKey string
	PublicURL string // optional; base for public object URLs
}

// containerAPI is the subset of the S3 client used to provision the bucket.
type containerAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// NewS3 creates the S3 bucket named by cfg when it is missing and returns a
// Store on top of it.
func NewS3(ctx context.Context, cfg S3Config) (*Objects, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("blob: s3 bucket is empty")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	if err := ensureContainer(ctx, client, cfg.Bucket, cfg.Region); err != nil {
		return nil, err
	}

	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" && cfg.Endpoint != "" {
		public = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	st, err := storage.NewS3(ctx, storage.S3Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKey,
		SecretAccessKey: cfg.SecretKey,
		Endpoint:        cfg.Endpoint,
		UsePathStyle:    cfg.Endpoint != "",
		BaseURL:         public,
	})
	if err != nil {
		return nil, err
	}
	return New(st), nil
}

// ensureContainer creates bucket unless it already exists.
func ensureContainer(ctx context.Context, client containerAPI, bucket, region string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuch *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuch) {
		return fmt.Errorf("head bucket %q: %w", bucket, err)
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if region != "" && region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := client.CreateBucket(ctx, in); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("create bucket %q: %w", bucket, err)
	}
	return nil
}
