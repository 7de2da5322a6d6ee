// Package upload sends captured photos to the photo storage backend and
// returns the stable public URL the dispatch API expects.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/zeroeau/washpro-technician/internal/common"
)

// Uploader stores one image payload and returns its public URL. Uploads of
// different photos carry no ordering or atomicity guarantees.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// Config holds the S3-compatible backend settings.
type Config struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
}

// S3Uploader implements Uploader on an S3-compatible object store.
type S3Uploader struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

var _ Uploader = (*S3Uploader)(nil)

func NewS3Uploader(ctx context.Context, c Config) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(c.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{
		client:     client,
		bucket:     c.Bucket,
		publicBase: strings.TrimRight(c.PublicBaseURL, "/"),
	}, nil
}

// Upload stores the payload under a fresh object key and returns the public
// URL. Failures are wrapped as common.ErrUploadFailed so the workflow can
// treat them as a non-blocking warning.
func (u *S3Uploader) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := "photos/" + uuid.NewString() + extensionFor(contentType)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUploadFailed, err)
	}

	return u.publicBase + "/" + key, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
