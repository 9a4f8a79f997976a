package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const presignTTL = 15 * time.Minute

type Config struct {
	// S3 compatible storage settings. BaseEndpoint allows pointing the
	// client at MinIO or another non-AWS implementation.
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

// Upload is a one-time grant to PUT a single object.
// The client uploads to URL and then submits Key as the media reference.
type Upload struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

// Service hands out presigned upload URLs for avatars and covers.
// The service itself never proxies file bytes.
type Service struct {
	cfg Config
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, errors.New("media storage bucket and region must be set")
	}

	return &Service{cfg: cfg}, nil
}

// PresignUpload creates a fresh object key and a presigned PUT url for it
func (s *Service) PresignUpload(ctx context.Context) (Upload, error) {
	client, err := s.presignClient(ctx)
	if err != nil {
		return Upload{}, fmt.Errorf("can't build storage client. Err: %w", err)
	}

	key := randomStorageKey()
	req, err := client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.cfg.Bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return Upload{}, fmt.Errorf("can't presign upload. Err: %w", err)
	}

	return Upload{
		Key:       key,
		URL:       req.URL,
		ExpiresAt: time.Now().Add(presignTTL),
	}, nil
}

func (s *Service) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.AccessKey,
			s.cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.BaseEndpoint)
		}
		o.UsePathStyle = s.cfg.BaseEndpoint != ""
	})

	return s3.NewPresignClient(client), nil
}

// Keys are grouped by upload date so buckets stay browsable
func randomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("media/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}
