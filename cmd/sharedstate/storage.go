package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vango-dev/sharedstate/internal/config"
	"github.com/vango-dev/sharedstate/internal/errors"
	"github.com/vango-dev/sharedstate/pkg/storage"
)

// openStorage builds the configured backend.
func openStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "file":
		return storage.OpenFileStore(cfg.StoragePath())
	case "s3":
		client := newS3Client(cfg.Storage)
		return storage.NewS3Store(client, cfg.Storage.Bucket, storage.WithS3Prefix(cfg.Storage.Prefix)), nil
	default:
		return nil, errors.New("E041").
			WithDetail(fmt.Sprintf("storage.backend is %q", cfg.Storage.Backend))
	}
}

// newS3Client creates an S3 client from the storage config. Credentials come
// from the standard AWS environment variables.
func newS3Client(sc config.StorageConfig) *s3.Client {
	opts := s3.Options{
		Region:       sc.Region,
		UsePathStyle: sc.UsePathStyle,
		Credentials:  envCredentials(),
	}
	if opts.Region == "" {
		opts.Region = os.Getenv("AWS_REGION")
	}
	if sc.Endpoint != "" {
		opts.BaseEndpoint = aws.String(sc.Endpoint)
	}
	return s3.New(opts)
}

func envCredentials() aws.CredentialsProvider {
	return aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		id := os.Getenv("AWS_ACCESS_KEY_ID")
		secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
		if id == "" || secret == "" {
			return aws.Credentials{}, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
		}
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "Environment",
		}, nil
	}))
}
