// Package s3 provides an S3-backed storage provider. Each chunk is one
// object under a configured bucket; the storage path is the object key.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/chunkstore/pkg/storage"
)

// Config holds configuration for the S3 provider.
type Config struct {
	// Bucket is the S3 bucket name.
	Bucket string

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	Endpoint string

	// KeyPrefix is prepended to all chunk keys (e.g., "chunks/").
	// Should end with "/" if non-empty.
	KeyPrefix string

	// ForcePathStyle forces path-style addressing (required for MinIO and
	// Localstack).
	ForcePathStyle bool
}

// Provider is an S3-backed storage.Provider.
type Provider struct {
	id        string
	client    *awss3.Client
	bucket    string
	keyPrefix string
}

// New creates an S3 provider with an existing client.
func New(id string, client *awss3.Client, cfg Config) *Provider {
	return &Provider{
		id:        id,
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}
}

// NewFromConfig creates an S3 provider by building a client from config.
func NewFromConfig(ctx context.Context, id string, cfg Config) (*Provider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	return New(id, awss3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

func (p *Provider) ID() string   { return p.id }
func (p *Provider) Kind() string { return "s3" }

// objectKey returns the full S3 object key for a chunk key.
func (p *Provider) objectKey(key string) string {
	return p.keyPrefix + key
}

func (p *Provider) WriteChunk(ctx context.Context, key string, r io.Reader, correlationID string) (string, error) {
	objectKey := p.objectKey(key)

	// PutObject is atomic: the object becomes visible only once the upload
	// completes.
	_, err := p.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(objectKey),
		Body:   r,
	})
	if err != nil {
		return "", storage.NewError(p.id, "writeChunk", key, err)
	}

	return objectKey, nil
}

func (p *Provider) ReadChunk(ctx context.Context, key, storagePath string, correlationID string) (io.ReadCloser, error) {
	resp, err := p.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(storagePath),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.NewError(p.id, "readChunk", key, storage.ErrChunkNotFound)
		}
		return nil, storage.NewError(p.id, "readChunk", key, err)
	}
	return resp.Body, nil
}

func (p *Provider) ChunkExists(ctx context.Context, key, storagePath string, correlationID string) (bool, error) {
	_, err := p.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(storagePath),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, storage.NewError(p.id, "chunkExists", key, err)
	}
	return true, nil
}

func (p *Provider) DeleteChunk(ctx context.Context, key, storagePath string, correlationID string) (bool, error) {
	// S3 DeleteObject succeeds for missing keys, which matches the
	// idempotent delete contract.
	_, err := p.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(storagePath),
	})
	if err != nil {
		return false, storage.NewError(p.id, "deleteChunk", key, err)
	}
	return true, nil
}

// isNotFound reports whether an S3 error indicates a missing object.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
