package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store implements Store with one JSON object per document at
// "<prefix><collection>/<key>.json". Merges are read-modify-write and are
// only serialised within this process.
type S3Store struct {
	client S3API
	bucket string
	prefix string
	logger zerolog.Logger

	mu sync.Mutex
}

// NewS3Client loads the default AWS configuration for region.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// NewS3Store creates a new S3-backed document store.
func NewS3Store(client S3API, bucket, prefix string, logger zerolog.Logger) *S3Store {
	logger = logger.With().Str("component", "remote-s3-store").Logger()

	logger.Info().
		Str("bucket", bucket).
		Str("prefix", prefix).
		Msg("S3 document store initialised")

	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

func (s *S3Store) objectKey(collection, key string) string {
	return s.prefix + collection + "/" + key + ".json"
}

// Get retrieves a document by collection and key.
func (s *S3Store) Get(ctx context.Context, collection, key string) (Document, error) {
	return s.get(ctx, s.objectKey(collection, key))
}

func (s *S3Store) get(ctx context.Context, objectKey string) (Document, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			s.logger.Debug().Str("key", objectKey).Msg("document not found")
			return nil, nil
		}
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", objectKey).
			Msg("failed to get object from S3")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", s.bucket, objectKey, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object %s: %w", objectKey, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

// Set merges fields into the stored object.
func (s *S3Store) Set(ctx context.Context, collection, key string, fields Document) error {
	objectKey := s.objectKey(collection, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.get(ctx, objectKey)
	if err != nil && !errors.Is(err, ErrInvalidDocument) {
		return err
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", objectKey).Msg("replacing unreadable document")
		existing = nil
	}

	data, err := json.Marshal(existing.merge(fields))
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", objectKey).
			Msg("failed to put object to S3")
		return fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, objectKey, err)
	}

	s.logger.Debug().Str("key", objectKey).Msg("document written successfully")
	return nil
}
