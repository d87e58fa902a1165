package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kebairia/reseed/internal/config"
)

// S3Source reads the dump artifact from S3-compatible storage. A fixed key
// wins over a prefix; with a prefix the newest matching object is picked at
// acquire time.
type S3Source struct {
	client   *s3.Client
	bucket   string
	key      string
	prefix   string
	endpoint string
	// resolvedKey stores the actual key used after prefix resolution
	resolvedKey string
}

// NewS3Source creates a new S3Source from configuration. Credentials come
// from the named environment variables, never from the YAML itself.
func NewS3Source(cfg config.S3Artifact) (*S3Source, error) {
	accessKey := os.Getenv(cfg.AccessKeyEnv)
	if accessKey == "" {
		return nil, fmt.Errorf("s3 access key environment variable %s is not set", cfg.AccessKeyEnv)
	}

	secretKey := os.Getenv(cfg.SecretKeyEnv)
	if secretKey == "" {
		return nil, fmt.Errorf("s3 secret key environment variable %s is not set", cfg.SecretKeyEnv)
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
		},
	}

	// Custom endpoint for S3-compatible services (MinIO, etc.)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // required for most S3-compatible services
		})
	}

	client := s3.New(s3.Options{}, opts...)

	return &S3Source{
		client:   client,
		bucket:   cfg.Bucket,
		key:      cfg.Key,
		prefix:   cfg.Prefix,
		endpoint: cfg.Endpoint,
	}, nil
}

// Acquire retrieves the artifact from S3.
func (s *S3Source) Acquire(ctx context.Context) (io.ReadCloser, error) {
	key := s.key
	if key == "" {
		var err error
		key, err = s.findLatestObject(ctx)
		if err != nil {
			return nil, err
		}
	}

	s.resolvedKey = key

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object s3://%s/%s: %w", s.bucket, key, err)
	}

	return result.Body, nil
}

// findLatestObject lists objects under the prefix and returns the key of the
// most recently modified one.
func (s *S3Source) findLatestObject(ctx context.Context) (string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	}

	result, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to list objects in s3://%s/%s: %w", s.bucket, s.prefix, err)
	}

	if len(result.Contents) == 0 {
		return "", fmt.Errorf("no objects found in s3://%s/%s", s.bucket, s.prefix)
	}

	// Sort by LastModified descending
	sort.Slice(result.Contents, func(i, j int) bool {
		return result.Contents[i].LastModified.After(*result.Contents[j].LastModified)
	})

	return *result.Contents[0].Key, nil
}

// Identifier returns the S3 URI for traceability.
func (s *S3Source) Identifier() string {
	key := s.resolvedKey
	if key == "" {
		key = s.key
	}
	if key == "" {
		key = s.prefix
	}
	if s.endpoint != "" {
		return fmt.Sprintf("s3://%s/%s (endpoint: %s)", s.bucket, key, s.endpoint)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}
