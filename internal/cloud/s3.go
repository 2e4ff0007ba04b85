package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/baseline"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("s3 object not found")

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Client wraps the AWS S3 client for object storage operations
type S3Client struct {
	svc    s3API
	bucket string
}

// NewS3Client creates a new S3 client instance
func NewS3Client(ctx context.Context, region, bucket string) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &S3Client{svc: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// UploadObject stores data under key.
func (c *S3Client) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"uploaded-at": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if _, err := c.svc.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return nil
}

// DownloadObject fetches the object stored under key.
func (c *S3Client) DownloadObject(ctx context.Context, key string) ([]byte, error) {
	result, err := c.svc.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, c.bucket, key)
		}
		return nil, fmt.Errorf("failed to download %s from S3: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	return data, nil
}

// S3ArtifactStore keeps the baseline model artifact in a bucket.
type S3ArtifactStore struct {
	client *S3Client
	key    string
}

var _ baseline.ArtifactStore = (*S3ArtifactStore)(nil)

func NewS3ArtifactStore(client *S3Client, key string) *S3ArtifactStore {
	return &S3ArtifactStore{client: client, key: key}
}

func (s *S3ArtifactStore) Save(ctx context.Context, f *baseline.IsolationForest) error {
	data, err := baseline.Encode(f)
	if err != nil {
		return err
	}
	if err := s.client.UploadObject(ctx, s.key, data, "application/json"); err != nil {
		return err
	}
	log.Info().Str("component", "cloud").Str("bucket", s.client.bucket).Str("key", s.key).Msg("model artifact uploaded")
	return nil
}

func (s *S3ArtifactStore) Load(ctx context.Context) (*baseline.IsolationForest, error) {
	data, err := s.client.DownloadObject(ctx, s.key)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: %v", baseline.ErrArtifactNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	return baseline.Decode(data)
}
