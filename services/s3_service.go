package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	appConfig "github.com/kiwio/print-broker-api/config"
)

// ErrBlobNotFound is returned when no object matches the requested id or
// metadata query.
var ErrBlobNotFound = errors.New("blob not found")

// BlobObject is a stored file: bytes plus the metadata attached at put time.
// Metadata is the sole channel for volume figures and preview linkage.
type BlobObject struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// BlobStore defines the content-addressable file storage contract.
type BlobStore interface {
	// Put stores bytes with metadata and returns an opaque file id.
	Put(ctx context.Context, data []byte, contentType string, metadata map[string]string) (string, error)

	// Get retrieves an object by file id. Returns ErrBlobNotFound if absent.
	Get(ctx context.Context, fileID string) (*BlobObject, error)

	// FindByMetadata returns the id of an object whose metadata contains the
	// given key/value pair, or ErrBlobNotFound.
	FindByMetadata(ctx context.Context, key, value string) (string, error)

	// PresignedURL generates a time-limited URL for reading an object.
	PresignedURL(fileID string) (string, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, fileID string) error
}

// S3BlobStore implements BlobStore on AWS S3. Objects live under the
// uploads/ prefix keyed by their file id.
type S3BlobStore struct {
	client *s3.Client
	bucket string
}

var blobStoreInstance BlobStore

// InitBlobStore initializes the S3-backed blob store with AWS credentials
func InitBlobStore() (BlobStore, error) {
	cfg := appConfig.GetConfig()

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.AWSRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = false
	})

	blobStoreInstance = &S3BlobStore{
		client: client,
		bucket: cfg.AWSS3Bucket,
	}

	return blobStoreInstance, nil
}

// GetBlobStore returns the initialized blob store instance
func GetBlobStore() BlobStore {
	return blobStoreInstance
}

// SetBlobStore sets the blob store instance (primarily for testing)
func SetBlobStore(store BlobStore) {
	blobStoreInstance = store
}

func s3Key(fileID string) string {
	return "uploads/" + fileID
}

// Put uploads bytes to S3 under a freshly generated file id
func (s *S3BlobStore) Put(ctx context.Context, data []byte, contentType string, metadata map[string]string) (string, error) {
	fileID := uuid.NewString()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Key(fileID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fileID, nil
}

// Get downloads an object and its metadata by file id
func (s *S3BlobStore) Get(ctx context.Context, fileID string) (*BlobObject, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Key(fileID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to fetch from S3: %w", err)
	}
	defer func() {
		if closeErr := out.Body.Close(); closeErr != nil {
			log.Printf("warning: failed to close S3 body: %v", closeErr)
		}
	}()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object: %w", err)
	}

	return &BlobObject{
		Data:        data,
		ContentType: aws.ToString(out.ContentType),
		Metadata:    out.Metadata,
	}, nil
}

// FindByMetadata scans the uploads/ prefix for an object carrying the given
// metadata pair. S3 cannot query metadata server-side, so this walks the
// listing and heads each object; callers use it only for best-effort preview
// linkage on small prefixes.
func (s *S3BlobStore) FindByMetadata(ctx context.Context, key, value string) (string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String("uploads/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				continue
			}
			if head.Metadata[key] == value {
				return aws.ToString(obj.Key)[len("uploads/"):], nil
			}
		}
	}

	return "", ErrBlobNotFound
}

// PresignedURL generates a presigned URL for reading an object.
// The URL expires after 1 hour
func (s *S3BlobStore) PresignedURL(fileID string) (string, error) {
	if fileID == "" {
		return "", nil
	}

	presignClient := s3.NewPresignClient(s.client)

	request, err := presignClient.PresignGetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Key(fileID)),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = time.Hour
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return request.URL, nil
}

// Delete removes an object from S3
func (s *S3BlobStore) Delete(ctx context.Context, fileID string) error {
	if fileID == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Key(fileID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}
