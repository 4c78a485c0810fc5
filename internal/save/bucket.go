package save

import (
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/vaultdesk/internal/config"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

// BucketSink stores blobs in an S3 compatible bucket under
// "<document id>/<filename>".
type BucketSink struct {
	client *minio.Client
	bucket string
	region string
}

// NewBucketSink creates a MinIO client from the S3 settings.
func NewBucketSink(cfg config.S3Config) (*BucketSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &BucketSink{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *BucketSink) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", s.bucket, err)
	}
	return nil
}

// ObjectKey is where doc is stored in the bucket.
func ObjectKey(doc model.Document, blob *model.Blob) string {
	id := sanitize(doc.ID)
	if id == "" {
		id = "unknown"
	}
	return path.Join(id, Filename(doc, blob))
}

// Save streams the blob into the bucket. An unknown size is streamed in parts.
func (s *BucketSink) Save(ctx context.Context, doc model.Document, blob *model.Blob) (Saved, error) {
	if blob == nil || blob.Body == nil {
		return Saved{}, ErrNoBlob
	}
	defer blob.Close()

	size := blob.Size
	if size <= 0 {
		size = -1
	}
	contentType := blob.MimeType
	if contentType == "" {
		contentType = doc.MimeType
	}
	key := ObjectKey(doc, blob)
	info, err := s.client.PutObject(ctx, s.bucket, key, blob.Body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"document-id": doc.ID, "access-level": string(doc.AccessLevel)},
	})
	if err != nil {
		return Saved{}, fmt.Errorf("upload object: %w", err)
	}
	return Saved{Location: "s3://" + s.bucket + "/" + key, Bytes: info.Size}, nil
}
