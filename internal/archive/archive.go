// Package archive writes the final state of deleted questionnaires to an
// S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"fieldbook/api/internal/questionnaire"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether an endpoint was configured.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Archive struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

// New connects to the object store and creates the bucket if it is missing.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check archive bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create archive bucket: %w", err)
		}
	}
	return &Archive{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

// ObjectKey is where a document deleted at the given instant is stored.
func ObjectKey(documentID string, at time.Time) string {
	return fmt.Sprintf("questionnaires/%s/%d.json", documentID, at.UnixNano())
}

// Store uploads the document as JSON and returns its object key.
func (a *Archive) Store(ctx context.Context, doc questionnaire.Document) (string, error) {
	if doc.Questions == nil {
		doc.Questions = []questionnaire.Question{}
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal archived questionnaire: %w", err)
	}

	key := ObjectKey(doc.ID, a.now())
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"questionnaire-id":   doc.ID,
			"questionnaire-name": doc.Name,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload archived questionnaire: %w", err)
	}
	return key, nil
}
