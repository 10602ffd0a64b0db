package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// SnapshotArchive keeps the raw snapshot JSON of every import in object
// storage so a processed import can be audited or replayed later.
type SnapshotArchive interface {
	Store(ctx context.Context, importID string, body []byte) (string, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
}

type minioArchive struct {
	client *minio.Client
	bucket string
	region string
	logger zerolog.Logger

	ensureMu      sync.Mutex
	bucketEnsured bool
}

func NewMinIOArchive(endpoint, accessKey, secretKey, bucket, region string, useSSL bool, logger zerolog.Logger) (SnapshotArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	archive := &minioArchive{
		client: client,
		bucket: bucket,
		region: region,
		logger: logger,
	}

	// Archiving is best-effort: the service keeps running even when object
	// storage is not reachable at startup.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := archive.ensureBucket(ctx); err != nil {
		logger.Error().Err(err).
			Str("endpoint", endpoint).
			Str("bucket", bucket).
			Msg("MinIO not ready during startup; snapshot archiving will retry on demand")
	} else {
		logger.Info().
			Str("endpoint", endpoint).
			Str("bucket", bucket).
			Msg("Connected to MinIO")
	}

	return archive, nil
}

func (a *minioArchive) ensureBucket(ctx context.Context) error {
	a.ensureMu.Lock()
	defer a.ensureMu.Unlock()
	if a.bucketEnsured {
		return nil
	}

	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		a.logger.Info().Str("bucket", a.bucket).Msg("Created new bucket")
	}

	a.bucketEnsured = true
	return nil
}

func (a *minioArchive) Store(ctx context.Context, importID string, body []byte) (string, error) {
	if err := a.ensureBucket(ctx); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("snapshots/%d/%02d/%s.json", now.Year(), now.Month(), importID)

	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive snapshot: %w", err)
	}

	a.logger.Debug().
		Str("bucket", a.bucket).
		Str("key", key).
		Int("size", len(body)).
		Msg("Snapshot archived")

	return key, nil
}

func (a *minioArchive) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}

	object, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get archived snapshot: %w", err)
	}
	defer object.Close()

	body, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived snapshot: %w", err)
	}

	return body, nil
}
