package object

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/image-batch/internal/model"
)

// loader opens processed files for upload.
type loader interface {
	Load(ctx context.Context, path string) (io.ReadCloser, error)
}

// Storage mirrors processed images into an S3-compatible bucket using MinIO.
// Objects are stored under the batch ID: <batch-id>/<file name>.
type Storage struct {
	client     *minio.Client
	bucketName string
	files      loader
	strategy   retry.Strategy
}

// NewStorage creates a new Storage instance connected to the specified MinIO server.
// If the bucket does not exist, it will be created automatically.
func NewStorage(
	ctx context.Context,
	endpoint, accessKey, secretKey, bucketName string,
	useSSL bool,
	files loader,
	strategy retry.Strategy,
) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: bucketName,
		files:      files,
		strategy:   strategy,
	}, nil
}

// ObjectName returns the key a processed file is uploaded under.
func ObjectName(res model.Result) string {
	return path.Join(res.BatchID.String(), filepath.Base(res.Output))
}

// Record uploads the output of a successful task. Failed tasks have nothing to mirror.
func (s *Storage) Record(ctx context.Context, res model.Result) error {
	if !res.OK() {
		return nil
	}

	objectName := ObjectName(res)
	contentType := mime.TypeByExtension(filepath.Ext(res.Output))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Each attempt reopens the file since a failed PutObject may have consumed the reader.
	err := retry.Do(func() error {
		src, err := s.files.Load(ctx, res.Output)
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = s.client.PutObject(ctx, s.bucketName, objectName, src, -1, minio.PutObjectOptions{
			ContentType: contentType,
		})
		return err
	}, s.strategy)
	if err != nil {
		return fmt.Errorf("failed to mirror %s: %w", res.Output, err)
	}

	return nil
}
