package store

import (
	"bytes"
	"context"

	"github.com/lensora/tryon-backend/utils"
)

// S3ObjectStore adapts the shared S3 helpers to the pipeline's object
// storage interface. Keys are returned as the durable reference;
// presigning happens when a client needs to fetch.
type S3ObjectStore struct{}

func NewS3ObjectStore() *S3ObjectStore {
	return &S3ObjectStore{}
}

func (s *S3ObjectStore) Store(ctx context.Context, data []byte, key, contentType string) (string, error) {
	return utils.UploadFileToS3(ctx, bytes.NewReader(data), key, contentType)
}

func (s *S3ObjectStore) Presign(ctx context.Context, key string) (string, error) {
	return utils.GetPresignedURL(ctx, key)
}

func (s *S3ObjectStore) Delete(ctx context.Context, key string) error {
	return utils.DeleteFileFromS3(ctx, key)
}
