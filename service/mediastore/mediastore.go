package mediastore

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/realtoken-app/go-realtoken/env"
	"github.com/realtoken-app/go-realtoken/service/persist"
)

func init() {
	env.RegisterValidation("GCLOUD_ASSET_CONTENT_BUCKET", "required")
}

// Store uploads asset photos and documents to object storage
type Store struct {
	client *storage.Client
	bucket string
}

// NewStore creates a new Store writing to the configured bucket
func NewStore(client *storage.Client) *Store {
	return &Store{client: client, bucket: env.GetString("GCLOUD_ASSET_CONTENT_BUCKET")}
}

// Put writes bytes under a key scoped to the owning user and returns the public URL
func (s *Store) Put(ctx context.Context, ownerID persist.DBID, key string, contentType string, data []byte) (persist.NullString, error) {
	objectName := fmt.Sprintf("%s/%s", ownerID, key)
	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("error writing object %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("error finalizing object %s: %w", objectName, err)
	}

	return persist.NullString(fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectName)), nil
}
