package catalog

import (
	"context"
	stderrors "errors"

	"github.com/kuratuapp/liquidationblitz/pkg/storage/gcs"
)

// objectAPI is the slice of the object storage client the catalog needs.
type objectAPI interface {
	GetObject(ctx context.Context, bucket, object string) ([]byte, error)
	PutObject(ctx context.Context, bucket, object, contentType string, data []byte) (string, error)
}

// ObjectStore keeps the catalog as a single CSV object in a bucket.
type ObjectStore struct {
	client objectAPI
	bucket string
	object string
}

func NewObjectStore(client *gcs.Client, bucket, object string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket, object: object}
}

func (s *ObjectStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.GetObject(ctx, s.bucket, s.object)
	if err != nil {
		if stderrors.Is(err, gcs.ErrObjectNotFound) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return data, nil
}

func (s *ObjectStore) Save(ctx context.Context, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.object, "text/csv", data)
	return err
}
