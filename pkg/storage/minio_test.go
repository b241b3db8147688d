package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type fakeObjectStore struct {
	exists  bool
	made    bool
	objects map[string]string
	putErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string]string{}}
}

func (f *fakeObjectStore) BucketExists(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakeObjectStore) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	f.made = true
	f.exists = true
	return nil
}

func (f *fakeObjectStore) PutObject(_ context.Context, _ string, objectName string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, _ := io.ReadAll(reader)
	f.objects[objectName] = opts.ContentType + "|" + string(data)
	return minio.UploadInfo{Key: objectName}, nil
}

func (f *fakeObjectStore) RemoveObject(_ context.Context, _ string, objectName string, _ minio.RemoveObjectOptions) error {
	delete(f.objects, objectName)
	return nil
}

func TestUploadAndDeleteProductImage(t *testing.T) {
	store := newFakeObjectStore()
	c := newClient(store, "product-images", "http://cdn.local/product-images/", 1<<20)
	require.NoError(t, c.ensureBucket(context.Background()))
	assert.True(t, store.made)

	productID := uuid.New()
	url, err := c.UploadProductImage(context.Background(), productID, strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://cdn.local/product-images/products/"+productID.String()+"/"))
	assert.True(t, strings.HasSuffix(url, ".png"))
	require.Len(t, store.objects, 1)

	name, ok := c.ObjectName(url)
	require.True(t, ok)
	assert.Equal(t, "image/png|png-bytes", store.objects[name])

	require.NoError(t, c.DeleteByURL(context.Background(), url))
	assert.Empty(t, store.objects)

	require.NoError(t, c.DeleteByURL(context.Background(), "https://elsewhere.example/a.png"))
}

func TestUploadRejects(t *testing.T) {
	c := newClient(newFakeObjectStore(), "b", "http://cdn.local/b", 10)

	_, err := c.UploadProductImage(context.Background(), uuid.New(), strings.NewReader("x"), 1, "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedMimeType)

	_, err = c.UploadProductImage(context.Background(), uuid.New(), strings.NewReader("x"), 11, "image/jpeg")
	assert.ErrorIs(t, err, ErrTooLarge)

	store := newFakeObjectStore()
	store.putErr = errors.New("access denied")
	c = newClient(store, "b", "http://cdn.local/b", 10)
	_, err = c.UploadProductImage(context.Background(), uuid.New(), strings.NewReader("x"), 1, "image/jpeg")
	assert.ErrorContains(t, err, "access denied")
}

func TestNilClientNotConfigured(t *testing.T) {
	var c *Client
	_, err := c.UploadProductImage(context.Background(), uuid.New(), nil, 0, "image/png")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrNotConfigured)

	_, err = NewClient(context.Background(), config.StorageConfig{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
