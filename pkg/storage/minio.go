// Package storage keeps product images in an S3-compatible bucket (MinIO).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	ErrNotConfigured       = errors.New("object storage is not configured")
	ErrUnsupportedMimeType = errors.New("unsupported image type")
	ErrTooLarge            = errors.New("file exceeds the upload limit")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Client uploads and deletes product images.
type Client struct {
	store         objectStore
	bucket        string
	publicBaseURL string
	maxBytes      int64
}

// NewClient connects to MinIO and creates the bucket when missing.
func NewClient(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	c := newClient(mc, cfg.Bucket, base, int64(cfg.MaxUploadMB)<<20)
	if err := c.ensureBucket(ctx); err != nil {
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"endpoint": cfg.Endpoint, "bucket": cfg.Bucket}), "object storage ready")
	}
	return c, nil
}

func newClient(store objectStore, bucket, publicBaseURL string, maxBytes int64) *Client {
	return &Client{store: store, bucket: bucket, publicBaseURL: strings.TrimRight(publicBaseURL, "/"), maxBytes: maxBytes}
}

func (c *Client) ensureBucket(ctx context.Context) error {
	exists, err := c.store.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %q: %w", c.bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.store.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %q: %w", c.bucket, err)
	}
	return nil
}

// MaxBytes is the largest accepted upload.
func (c *Client) MaxBytes() int64 {
	return c.maxBytes
}

// UploadProductImage stores the image under products/<productID>/ and returns its public URL.
func (c *Client) UploadProductImage(ctx context.Context, productID uuid.UUID, r io.Reader, size int64, contentType string) (string, error) {
	if c == nil || c.store == nil {
		return "", ErrNotConfigured
	}
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupportedMimeType
	}
	if c.maxBytes > 0 && size > c.maxBytes {
		return "", ErrTooLarge
	}

	object := path.Join("products", productID.String(), uuid.NewString()+ext)
	if _, err := c.store.PutObject(ctx, c.bucket, object, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("uploading %s: %w", object, err)
	}
	return c.ObjectURL(object), nil
}

// DeleteByURL removes an object previously returned by UploadProductImage.
// URLs that do not point into this bucket are ignored.
func (c *Client) DeleteByURL(ctx context.Context, url string) error {
	if c == nil || c.store == nil {
		return ErrNotConfigured
	}
	object, ok := c.ObjectName(url)
	if !ok {
		return nil
	}
	return c.store.RemoveObject(ctx, c.bucket, object, minio.RemoveObjectOptions{})
}

func (c *Client) ObjectURL(object string) string {
	return c.publicBaseURL + "/" + strings.TrimLeft(object, "/")
}

// ObjectName reverses ObjectURL.
func (c *Client) ObjectName(url string) (string, bool) {
	prefix := c.publicBaseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(url, prefix)
	return name, name != ""
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.store == nil {
		return ErrNotConfigured
	}
	_, err := c.store.BucketExists(ctx, c.bucket)
	return err
}
