// Package storage keeps uploaded images in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrDisabled is returned when no bucket has been configured.
var ErrDisabled = errors.New("image storage is not configured")

// Image is a stored upload. PublicID is the key used to delete it later.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type ImageStore interface {
	Put(ctx context.Context, filename, contentType string, data []byte) (*Image, error)
	Remove(ctx context.Context, publicID string) error
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicURL is the base images are served from. Defaults to the endpoint.
	PublicURL string
}

const folder = "prompt-images"

type S3 struct {
	cfg    Config
	client *minio.Client
}

func NewS3(cfg Config) (*S3, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}

	if cfg.PublicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		cfg.PublicURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.Bucket)
	}
	cfg.PublicURL = strings.TrimSuffix(cfg.PublicURL, "/")

	return &S3{cfg: cfg, client: cl}, nil
}

func (s *S3) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (s *S3) Put(ctx context.Context, filename, contentType string, data []byte) (*Image, error) {
	key := ObjectKey(filename)
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", key, err)
	}
	return &Image{URL: s.cfg.PublicURL + "/" + key, PublicID: key}, nil
}

func (s *S3) Remove(ctx context.Context, publicID string) error {
	return s.client.RemoveObject(ctx, s.cfg.Bucket, publicID, minio.RemoveObjectOptions{})
}

// ObjectKey builds a unique key under the images folder that keeps the
// original file extension.
func ObjectKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return folder + "/" + uuid.NewString() + ext
}

// Disabled rejects every call. Used when S3 is not configured.
type Disabled struct{}

func (Disabled) Put(context.Context, string, string, []byte) (*Image, error) { return nil, ErrDisabled }
func (Disabled) Remove(context.Context, string) error                        { return ErrDisabled }
