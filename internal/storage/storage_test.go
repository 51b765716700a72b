package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	a := ObjectKey("Sunset.PNG")
	b := ObjectKey("Sunset.PNG")

	assert.True(t, strings.HasPrefix(a, "prompt-images/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)
}

func TestNewS3_PublicURL(t *testing.T) {
	s, err := NewS3(Config{
		Endpoint:  "http://minio:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "images",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/images", s.cfg.PublicURL)

	s, err = NewS3(Config{
		Endpoint:  "minio:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "images",
		PublicURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com", s.cfg.PublicURL)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Put(context.Background(), "a.png", "image/png", []byte("x"))
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, Disabled{}.Remove(context.Background(), "a"), ErrDisabled)
}
