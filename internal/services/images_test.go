package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadStoresSniffedImage(t *testing.T) {
	objects := newMemoryObjects()
	svc := NewImageService(objects, "https://api.edita.app", nil)

	img, err := svc.Upload(context.Background(), pngBytes)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(img.Key, ".png"), img.Key)
	assert.True(t, imageKeyPattern.MatchString(img.Key), img.Key)
	assert.Equal(t, "https://api.edita.app/images/"+img.Key, img.URL)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, int64(len(pngBytes)), img.Size)
	assert.Equal(t, "image/png", objects.types[img.Key])

	rc, contentType, err := svc.Open(context.Background(), img.Key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, "image/png", contentType)
}

func TestUploadRejectsNonImages(t *testing.T) {
	svc := NewImageService(newMemoryObjects(), "", nil)

	_, err := svc.Upload(context.Background(), []byte("just some text"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "image", verr.Field)

	_, err = svc.Upload(context.Background(), nil)
	require.ErrorAs(t, err, &verr)

	_, err = svc.Upload(context.Background(), make([]byte, MaxImageBytes+1))
	require.ErrorAs(t, err, &verr)
}

func TestUploadStorageFailure(t *testing.T) {
	objects := newMemoryObjects()
	objects.putErr = errors.New("bucket gone")
	svc := NewImageService(objects, "", nil)

	_, err := svc.Upload(context.Background(), jpegBytes)
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestImageServiceNotConfigured(t *testing.T) {
	svc := NewImageService(nil, "", nil)

	_, err := svc.Upload(context.Background(), pngBytes)
	assert.ErrorIs(t, err, ErrStorageNotConfigured)

	_, _, err = svc.Open(context.Background(), "x.png")
	assert.ErrorIs(t, err, ErrStorageNotConfigured)
}

func TestOpenUnknownKeys(t *testing.T) {
	svc := NewImageService(newMemoryObjects(), "", nil)
	ctx := context.Background()

	_, _, err := svc.Open(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrImageNotFound)

	_, _, err = svc.Open(ctx, "0b5b7c1e-8f0a-4d2b-9a3c-2f6e1d4c5b6a.png")
	assert.ErrorIs(t, err, ErrImageNotFound)
}
