package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/edita-ar/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBackend struct {
	objects map[string][]byte
	types   map[string]string
	closed  bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryBackend) EnsureBucket(context.Context) error { return nil }

func (m *memoryBackend) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryBackend) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBackend) Bucket() string { return "memory" }

func (m *memoryBackend) Close() error {
	m.closed = true
	return nil
}

func TestStorageDelegatesToBackend(t *testing.T) {
	ctx := context.Background()
	backend := newMemoryBackend()
	s := NewStorage(backend)

	require.NoError(t, s.Put(ctx, "a.png", bytes.NewReader([]byte("png")), 3, "image/png"))
	assert.Equal(t, "image/png", backend.types["a.png"])

	rc, err := s.Get(ctx, "a.png")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "png", string(data))

	_, err = s.Get(ctx, "b.png")
	assert.True(t, errors.Is(err, ErrObjectNotFound))

	assert.Equal(t, "memory", s.Bucket())
	require.NoError(t, s.Close())
	assert.True(t, backend.closed)
}

func TestNewWithoutBackend(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Backend: "s3"})
	assert.ErrorContains(t, err, "unsupported storage backend")
}

func TestNewMinioClientValidatesConfig(t *testing.T) {
	_, err := NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", Bucket: "images"})
	assert.ErrorContains(t, err, "access key")

	_, err = NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")
}
