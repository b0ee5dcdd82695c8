package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/accountadmin/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	bucket      string
	ensureErr   error
	ensured     int
	objects     map[string][]byte
	contentType string
	closed      bool
}

func (f *fakeBackend) EnsureBucket(context.Context) error {
	f.ensured++
	return f.ensureErr
}

func (f *fakeBackend) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = data
	f.contentType = contentType
	return nil
}

func (f *fakeBackend) Bucket() string { return f.bucket }

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func TestStorageDelegatesToBackend(t *testing.T) {
	backend := &fakeBackend{bucket: "account-exports"}
	s := NewStorage(backend)

	body := []byte(`{"count":0}`)
	require.NoError(t, s.Put(context.Background(), "exports/a.json", bytes.NewReader(body), int64(len(body)), "application/json"))

	assert.Equal(t, body, backend.objects["exports/a.json"])
	assert.Equal(t, "application/json", backend.contentType)
	assert.Equal(t, "account-exports", s.Bucket())

	require.NoError(t, s.Close())
	assert.True(t, backend.closed)
}

func TestMinioClientCloseIsNoop(t *testing.T) {
	client, err := NewMinioClient(config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "account-exports",
	})
	require.NoError(t, err)

	assert.NoError(t, client.Close())
	assert.Equal(t, "account-exports", client.Bucket())
}

func TestNewFromConfigValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewFromConfig(ctx, config.ExportConfig{Backend: "s3"})
	assert.ErrorContains(t, err, `unknown export backend "s3"`)

	_, err = NewFromConfig(ctx, config.ExportConfig{Backend: config.BackendMinio})
	assert.ErrorContains(t, err, "minio endpoint is required")

	_, err = NewFromConfig(ctx, config.ExportConfig{
		Backend: config.BackendMinio,
		Minio:   config.MinioConfig{Endpoint: "localhost:9000"},
	})
	assert.ErrorContains(t, err, "minio access key and secret key are required")

	_, err = NewFromConfig(ctx, config.ExportConfig{Backend: config.BackendGCS})
	assert.ErrorContains(t, err, "gcs bucket is required")
}
