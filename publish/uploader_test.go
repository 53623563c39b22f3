package publish

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBucket answers the requests the uploader sends for a single bucket.
type fakeBucket struct {
	mu      sync.Mutex
	name    string
	objects map[string][]byte
	types   map[string]string
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != b.name {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchBucket</Code><Message>missing</Message></Error>`)
		return
	}

	switch {
	case r.Method == http.MethodHead && key == "":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && key != "":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		b.objects[key] = body
		b.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newFakeBucket(t *testing.T, name string) (*fakeBucket, string) {
	t.Helper()

	bucket := &fakeBucket{name: name, objects: make(map[string][]byte), types: make(map[string]string)}
	server := httptest.NewServer(bucket)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	return bucket, u.Host
}

func TestUploader_Upload(t *testing.T) {
	bucket, endpoint := newFakeBucket(t, "catalogs")

	path := filepath.Join(t.TempDir(), "catalog.db")
	require.NoError(t, os.WriteFile(path, []byte("SQLite format 3\x00"), 0o644))

	u, err := NewUploader(Options{Endpoint: endpoint, Region: "us-east-1", Bucket: "catalogs", AccessKey: "key", SecretKey: "secret"})
	require.NoError(t, err)
	require.NoError(t, u.Open(t.Context()))
	defer u.Close(t.Context())

	key, size, err := u.Upload(t.Context(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "catalog.db", key)
	assert.Equal(t, int64(16), size)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	assert.Equal(t, []byte("SQLite format 3\x00"), bucket.objects["catalog.db"])
	assert.Equal(t, ContentType, bucket.types["catalog.db"])
}

func TestUploader_MissingBucket(t *testing.T) {
	_, endpoint := newFakeBucket(t, "catalogs")

	u, err := NewUploader(Options{Endpoint: endpoint, Region: "us-east-1", Bucket: "other", AccessKey: "key", SecretKey: "secret"})
	require.NoError(t, err)

	err = u.Open(t.Context())
	assert.True(t, errors.Is(err, ErrBucketMissing), "got %v", err)
}

func TestNewUploader_RequiresBucket(t *testing.T) {
	_, err := NewUploader(Options{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}
