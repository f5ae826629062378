// internal/storage/archive/s3_test.go
package archive

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/fxlab/internal/core"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Config_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "file.txt", "file.txt"},
		{"fxlab", "file.txt", "fxlab/file.txt"},
		{"fxlab/", "file.txt", "fxlab/file.txt"},
		{"/fxlab/", "/file.txt", "fxlab/file.txt"},
	}

	for _, tt := range tests {
		s := &S3Storage{prefix: strings.Trim(tt.prefix, "/")}
		if got := s.key(tt.path); got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
	}
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(S3Config{})
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

// fakeS3 serves the path-style object calls S3Storage makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

type listResult struct {
	XMLName     xml.Name `xml:"ListBucketResult"`
	Name        string   `xml:"Name"`
	Prefix      string   `xml:"Prefix"`
	KeyCount    int      `xml:"KeyCount"`
	IsTruncated bool     `xml:"IsTruncated"`
	Contents    []struct {
		Key  string `xml:"Key"`
		Size int    `xml:"Size"`
	} `xml:"Contents"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// /bucket/key...
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	switch {
	case r.Method == http.MethodGet && key == "":
		prefix := r.URL.Query().Get("prefix")
		res := listResult{Name: parts[0], Prefix: prefix}
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			res.Contents = append(res.Contents, struct {
				Key  string `xml:"Key"`
				Size int    `xml:"Size"`
			}{Key: k, Size: len(f.objects[k])})
		}
		res.KeyCount = len(keys)
		w.Header().Set("Content-Type", "application/xml")
		_ = xml.NewEncoder(w).Encode(res)

	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
			return
		}
		_, _ = w.Write(data)

	case r.Method == http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeS3(t *testing.T) (*S3Storage, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3(S3Config{
		Bucket:    "fxlab",
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "test",
		Prefix:    "runs",
	})
	require.NoError(t, err)
	return s, fake
}

func TestS3Storage_RoundTrip(t *testing.T) {
	s, fake := newFakeS3(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "reports/a.json", []byte(`{"roi":20}`)))
	require.NoError(t, s.Write(ctx, "reports/b.json", []byte(`{"roi":-3}`)))
	assert.Equal(t, "application/json", fake.types["runs/reports/a.json"])

	got, err := s.Read(ctx, "reports/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"roi":20}`, string(got))

	paths, err := s.List(ctx, "reports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/a.json", "reports/b.json"}, paths)

	exists, err := s.Exists(ctx, "reports/a.json")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "reports/a.json"))
	exists, err = s.Exists(ctx, "reports/a.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestS3Storage_ReadMissing(t *testing.T) {
	s, _ := newFakeS3(t)

	_, err := s.Read(context.Background(), "reports/missing.json")
	assert.ErrorIs(t, err, core.ErrStorageFailed)
}
