package rehost

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuratuapp/liquidationblitz/pkg/logger"
	"github.com/kuratuapp/liquidationblitz/pkg/redis"
)

type fakePutter struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (f *fakePutter) PutObject(_ context.Context, bucket, object, contentType string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	f.objects[object] = data
	f.types[object] = contentType
	return "https://storage.googleapis.com/" + bucket + "/" + object, nil
}

type fakeCache struct {
	entries map[string]string
	sets    int
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.entries[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if f.entries == nil {
		f.entries = map[string]string{}
	}
	f.entries[key] = fmt.Sprint(value)
	f.sets++
	return nil
}

func (f *fakeCache) RehostKey(hash string) string {
	return "blitz:rehost:" + hash
}

func newTestRehoster(store ObjectPutter, cache Cache) *Rehoster {
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return New(store, cache, Config{Bucket: "blitz", FetchTimeout: 2 * time.Second}, log, nil)
}

func sourceHash(u string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(u)))[:12]
}

func TestRehost(t *testing.T) {
	ctx := context.Background()

	t.Run("copies the image under a deterministic key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("png-bytes"))
		}))
		defer srv.Close()

		store := &fakePutter{}
		r := newTestRehoster(store, nil)

		source := srv.URL + "/shot.png"
		hosted := r.Rehost(ctx, "5001", 0, source)

		object := fmt.Sprintf("images/batch-5001/item-0_%s.png", sourceHash(source))
		assert.Equal(t, "https://storage.googleapis.com/blitz/"+object, hosted)
		assert.Equal(t, []byte("png-bytes"), store.objects[object])
		assert.Equal(t, "image/png", store.types[object])

		// Same source rehosted again lands on the same key.
		again := r.Rehost(ctx, "5001", 0, source)
		assert.Equal(t, hosted, again)
		assert.Len(t, store.objects, 1)
	})

	t.Run("fetch failure falls back to the source url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		r := newTestRehoster(&fakePutter{}, nil)
		source := srv.URL + "/missing.jpg"
		assert.Equal(t, source, r.Rehost(ctx, "5001", 0, source))
	})

	t.Run("upload failure falls back to the source url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("data"))
		}))
		defer srv.Close()

		r := newTestRehoster(&fakePutter{err: fmt.Errorf("bucket down")}, nil)
		source := srv.URL + "/shot.jpg"
		assert.Equal(t, source, r.Rehost(ctx, "5001", 0, source))
	})

	t.Run("empty source stays empty", func(t *testing.T) {
		r := newTestRehoster(&fakePutter{}, nil)
		assert.Equal(t, "", r.Rehost(ctx, "5001", 0, ""))
	})

	t.Run("cache hit skips the fetch", func(t *testing.T) {
		fetches := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fetches++
			w.Write([]byte("data"))
		}))
		defer srv.Close()

		store := &fakePutter{}
		cache := &fakeCache{}
		r := newTestRehoster(store, cache)

		source := srv.URL + "/shot.jpg"
		first := r.Rehost(ctx, "5001", 0, source)
		require.Equal(t, 1, fetches)
		require.Equal(t, 1, cache.sets)

		second := r.Rehost(ctx, "5001", 0, source)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, fetches)
	})
}

func TestRehostAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpg"))
	}))
	defer srv.Close()

	r := newTestRehoster(&fakePutter{}, nil)

	urls := make([]string, 15)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/item-%d.jpg", srv.URL, i)
	}

	hosted := r.RehostAll(context.Background(), "5001", urls, 10)
	require.Len(t, hosted, 10)
	for i, h := range hosted {
		assert.Contains(t, h, fmt.Sprintf("item-%d_", i))
	}
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", extensionFor("image/jpeg", "https://x/y"))
	assert.Equal(t, ".webp", extensionFor("IMAGE/WEBP", "https://x/y"))
	assert.Equal(t, ".png", extensionFor("application/octet-stream", "https://x/shot.png?v=2"))
	assert.Equal(t, ".jpg", extensionFor("application/octet-stream", "https://x/none"))
}
