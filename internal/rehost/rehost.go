package rehost

import (
	"context"
	"crypto/md5"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/kuratuapp/liquidationblitz/pkg/logger"
	"github.com/kuratuapp/liquidationblitz/pkg/metrics"
	"github.com/kuratuapp/liquidationblitz/pkg/redis"
)

// maxImageBytes caps a single download. Manifest image links point at
// product shots, anything larger is almost certainly not one.
const maxImageBytes = 20 << 20

// ObjectPutter stores a fetched image and returns its public URL.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, object, contentType string, data []byte) (string, error)
}

// Cache remembers source-to-hosted mappings across runs. Get returns
// redis.Nil when the key is absent.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	RehostKey(sourceHash string) string
}

// Rehoster copies externally hosted manifest images into our bucket so
// catalog listings never depend on supplier CDNs. Failures fall back to
// the original URL rather than blocking a publish.
type Rehoster struct {
	fetch   *http.Client
	store   ObjectPutter
	cache   Cache
	bucket  string
	prefix  string
	ttl     time.Duration
	log     *logger.Logger
	metrics *metrics.PipelineMetrics
}

type Config struct {
	Bucket       string
	Prefix       string
	FetchTimeout time.Duration
	CacheTTL     time.Duration
}

// New builds a Rehoster. cache may be nil, in which case every image is
// fetched fresh.
func New(store ObjectPutter, cache Cache, cfg Config, log *logger.Logger, m *metrics.PipelineMetrics) *Rehoster {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "images/"
	}
	return &Rehoster{
		fetch:   &http.Client{Timeout: timeout},
		store:   store,
		cache:   cache,
		bucket:  cfg.Bucket,
		prefix:  prefix,
		ttl:     cfg.CacheTTL,
		log:     log,
		metrics: m,
	}
}

// Rehost copies one image. lot and index place the copy under a
// deterministic object key; rehosting the same source twice yields the
// same key, so retries overwrite instead of accumulating. On any failure
// the source URL is returned unchanged.
func (r *Rehoster) Rehost(ctx context.Context, lot string, index int, sourceURL string) string {
	if strings.TrimSpace(sourceURL) == "" {
		return sourceURL
	}

	hash := fmt.Sprintf("%x", md5.Sum([]byte(sourceURL)))[:12]

	if hosted, ok := r.cached(ctx, hash); ok {
		r.metrics.IncImageRehost("cached")
		return hosted
	}

	data, contentType, err := r.download(ctx, sourceURL)
	if err != nil {
		r.log.Warn(r.log.WithFields(ctx, map[string]any{
			"lot_number": lot,
			"source_url": sourceURL,
		}), "image fetch failed, keeping source url")
		r.metrics.IncImageRehost("fallback")
		return sourceURL
	}

	object := fmt.Sprintf("%sbatch-%s/item-%d_%s%s", r.prefix, lot, index, hash, extensionFor(contentType, sourceURL))
	hosted, err := r.store.PutObject(ctx, r.bucket, object, contentType, data)
	if err != nil {
		r.log.Error(ctx, "image upload failed, keeping source url", err)
		r.metrics.IncImageRehost("fallback")
		return sourceURL
	}

	r.remember(ctx, hash, hosted)
	r.metrics.IncImageRehost("rehosted")
	return hosted
}

// RehostAll processes the first limit URLs in order. The returned slice
// is positionally aligned with the input window.
func (r *Rehoster) RehostAll(ctx context.Context, lot string, urls []string, limit int) []string {
	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	hosted := make([]string, 0, len(urls))
	for i, u := range urls {
		hosted = append(hosted, r.Rehost(ctx, lot, i, u))
	}
	return hosted
}

func (r *Rehoster) cached(ctx context.Context, hash string) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	hosted, err := r.cache.Get(ctx, r.cache.RehostKey(hash))
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			r.log.Warn(ctx, "rehost cache read failed")
		}
		return "", false
	}
	return hosted, hosted != ""
}

func (r *Rehoster) remember(ctx context.Context, hash, hosted string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, r.cache.RehostKey(hash), hosted, r.ttl); err != nil {
		r.log.Warn(ctx, "rehost cache write failed")
	}
}

func (r *Rehoster) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := r.fetch.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// extensionFor picks a file extension from the content type, falling back
// to the source URL's path and finally to .jpg.
func extensionFor(contentType, sourceURL string) string {
	if ext, ok := extByContentType[strings.ToLower(contentType)]; ok {
		return ext
	}
	if u, err := url.Parse(sourceURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	return ".jpg"
}
