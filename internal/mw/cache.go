package mw

import (
	"bytes"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache caches successful GET responses per scope, where the
// scope is typically the tenant of the request. Writers call Invalidate
// after changing data a cached view depends on.
type ResponseCache struct {
	store *cache.Cache
	ttl   time.Duration
	scope func(*gin.Context) string

	// gens counts invalidations per scope. A response rendered across an
	// Invalidate is not stored.
	mu   sync.Mutex
	gens map[string]uint64
}

// NewResponseCache creates a ResponseCache backed by store.
func NewResponseCache(store *cache.Cache, ttl time.Duration, scope func(*gin.Context) string) *ResponseCache {
	return &ResponseCache{store: store, ttl: ttl, scope: scope, gens: map[string]uint64{}}
}

func (rc *ResponseCache) generation(scope string) uint64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.gens[scope]
}

func (rc *ResponseCache) key(scope, uri string) string {
	return scope + "|" + uri
}

// Handler is the caching middleware.
func (rc *ResponseCache) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		scope := rc.scope(c)
		key := rc.key(scope, c.Request.RequestURI)
		if resp, found := rc.store.Get(key); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		gen := rc.generation(scope)
		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			response := cachedResponse{
				status:  blw.Status(),
				headers: blw.Header().Clone(),
				body:    blw.body.Bytes(),
			}
			rc.mu.Lock()
			if rc.gens[scope] == gen {
				rc.store.Set(key, response, rc.ttl)
			}
			rc.mu.Unlock()
		}
	}
}

// Invalidate drops every cached response of scope.
func (rc *ResponseCache) Invalidate(scope string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.gens[scope]++
	prefix := rc.key(scope, "")
	for k := range rc.store.Items() {
		if strings.HasPrefix(k, prefix) {
			rc.store.Delete(k)
		}
	}
}
