package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestResponseCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := 0
	rc := NewResponseCache(cache.New(time.Minute, time.Minute), time.Minute, func(c *gin.Context) string {
		return c.GetHeader("X-Tenant")
	})

	r := gin.New()
	r.GET("/dashboard", rc.Handler(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})

	get := func(tenant string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("X-Tenant", tenant)
		r.ServeHTTP(w, req)
		return w
	}

	first := get("t1")
	second := get("t1")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	get("t2")
	assert.Equal(t, 2, calls, "tenants must not share cached responses")

	rc.Invalidate("t1")
	get("t1")
	assert.Equal(t, 3, calls)
	get("t2")
	assert.Equal(t, 3, calls)
}

func TestResponseCache_SkipsResponseRenderedAcrossInvalidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := 0
	rc := NewResponseCache(cache.New(time.Minute, time.Minute), time.Minute, func(c *gin.Context) string {
		return "t1"
	})

	r := gin.New()
	r.GET("/dashboard", rc.Handler(), func(c *gin.Context) {
		calls++
		if calls == 1 {
			// a write lands while this view is being rendered
			rc.Invalidate("t1")
		}
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		return w
	}

	get()
	second := get()
	assert.Empty(t, second.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)

	third := get()
	assert.Equal(t, "HIT", third.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2, "X-Forwarded-For"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("1.1.1.1"))
	assert.Equal(t, http.StatusOK, do("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("1.1.1.1"))
	assert.Equal(t, http.StatusOK, do("2.2.2.2"))
}

func TestIPRateLimiter_ReusesLimiter(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	assert.Same(t, l.GetLimiter("a"), l.GetLimiter("a"))
	assert.NotSame(t, l.GetLimiter("a"), l.GetLimiter("b"))
}
