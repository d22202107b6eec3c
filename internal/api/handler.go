package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"luthier-backend/internal/auth"
	"luthier-backend/internal/mw"
	"luthier-backend/internal/notification"
	"luthier-backend/internal/report"
	"luthier-backend/internal/store"
)

// Dispatcher queues notification jobs.
type Dispatcher interface {
	Dispatch(job notification.Job) bool
}

// Deps are the collaborators of the API handlers. Pool, Webpush and Cache
// are optional.
type Deps struct {
	Store       store.Store
	Auth        *auth.Service
	Reports     report.Builder
	Pool        Dispatcher
	Webpush     *webpush.Options
	Cache       *mw.ResponseCache
	CountryCode string
	Log         *zap.Logger
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store       store.Store
	auth        *auth.Service
	reports     report.Builder
	pool        Dispatcher
	webpush     *webpush.Options
	cache       *mw.ResponseCache
	countryCode string
	log         *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		store:       d.Store,
		auth:        d.Auth,
		reports:     d.Reports,
		pool:        d.Pool,
		webpush:     d.Webpush,
		cache:       d.Cache,
		countryCode: d.CountryCode,
		log:         log,
	}
}

// respondError maps store errors to HTTP statuses. Unexpected errors are
// logged and hidden from the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// invalidate drops the cached dashboard views of the caller's tenant.
func (h *Handler) invalidate(c *gin.Context) {
	if h.cache != nil {
		h.cache.Invalidate(auth.TenantID(c))
	}
}
