package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"luthier-backend/internal/auth"
	"luthier-backend/internal/model"
)

// GetProfile returns the issuer profile of the tenant.
func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.store.GetProfile(c.Request.Context(), auth.TenantID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// PutProfile creates or replaces the issuer profile of the tenant.
func (h *Handler) PutProfile(c *gin.Context) {
	var profile model.IssuerProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	profile.TenantID = auth.TenantID(c)

	if err := h.store.SaveProfile(c.Request.Context(), &profile); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
