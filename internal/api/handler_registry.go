package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"luthier-backend/internal/auth"
	"luthier-backend/internal/model"
)

// SearchClients lists the tenant's clients with their instruments,
// filtered by the q substring.
func (h *Handler) SearchClients(c *gin.Context) {
	clients, err := h.store.SearchClients(c.Request.Context(), auth.TenantID(c), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

type clientRequest struct {
	Name    string `json:"name" binding:"required"`
	Contact string `json:"contact"`
}

// CreateClient returns the client with the given identity, creating it
// when needed.
func (h *Handler) CreateClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	client, err := h.store.FindOrCreateClient(c.Request.Context(), auth.TenantID(c), req.Name, req.Contact)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// DeleteClient removes a client and its instruments.
func (h *Handler) DeleteClient(c *gin.Context) {
	if err := h.store.DeleteClient(c.Request.Context(), auth.TenantID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type instrumentRequest struct {
	Type         string `json:"type"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	SerialNumber string `json:"serialNumber"`
}

// AddInstrument registers an instrument for a client.
func (h *Handler) AddInstrument(c *gin.Context) {
	var req instrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Type == "" && req.Brand == "" && req.Model == "" && req.SerialNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instrument has no identifying fields"})
		return
	}

	inst, err := h.store.AddInstrument(c.Request.Context(), auth.TenantID(c), c.Param("id"), model.Instrument{
		Type:         req.Type,
		Brand:        req.Brand,
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inst)
}

// DeleteInstrument removes an instrument.
func (h *Handler) DeleteInstrument(c *gin.Context) {
	if err := h.store.DeleteInstrument(c.Request.Context(), auth.TenantID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type transferRequest struct {
	ClientID string `json:"clientId" binding:"required"`
}

// TransferInstrument moves an instrument to another client of the tenant.
func (h *Handler) TransferInstrument(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	inst, err := h.store.TransferInstrument(c.Request.Context(), auth.TenantID(c), c.Param("id"), req.ClientID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}
