package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"luthier-backend/internal/auth"
	"luthier-backend/internal/metrics"
	"luthier-backend/internal/notification"
	"luthier-backend/internal/parse"
	"luthier-backend/internal/record"
	"luthier-backend/internal/report"
)

func documents(records []record.ServiceRecord) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, r.Document())
	}
	return out
}

// ListRecords returns the tenant's records, optionally restricted to the
// start/end date window.
func (h *Handler) ListRecords(c *gin.Context) {
	rng, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, err := h.store.ListRecords(c.Request.Context(), auth.TenantID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, documents(metrics.Filter(records, rng)))
}

// GetRecord returns one record.
func (h *Handler) GetRecord(c *gin.Context) {
	rec, err := h.store.GetRecord(c.Request.Context(), auth.TenantID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec.Document())
}

// CreateRecord stores a new record from a document in any accepted shape
// and registers its client and instrument.
func (h *Handler) CreateRecord(c *gin.Context) {
	var doc map[string]any
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	tenantID := auth.TenantID(c)
	rec := record.Normalize(doc)
	rec.ID = ""

	rec, err := h.store.CreateRecord(c.Request.Context(), tenantID, rec)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if _, err := h.store.RegisterIntake(c.Request.Context(), tenantID, rec); err != nil {
		h.log.Warn("failed to register intake", zap.String("record_id", rec.ID), zap.Error(err))
	}
	h.invalidate(c)
	c.JSON(http.StatusCreated, rec.Document())
}

// UpdateRecord replaces a record. The creation timestamp is kept when the
// document omits it.
func (h *Handler) UpdateRecord(c *gin.Context) {
	var doc map[string]any
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	ctx := c.Request.Context()
	tenantID := auth.TenantID(c)

	prev, err := h.store.GetRecord(ctx, tenantID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	rec := record.Normalize(doc)
	rec.ID = prev.ID
	if rec.CreatedAt == nil {
		rec.CreatedAt = prev.CreatedAt
	}

	rec, err = h.store.UpdateRecord(ctx, tenantID, rec)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.afterStatusChange(c, prev, rec)
	h.invalidate(c)
	c.JSON(http.StatusOK, rec.Document())
}

// DeleteRecord removes a record.
func (h *Handler) DeleteRecord(c *gin.Context) {
	if err := h.store.DeleteRecord(c.Request.Context(), auth.TenantID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidate(c)
	c.Status(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PatchStatus moves a record through the workflow. Both status tags and
// the shop's phrases are accepted.
func (h *Handler) PatchStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	status := record.CanonicalStatus(req.Status)
	if status == record.StatusUnknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown status %q", req.Status)})
		return
	}

	ctx := c.Request.Context()
	tenantID := auth.TenantID(c)
	prev, err := h.store.GetRecord(ctx, tenantID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	rec := prev
	rec.SetStatus(status)
	if status == record.StatusDelivered && rec.DeliveryDate == nil {
		now := time.Now().UTC()
		rec.DeliveryDate = &now
	}

	rec, err = h.store.UpdateRecord(ctx, tenantID, rec)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.afterStatusChange(c, prev, rec)
	h.invalidate(c)
	c.JSON(http.StatusOK, rec.Document())
}

type deliverRequest struct {
	DeliveryDate   string `json:"deliveryDate"`
	WorkPerformed  string `json:"workPerformed"`
	Upgrades       string `json:"upgrades"`
	Other          string `json:"other"`
	StringsApplied string `json:"stringsApplied"`
	Tuning         string `json:"tuning"`
	Action12LowE   string `json:"action12LowE"`
	Action12HighE  string `json:"action12HighE"`
	Action1Fret    string `json:"action1Fret"`
	PickupHeight   string `json:"pickupHeight"`
}

// Deliver fills in the delivery sheet, marks the record delivered and adds
// the setup to the instrument's history.
func (h *Handler) Deliver(c *gin.Context) {
	var req deliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	tenantID := auth.TenantID(c)
	rec, err := h.store.GetRecord(ctx, tenantID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	delivered := time.Now().UTC()
	if strings.TrimSpace(req.DeliveryDate) != "" {
		d, ok := parse.Date(req.DeliveryDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deliveryDate"})
			return
		}
		delivered = d
	}
	rec.DeliveryDate = &delivered
	setIfPresent(&rec.WorkPerformed, req.WorkPerformed)
	setIfPresent(&rec.Upgrades, req.Upgrades)
	setIfPresent(&rec.Other, req.Other)
	setIfPresent(&rec.Setup.StringsApplied, req.StringsApplied)
	setIfPresent(&rec.Setup.Tuning, req.Tuning)
	setIfPresent(&rec.Setup.Action12LowE, req.Action12LowE)
	setIfPresent(&rec.Setup.Action12HighE, req.Action12HighE)
	setIfPresent(&rec.Setup.Action1Fret, req.Action1Fret)
	setIfPresent(&rec.Setup.PickupHeight, req.PickupHeight)
	rec.SetStatus(record.StatusDelivered)

	rec, err = h.store.UpdateRecord(ctx, tenantID, rec)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if _, err := h.store.AppendSetupHistory(ctx, tenantID, rec); err != nil {
		h.log.Warn("failed to append setup history", zap.String("record_id", rec.ID), zap.Error(err))
	}
	h.invalidate(c)
	c.JSON(http.StatusOK, rec.Document())
}

func setIfPresent(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// afterStatusChange notifies when a record has just become ready for
// delivery.
func (h *Handler) afterStatusChange(c *gin.Context, prev, rec record.ServiceRecord) {
	if h.pool == nil {
		return
	}
	if rec.CanonicalStatus() != record.StatusReadyForDelivery || prev.CanonicalStatus() == record.StatusReadyForDelivery {
		return
	}
	tenantID := auth.TenantID(c)
	profile, err := h.store.GetProfile(c.Request.Context(), tenantID)
	if err != nil {
		h.log.Warn("failed to load profile for notification", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	h.pool.Dispatch(notification.ReadyJob(tenantID, rec, profile, h.countryCode))
}

// Report renders the intake or delivery PDF of a record.
func (h *Handler) Report(c *gin.Context) {
	kind, err := report.ParseKind(c.DefaultQuery("kind", string(report.KindIntake)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	tenantID := auth.TenantID(c)
	rec, err := h.store.GetRecord(ctx, tenantID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	profile, err := h.store.GetProfile(ctx, tenantID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	artifact, err := h.reports.Build(kind, rec, profile)
	if err != nil {
		if errors.Is(err, report.ErrProfileNotReady) {
			c.JSON(http.StatusConflict, gin.H{"error": "issuer profile is not configured"})
			return
		}
		h.respondError(c, err)
		return
	}
	sendArtifact(c, artifact)
}

// ExportRecords downloads the service history as a spreadsheet.
func (h *Handler) ExportRecords(c *gin.Context) {
	rng, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, err := h.store.ListRecords(c.Request.Context(), auth.TenantID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	artifact, err := report.ExportHistory(metrics.Filter(records, rng))
	if err != nil {
		h.respondError(c, err)
		return
	}
	sendArtifact(c, artifact)
}

func sendArtifact(c *gin.Context, a report.Artifact) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
	c.Data(http.StatusOK, a.ContentType, a.Data)
}

// WhatsAppLink returns the click-to-chat link announcing that the record is
// ready, worded with the shop's template.
func (h *Handler) WhatsAppLink(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := auth.TenantID(c)
	rec, err := h.store.GetRecord(ctx, tenantID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	profile, err := h.store.GetProfile(ctx, tenantID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var template string
	if profile != nil {
		template = profile.NotificationTemplate
	}
	message := notification.Render(template, rec)
	link, err := notification.WhatsAppLink(rec.Contact, message, h.countryCode)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link, "message": message})
}
