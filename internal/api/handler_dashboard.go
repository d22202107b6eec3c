package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"luthier-backend/internal/auth"
	"luthier-backend/internal/metrics"
)

const dateLayout = "2006-01-02"

// parseRange reads the optional start and end query parameters. The range
// only filters when both are given.
func parseRange(c *gin.Context) (metrics.Range, error) {
	var rng metrics.Range
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"start", &rng.Start},
		{"end", &rng.End},
	} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return metrics.Range{}, fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", p.name, v)
		}
		*p.dst = &t
	}
	return rng, nil
}

// Dashboard returns the metrics of the records in the requested window.
func (h *Handler) Dashboard(c *gin.Context) {
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
	c.JSON(http.StatusOK, metrics.Aggregate(metrics.Filter(records, rng)))
}

// Rankings returns the n most frequent values of one field.
func (h *Handler) Rankings(c *gin.Context) {
	name := c.DefaultQuery("field", "instrumentType")
	field, ok := metrics.Fields[name]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown ranking field %q", name)})
		return
	}
	n := metrics.DefaultTopN
	if v := c.Query("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a positive integer"})
			return
		}
		n = parsed
	}
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
	c.JSON(http.StatusOK, gin.H{
		"field":   name,
		"entries": metrics.TopN(metrics.Filter(records, rng), field, n),
	})
}
