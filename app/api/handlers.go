package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rent-comb/app/tasks"
)

const (
	defaultRecordLimit = 50
	maxRecordLimit     = 500
)

func NewHandler(scheduler tasks.TaskSchedulerInterface, records RecordReader, version string) *Handler {
	return &Handler{
		scheduler: scheduler,
		records:   records,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	status := h.scheduler.GetStatus()

	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
		"profile":   status.Profile,
		"cycles":    status.Cycles,
	}

	if status.LastCycleAt != nil {
		health["last_cycle_at"] = status.LastCycleAt.In(time.Local).Format(time.RFC3339)
	}

	if count, err := h.records.Count(c.Request.Context()); err == nil {
		health["notified_total"] = count
	} else {
		slog.Error("Database error", "operation", "count_records", "error", err)
		health["store_error"] = err.Error()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	status := h.scheduler.GetStatus()

	c.JSON(http.StatusOK, gin.H{
		"profile":       status.Profile,
		"cycles":        status.Cycles,
		"failures":      status.Failures,
		"last_cycle_at": status.LastCycleAt,
		"last_duration": status.LastDuration.String(),
		"last_error":    status.LastError,
		"last_cycle":    status.LastReport,
		"totals":        status.Totals,
		"pending":       status.Pending,
		"cached":        len(status.Entries),
	})
}

func (h *Handler) APIListListings(c *gin.Context) {
	status := h.scheduler.GetStatus()

	listings := make([]gin.H, 0, len(status.Entries))
	for _, e := range status.Entries {
		listings = append(listings, gin.H{
			"lifecycle": e.Lifecycle.String(),
			"listing":   e.Listing,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"listings": listings,
		"total":    len(listings),
	})
}

func (h *Handler) APIListRecords(c *gin.Context) {
	limit := defaultRecordLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(n, maxRecordLimit)
	}

	records, err := h.records.List(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   len(records),
	})
}
