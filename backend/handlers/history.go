package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"netmon-dashboard/backend/models"
)

var historyRanges = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

// GetTrafficHistory returns persisted traffic samples for charts
// GET /api/history/traffic?range=1h|6h|24h|7d
func (h *Handler) GetTrafficHistory(c *fiber.Ctx) error {
	rangeParam := c.Query("range", "1h")
	window, ok := historyRanges[rangeParam]
	if !ok {
		rangeParam = "1h"
		window = time.Hour
	}
	since := h.now().Add(-window)

	var snapshots []models.TrafficSnapshot
	if err := h.DB.Where("timestamp > ?", since).Order("timestamp ASC").Find(&snapshots).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"range":     rangeParam,
		"count":     len(snapshots),
		"snapshots": snapshots,
	})
}

// GetAlertHistory returns persisted alerts, newest first
// GET /api/history/alerts?page=1&limit=50&type=&severity=
func (h *Handler) GetAlertHistory(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	alertType := c.Query("type", "")
	severity := strings.ToUpper(c.Query("severity", ""))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	offset := (page - 1) * limit

	query := h.DB.Model(&models.AlertEvent{})
	if alertType != "" {
		query = query.Where("type = ?", alertType)
	}
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}

	var total int64
	query.Count(&total)

	var events []models.AlertEvent
	if err := query.Order("timestamp DESC").Offset(offset).Limit(limit).Find(&events).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"page":   page,
		"limit":  limit,
		"total":  total,
		"alerts": events,
	})
}

// GetAlertStats aggregates persisted alerts and traffic
// GET /api/history/stats
func (h *Handler) GetAlertStats(c *fiber.Ctx) error {
	now := h.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayAgo := now.Add(-24 * time.Hour)

	var stats models.AlertStats
	alerts := func() *gorm.DB { return h.DB.Model(&models.AlertEvent{}) }

	alerts().Where("timestamp >= ?", today).Count(&stats.TodayCount)
	alerts().Where("timestamp >= ?", now.AddDate(0, 0, -7)).Count(&stats.WeekCount)
	alerts().Where("timestamp >= ?", now.AddDate(0, 0, -30)).Count(&stats.MonthCount)
	alerts().Where("timestamp >= ? AND severity IN ?", dayAgo,
		[]string{string(models.SeverityHigh), string(models.SeverityCritical)}).Count(&stats.HighSeverity)

	stats.TopAlertType = h.topAlertValue("type", dayAgo)
	stats.TopCountry = h.topAlertValue("country_code", dayAgo)
	stats.TopSourceIP = h.topAlertValue("source_ip", dayAgo)

	var traffic struct {
		TotalBytes int64
		MaxPPS     int64
	}
	if err := h.DB.Model(&models.TrafficSnapshot{}).
		Where("timestamp >= ?", dayAgo).
		Select("COALESCE(SUM(bytes_per_second), 0) as total_bytes, COALESCE(MAX(packets_per_second), 0) as max_pps").
		Scan(&traffic).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	stats.PeakPPS = traffic.MaxPPS
	stats.TotalBytes24h = traffic.TotalBytes

	return c.JSON(stats)
}

func (h *Handler) topAlertValue(column string, since time.Time) string {
	var top struct {
		Value string
		Count int64
	}
	h.DB.Model(&models.AlertEvent{}).
		Select(column+" as value, COUNT(*) as count").
		Where("timestamp >= ?", since).
		Group(column).
		Order("count DESC").
		Limit(1).
		Scan(&top)
	if top.Value == "" {
		return "None"
	}
	return top.Value
}
