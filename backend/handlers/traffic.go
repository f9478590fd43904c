package handlers

import (
	"github.com/gofiber/fiber/v2"

	"netmon-dashboard/backend/services"
)

const (
	defaultPacketLimit = 50
	defaultAlertLimit  = 20
)

func (h *Handler) monitorState(c *fiber.Ctx, status string) error {
	return c.JSON(fiber.Map{
		"status":       status,
		"isMonitoring": h.Monitor.IsMonitoring(),
	})
}

// StartMonitoring starts generation; repeated calls are harmless
func (h *Handler) StartMonitoring(c *fiber.Ctx) error {
	if !h.Monitor.IsMonitoring() {
		h.Monitor.StartMonitoring()
		h.Events.Add(services.EventSuccess, "Monitoring started")
	}
	return h.monitorState(c, "started")
}

func (h *Handler) StopMonitoring(c *fiber.Ctx) error {
	if h.Monitor.IsMonitoring() {
		h.Monitor.StopMonitoring()
		h.Events.Add(services.EventInfo, "Monitoring stopped")
	}
	return h.monitorState(c, "stopped")
}

// ClearData empties the live buffers and the sample series
func (h *Handler) ClearData(c *fiber.Ctx) error {
	h.Monitor.ClearData()
	h.Events.Add(services.EventInfo, "Monitor data cleared")
	return h.monitorState(c, "cleared")
}

func (h *Handler) GetMonitorStatus(c *fiber.Ctx) error {
	return c.JSON(h.Monitor.Status())
}

// GetPackets returns the newest packets first
// GET /api/packets?limit=50
func (h *Handler) GetPackets(c *fiber.Ctx) error {
	packets := h.Monitor.Packets()
	return c.JSON(packets[:clampLimit(c.QueryInt("limit", defaultPacketLimit), defaultPacketLimit, len(packets))])
}

// GetAlerts returns the newest alerts first, optionally only the last 24 hours
// GET /api/alerts?limit=20&recent=1
func (h *Handler) GetAlerts(c *fiber.Ctx) error {
	alerts := h.Monitor.Alerts()
	if c.QueryBool("recent", false) {
		alerts = h.Monitor.RecentAlerts()
	}
	return c.JSON(alerts[:clampLimit(c.QueryInt("limit", defaultAlertLimit), defaultAlertLimit, len(alerts))])
}

func (h *Handler) GetProtocolStats(c *fiber.Ctx) error {
	return c.JSON(h.Monitor.ProtocolStats())
}

// GetTrafficData returns the per-second sample series, oldest first
func (h *Handler) GetTrafficData(c *fiber.Ctx) error {
	return c.JSON(h.Monitor.TrafficData())
}

func clampLimit(limit, fallback, available int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit > available {
		limit = available
	}
	return limit
}
