package handlers

import (
	"github.com/gofiber/fiber/v2"

	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/services"
)

// SystemStatus represents the current backend state
type SystemStatus struct {
	services.SysInfo
	Monitor        models.MonitorStatus    `json:"monitor"`
	GeoIPDatabase  bool                    `json:"geoip_database"`
	HistoryDropped int64                   `json:"history_dropped"`
	Capture        *services.CaptureStatus `json:"capture,omitempty"`
	CaptureDir     string                  `json:"capture_dir,omitempty"`
	Events         []services.SystemEvent  `json:"events"`
}

// GetSystemStatus returns current system status
func (h *Handler) GetSystemStatus(c *fiber.Ctx) error {
	status := SystemStatus{
		SysInfo: h.SysInfo.Snapshot(),
		Monitor: h.Monitor.Status(),
		Events:  h.Events.List(),
	}
	if h.GeoIP != nil {
		status.GeoIPDatabase = h.GeoIP.HasDatabase()
	}
	if h.Recorder != nil {
		status.HistoryDropped = h.Recorder.Dropped()
	}
	if h.Capture != nil {
		capture := h.Capture.GetStatus()
		status.Capture = &capture
		status.CaptureDir = h.Capture.GetCaptureDir()
	}

	return c.JSON(status)
}

// GetEvents returns recent events, newest first
func (h *Handler) GetEvents(c *fiber.Ctx) error {
	return c.JSON(h.Events.List())
}
