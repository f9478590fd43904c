package handlers

import (
	"bytes"
	"strings"

	"github.com/gofiber/fiber/v2"

	"netmon-dashboard/backend/services"
	"netmon-dashboard/backend/system"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	pcapContentType = "application/vnd.tcpdump.pcap"
)

// ExportPackets downloads the packet buffer
// GET /api/export/packets?format=csv|json|pcap
func (h *Handler) ExportPackets(c *fiber.Ctx) error {
	packets := h.Monitor.Packets()
	now := h.now()
	format := strings.ToLower(c.Query("format", "csv"))

	var body []byte
	var contentType string
	switch format {
	case "csv":
		body = []byte(services.ExportPacketsCSV(packets))
		contentType = csvContentType
	case "json":
		data, err := services.ExportPacketsJSON(packets, now)
		if err != nil {
			return exportFailed(c, "packets", err)
		}
		body = data
		contentType = fiber.MIMEApplicationJSON
	case "pcap":
		var buf bytes.Buffer
		if err := services.WritePacketsPCAP(&buf, packets); err != nil {
			return exportFailed(c, "packets", err)
		}
		body = buf.Bytes()
		contentType = pcapContentType
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unsupported format: " + format})
	}

	h.Events.Add(services.EventInfo, "Exported %d packets as %s", len(packets), format)
	return sendAttachment(c, services.GenerateFilename("network_packets", format, now), contentType, body)
}

// ExportAlerts downloads the alert buffer
// GET /api/export/alerts?format=csv|json
func (h *Handler) ExportAlerts(c *fiber.Ctx) error {
	alerts := h.Monitor.Alerts()
	now := h.now()
	format := strings.ToLower(c.Query("format", "csv"))

	var body []byte
	var contentType string
	switch format {
	case "csv":
		body = []byte(services.ExportAlertsCSV(alerts))
		contentType = csvContentType
	case "json":
		data, err := services.ExportAlertsJSON(alerts, now)
		if err != nil {
			return exportFailed(c, "alerts", err)
		}
		body = data
		contentType = fiber.MIMEApplicationJSON
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unsupported format: " + format})
	}

	h.Events.Add(services.EventInfo, "Exported %d alerts as %s", len(alerts), format)
	return sendAttachment(c, services.GenerateFilename("security_alerts", format, now), contentType, body)
}

func sendAttachment(c *fiber.Ctx, filename, contentType string, body []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(body)
}

func exportFailed(c *fiber.Ctx, what string, err error) error {
	system.Error("Failed to export %s: %v", what, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Export failed: " + err.Error()})
}
