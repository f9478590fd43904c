package handlers

import (
	"errors"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"netmon-dashboard/backend/services"
)

// SetupCaptureRoutes registers the live capture routes
func (h *Handler) SetupCaptureRoutes(router fiber.Router) {
	pcap := router.Group("/pcap")

	pcap.Post("/start", h.StartCapture)
	pcap.Post("/stop", h.StopCapture)
	pcap.Get("/status", h.GetCaptureStatus)
	pcap.Get("/files", h.ListCaptureFiles)
	pcap.Get("/files/:filename", h.DownloadCaptureFile)
	pcap.Delete("/files/:filename", h.DeleteCaptureFile)
}

type StartCaptureRequest struct {
	Duration int `json:"duration"` // Seconds
}

// StartCapture starts recording the generated packet stream
func (h *Handler) StartCapture(c *fiber.Ctx) error {
	if h.Capture == nil {
		return unavailable(c, "Capture service")
	}

	var req StartCaptureRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	filename, err := h.Capture.StartCapture(time.Duration(req.Duration) * time.Second)
	if errors.Is(err, services.ErrCaptureInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	h.Events.Add(services.EventInfo, "Capture started: %s", filename)
	return c.JSON(fiber.Map{
		"message":  "Capture started",
		"filename": filename,
	})
}

func (h *Handler) StopCapture(c *fiber.Ctx) error {
	if h.Capture == nil {
		return unavailable(c, "Capture service")
	}
	if err := h.Capture.StopCapture(); err != nil {
		if errors.Is(err, services.ErrNoCapture) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Capture stopped"})
}

func (h *Handler) GetCaptureStatus(c *fiber.Ctx) error {
	if h.Capture == nil {
		return unavailable(c, "Capture service")
	}
	return c.JSON(h.Capture.GetStatus())
}

func (h *Handler) ListCaptureFiles(c *fiber.Ctx) error {
	if h.Capture == nil {
		return unavailable(c, "Capture service")
	}
	files, err := h.Capture.GetCaptureFiles()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(files)
}

func (h *Handler) DownloadCaptureFile(c *fiber.Ctx) error {
	if h.Capture == nil {
		return unavailable(c, "Capture service")
	}
	fullPath, err := h.Capture.CaptureFilePath(c.Params("filename"))
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Invalid file path"})
	}
	if _, err := os.Stat(fullPath); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "File not found"})
	}

	return c.Download(fullPath)
}

func (h *Handler) DeleteCaptureFile(c *fiber.Ctx) error {
	if h.Capture == nil {
		return unavailable(c, "Capture service")
	}
	if err := h.Capture.DeleteCaptureFile(c.Params("filename")); err != nil {
		switch {
		case errors.Is(err, services.ErrCaptureInProgress):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, os.ErrNotExist):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "File not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "File deleted"})
}
