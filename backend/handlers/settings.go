package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/services"
	"netmon-dashboard/backend/system"
)

// LoadSettings returns the stored settings row, creating it with defaults on first use.
func LoadSettings(db *gorm.DB) (models.MonitorSettings, error) {
	var settings models.MonitorSettings
	err := db.First(&settings, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.DefaultMonitorSettings()
		err = db.Create(&settings).Error
	}
	if err != nil {
		return settings, fmt.Errorf("failed to load monitor settings: %w", err)
	}
	return settings, nil
}

// ApplySettings pushes settings into the running services.
func (h *Handler) ApplySettings(s models.MonitorSettings) {
	if h.Notifier != nil {
		h.Notifier.Configure(s)
	} else if h.Webhook != nil {
		h.Webhook.SetWebhookURL(s.DiscordWebhookURL)
	}
	if h.Recorder != nil {
		h.Recorder.SetRetention(s.SnapshotHistoryDays, s.AlertHistoryDays)
	}
	if h.Reporter != nil {
		h.Reporter.SetEnabled(s.DailyReport)
	}
}

func (h *Handler) GetSettings(c *fiber.Ctx) error {
	settings, err := LoadSettings(h.DB)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(settings)
}

// UpdateSettings merges the request body over the stored settings.
// Fields missing from the body keep their current values.
func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	settings, err := LoadSettings(h.DB)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if err := c.BodyParser(&settings); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	settings.ID = 1
	settings.MinAlertSeverity = strings.ToUpper(settings.MinAlertSeverity)

	if err := validateSettings(settings); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.DB.Save(&settings).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	h.ApplySettings(settings)
	system.Info("Monitor settings updated: min severity=%s, cooldown=%ds", settings.MinAlertSeverity, settings.AlertCooldownSecs)
	h.Events.Add(services.EventSuccess, "Monitor settings applied")

	return c.JSON(fiber.Map{"message": "Settings applied successfully", "settings": settings})
}

func validateSettings(s models.MonitorSettings) error {
	if s.DiscordWebhookURL != "" && !strings.HasPrefix(s.DiscordWebhookURL, "https://") {
		return errors.New("discord_webhook_url must be an https URL")
	}
	if models.Severity(s.MinAlertSeverity).Rank() == 0 {
		return fmt.Errorf("unknown min_alert_severity %q", s.MinAlertSeverity)
	}
	if s.AlertCooldownSecs < 0 {
		return errors.New("alert_cooldown_secs must not be negative")
	}
	if s.SnapshotHistoryDays < 1 || s.AlertHistoryDays < 1 {
		return errors.New("history retention must be at least one day")
	}
	return nil
}

// TestWebhook sends a test notification to the configured Discord webhook
func (h *Handler) TestWebhook(c *fiber.Ctx) error {
	if h.Webhook == nil {
		return unavailable(c, "Webhook service")
	}

	// settings may have been saved since startup
	if settings, err := LoadSettings(h.DB); err == nil && settings.DiscordWebhookURL != "" {
		h.Webhook.SetWebhookURL(settings.DiscordWebhookURL)
	}

	if !h.Webhook.IsEnabled() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Discord webhook URL not configured"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 15*time.Second)
	defer cancel()
	if err := h.Webhook.SendTestAlert(ctx); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Test notification sent successfully"})
}
