package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"netmon-dashboard/backend/services"
)

// Handler carries the services the HTTP API reads from and commands.
// Optional services may be left nil; their routes answer 503.
type Handler struct {
	DB      *gorm.DB
	Monitor *services.NetworkMonitor
	Events  *services.EventLog

	Webhook  *services.WebhookService
	Notifier *services.AlertNotifier
	Recorder *services.HistoryRecorder
	Reporter *services.DailyReporter
	Capture  *services.CaptureService
	SysInfo  *services.SysInfoService
	GeoIP    *services.GeoIPService

	JWTSecret []byte
	TokenTTL  time.Duration

	now func() time.Time
}

func NewHandler(db *gorm.DB, monitor *services.NetworkMonitor, events *services.EventLog, jwtSecret string, tokenTTL time.Duration) *Handler {
	if events == nil {
		events = services.NewEventLog(services.DefaultEventLogSize)
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Handler{
		DB:        db,
		Monitor:   monitor,
		Events:    events,
		SysInfo:   services.NewSysInfoService(),
		JWTSecret: []byte(jwtSecret),
		TokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// RegisterRoutes mounts the public and protected API on router (normally /api).
func (h *Handler) RegisterRoutes(api fiber.Router) {
	api.Post("/login", h.Login)

	protected := api.Group("", JWTAuthMiddleware(h.JWTSecret))

	// Live monitor
	protected.Post("/monitor/start", h.StartMonitoring)
	protected.Post("/monitor/stop", h.StopMonitoring)
	protected.Post("/monitor/clear", h.ClearData)
	protected.Get("/monitor/status", h.GetMonitorStatus)
	protected.Get("/packets", h.GetPackets)
	protected.Get("/alerts", h.GetAlerts)
	protected.Get("/stats/protocols", h.GetProtocolStats)
	protected.Get("/traffic", h.GetTrafficData)

	// Export
	protected.Get("/export/packets", h.ExportPackets)
	protected.Get("/export/alerts", h.ExportAlerts)

	// History
	protected.Get("/history/traffic", h.GetTrafficHistory)
	protected.Get("/history/alerts", h.GetAlertHistory)
	protected.Get("/history/stats", h.GetAlertStats)

	// Settings
	protected.Get("/settings", h.GetSettings)
	protected.Put("/settings", h.UpdateSettings)
	protected.Post("/webhook/test", h.TestWebhook)

	// Users
	protected.Put("/auth/password", h.ChangePassword)
	protected.Get("/users", h.GetUsers)
	protected.Post("/users", h.CreateUser)
	protected.Delete("/users/:id", h.DeleteUser)

	// Status
	protected.Get("/events", h.GetEvents)
	protected.Get("/system/status", h.GetSystemStatus)

	h.SetupCaptureRoutes(protected)
}

func unavailable(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": what + " not available"})
}
