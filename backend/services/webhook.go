package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/system"
)

// ErrWebhookDisabled is returned when no webhook URL is configured.
var ErrWebhookDisabled = errors.New("webhook not configured")

// WebhookService handles Discord webhook notifications
type WebhookService struct {
	mu         sync.RWMutex
	webhookURL string
	client     *http.Client
}

// DiscordEmbed represents a Discord embed object
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

// DiscordEmbedField represents a field in a Discord embed
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordWebhookPayload represents a Discord webhook message
type DiscordWebhookPayload struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds,omitempty"`
}

func NewWebhookService() *WebhookService {
	return &WebhookService{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetWebhookURL sets the Discord webhook URL. Empty disables notifications.
func (w *WebhookService) SetWebhookURL(url string) {
	w.mu.Lock()
	w.webhookURL = url
	w.mu.Unlock()
}

func (w *WebhookService) IsEnabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.webhookURL != ""
}

// Discord color constants
const (
	ColorRed    = 0xFF0000 // HIGH / CRITICAL
	ColorOrange = 0xFFAA00 // MEDIUM
	ColorYellow = 0xFFDD00 // LOW
	ColorGreen  = 0x00FF00
	ColorBlue   = 0x00AAFF // reports
)

const embedFooter = "Network Monitor"

// SeverityColor maps an alert severity to an embed color.
func SeverityColor(s models.Severity) int {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return ColorRed
	case models.SeverityMedium:
		return ColorOrange
	default:
		return ColorYellow
	}
}

// SendSecurityAlert posts a generated alert.
func (w *WebhookService) SendSecurityAlert(ctx context.Context, alert models.SecurityAlert, countryName, countryCode string) error {
	if !w.IsEnabled() {
		return nil
	}

	embed := DiscordEmbed{
		Title:       fmt.Sprintf("🚨 %s", alert.Type),
		Description: alert.Description,
		Color:       SeverityColor(alert.Severity),
		Fields: []DiscordEmbedField{
			{Name: "Severity", Value: string(alert.Severity), Inline: true},
			{Name: "Source IP", Value: fmt.Sprintf("`%s`", alert.SourceIP), Inline: true},
			{Name: "Country", Value: fmt.Sprintf("%s (%s)", countryName, countryCode), Inline: true},
			{Name: "Packets", Value: strconv.Itoa(alert.PacketCount), Inline: true},
			{Name: "Alert ID", Value: alert.ID, Inline: true},
		},
		Footer:    &DiscordEmbedFooter{Text: embedFooter},
		Timestamp: alert.Timestamp.UTC().Format(time.RFC3339),
	}

	return w.sendEmbed(ctx, embed)
}

// SendSystemAlert posts a free-form message.
func (w *WebhookService) SendSystemAlert(ctx context.Context, title, description string, color int) error {
	if !w.IsEnabled() {
		return nil
	}

	return w.sendEmbed(ctx, DiscordEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Footer:      &DiscordEmbedFooter{Text: embedFooter},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

// SendTestAlert sends a test notification to verify webhook connectivity
func (w *WebhookService) SendTestAlert(ctx context.Context) error {
	if !w.IsEnabled() {
		return ErrWebhookDisabled
	}

	embed := DiscordEmbed{
		Title:       "✅ Webhook Test",
		Description: "Discord webhook is configured correctly!",
		Color:       ColorGreen,
		Fields: []DiscordEmbedField{
			{Name: "Status", Value: "Connected", Inline: true},
			{Name: "Server Time", Value: time.Now().Format("2006-01-02 15:04:05"), Inline: true},
		},
		Footer:    &DiscordEmbedFooter{Text: embedFooter},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return w.sendEmbed(ctx, embed)
}

func (w *WebhookService) sendEmbed(ctx context.Context, embed DiscordEmbed) error {
	w.mu.RLock()
	url := w.webhookURL
	w.mu.RUnlock()

	payload := DiscordWebhookPayload{
		Username: "NetMon",
		Embeds:   []DiscordEmbed{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}

	system.Info("Discord webhook sent: %s", embed.Title)
	return nil
}
