package services

import (
	"context"
	"sync"
	"time"

	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/system"
)

const notifyTimeout = 15 * time.Second

// AlertNotifier forwards generated alerts to the Discord webhook. Alerts
// below the minimum severity are ignored, and each alert type is sent at
// most once per cooldown.
type AlertNotifier struct {
	webhook *WebhookService
	geoip   *GeoIPService
	queue   chan models.SecurityAlert
	now     func() time.Time

	mu          sync.Mutex
	enabled     bool
	minSeverity models.Severity
	cooldown    time.Duration
	lastSent    map[models.AlertType]time.Time

	stopChan chan struct{}
	done     chan struct{}
}

func NewAlertNotifier(webhook *WebhookService, geoip *GeoIPService) *AlertNotifier {
	return &AlertNotifier{
		webhook:     webhook,
		geoip:       geoip,
		queue:       make(chan models.SecurityAlert, 64),
		now:         time.Now,
		enabled:     true,
		minSeverity: models.SeverityMedium,
		cooldown:    time.Minute,
		lastSent:    make(map[models.AlertType]time.Time),
	}
}

// Configure applies the notification settings, including the webhook URL.
func (n *AlertNotifier) Configure(s models.MonitorSettings) {
	n.webhook.SetWebhookURL(s.DiscordWebhookURL)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = s.AlertOnAlert
	if sev := models.Severity(s.MinAlertSeverity); sev.Rank() > 0 {
		n.minSeverity = sev
	}
	if s.AlertCooldownSecs >= 0 {
		n.cooldown = time.Duration(s.AlertCooldownSecs) * time.Second
	}
}

// Notify is an alert subscriber. It never blocks the caller.
func (n *AlertNotifier) Notify(alert models.SecurityAlert) {
	if !n.webhook.IsEnabled() || !n.admit(alert) {
		return
	}
	select {
	case n.queue <- alert:
		n.markSent(alert.Type)
	default:
		system.Warn("Alert notification queue full, dropping %s", alert.ID)
	}
}

// admit applies the severity filter and the per-type cooldown.
func (n *AlertNotifier) admit(alert models.SecurityAlert) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled || alert.Severity.Rank() < n.minSeverity.Rank() {
		return false
	}
	if last, ok := n.lastSent[alert.Type]; ok && n.now().Sub(last) < n.cooldown {
		return false
	}
	return true
}

// markSent starts the cooldown for an alert type once its alert is queued.
func (n *AlertNotifier) markSent(t models.AlertType) {
	n.mu.Lock()
	n.lastSent[t] = n.now()
	n.mu.Unlock()
}

// Start launches the delivery goroutine.
func (n *AlertNotifier) Start() {
	n.mu.Lock()
	if n.stopChan != nil {
		n.mu.Unlock()
		return
	}
	n.stopChan = make(chan struct{})
	n.done = make(chan struct{})
	stopChan, done := n.stopChan, n.done
	n.mu.Unlock()

	go func() {
		defer close(done)
		system.Info("Alert notifier started")
		for {
			select {
			case alert := <-n.queue:
				n.deliver(alert)
			case <-stopChan:
				system.Info("Alert notifier stopped")
				return
			}
		}
	}()
}

func (n *AlertNotifier) Stop() {
	n.mu.Lock()
	if n.stopChan == nil {
		n.mu.Unlock()
		return
	}
	close(n.stopChan)
	done := n.done
	n.stopChan = nil
	n.mu.Unlock()
	<-done
}

func (n *AlertNotifier) deliver(alert models.SecurityAlert) {
	countryName, countryCode := unknownCountryName, unknownCountryCode
	if n.geoip != nil {
		countryName, countryCode = n.geoip.GetCountry(alert.SourceIP)
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := n.webhook.SendSecurityAlert(ctx, alert, countryName, countryCode); err != nil {
		system.Warn("Failed to send alert %s: %v", alert.ID, err)
	}
}
