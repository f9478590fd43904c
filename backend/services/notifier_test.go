package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"netmon-dashboard/backend/models"
)

func newWebhookServer(t *testing.T) (*httptest.Server, chan DiscordWebhookPayload) {
	t.Helper()
	received := make(chan DiscordWebhookPayload, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload DiscordWebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad webhook body: %v", err)
		}
		received <- payload
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, received
}

func TestAlertNotifierFiltersAndDelivers(t *testing.T) {
	srv, received := newWebhookServer(t)

	n := NewAlertNotifier(NewWebhookService(), NewGeoIPService(""))
	n.Configure(models.MonitorSettings{
		DiscordWebhookURL: srv.URL,
		AlertOnAlert:      true,
		MinAlertSeverity:  "MEDIUM",
		AlertCooldownSecs: 0,
	})
	n.Start()
	defer n.Stop()

	n.Notify(models.SecurityAlert{ID: "alert_1", Type: models.AlertUnusualTraffic, Severity: models.SeverityLow, SourceIP: "10.0.0.1"})
	n.Notify(models.SecurityAlert{ID: "alert_2", Type: models.AlertDOSAttack, Severity: models.SeverityHigh, SourceIP: "8.8.8.8",
		Description: "High volume of packets detected from single source", PacketCount: 700, Timestamp: time.Now()})

	select {
	case payload := <-received:
		if len(payload.Embeds) != 1 {
			t.Fatalf("embeds = %d", len(payload.Embeds))
		}
		embed := payload.Embeds[0]
		if embed.Title != "🚨 DOS_ATTACK" || embed.Color != ColorRed {
			t.Errorf("embed = %+v", embed)
		}
		if embed.Fields[2].Value != "United States (US)" {
			t.Errorf("country field = %s", embed.Fields[2].Value)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("webhook not called")
	}

	select {
	case payload := <-received:
		t.Fatalf("unexpected second notification: %+v", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAlertNotifierCooldown(t *testing.T) {
	n := NewAlertNotifier(NewWebhookService(), nil)
	n.Configure(models.MonitorSettings{DiscordWebhookURL: "https://discord.invalid/hook", AlertOnAlert: true, MinAlertSeverity: "LOW", AlertCooldownSecs: 60})

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return clock }

	alert := models.SecurityAlert{Type: models.AlertPortScan, Severity: models.SeverityMedium}
	n.Notify(alert)
	if len(n.queue) != 1 {
		t.Fatal("first alert should be queued")
	}
	n.Notify(alert)
	if len(n.queue) != 1 {
		t.Fatal("repeat within cooldown should be suppressed")
	}
	n.Notify(models.SecurityAlert{Type: models.AlertDOSAttack, Severity: models.SeverityHigh})
	if len(n.queue) != 2 {
		t.Fatal("cooldown is per alert type")
	}

	clock = clock.Add(61 * time.Second)
	n.Notify(alert)
	if len(n.queue) != 3 {
		t.Fatal("alert after cooldown should be queued")
	}
}

func TestAlertNotifierDroppedAlertKeepsCooldownFree(t *testing.T) {
	n := NewAlertNotifier(NewWebhookService(), nil)
	n.Configure(models.MonitorSettings{DiscordWebhookURL: "https://discord.invalid/hook", AlertOnAlert: true, MinAlertSeverity: "LOW", AlertCooldownSecs: 60})
	n.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	queue := n.queue
	n.queue = make(chan models.SecurityAlert) // no reader: every send fails

	alert := models.SecurityAlert{ID: "alert_1", Type: models.AlertUnusualTraffic, Severity: models.SeverityLow}
	n.Notify(alert)
	if _, ok := n.lastSent[alert.Type]; ok {
		t.Fatal("dropped alert started the cooldown")
	}

	n.queue = queue
	alert.ID = "alert_2"
	n.Notify(alert)
	if len(n.queue) != 1 {
		t.Fatal("alert after a dropped one should be queued")
	}
	if got := <-n.queue; got.ID != "alert_2" {
		t.Fatalf("queued %s, want alert_2", got.ID)
	}
}

func TestAlertNotifierDisabled(t *testing.T) {
	n := NewAlertNotifier(NewWebhookService(), nil)
	n.Configure(models.MonitorSettings{AlertOnAlert: false, MinAlertSeverity: "LOW"})

	if n.admit(models.SecurityAlert{Type: models.AlertDOSAttack, Severity: models.SeverityHigh}) {
		t.Fatal("disabled notifier admitted an alert")
	}
}

func TestWebhookTestAlertRequiresURL(t *testing.T) {
	w := NewWebhookService()
	if err := w.SendTestAlert(t.Context()); err != ErrWebhookDisabled {
		t.Fatalf("err = %v, want ErrWebhookDisabled", err)
	}
}
