package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/system"
)

// DailyReporter sends a summary of the last 24 hours of history at local midnight
type DailyReporter struct {
	db      *gorm.DB
	webhook *WebhookService

	mu       sync.Mutex
	enabled  bool
	stopChan chan struct{}
}

func NewDailyReporter(db *gorm.DB, webhook *WebhookService) *DailyReporter {
	return &DailyReporter{
		db:      db,
		webhook: webhook,
		enabled: true,
	}
}

func (r *DailyReporter) SetEnabled(enabled bool) {
	r.mu.Lock()
	r.enabled = enabled
	r.mu.Unlock()
}

// Start schedules the report at every local midnight
func (r *DailyReporter) Start() {
	r.mu.Lock()
	if r.stopChan != nil {
		r.mu.Unlock()
		return
	}
	r.stopChan = make(chan struct{})
	stopChan := r.stopChan
	r.mu.Unlock()

	go func() {
		for {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
			system.Info("Next daily report scheduled in %v", next.Sub(now).Round(time.Second))

			timer := time.NewTimer(next.Sub(now))
			select {
			case <-timer.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := r.SendReport(ctx); err != nil {
					system.Warn("Daily report failed: %v", err)
				}
				cancel()
			case <-stopChan:
				timer.Stop()
				return
			}
		}
	}()
}

func (r *DailyReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopChan != nil {
		close(r.stopChan)
		r.stopChan = nil
	}
}

// DailySummary is the content of one report.
type DailySummary struct {
	Since       time.Time
	TotalBytes  int64
	PeakPPS     int64
	AlertCount  int64
	HighAlerts  int64
	TopType     string
	TopSourceIP string
	TopCountry  string
}

// Summarize aggregates persisted history since the given time.
func (r *DailyReporter) Summarize(ctx context.Context, since time.Time) (DailySummary, error) {
	summary := DailySummary{Since: since}
	db := r.db.WithContext(ctx)

	// one snapshot covers one second, so the byte rates sum to bytes
	var traffic struct {
		TotalBytes int64
		MaxPPS     int64
	}
	if err := db.Model(&models.TrafficSnapshot{}).
		Where("timestamp >= ?", since).
		Select("COALESCE(SUM(bytes_per_second), 0) as total_bytes, COALESCE(MAX(packets_per_second), 0) as max_pps").
		Scan(&traffic).Error; err != nil {
		return summary, fmt.Errorf("failed to aggregate traffic: %w", err)
	}
	summary.TotalBytes = traffic.TotalBytes
	summary.PeakPPS = traffic.MaxPPS

	if err := db.Model(&models.AlertEvent{}).Where("timestamp >= ?", since).Count(&summary.AlertCount).Error; err != nil {
		return summary, fmt.Errorf("failed to count alerts: %w", err)
	}
	if err := db.Model(&models.AlertEvent{}).
		Where("timestamp >= ? AND severity IN ?", since, []string{string(models.SeverityHigh), string(models.SeverityCritical)}).
		Count(&summary.HighAlerts).Error; err != nil {
		return summary, fmt.Errorf("failed to count high severity alerts: %w", err)
	}

	summary.TopType = topAlertValue(db, "type", since)
	summary.TopSourceIP = topAlertValue(db, "source_ip", since)
	summary.TopCountry = topAlertValue(db, "country_code", since)
	return summary, nil
}

// topAlertValue returns the most frequent value of column among recent alerts, or "None".
func topAlertValue(db *gorm.DB, column string, since time.Time) string {
	var top struct {
		Value string
		Count int64
	}
	db.Model(&models.AlertEvent{}).
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

// SendReport summarizes the last 24 hours and posts it to the webhook.
func (r *DailyReporter) SendReport(ctx context.Context) error {
	r.mu.Lock()
	enabled := r.enabled
	r.mu.Unlock()
	if !enabled || !r.webhook.IsEnabled() {
		return nil
	}

	system.Info("Generating daily traffic report...")
	summary, err := r.Summarize(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return err
	}
	title, desc := summary.Format()
	return r.webhook.SendSystemAlert(ctx, title, desc, ColorBlue)
}

// Format renders the summary as an embed title and description.
func (s DailySummary) Format() (string, string) {
	title := fmt.Sprintf("📊 Daily Traffic Report (%s)", s.Since.Format("2006-01-02"))
	desc := fmt.Sprintf("**Traffic Summary**\n"+
		"• Total Traffic: `%s`\n"+
		"• Peak Traffic: `%d PPS`\n\n"+
		"**Security Summary**\n"+
		"• Total Alerts: `%d`\n"+
		"• High Severity: `%d`\n"+
		"• Top Alert Type: `%s`\n"+
		"• Top Source: `%s` (%s)",
		formatBytes(s.TotalBytes), s.PeakPPS,
		s.AlertCount, s.HighAlerts, s.TopType, s.TopSourceIP, s.TopCountry)
	return title, desc
}

func formatBytes(bytes int64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	} else if bytes < 1024*1024 {
		return fmt.Sprintf("%.2f KB", float64(bytes)/1024.0)
	} else if bytes < 1024*1024*1024 {
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1024.0*1024.0))
	}
	return fmt.Sprintf("%.2f GB", float64(bytes)/(1024.0*1024.0*1024.0))
}
