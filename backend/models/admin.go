package models

import (
	"time"
)

type Admin struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Username          string     `gorm:"unique;not null" json:"username"`
	Password          string     `gorm:"not null" json:"-"` // Stored hashed
	CreatedAt         time.Time  `json:"created_at"`
	FailedAttempts    int        `gorm:"default:0" json:"-"`
	LastFailedAttempt *time.Time `json:"-"`
	LockedUntil       *time.Time `json:"-"`
}

// MonitorSettings holds the runtime-editable notification and retention options
type MonitorSettings struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Discord Webhook Notifications
	DiscordWebhookURL string `json:"discord_webhook_url,omitempty"`
	AlertOnAlert      bool   `gorm:"default:true" json:"alert_on_alert"`
	MinAlertSeverity  string `gorm:"default:'MEDIUM'" json:"min_alert_severity"` // LOW, MEDIUM, HIGH, CRITICAL
	AlertCooldownSecs int    `gorm:"default:60" json:"alert_cooldown_secs"`
	DailyReport       bool   `gorm:"default:true" json:"daily_report"`

	// Data Retention
	SnapshotHistoryDays int `gorm:"default:7" json:"snapshot_history_days"`
	AlertHistoryDays    int `gorm:"default:30" json:"alert_history_days"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultMonitorSettings returns the singleton settings row used before an operator saves any.
func DefaultMonitorSettings() MonitorSettings {
	return MonitorSettings{
		ID:                  1,
		AlertOnAlert:        true,
		MinAlertSeverity:    string(SeverityMedium),
		AlertCooldownSecs:   60,
		DailyReport:         true,
		SnapshotHistoryDays: 7,
		AlertHistoryDays:    30,
	}
}
