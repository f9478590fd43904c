package models

import (
	"time"
)

// TrafficSnapshot stores one persisted traffic sample for time-series analysis
type TrafficSnapshot struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Timestamp        time.Time `gorm:"index" json:"timestamp"`
	PacketsPerSecond int64     `json:"packets_per_second"`
	BytesPerSecond   int64     `json:"bytes_per_second"`
	TCPCount         int64     `json:"tcp_count"`
	UDPCount         int64     `json:"udp_count"`
	ICMPCount        int64     `json:"icmp_count"`
	HTTPCount        int64     `json:"http_count"` // HTTP + HTTPS
}

// NewTrafficSnapshot converts a live sample into its persisted form.
func NewTrafficSnapshot(s TrafficSample) TrafficSnapshot {
	return TrafficSnapshot{
		Timestamp:        s.SampledAt,
		PacketsPerSecond: int64(s.PacketsPerSecond),
		BytesPerSecond:   int64(s.BytesPerSecond),
		TCPCount:         int64(s.TCPCount),
		UDPCount:         int64(s.UDPCount),
		ICMPCount:        int64(s.ICMPCount),
		HTTPCount:        int64(s.HTTPCount),
	}
}

// AlertEvent records a generated security alert, enriched with the source country
type AlertEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AlertID     string    `gorm:"index" json:"alert_id"`
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
	Type        string    `gorm:"index" json:"type"`
	Severity    string    `gorm:"index" json:"severity"`
	SourceIP    string    `gorm:"index" json:"source_ip"`
	CountryCode string    `json:"country_code"`
	CountryName string    `json:"country_name"`
	Description string    `json:"description"`
	PacketCount int       `json:"packet_count"`
}

// NewAlertEvent converts a live alert into its persisted form.
func NewAlertEvent(a SecurityAlert, countryName, countryCode string) AlertEvent {
	return AlertEvent{
		AlertID:     a.ID,
		Timestamp:   a.Timestamp,
		Type:        string(a.Type),
		Severity:    string(a.Severity),
		SourceIP:    a.SourceIP,
		CountryCode: countryCode,
		CountryName: countryName,
		Description: a.Description,
		PacketCount: a.PacketCount,
	}
}

// AlertStats provides aggregated alert statistics
type AlertStats struct {
	TodayCount    int64  `json:"today_count"`
	WeekCount     int64  `json:"week_count"`
	MonthCount    int64  `json:"month_count"`
	TopAlertType  string `json:"top_alert_type"`
	TopCountry    string `json:"top_country"`
	TopSourceIP   string `json:"top_source_ip"`
	HighSeverity  int64  `json:"high_severity"`
	PeakPPS       int64  `json:"peak_pps"`
	TotalBytes24h int64  `json:"total_bytes_24h"`
}
