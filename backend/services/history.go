package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"gorm.io/gorm"

	"netmon-dashboard/backend/config"
	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/system"
)

// HistoryWriter persists traffic snapshots and alert events.
type HistoryWriter interface {
	Name() string
	WriteSnapshots(ctx context.Context, snapshots []models.TrafficSnapshot) error
	WriteAlerts(ctx context.Context, alerts []models.AlertEvent) error
}

// GormHistoryWriter stores history in the application database.
type GormHistoryWriter struct {
	db *gorm.DB
}

func NewGormHistoryWriter(db *gorm.DB) *GormHistoryWriter {
	return &GormHistoryWriter{db: db}
}

func (w *GormHistoryWriter) Name() string { return "sqlite" }

func (w *GormHistoryWriter) WriteSnapshots(ctx context.Context, snapshots []models.TrafficSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	if err := w.db.WithContext(ctx).CreateInBatches(snapshots, 100).Error; err != nil {
		return fmt.Errorf("failed to save traffic snapshots: %w", err)
	}
	return nil
}

func (w *GormHistoryWriter) WriteAlerts(ctx context.Context, alerts []models.AlertEvent) error {
	if len(alerts) == 0 {
		return nil
	}
	if err := w.db.WithContext(ctx).CreateInBatches(alerts, 100).Error; err != nil {
		return fmt.Errorf("failed to save alert events: %w", err)
	}
	return nil
}

// Prune deletes snapshots and alerts older than their cutoffs.
func (w *GormHistoryWriter) Prune(ctx context.Context, snapshotCutoff, alertCutoff time.Time) (int64, int64, error) {
	snaps := w.db.WithContext(ctx).Where("timestamp < ?", snapshotCutoff).Delete(&models.TrafficSnapshot{})
	if snaps.Error != nil {
		return 0, 0, fmt.Errorf("failed to prune traffic snapshots: %w", snaps.Error)
	}
	alerts := w.db.WithContext(ctx).Where("timestamp < ?", alertCutoff).Delete(&models.AlertEvent{})
	if alerts.Error != nil {
		return snaps.RowsAffected, 0, fmt.Errorf("failed to prune alert events: %w", alerts.Error)
	}
	return snaps.RowsAffected, alerts.RowsAffected, nil
}

const createSamplesTable = `
CREATE TABLE IF NOT EXISTS traffic_samples (
    Timestamp        DateTime64(3),
    PacketsPerSecond UInt32,
    BytesPerSecond   UInt64,
    TCPCount         UInt32,
    UDPCount         UInt32,
    ICMPCount        UInt32,
    HTTPCount        UInt32
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY Timestamp;
`

const createAlertsTable = `
CREATE TABLE IF NOT EXISTS security_alerts (
    Timestamp   DateTime64(3),
    AlertID     String,
    Type        LowCardinality(String),
    Severity    LowCardinality(String),
    SourceIP    String,
    CountryCode LowCardinality(String),
    Description String,
    PacketCount UInt32
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Type, Timestamp);
`

// ClickHouseHistoryWriter mirrors history into ClickHouse for long-range analysis.
type ClickHouseHistoryWriter struct {
	conn driver.Conn
}

// NewClickHouseHistoryWriter connects and ensures both tables exist.
func NewClickHouseHistoryWriter(ctx context.Context, cfg config.ClickHouseConfig) (*ClickHouseHistoryWriter, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	for _, stmt := range []string{createSamplesTable, createAlertsTable} {
		if err := conn.Exec(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	system.Info("Connected to ClickHouse at %s:%d", cfg.Host, cfg.Port)

	return &ClickHouseHistoryWriter{conn: conn}, nil
}

func (w *ClickHouseHistoryWriter) Name() string { return "clickhouse" }

func (w *ClickHouseHistoryWriter) WriteSnapshots(ctx context.Context, snapshots []models.TrafficSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO traffic_samples")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, s := range snapshots {
		err := batch.Append(
			s.Timestamp,
			uint32(s.PacketsPerSecond),
			uint64(s.BytesPerSecond),
			uint32(s.TCPCount),
			uint32(s.UDPCount),
			uint32(s.ICMPCount),
			uint32(s.HTTPCount),
		)
		if err != nil {
			return fmt.Errorf("failed to append sample to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (w *ClickHouseHistoryWriter) WriteAlerts(ctx context.Context, alerts []models.AlertEvent) error {
	if len(alerts) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO security_alerts")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, a := range alerts {
		err := batch.Append(
			a.Timestamp,
			a.AlertID,
			a.Type,
			a.Severity,
			a.SourceIP,
			a.CountryCode,
			a.Description,
			uint32(a.PacketCount),
		)
		if err != nil {
			return fmt.Errorf("failed to append alert to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (w *ClickHouseHistoryWriter) Close() error {
	return w.conn.Close()
}
