package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"libraryclient/internal/models"
	"libraryclient/internal/storage"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type ClickHouseDB struct {
	conn clickhouse.Conn
}

var _ storage.Archive = (*ClickHouseDB)(nil)

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
		DialTimeout: 10 * time.Second,
	}

	if useTLS {
		options.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	return nil
}

// SaveMonthlyStatistics appends snapshots in a single batch
func (db *ClickHouseDB) SaveMonthlyStatistics(ctx context.Context, stats []models.MonthlyStatistic) error {
	if len(stats) == 0 {
		return nil
	}

	batch, err := db.conn.PrepareBatch(ctx, `INSERT INTO monthly_statistics (year, month, value, fetched_at)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statistics batch: %w", err)
	}
	for _, s := range stats {
		if s.Month < 1 || s.Month > 12 {
			_ = batch.Abort()
			return fmt.Errorf("invalid month %d for year %d", s.Month, s.Year)
		}
		if err := batch.Append(uint16(s.Year), uint8(s.Month), s.Value, s.FetchedAt.UTC()); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append statistic: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to save monthly statistics: %w", err)
	}
	return nil
}

// ListMonthlyStatistics returns the newest snapshot of every archived month of year
func (db *ClickHouseDB) ListMonthlyStatistics(ctx context.Context, year int) ([]models.MonthlyStatistic, error) {
	rows, err := db.conn.Query(ctx, `
		SELECT month, argMax(value, fetched_at), max(fetched_at)
		FROM monthly_statistics
		WHERE year = ?
		GROUP BY month
		ORDER BY month`, uint16(year))
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly statistics: %w", err)
	}
	defer rows.Close()

	var stats []models.MonthlyStatistic
	for rows.Next() {
		var (
			month     uint8
			value     string
			fetchedAt time.Time
		)
		if err := rows.Scan(&month, &value, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan monthly statistic: %w", err)
		}
		stats = append(stats, models.MonthlyStatistic{
			Year:      year,
			Month:     int(month),
			Value:     value,
			FetchedAt: fetchedAt.UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read monthly statistics: %w", err)
	}
	return stats, nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
