package storage

import (
	"context"

	"libraryclient/internal/models"
)

// Archive keeps a local history of monthly statistics fetched from the backend
type Archive interface {
	// SaveMonthlyStatistics stores one snapshot per value. Later snapshots of
	// the same month supersede earlier ones.
	SaveMonthlyStatistics(ctx context.Context, stats []models.MonthlyStatistic) error

	// ListMonthlyStatistics returns the latest snapshot of each archived month
	// of year, ordered by month
	ListMonthlyStatistics(ctx context.Context, year int) ([]models.MonthlyStatistic, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
