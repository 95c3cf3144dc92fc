package stubs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"libraryclient/internal/models"
	"libraryclient/internal/storage"
)

// MockArchive is an in-memory implementation of the Archive interface for testing
type MockArchive struct {
	mu        sync.RWMutex
	snapshots []models.MonthlyStatistic
}

var _ storage.Archive = (*MockArchive)(nil)

// NewMockArchive creates a new mock archive
func NewMockArchive() *MockArchive {
	return &MockArchive{
		snapshots: make([]models.MonthlyStatistic, 0),
	}
}

// Initialize does nothing for the mock archive
func (m *MockArchive) Initialize(ctx context.Context) error {
	return nil
}

// SaveMonthlyStatistics appends the snapshots
func (m *MockArchive) SaveMonthlyStatistics(ctx context.Context, stats []models.MonthlyStatistic) error {
	for _, s := range stats {
		if s.Month < 1 || s.Month > 12 {
			return fmt.Errorf("invalid month %d for year %d", s.Month, s.Year)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, stats...)
	return nil
}

// ListMonthlyStatistics returns the newest snapshot per month of year
func (m *MockArchive) ListMonthlyStatistics(ctx context.Context, year int) ([]models.MonthlyStatistic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[int]models.MonthlyStatistic)
	for _, s := range m.snapshots {
		if s.Year != year {
			continue
		}
		if prev, ok := latest[s.Month]; !ok || !s.FetchedAt.Before(prev.FetchedAt) {
			latest[s.Month] = s
		}
	}

	stats := make([]models.MonthlyStatistic, 0, len(latest))
	for _, s := range latest {
		stats = append(stats, s)
	}

	// Sort by month
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Month < stats[j].Month
	})

	return stats, nil
}

// Close does nothing for the mock archive
func (m *MockArchive) Close() error {
	return nil
}
