package client

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"libraryclient/internal/models"
	"libraryclient/internal/stats"
)

var (
	// ErrArchiveDisabled is returned by StatisticsHistory without an archive
	ErrArchiveDisabled = errors.New("statistics archive is not enabled")
	// ErrInvalidMonth is returned for a month outside 1..12, before any request
	ErrInvalidMonth = errors.New("month must be between 1 and 12")
)

// MonthlyStatistic fetches one month. On failure the value is "".
func (s *Session) MonthlyStatistic(ctx context.Context, month, year int) (string, error) {
	token, err := s.authToken()
	if err != nil {
		return "", err
	}
	if month < 1 || month > stats.MonthsPerYear {
		return "", fmt.Errorf("%w: got %d", ErrInvalidMonth, month)
	}
	value, err := s.backend.MonthlyStatistic(ctx, token, month, year)
	if err != nil {
		return "", err
	}
	return value, nil
}

// MonthlyStatistics fetches all twelve months of year concurrently. A month
// that fails holds stats.NoData; the others are unaffected. Successful months
// are saved to the archive when one is configured.
func (s *Session) MonthlyStatistics(ctx context.Context, year int) (map[int]string, error) {
	token, err := s.authToken()
	if err != nil {
		return nil, err
	}

	values := stats.FetchAllPeriods(ctx, stats.MonthsPerYear,
		func(ctx context.Context, month int) (string, error) {
			return s.backend.MonthlyStatistic(ctx, token, month, year)
		},
		func(month int, err error) {
			s.metrics.SlotFailure()
			s.logger.Warn("Monthly statistic unavailable",
				zap.Int("year", year),
				zap.Int("month", month),
				zap.Error(err),
			)
		},
	)

	s.archiveStatistics(ctx, year, values)
	return values, nil
}

// archiveStatistics saves the non-sentinel values. Archive failures are
// logged only; they never affect the fetched values.
func (s *Session) archiveStatistics(ctx context.Context, year int, values map[int]string) {
	if s.archive == nil {
		return
	}

	fetchedAt := s.now().UTC()
	snapshots := make([]models.MonthlyStatistic, 0, len(values))
	for month, value := range values {
		if stats.IsNoData(value) {
			continue
		}
		snapshots = append(snapshots, models.MonthlyStatistic{
			Year:      year,
			Month:     month,
			Value:     value,
			FetchedAt: fetchedAt,
		})
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Month < snapshots[j].Month
	})

	if err := s.archive.SaveMonthlyStatistics(ctx, snapshots); err != nil {
		s.logger.Warn("Failed to archive monthly statistics", zap.Int("year", year), zap.Error(err))
	}
}

// StatisticsHistory returns the archived statistics of year
func (s *Session) StatisticsHistory(ctx context.Context, year int) ([]models.MonthlyStatistic, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.ListMonthlyStatistics(ctx, year)
}

// Dashboard fetches the admin dashboard counters
func (s *Session) Dashboard(ctx context.Context) (models.DashboardStatistics, error) {
	token, err := s.authToken()
	if err != nil {
		return models.DashboardStatistics{}, err
	}
	return s.backend.DashboardStatistics(ctx, token)
}
