package stats

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// NoData replaces the value of any period whose fetch failed
const NoData = "no data for this period"

// MonthsPerYear is the fan-out width of a yearly statistics load
const MonthsPerYear = 12

// FetchFunc loads the value for one period
type FetchFunc func(ctx context.Context, period int) (string, error)

// SlotFailure is reported for each period that fell back to NoData
type SlotFailure func(period int, err error)

// FetchAllPeriods fetches periods 1..n concurrently. Every slot settles on
// its own: a failure only replaces that period's value with NoData and never
// cancels or affects the others. The result always has n entries.
func FetchAllPeriods(ctx context.Context, n int, fetchOne FetchFunc, onFailure SlotFailure) map[int]string {
	results := make(map[int]string, n)
	if n <= 0 {
		return results
	}

	var mu sync.Mutex
	set := func(period int, value string) {
		mu.Lock()
		results[period] = value
		mu.Unlock()
	}

	// plain Group, not WithContext: one slot failing must not cancel the rest
	var g errgroup.Group
	for period := 1; period <= n; period++ {
		g.Go(func() error {
			value, err := fetchSlot(ctx, period, fetchOne)
			if err != nil {
				if onFailure != nil {
					onFailure(period, err)
				}
				value = NoData
			}
			set(period, value)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fetchSlot turns a panic in fetchOne into a slot failure
func fetchSlot(ctx context.Context, period int, fetchOne FetchFunc) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return fetchOne(ctx, period)
}

type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("fetch panicked: %v", e.value)
}

// IsNoData reports whether value is the failure sentinel
func IsNoData(value string) bool {
	return value == NoData
}
