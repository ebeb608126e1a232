package migration

import (
	"context"
	"fmt"

	"github.com/safeview/safeviewdb/internal/domain"
)

// VerifyIntegrity independently re-loads each legacy document and compares
// its record count against the stored row count, for the three domains with
// a 1:1 legacy-record-to-row correspondence. Usage and time-limit data is
// excluded; its shape is not a flat count.
//
// A legacy count over raw entries can legitimately exceed the stored count
// of unique rows (duplicate watch entries collapse on migration); the
// discrepancy is surfaced, never silently reconciled.
func (e *Engine) VerifyIntegrity(ctx context.Context) (result *domain.IntegrityResult) {
	result = &domain.IntegrityResult{
		IsValid: true,
		Counts:  map[string]domain.IntegrityCount{},
	}

	defer func() {
		if r := recover(); r != nil {
			result.IsValid = false
			result.Errors = append(result.Errors, fmt.Sprintf("verification panicked: %v", r))
		}
	}()

	checks := []struct {
		table    string
		expected int
		count    func(context.Context) (int, error)
	}{
		{"sources", len(e.legacy.Sources()), e.sources.Count},
		{"view_records", len(e.legacy.WatchedVideos()), e.history.CountViewRecords},
		{"favorites", len(e.legacy.Favorites()), e.history.CountFavorites},
	}

	for _, check := range checks {
		actual, err := check.count(ctx)
		if err != nil {
			result.IsValid = false
			result.Errors = append(result.Errors, fmt.Sprintf("%s: count failed: %v", check.table, err))
			continue
		}

		result.Counts[check.table] = domain.IntegrityCount{Expected: check.expected, Actual: actual}
		if check.expected != actual {
			result.IsValid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: expected %d records, found %d", check.table, check.expected, actual))
		}
	}

	e.log.Info().Bool("valid", result.IsValid).Int("errors", len(result.Errors)).Msg("integrity verification finished")
	return result
}
