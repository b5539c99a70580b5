package service

import (
	"context"
	"errors"
	"fmt"

	"jamf_metrics/internal/domain"
)

// FetchFunc resolves one group identifier to its name and count.
type FetchFunc func(ctx context.Context, groupID string) (domain.GroupCount, error)

// Aggregate fetches each group in input order and folds the successes
// into a Report. A group whose fetch fails with domain.ErrGroupUnavailable
// is dropped without an entry; results keep the input's relative order and
// duplicates are fetched and counted independently. Any other fetch error
// aborts the run and propagates.
func Aggregate(ctx context.Context, groupIDs []string, fetch FetchFunc) (domain.Report, error) {
	report := domain.Report{
		Results: make([]domain.GroupCount, 0, len(groupIDs)),
	}

	for _, id := range groupIDs {
		gc, err := fetch(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrGroupUnavailable) {
				continue
			}
			return domain.Report{}, fmt.Errorf("fetch group %s: %w", id, err)
		}

		report.Results = append(report.Results, gc)
		report.Total += gc.Count
	}

	return report, nil
}
