package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"jamf_metrics/internal/domain"
)

type RunStateStore struct {
	db *sqlx.DB
}

func NewRunStateStore(db *sqlx.DB) *RunStateStore {
	return &RunStateStore{db: db}
}

func (s *RunStateStore) Get(ctx context.Context, sourceID string) (*domain.RunState, error) {
	var state domain.RunState
	query := `
		SELECT id, source_id, last_run_at, total_runs, total_devices
		FROM run_state
		WHERE source_id = $1`

	err := s.db.GetContext(ctx, &state, query, sourceID)
	if err == sql.ErrNoRows {
		// Return empty state for new sources
		return &domain.RunState{
			SourceID:  sourceID,
			LastRunAt: time.Time{},
			TotalRuns: 0,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *RunStateStore) Update(ctx context.Context, state *domain.RunState) error {
	query := `
		INSERT INTO run_state (source_id, last_run_at, total_runs, total_devices)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_id) DO UPDATE SET
			last_run_at = EXCLUDED.last_run_at,
			total_runs = EXCLUDED.total_runs,
			total_devices = EXCLUDED.total_devices`

	_, err := s.db.ExecContext(ctx, query,
		state.SourceID,
		state.LastRunAt,
		state.TotalRuns,
		state.TotalDevices,
	)
	return err
}
