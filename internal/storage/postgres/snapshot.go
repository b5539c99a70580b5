package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"jamf_metrics/internal/domain"
)

type SnapshotStore struct {
	db *sqlx.DB
}

func NewSnapshotStore(db *sqlx.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// InsertBatch writes every group count of one run in a single statement,
// honoring a transaction carried in ctx.
func (s *SnapshotStore) InsertBatch(ctx context.Context, sourceID string, report *domain.Report) error {
	if len(report.Results) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO group_snapshots (source_id, group_id, name, device_count, generated_at) VALUES ")

	args := make([]interface{}, 0, len(report.Results)*3+2)
	args = append(args, sourceID, report.GeneratedAt)

	for i, r := range report.Results {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 3
		fmt.Fprintf(&sb, "($1, $%d, $%d, $%d, $2)", base+3, base+4, base+5)
		args = append(args, r.GroupID, r.Name, r.Count)
	}

	exec := GetExecutor(ctx, s.db)
	_, err := exec.ExecContext(ctx, sb.String(), args...)
	return err
}

// GetLatest returns the most recent run's counts for a source in the
// order they were captured.
func (s *SnapshotStore) GetLatest(ctx context.Context, sourceID string) ([]domain.GroupCount, error) {
	query := `
		SELECT group_id, name, device_count AS count
		FROM group_snapshots
		WHERE source_id = $1
		  AND generated_at = (
			SELECT MAX(generated_at) FROM group_snapshots WHERE source_id = $1
		  )
		ORDER BY id`

	var counts []domain.GroupCount
	err := s.db.SelectContext(ctx, &counts, query, sourceID)
	return counts, err
}
