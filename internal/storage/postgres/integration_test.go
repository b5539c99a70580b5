//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"jamf_metrics/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_group_snapshots.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM group_snapshots")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM run_state")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func testReport(generatedAt time.Time) *domain.Report {
	return &domain.Report{
		Results: []domain.GroupCount{
			{GroupID: "10", Name: "All Macs", Count: 120},
			{GroupID: "20", Name: "Outdated OS", Count: 17},
			{GroupID: "30", Name: "No FileVault", Count: 4},
		},
		Total:       141,
		GeneratedAt: generatedAt,
	}
}

func (s *PostgresIntegrationSuite) TestSnapshotStore_InsertBatch() {
	store := NewSnapshotStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	err := store.InsertBatch(s.ctx, "jamf", testReport(now))
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM group_snapshots WHERE source_id = $1", "jamf")
	s.NoError(err)
	s.Equal(3, count)
}

func (s *PostgresIntegrationSuite) TestSnapshotStore_InsertBatch_Empty() {
	store := NewSnapshotStore(s.db)

	err := store.InsertBatch(s.ctx, "jamf", &domain.Report{})
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM group_snapshots")
	s.NoError(err)
	s.Equal(0, count)
}

func (s *PostgresIntegrationSuite) TestSnapshotStore_GetLatest_OrderPreserved() {
	store := NewSnapshotStore(s.db)
	earlier := time.Now().Add(-1 * time.Hour).Truncate(time.Microsecond)
	now := time.Now().Truncate(time.Microsecond)

	old := &domain.Report{
		Results:     []domain.GroupCount{{GroupID: "99", Name: "Stale Group", Count: 1}},
		Total:       1,
		GeneratedAt: earlier,
	}
	s.NoError(store.InsertBatch(s.ctx, "jamf", old))
	s.NoError(store.InsertBatch(s.ctx, "jamf", testReport(now)))

	counts, err := store.GetLatest(s.ctx, "jamf")
	s.NoError(err)
	s.Len(counts, 3)
	s.Equal("All Macs", counts[0].Name)
	s.Equal("Outdated OS", counts[1].Name)
	s.Equal("No FileVault", counts[2].Name)
	s.Equal(120, counts[0].Count)
}

func (s *PostgresIntegrationSuite) TestSnapshotStore_GetLatest_IsolatesSources() {
	store := NewSnapshotStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	s.NoError(store.InsertBatch(s.ctx, "jamf", testReport(now)))

	counts, err := store.GetLatest(s.ctx, "other")
	s.NoError(err)
	s.Len(counts, 0)
}

func (s *PostgresIntegrationSuite) TestRunStateStore_GetNew() {
	store := NewRunStateStore(s.db)

	state, err := store.Get(s.ctx, "new-source")
	s.NoError(err)
	s.NotNil(state)
	s.Equal("new-source", state.SourceID)
	s.True(state.LastRunAt.IsZero())
	s.Equal(int64(0), state.TotalRuns)
}

func (s *PostgresIntegrationSuite) TestRunStateStore_UpdateAndGet() {
	store := NewRunStateStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	state := &domain.RunState{
		SourceID:     "jamf",
		LastRunAt:    now,
		TotalRuns:    5,
		TotalDevices: 141,
	}
	err := store.Update(s.ctx, state)
	s.NoError(err)

	retrieved, err := store.Get(s.ctx, "jamf")
	s.NoError(err)
	s.Equal("jamf", retrieved.SourceID)
	s.Equal(int64(5), retrieved.TotalRuns)
	s.Equal(int64(141), retrieved.TotalDevices)
	s.WithinDuration(now, retrieved.LastRunAt, time.Second)
}

func (s *PostgresIntegrationSuite) TestRunStateStore_UpdateExisting() {
	store := NewRunStateStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	state := &domain.RunState{
		SourceID:     "jamf",
		LastRunAt:    now,
		TotalRuns:    1,
		TotalDevices: 100,
	}
	s.NoError(store.Update(s.ctx, state))

	state.TotalRuns = 2
	state.TotalDevices = 120
	s.NoError(store.Update(s.ctx, state))

	retrieved, err := store.Get(s.ctx, "jamf")
	s.NoError(err)
	s.Equal(int64(2), retrieved.TotalRuns)
	s.Equal(int64(120), retrieved.TotalDevices)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	store := NewSnapshotStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		return store.InsertBatch(ctx, "jamf", testReport(now))
	})
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM group_snapshots")
	s.NoError(err)
	s.Equal(3, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	store := NewSnapshotStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := store.InsertBatch(ctx, "jamf", testReport(now)); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM group_snapshots")
	s.NoError(err)
	s.Equal(0, count)
}
