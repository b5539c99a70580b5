package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"jamf_metrics/internal/domain"
)

type GroupSource interface {
	ID() string
	Name() string
	FetchGroup(ctx context.Context, groupID string) (domain.GroupCount, error)
	FetchOSVersions(ctx context.Context) (domain.OSReport, error)
}

type SnapshotStore interface {
	InsertBatch(ctx context.Context, sourceID string, report *domain.Report) error
	GetLatest(ctx context.Context, sourceID string) ([]domain.GroupCount, error)
}

type RunStateStore interface {
	Get(ctx context.Context, sourceID string) (*domain.RunState, error)
	Update(ctx context.Context, state *domain.RunState) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, report *domain.Report, osReport *domain.OSReport) error
	Close() error
}

type Renderer interface {
	Render(report *domain.Report, osReport *domain.OSReport) error
}
