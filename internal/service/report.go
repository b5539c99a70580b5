package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jamf_metrics/internal/config"
	"jamf_metrics/internal/domain"
)

// ReportService runs one membership report end to end: aggregate the
// configured groups, optionally add the OS-version breakdown, render,
// persist, publish. Snapshot store, publisher and renderer may each be
// nil; the run then simply skips that step.
type ReportService struct {
	source    GroupSource
	snapshots SnapshotStore
	runState  RunStateStore
	txManager TransactionManager
	publisher Publisher
	renderer  Renderer
	logger    *slog.Logger
	config    config.ReportConfig
}

func NewReportService(
	source GroupSource,
	snapshots SnapshotStore,
	runState RunStateStore,
	txManager TransactionManager,
	publisher Publisher,
	renderer Renderer,
	logger *slog.Logger,
	cfg config.ReportConfig,
) *ReportService {
	return &ReportService{
		source:    source,
		snapshots: snapshots,
		runState:  runState,
		txManager: txManager,
		publisher: publisher,
		renderer:  renderer,
		logger:    logger.With("source", source.ID()),
		config:    cfg,
	}
}

func (s *ReportService) Run(ctx context.Context) (*domain.ReportStats, error) {
	startTime := time.Now()
	s.logger.Info("starting report",
		"source_name", s.source.Name(),
		"groups", len(s.config.GroupIDs),
		"include_os_versions", s.config.IncludeOSVersions,
	)

	report, err := Aggregate(ctx, s.config.GroupIDs, s.source.FetchGroup)
	if err != nil {
		return nil, fmt.Errorf("aggregate groups: %w", err)
	}
	report.GeneratedAt = time.Now().UTC()

	stats := &domain.ReportStats{
		SourceID:  s.source.ID(),
		Requested: len(s.config.GroupIDs),
		Resolved:  len(report.Results),
		Missing:   len(s.config.GroupIDs) - len(report.Results),
		Total:     report.Total,
	}

	var osReport *domain.OSReport
	if s.config.IncludeOSVersions {
		osr, err := s.source.FetchOSVersions(ctx)
		if err != nil {
			// The membership report still stands without the breakdown.
			s.logger.Warn("os version breakdown unavailable", "error", err)
		} else {
			osReport = &osr
		}
	}

	if s.renderer != nil {
		if err := s.renderer.Render(&report, osReport); err != nil {
			s.logger.Warn("render report", "error", err)
		}
	}

	if s.snapshots != nil && s.txManager != nil {
		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			return s.snapshots.InsertBatch(txCtx, s.source.ID(), &report)
		})
		if err != nil {
			return stats, fmt.Errorf("store snapshots: %w", err)
		}
		stats.Stored = true

		if err := s.updateRunState(ctx, report.Total); err != nil {
			return stats, fmt.Errorf("update run state: %w", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, &report, osReport); err != nil {
			return stats, fmt.Errorf("publish report: %w", err)
		}
		stats.Published = true
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("report completed",
		"requested", stats.Requested,
		"resolved", stats.Resolved,
		"missing", stats.Missing,
		"total", stats.Total,
		"stored", stats.Stored,
		"published", stats.Published,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *ReportService) updateRunState(ctx context.Context, totalDevices int) error {
	if s.runState == nil {
		return nil
	}

	state, err := s.runState.Get(ctx, s.source.ID())
	if err != nil {
		return err
	}

	state.SourceID = s.source.ID()
	state.LastRunAt = time.Now()
	state.TotalRuns++
	state.TotalDevices = int64(totalDevices)

	return s.runState.Update(ctx, state)
}
