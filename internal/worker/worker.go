package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bilda/backend/internal/points"
	"github.com/bilda/backend/pkg/queue"
)

// PointsProcessor processes channel point award jobs: convert watch time into
// points and credit the ledger. Credits are idempotent on the viewer log ID,
// so redelivery and retries cannot double-award.
type PointsProcessor struct {
	pointsRepo      *points.Repository
	queue           *queue.Queue
	secondsPerPoint int64
	logger          *zap.Logger
}

// NewPointsProcessor creates a points award processor.
func NewPointsProcessor(pointsRepo *points.Repository, q *queue.Queue, secondsPerPoint int64, logger *zap.Logger) *PointsProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PointsProcessor{pointsRepo: pointsRepo, queue: q, secondsPerPoint: secondsPerPoint, logger: logger}
}

// Process executes one points award job.
func (p *PointsProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypePointsAward {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.PointsAwardPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	amount := points.ForWatchSeconds(payload.WatchSeconds, p.secondsPerPoint)
	if amount <= 0 {
		p.logger.Debug("watch time below one point, skipping",
			zap.String("viewer_log_id", payload.ViewerLogID.String()),
			zap.Int64("watch_seconds", payload.WatchSeconds))
		return nil
	}

	credited, err := p.pointsRepo.CreditWatch(ctx, payload.UserID, payload.ViewerLogID, amount)
	if err != nil {
		return fmt.Errorf("credit ledger: %w", err)
	}
	if !credited {
		p.logger.Info("points already credited",
			zap.String("viewer_log_id", payload.ViewerLogID.String()),
			zap.String("user_id", payload.UserID.String()))
		return nil
	}

	p.logger.Info("points credited",
		zap.String("user_id", payload.UserID.String()),
		zap.String("viewer_log_id", payload.ViewerLogID.String()),
		zap.Int64("amount", amount))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *PointsProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("points worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
