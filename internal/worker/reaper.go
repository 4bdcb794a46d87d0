package worker

import (
	"context"
	"time"

	"wardrobe/internal/infra"
	"wardrobe/internal/queue"
	"wardrobe/internal/sqlinline"
)

// Reaper requeues jobs stuck in processing after a worker died mid-call. The
// reap window is a generous multiple of the AI read timeout, so a live worker
// never races its own job; claim idempotence makes the re-delivery safe.
type Reaper struct {
	runner     *infra.SQLRunner
	dispatcher queue.Dispatcher
	logger     infra.Logger
	reapAfter  time.Duration
	interval   time.Duration
}

// NewReaper creates a reaper sweeping every interval.
func NewReaper(runner *infra.SQLRunner, dispatcher queue.Dispatcher, logger infra.Logger, reapAfter, interval time.Duration) *Reaper {
	return &Reaper{
		runner:     runner,
		dispatcher: dispatcher,
		logger:     logger,
		reapAfter:  reapAfter,
		interval:   interval,
	}
}

// Start sweeps until ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	rows, err := r.runner.Query(ctx, sqlinline.QRequeueStuckJobs, int64(r.reapAfter.Seconds()))
	if err != nil {
		r.logger.Error().Err(err).Msg("reaper: sweep query failed")
		return
	}
	defer rows.Close()

	var requeued []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			r.logger.Error().Err(err).Msg("reaper: scan failed")
			return
		}
		requeued = append(requeued, id)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("reaper: sweep rows failed")
		return
	}

	for _, id := range requeued {
		if _, err := r.dispatcher.Dispatch(ctx, queue.Task{Kind: queue.KindProcessAIJob, ID: id}); err != nil {
			// The job is back in queued but undelivered; it shows up in the
			// queue-depth log until an operator re-drives it.
			r.logger.Error().Err(err).Str("job_id", id).Msg("reaper: re-dispatch failed")
			continue
		}
		r.logger.Warn().Str("job_id", id).Msg("reaper: requeued stuck job")
	}

	r.logDepth(ctx)
}

func (r *Reaper) logDepth(ctx context.Context) {
	rows, err := r.runner.Query(ctx, sqlinline.QCountJobsByStatus)
	if err != nil {
		r.logger.Error().Err(err).Msg("reaper: depth query failed")
		return
	}
	defer rows.Close()

	evt := r.logger.Info()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			r.logger.Error().Err(err).Msg("reaper: depth scan failed")
			return
		}
		evt = evt.Int64(status, count)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("reaper: depth rows failed")
		return
	}
	evt.Msg("reaper: job depth")
}
