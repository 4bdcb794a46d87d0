// Package worker drives AI jobs through the analysis pipeline. Each queue
// delivery runs one job to completion; delivery is at-least-once, so every
// phase must tolerate re-invocation.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wardrobe/internal/domain"
	"wardrobe/internal/infra"
	"wardrobe/internal/providers/analyze"
	"wardrobe/internal/state"
)

const actorSystem = "system"

// Job ledger event names.
const (
	eventStartProcessing = "start_processing"
	eventAIDone          = "ai_done"
	eventAIFailed        = "ai_failed"
)

// Tx is one transaction over the rows the pipeline touches. It doubles as the
// ledger appender so history rows commit with the entity writes.
type Tx interface {
	JobForUpdate(ctx context.Context, jobID string) (*domain.AIJob, error)
	MediaByID(ctx context.Context, mediaID string) (*domain.Media, error)
	InsertProduct(ctx context.Context, p *domain.Product) error
	UpdateJob(ctx context.Context, j *domain.AIJob) error
	Append(ctx context.Context, h *domain.StateHistory) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// BeginFunc opens a pipeline transaction.
type BeginFunc func(ctx context.Context) (Tx, error)

// Analyzer is the external analysis capability.
type Analyzer interface {
	Analyze(ctx context.Context, req analyze.Request) (*analyze.Result, error)
}

// Options wires an Orchestrator. All fields except NewID and Now are required.
type Options struct {
	Begin    BeginFunc
	Analyzer Analyzer
	States   *state.Service
	Logger   infra.Logger
	NewID    func() string
	Now      func() time.Time
}

// Orchestrator executes the queued → processing → done|failed pipeline for one
// job at a time. It is constructed once at worker start and is safe for
// concurrent use.
type Orchestrator struct {
	begin    BeginFunc
	analyzer Analyzer
	states   *state.Service
	logger   infra.Logger
	newID    func() string
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator from options.
func NewOrchestrator(opts Options) *Orchestrator {
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		begin:    opts.Begin,
		analyzer: opts.Analyzer,
		states:   opts.States,
		logger:   opts.Logger,
		newID:    newID,
		now:      now,
	}
}

type claim struct {
	job   *domain.AIJob
	media *domain.Media
}

// Run executes one job. A missing job, an already-claimed job and a terminal
// job are all silent no-ops: redelivery must never re-call the AI service or
// create a second product. Pipeline failures are recorded on the job, never
// returned; only infrastructure errors (begin/commit) propagate, so the queue
// redelivers the task.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	started := o.now()

	c, err := o.claimJob(ctx, jobID)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	result, err := o.analyzer.Analyze(ctx, analyze.Request{
		Bucket:    c.media.Bucket,
		ObjectKey: c.media.ObjectKey,
		Hint:      c.job.Hint,
	})
	if err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: analysis call failed")
		o.failJob(ctx, jobID, err.Error())
		return nil
	}

	productID, err := o.materialize(ctx, jobID, result)
	if err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: materialize failed")
		o.failJob(ctx, jobID, err.Error())
		return nil
	}
	if productID != "" {
		o.logger.Info().
			Str("job_id", jobID).
			Str("product_id", productID).
			Dur("elapsed", o.now().Sub(started)).
			Msg("worker: job done")
	}
	return nil
}

// claimJob is phase 1: mark the job processing inside one transaction so the
// claim is visible to status polls before the slow external call begins. The
// row lock makes the read-then-write atomic; a second worker blocks here and
// then observes a non-queued status.
func (o *Orchestrator) claimJob(ctx context.Context, jobID string) (*claim, error) {
	tx, err := o.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	job, err := tx.JobForUpdate(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			o.logger.Warn().Str("job_id", jobID).Msg("worker: job not found, skipping")
			return nil, nil
		}
		return nil, err
	}
	if job.Status != domain.JobQueued {
		o.logger.Debug().
			Str("job_id", jobID).
			Str("status", string(job.Status)).
			Msg("worker: job not claimable, skipping")
		return nil, nil
	}

	media, err := tx.MediaByID(ctx, job.MediaID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if err := job.MarkFailed("media not found", o.now()); err != nil {
			return nil, err
		}
		if err := tx.UpdateJob(ctx, job); err != nil {
			return nil, err
		}
		if err := o.states.Record(ctx, tx, domain.EntityAIJob, job.ID, eventAIFailed, actorSystem); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		o.logger.Warn().Str("job_id", jobID).Msg("worker: media missing, job failed")
		return nil, nil
	}

	if err := job.MarkProcessing(o.now()); err != nil {
		return nil, err
	}
	if err := tx.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	if err := o.states.Record(ctx, tx, domain.EntityAIJob, job.ID, eventStartProcessing, actorSystem); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &claim{job: job, media: media}, nil
}

// materialize is phase 3: create the draft product and finish the job in one
// transaction. Returns the new product id, or "" when another invocation
// already finished the job.
func (o *Orchestrator) materialize(ctx context.Context, jobID string, result *analyze.Result) (string, error) {
	tx, err := o.begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	job, err := tx.JobForUpdate(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.Terminal() {
		return "", nil
	}

	now := o.now()
	product := domain.NewProduct(o.newID(), job.OwnerID, now)
	// First-write-wins for user-entered text: the draft is fresh here, but the
	// guard stays so a future pre-filled title survives.
	if product.Title == "" && result.TitleSuggested != "" {
		product.Title = result.TitleSuggested
	}
	if product.Description == "" && result.DescriptionDraft != "" {
		product.Description = result.DescriptionDraft
	}
	product.CategoryID = result.CategoryID
	product.Attributes = result.Attributes
	product.Tags = result.Tags

	if err := tx.InsertProduct(ctx, product); err != nil {
		return "", fmt.Errorf("insert draft product: %w", err)
	}
	if err := job.MarkDone(result.Raw, product.ID, now); err != nil {
		return "", err
	}
	if err := tx.UpdateJob(ctx, job); err != nil {
		return "", fmt.Errorf("update job: %w", err)
	}
	if err := o.states.Record(ctx, tx, domain.EntityAIJob, job.ID, eventAIDone, actorSystem); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit result: %w", err)
	}
	return product.ID, nil
}

// failJob records a failure in its own transaction. Best effort: after this
// returns, the job is failed or the problem has been logged loudly; it is
// never left silently stuck in processing by this process.
func (o *Orchestrator) failJob(ctx context.Context, jobID, cause string) {
	tx, err := o.begin(ctx)
	if err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: cannot open failure tx")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	job, err := tx.JobForUpdate(ctx, jobID)
	if err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: cannot reload job for failure")
		return
	}
	if job.Terminal() {
		return
	}
	if err := job.MarkFailed(cause, o.now()); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: cannot mark job failed")
		return
	}
	if err := tx.UpdateJob(ctx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: cannot persist job failure")
		return
	}
	if err := o.states.Record(ctx, tx, domain.EntityAIJob, job.ID, eventAIFailed, actorSystem); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: cannot record failure event")
		return
	}
	if err := tx.Commit(ctx); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: cannot commit job failure")
	}
}
