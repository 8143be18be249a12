package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"counseldesk/internal/types"
)

// JobStore is the durable queue contract the pool polls. Claims must be
// atomic: no two concurrent callers may receive the same job.
type JobStore interface {
	ClaimDue(ctx context.Context, now time.Time, limit int, owner string, leaseTTL time.Duration) ([]*types.ScheduledJob, error)
	Complete(ctx context.Context, jobID string) error
	Release(ctx context.Context, jobID string) error
}

// Handler executes one claimed job. A nil return completes the job; an error
// releases its lease so the job is retried on a later poll. Handlers signal
// benign no-ops (stale hearing, notify turned off) by returning nil.
type Handler func(ctx context.Context, job *types.ScheduledJob) error

// PoolConfig holds the configuration for creating a Pool.
type PoolConfig struct {
	Store        JobStore
	Handlers     map[types.JobKind]Handler
	PollInterval time.Duration
	Concurrency  int
	LeaseTTL     time.Duration
	WorkerID     string
	Logger       *slog.Logger
}

// Pool is the polling worker loop. Each tick claims due, unclaimed jobs up to
// the concurrency limit and dispatches them to kind handlers. Job executions
// run concurrently, but a new poll never starts before the previous poll's
// claim-and-dispatch step has returned: dispatching blocks while all
// execution slots are busy, and ticker ticks that arrive meanwhile coalesce.
type Pool struct {
	store        JobStore
	handlers     map[types.JobKind]Handler
	pollInterval time.Duration
	concurrency  int
	leaseTTL     time.Duration
	workerID     string
	logger       *slog.Logger

	now func() time.Time
}

// NewPool creates a Pool with the given configuration, applying defaults for
// unset tuning values.
func NewPool(cfg PoolConfig) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 20
	}
	leaseTTL := cfg.LeaseTTL
	if leaseTTL <= 0 {
		leaseTTL = 5 * time.Minute
	}

	workerID := cfg.WorkerID
	if workerID == "" {
		host, _ := os.Hostname()
		workerID = fmt.Sprintf("%s-%s", host, uuid.New().String()[:8])
	}

	return &Pool{
		store:        cfg.Store,
		handlers:     cfg.Handlers,
		pollInterval: interval,
		concurrency:  concurrency,
		leaseTTL:     leaseTTL,
		workerID:     workerID,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until the context is cancelled, then waits for in-flight
// executions to drain before returning.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "scheduler pool starting",
		"worker_id", p.workerID,
		"poll_interval", p.pollInterval.String(),
		"concurrency", p.concurrency,
		"lease_ttl", p.leaseTTL.String(),
	)

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// First poll immediately so due jobs left over from a restart are not
	// delayed by a full interval.
	p.pollOnce(ctx, g)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("scheduler pool stopping, draining in-flight jobs")
			_ = g.Wait()
			p.logger.Info("scheduler pool stopped")
			return nil
		case <-ticker.C:
			p.pollOnce(ctx, g)
		}
	}
}

// pollOnce claims due jobs and dispatches them into the bounded group. It
// returns the number of jobs claimed. Claim failures are logged and retried
// on the next tick; the store being briefly unavailable must not crash the
// pool.
func (p *Pool) pollOnce(ctx context.Context, g *errgroup.Group) int {
	jobs, err := p.store.ClaimDue(ctx, p.now(), p.concurrency, p.workerID, p.leaseTTL)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to claim due jobs",
			"worker_id", p.workerID,
			"error", err,
		)
		return 0
	}

	if len(jobs) == 0 {
		return 0
	}

	p.logger.InfoContext(ctx, "claimed due jobs",
		"worker_id", p.workerID,
		"count", len(jobs),
	)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			p.execute(ctx, job)
			return nil
		})
	}

	return len(jobs)
}

// execute runs one claimed job through its kind handler and settles the
// claim: complete on success or unknown kind, release on handler failure so
// the next poll retries it.
func (p *Pool) execute(ctx context.Context, job *types.ScheduledJob) {
	logger := p.logger.With(
		"job_id", job.ID,
		"kind", string(job.Kind),
		"hearing_id", job.HearingID,
		"attempt", job.Attempts,
	)

	handler, ok := p.handlers[job.Kind]
	if !ok {
		// A kind this build does not know is undeliverable; completing it
		// keeps the queue from wedging on one bad row.
		logger.ErrorContext(ctx, "no handler registered for job kind, dropping job")
		if err := p.store.Complete(ctx, job.ID); err != nil {
			logger.ErrorContext(ctx, "failed to complete unroutable job", "error", err)
		}
		return
	}

	if err := handler(ctx, job); err != nil {
		logger.WarnContext(ctx, "job handler failed, releasing lease for retry", "error", err)
		if relErr := p.store.Release(ctx, job.ID); relErr != nil {
			// The lease will still expire on its own; the job is delayed,
			// not lost.
			logger.ErrorContext(ctx, "failed to release job lease", "error", relErr)
		}
		return
	}

	if err := p.store.Complete(ctx, job.ID); err != nil {
		logger.ErrorContext(ctx, "failed to complete job", "error", err)
		return
	}

	logger.InfoContext(ctx, "job completed")
}
