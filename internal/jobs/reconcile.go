// Package jobs runs scheduled maintenance alongside the API.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dropview/internal/middleware"
	"dropview/internal/observability"

	"github.com/robfig/cron/v3"
)

// CommentCountReconciler rewrites cached comment counts that drifted from the comments table.
type CommentCountReconciler interface {
	ReconcileCommentCounts(ctx context.Context) (int64, error)
}

// Scheduler owns the cron runner for background jobs.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	started bool
}

// NewScheduler returns a scheduler whose jobs give up after timeout.
func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  middleware.Logger.With(slog.String("component", "jobs")),
		timeout: timeout,
	}
}

// ScheduleCommentReconcile registers the reconciliation on spec. An empty spec leaves it disabled.
func (s *Scheduler) ScheduleCommentReconcile(spec string, repo CommentCountReconciler) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		s.logger.Info("comment count reconciliation disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_, _ = ReconcileComments(ctx, repo, s.logger)
	}); err != nil {
		return fmt.Errorf("schedule comment reconcile %q: %w", spec, err)
	}
	s.logger.Info("comment count reconciliation scheduled", slog.String("spec", spec))
	return nil
}

// Len is the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReconcileComments runs one reconciliation pass and reports how many posts were corrected.
func ReconcileComments(ctx context.Context, repo CommentCountReconciler, logger *slog.Logger) (int64, error) {
	if logger == nil {
		logger = middleware.Logger
	}
	ctx, span := observability.StartSpan(ctx, "jobs", "reconcile_comment_counts")

	start := time.Now()
	fixed, err := repo.ReconcileCommentCounts(ctx)
	observability.EndSpan(span, err)
	if err != nil {
		logger.ErrorContext(ctx, "comment count reconciliation failed", slog.String("error", err.Error()))
		return 0, err
	}

	observability.CommentCountRepairs.Add(float64(fixed))
	logger.InfoContext(ctx, "comment counts reconciled",
		slog.Int64("posts_fixed", fixed),
		slog.Duration("duration", time.Since(start)),
	)
	return fixed, nil
}
