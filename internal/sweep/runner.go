package sweep

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/example/flashstack/internal/logger"
	"github.com/example/flashstack/internal/streak"
	"github.com/example/flashstack/pkg/models"
)

// Notifier is told about streak losses and freezes after they are persisted
type Notifier interface {
	StreakReset(ctx context.Context, user models.User, lost int) error
	StreakFrozen(ctx context.Context, user models.User) error
}

// Summary is the result of one sweep run
type Summary struct {
	Success         bool      `json:"success"`
	Timestamp       time.Time `json:"timestamp"`
	DurationMs      int64     `json:"durationMs"`
	ExpiredStreaks  int       `json:"expiredStreaks"`
	FrozenUsers     int       `json:"frozenUsers"`
	CreditedStreaks int       `json:"creditedStreaks"`
	ExpiredTests    int       `json:"expiredTests"`
	Errors          []string  `json:"errors,omitempty"`
}

// Runner executes Pass A (streak reconciliation) then Pass B (test expiry)
type Runner struct {
	store    Store
	engine   *streak.Engine
	notifier Notifier
	log      *logger.Logger
}

// NewRunner creates a runner. notifier may be nil.
func NewRunner(store Store, engine *streak.Engine, notifier Notifier, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{store: store, engine: engine, notifier: notifier, log: log}
}

// Run performs one sweep as of now. Per-record failures are collected in
// Summary.Errors and never stop the run.
func (r *Runner) Run(ctx context.Context, now time.Time) Summary {
	start := time.Now()
	log := r.log.With("run_id", uuid.NewString())
	sum := Summary{Success: true, Timestamp: now.UTC()}

	r.passA(ctx, now, log, &sum)
	r.passB(ctx, now, log, &sum)

	sum.DurationMs = time.Since(start).Milliseconds()
	log.Info("streak sweep finished",
		"expired_streaks", sum.ExpiredStreaks,
		"credited_streaks", sum.CreditedStreaks,
		"frozen_users", sum.FrozenUsers,
		"expired_tests", sum.ExpiredTests,
		"errors", len(sum.Errors),
		"duration_ms", sum.DurationMs,
	)
	return sum
}

func (r *Runner) passA(ctx context.Context, now time.Time, log *logger.Logger, sum *Summary) {
	users, err := r.store.StreakCandidates(ctx)
	if err != nil {
		r.fail(log, sum, fmt.Errorf("list streak candidates: %w", err))
		return
	}
	replan := func(u models.User) (StreakTransition, bool) {
		return PlanStreak(u, r.engine, now)
	}
	for _, planned := range PlanStreaks(users, r.engine, now) {
		if err := ctx.Err(); err != nil {
			r.fail(log, sum, err)
			return
		}
		// the snapshot may be stale by now; the store replans on the locked row
		tr, ok, err := r.store.ApplyStreak(ctx, planned.User.ID, replan)
		if err != nil {
			r.recordError(log, sum, fmt.Errorf("user %d: %w", planned.User.ID, err))
			continue
		}
		if !ok {
			continue
		}
		if tr.Change.Credited {
			sum.CreditedStreaks++
		}
		if tr.Change.Reset {
			sum.ExpiredStreaks++
			log.Info("streak expired", "user_id", tr.User.ID, "lost", tr.Change.LostStreak)
			if r.notifier != nil && tr.Change.LostStreak > 0 {
				if err := r.notifier.StreakReset(ctx, tr.User, tr.Change.LostStreak); err != nil {
					log.Warn("streak reset notification failed", "user_id", tr.User.ID, "error", err)
				}
			}
		}
	}
}

func (r *Runner) passB(ctx context.Context, now time.Time, log *logger.Logger, sum *Summary) {
	tests, err := r.store.PendingTests(ctx)
	if err != nil {
		r.fail(log, sum, fmt.Errorf("list pending tests: %w", err))
		return
	}
	if len(tests) == 0 {
		return
	}

	// Users are loaded after Pass A so freezes see reset streaks
	ids := make([]int64, 0, len(tests))
	seen := make(map[int64]bool)
	for _, t := range tests {
		if !seen[t.UserID] {
			seen[t.UserID] = true
			ids = append(ids, t.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	users, err := r.store.UsersByID(ctx, ids)
	if err != nil {
		r.fail(log, sum, fmt.Errorf("load test owners: %w", err))
		return
	}

	transitions, _ := PlanTestExpiry(tests, users, r.engine, now)
	for _, tr := range transitions {
		if err := ctx.Err(); err != nil {
			r.fail(log, sum, err)
			return
		}
		applied, froze, err := r.store.ApplyTestExpiry(ctx, tr)
		if err != nil {
			r.recordError(log, sum, fmt.Errorf("test %d: %w", tr.Test.ID, err))
			continue
		}
		if !applied {
			continue
		}
		sum.ExpiredTests++
		log.Debug("mastery test expired", "test_id", tr.Test.ID, "user_id", tr.Test.UserID, "froze", froze)
		if !froze {
			continue
		}
		sum.FrozenUsers++
		if r.notifier != nil {
			if err := r.notifier.StreakFrozen(ctx, users[tr.Test.UserID]); err != nil {
				log.Warn("streak freeze notification failed", "user_id", tr.Test.UserID, "error", err)
			}
		}
	}
}

func (r *Runner) recordError(log *logger.Logger, sum *Summary, err error) {
	log.Error("sweep record failed", "error", err)
	sum.Errors = append(sum.Errors, err.Error())
}

func (r *Runner) fail(log *logger.Logger, sum *Summary, err error) {
	r.recordError(log, sum, err)
	sum.Success = false
}
