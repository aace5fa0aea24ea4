// Package sweep runs the hourly reconciliation of streaks and mastery tests.
//
// Planning is pure: PlanStreaks and PlanTestExpiry fold the streak engine
// over loaded records and return the transitions to persist. Runner applies
// them through a Store, one transaction per record.
package sweep

import (
	"time"

	"github.com/example/flashstack/internal/streak"
	"github.com/example/flashstack/pkg/models"
)

// StreakTransition is a planned Pass A update for one user
type StreakTransition struct {
	User   models.User
	After  models.StreakState
	Change streak.Change
}

// TestTransition is a planned Pass B expiry for one test
type TestTransition struct {
	Test models.StackTest
	// Freeze is set when this expiry freezes the owner's streak
	Freeze bool
}

// PlanStreak applies SweepTick to one user. ok is false when nothing changed.
func PlanStreak(u models.User, engine *streak.Engine, now time.Time) (t StreakTransition, ok bool) {
	after, change := engine.Apply(u.StreakState, engine.Location(u.Timezone), streak.SweepTick{Now: now})
	if !change.Changed {
		return StreakTransition{}, false
	}
	return StreakTransition{User: u, After: after, Change: change}, true
}

// PlanStreaks applies SweepTick to every user and keeps the ones that changed.
func PlanStreaks(users []models.User, engine *streak.Engine, now time.Time) []StreakTransition {
	var out []StreakTransition
	for _, u := range users {
		if t, ok := PlanStreak(u, engine, now); ok {
			out = append(out, t)
		}
	}
	return out
}

// PlanTestExpiry selects pending tests whose deadline is before now and
// folds TestExpired over their owners. A user with several expiring tests
// freezes at most once. The returned map holds the final state of every
// user touched.
func PlanTestExpiry(tests []models.StackTest, usersByID map[int64]models.User, engine *streak.Engine, now time.Time) ([]TestTransition, map[int64]models.StreakState) {
	states := make(map[int64]models.StreakState)
	var out []TestTransition
	for _, t := range tests {
		if t.Status != models.TestPending || !t.TestDeadline.Before(now) {
			continue
		}
		tr := TestTransition{Test: t}
		u, ok := usersByID[t.UserID]
		if ok && t.CanUnfreezeStreak && !t.HasFrozenStreak {
			state, seen := states[t.UserID]
			if !seen {
				state = u.StreakState
			}
			next, change := engine.Apply(state, engine.Location(u.Timezone), streak.TestExpired{})
			states[t.UserID] = next
			tr.Freeze = change.Froze
		}
		out = append(out, tr)
	}
	return out, states
}
