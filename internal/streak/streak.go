// Package streak holds the per-user streak state machine.
//
// Every change to models.StreakState goes through Engine.Apply: the
// interactive review path feeds CardReviewed, the hourly sweep feeds
// SweepTick and TestExpired, and test submission feeds TestPassed.
// currentStreak only grows inside SweepTick.
package streak

import (
	"time"
	_ "time/tzdata" // embedded zone database

	"github.com/example/flashstack/pkg/models"
)

// DefaultDailyGoal is the number of counted reviews that satisfies a day
const DefaultDailyGoal = 10

// Phase is the coarse streak state
type Phase string

const (
	Zero    Phase = "zero"
	Growing Phase = "growing"
	Frozen  Phase = "frozen"
)

// PhaseOf classifies s.
func PhaseOf(s models.StreakState) Phase {
	switch {
	case s.CurrentStreak == 0:
		return Zero
	case s.StreakFrozen:
		return Frozen
	default:
		return Growing
	}
}

// Event is an input to the state machine
type Event interface {
	event()
}

// CardReviewed is a review on the interactive path. Counts is false when
// the review failed or the card's stack is suspended from the streak.
type CardReviewed struct {
	At     time.Time
	Counts bool
}

// DailyGoalMet marks the day of At as satisfied, pending reconciliation.
type DailyGoalMet struct {
	At time.Time
}

// SweepTick reconciles pending goals and expired deadlines as of Now.
type SweepTick struct {
	Now time.Time
}

// TestExpired is raised when an eligible mastery test passes its deadline.
type TestExpired struct{}

// TestPassed is raised when a mastery test is passed.
type TestPassed struct {
	CanUnfreeze bool
}

func (CardReviewed) event() {}
func (DailyGoalMet) event() {}
func (SweepTick) event()    {}
func (TestExpired) event()  {}
func (TestPassed) event()   {}

// Change describes what an Apply call did
type Change struct {
	Changed    bool
	GoalMet    bool
	Credited   bool
	Reset      bool
	LostStreak int // streak length lost on Reset
	Froze      bool
	Unfroze    bool
}

// Engine applies streak events with a fixed daily goal
type Engine struct {
	DailyGoal       int
	DefaultLocation *time.Location
}

// NewEngine creates an engine. A goal below 1 falls back to DefaultDailyGoal,
// a nil location to UTC.
func NewEngine(dailyGoal int, loc *time.Location) *Engine {
	if dailyGoal < 1 {
		dailyGoal = DefaultDailyGoal
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{DailyGoal: dailyGoal, DefaultLocation: loc}
}

// Location resolves a user's IANA time zone, falling back to the default.
func (e *Engine) Location(tz string) *time.Location {
	if tz == "" {
		return e.DefaultLocation
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return e.DefaultLocation
	}
	return loc
}

// Apply returns the state that results from ev, evaluated in loc.
// s is taken by value; the caller persists the result.
func (e *Engine) Apply(s models.StreakState, loc *time.Location, ev Event) (models.StreakState, Change) {
	if loc == nil {
		loc = e.DefaultLocation
	}
	var c Change
	switch ev := ev.(type) {
	case CardReviewed:
		s = e.cardReviewed(s, loc, ev, &c)
	case DailyGoalMet:
		s = dailyGoalMet(s, loc, ev.At, &c)
	case SweepTick:
		s = sweepTick(s, loc, ev.Now, &c)
	case TestExpired:
		if s.CurrentStreak > 0 && !s.StreakFrozen {
			s.StreakFrozen = true
			c.Froze, c.Changed = true, true
		}
	case TestPassed:
		if s.StreakFrozen && ev.CanUnfreeze {
			s.StreakFrozen = false
			c.Unfroze, c.Changed = true, true
		}
	}
	return s, c
}

func (e *Engine) cardReviewed(s models.StreakState, loc *time.Location, ev CardReviewed, c *Change) models.StreakState {
	if s.LastActivityAt != nil && !SameDay(*s.LastActivityAt, ev.At, loc) && s.CardsMasteredToday != 0 {
		s.CardsMasteredToday = 0
		c.Changed = true
	}
	if !ev.Counts {
		return s
	}

	at := ev.At
	s.CardsMasteredToday++
	s.LastActivityAt = &at
	c.Changed = true

	if s.CardsMasteredToday >= e.DailyGoal {
		s = dailyGoalMet(s, loc, at, c)
	}
	return s
}

func dailyGoalMet(s models.StreakState, loc *time.Location, at time.Time, c *Change) models.StreakState {
	if s.GoalMetAt != nil && SameDay(*s.GoalMetAt, at, loc) {
		return s
	}
	s.GoalMetAt = &at
	s.GoalPending = true
	c.GoalMet, c.Changed = true, true
	return s
}

func sweepTick(s models.StreakState, loc *time.Location, now time.Time, c *Change) models.StreakState {
	// Goal met before the running deadline extends the current streak
	if s.GoalPending && s.GoalMetAt != nil &&
		(s.CurrentStreak == 0 || s.StreakDeadline == nil || !s.GoalMetAt.After(*s.StreakDeadline)) {
		s = credit(s, loc, c)
	}

	if s.CurrentStreak > 0 && s.StreakDeadline != nil && s.StreakDeadline.Before(now) {
		c.Reset, c.LostStreak, c.Changed = true, s.CurrentStreak, true
		s.LongestStreak = max(s.LongestStreak, s.CurrentStreak)
		s.CurrentStreak = 0
		s.StreakFrozen = false
		s.CardsMasteredToday = 0
		s.StreakDeadline = nil
	}

	// Goal met after the old deadline lapsed starts a new streak
	if s.GoalPending && s.GoalMetAt != nil {
		s = credit(s, loc, c)
	}

	if s.CardsMasteredToday != 0 && s.LastActivityAt != nil && !SameDay(*s.LastActivityAt, now, loc) {
		s.CardsMasteredToday = 0
		c.Changed = true
	}
	return s
}

func credit(s models.StreakState, loc *time.Location, c *Change) models.StreakState {
	s.GoalPending = false
	c.Changed = true
	if !s.StreakFrozen {
		s.CurrentStreak++
		s.LongestStreak = max(s.LongestStreak, s.CurrentStreak)
		c.Credited = true
	}
	if s.CurrentStreak > 0 {
		deadline := DeadlineAfter(*s.GoalMetAt, loc)
		if s.StreakDeadline == nil || deadline.After(*s.StreakDeadline) {
			s.StreakDeadline = &deadline
		}
	}
	return s
}

// DeadlineAfter returns 23:59:59 of the calendar day following qualifying, in loc.
func DeadlineAfter(qualifying time.Time, loc *time.Location) time.Time {
	y, m, d := qualifying.In(loc).Date()
	return time.Date(y, m, d+1, 23, 59, 59, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
