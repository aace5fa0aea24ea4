// Package review is the interactive answer path: grade, schedule, count toward the streak.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/flashstack/internal/database"
	"github.com/example/flashstack/internal/grading"
	"github.com/example/flashstack/internal/logger"
	"github.com/example/flashstack/internal/spaced_repetition"
	"github.com/example/flashstack/internal/streak"
	"github.com/example/flashstack/pkg/models"
)

// DefaultMasteryThreshold is the mastery level at which a card counts as mastered
const DefaultMasteryThreshold = 3

// Outcome is the result of answering one card
type Outcome struct {
	CardID     int64                  `json:"cardId"`
	Grade      grading.Result         `json:"grade"`
	Quality    int                    `json:"quality"`
	Expected   string                 `json:"expected"`
	State      models.CardReviewState `json:"state"`
	Streak     models.StreakState     `json:"streak"`
	Counted    bool                   `json:"counted"`
	GoalMet    bool                   `json:"goalMet"`
	TestOpened *models.StackTest      `json:"testOpened,omitempty"`
}

// DueCard is a card waiting for review together with its schedule
type DueCard struct {
	Card  models.Card            `json:"card"`
	State models.CardReviewState `json:"state"`
}

// Service wires grading, scheduling and the streak engine to storage
type Service struct {
	repos     *database.Repositories
	sm2       *spaced_repetition.SM2
	engine    *streak.Engine
	threshold int
	log       *logger.Logger

	// Now is the clock; tests replace it
	Now func() time.Time
}

func NewService(repos *database.Repositories, sm2 *spaced_repetition.SM2, engine *streak.Engine, masteryThreshold int, log *logger.Logger) *Service {
	if masteryThreshold < 1 {
		masteryThreshold = DefaultMasteryThreshold
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repos: repos, sm2: sm2, engine: engine, threshold: masteryThreshold, log: log, Now: time.Now}
}

// Answer grades a typed answer for a card, reschedules it and feeds the streak.
func (s *Service) Answer(ctx context.Context, userID, cardID int64, answer string) (*Outcome, error) {
	now := s.Now()

	card, err := s.repos.Cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	stack, err := s.repos.Stacks.GetByID(ctx, card.StackID)
	if err != nil {
		return nil, err
	}
	if stack.UserID != userID {
		return nil, fmt.Errorf("card %d for user %d: %w", cardID, userID, database.ErrNotFound)
	}

	state, err := s.repos.States.GetByUserAndCard(ctx, userID, cardID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		fresh := spaced_repetition.NewCardState(userID, cardID, now)
		state = &fresh
	case err != nil:
		return nil, err
	}

	grade := grading.Grade(answer, card.Back)
	quality := spaced_repetition.QualityOf(grade.Outcome)
	next, err := s.sm2.Schedule(*state, quality, now)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		CardID:   cardID,
		Grade:    grade,
		Quality:  int(quality),
		Expected: card.Back,
		Counted:  grade.Outcome.Passed() && stack.CountsTowardStreak(),
	}

	err = s.repos.InTx(ctx, func(tx *database.Repositories) error {
		if err := tx.States.Upsert(ctx, &next); err != nil {
			return err
		}
		if out.Counted && !stack.ContributedToStreak {
			if err := tx.Stacks.MarkContributed(ctx, stack.ID); err != nil {
				return err
			}
		}

		user, err := tx.Users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		streakState, change := s.engine.Apply(user.StreakState, s.engine.Location(user.Timezone),
			streak.CardReviewed{At: now, Counts: out.Counted})
		if change.Changed {
			if err := tx.Users.UpdateStreak(ctx, userID, streakState); err != nil {
				return err
			}
		}
		out.Streak = streakState
		out.GoalMet = change.GoalMet

		if !spaced_repetition.IsMastered(state, s.threshold) && spaced_repetition.IsMastered(&next, s.threshold) {
			out.TestOpened, err = s.openTestIfMastered(ctx, tx, userID, stack.ID, now)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	out.State = next

	s.log.Debug("card reviewed",
		"user_id", userID,
		"card_id", cardID,
		"outcome", grade.Outcome.String(),
		"mastery", next.MasteryLevel,
		"interval_days", next.IntervalDays,
		"counted", out.Counted,
	)
	if out.TestOpened != nil {
		s.log.Info("stack mastered, test opened",
			"user_id", userID, "stack_id", stack.ID, "deadline", out.TestOpened.TestDeadline)
	}
	return out, nil
}

func (s *Service) openTestIfMastered(ctx context.Context, tx *database.Repositories, userID, stackID int64, now time.Time) (*models.StackTest, error) {
	remaining, err := tx.States.CountBelowMastery(ctx, userID, stackID, s.threshold)
	if err != nil || remaining > 0 {
		return nil, err
	}
	outstanding, err := tx.Tests.HasOutstanding(ctx, userID, stackID)
	if err != nil || outstanding {
		return nil, err
	}
	count, err := tx.Cards.CountByStack(ctx, stackID)
	if err != nil {
		return nil, err
	}
	test := &models.StackTest{
		UserID:            userID,
		StackID:           stackID,
		Status:            models.TestPending,
		TestDeadline:      streak.TestDeadline(now, count),
		CanUnfreezeStreak: true,
		TotalCards:        count,
	}
	if err := tx.Tests.Create(ctx, test); err != nil {
		return nil, err
	}
	return test, nil
}

// Due returns up to limit cards due for the user, never-reviewed cards first.
func (s *Service) Due(ctx context.Context, userID int64, limit int) ([]DueCard, error) {
	now := s.Now()

	states, err := s.repos.States.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]bool, len(states))
	for _, st := range states {
		known[st.CardID] = true
	}

	stacks, err := s.repos.Stacks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cards := make(map[int64]models.Card)
	for _, stack := range stacks {
		list, err := s.repos.Cards.ListByStack(ctx, stack.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range list {
			cards[c.ID] = c
			if !known[c.ID] {
				states = append(states, spaced_repetition.NewCardState(userID, c.ID, now))
			}
		}
	}

	due := spaced_repetition.DueCards(states, now, limit)
	out := make([]DueCard, 0, len(due))
	for _, st := range due {
		card, ok := cards[st.CardID]
		if !ok {
			continue
		}
		out = append(out, DueCard{Card: card, State: st})
	}
	return out, nil
}
