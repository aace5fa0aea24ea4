// Package masterytest runs the text-input tests that follow full mastery of a stack.
package masterytest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/example/flashstack/internal/ai"
	"github.com/example/flashstack/internal/database"
	"github.com/example/flashstack/internal/grading"
	"github.com/example/flashstack/internal/logger"
	"github.com/example/flashstack/internal/streak"
	"github.com/example/flashstack/pkg/models"
)

var (
	// ErrTestClosed is returned when submitting to a passed or failed test
	ErrTestClosed = errors.New("test already decided")
	// ErrNoAnswers is returned when a submission has no answer for any of the stack's cards
	ErrNoAnswers = errors.New("no answers for this stack")
)

// DefaultPassRatio is the share of correct answers needed to pass
const DefaultPassRatio = 0.8

// Mode selects how answers are graded
type Mode string

const (
	ModeFuzzy Mode = "fuzzy"
	ModeAI    Mode = "ai"
)

// AnswerGrader judges free-text answers; *ai.ChatGPT implements it
type AnswerGrader interface {
	Grade(ctx context.Context, prompt, expected, answer string) (ai.Verdict, error)
}

// Question is a single text-input question
type Question struct {
	CardID int64  `json:"cardId"`
	Prompt string `json:"prompt"`
	Hint   string `json:"hint,omitempty"`
}

// Attempt is a set of questions for an open test
type Attempt struct {
	Test      models.StackTest `json:"test"`
	Questions []Question       `json:"questions"`
}

// AnswerResult is the grading of one answer
type AnswerResult struct {
	CardID   int64  `json:"cardId"`
	Correct  bool   `json:"correct"`
	Expected string `json:"expected"`
	Outcome  string `json:"outcome,omitempty"`
	Feedback string `json:"feedback,omitempty"`
}

// Result is the outcome of a submission
type Result struct {
	TestID  int64             `json:"testId"`
	Status  models.TestStatus `json:"status"`
	Total   int               `json:"total"`
	Correct int               `json:"correct"`
	Score   float64           `json:"score"`
	Unfroze bool              `json:"unfroze"`
	Answers []AnswerResult    `json:"answers"`
}

// Module handles mastery test functionality
type Module struct {
	repos     *database.Repositories
	engine    *streak.Engine
	grader    AnswerGrader
	passRatio float64
	log       *logger.Logger

	// Now is the clock; tests replace it
	Now func() time.Time
}

// NewModule creates a new mastery test module. grader may be nil, which disables ModeAI.
func NewModule(repos *database.Repositories, engine *streak.Engine, grader AnswerGrader, passRatio float64, log *logger.Logger) *Module {
	if passRatio <= 0 || passRatio > 1 {
		passRatio = DefaultPassRatio
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Module{
		repos:     repos,
		engine:    engine,
		grader:    grader,
		passRatio: passRatio,
		log:       log,
		Now:       time.Now,
	}
}

// Create builds questions for the stack's open test, shuffled and capped by count.
// A count below 1 asks every card.
func (m *Module) Create(ctx context.Context, userID, stackID int64, count int) (*Attempt, error) {
	test, err := m.repos.Tests.GetOpenForStack(ctx, userID, stackID)
	if err != nil {
		return nil, err
	}
	cards, err := m.repos.Cards.ListByStack(ctx, stackID)
	if err != nil {
		return nil, err
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	rnd.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	if count > 0 && len(cards) > count {
		cards = cards[:count]
	}

	questions := make([]Question, 0, len(cards))
	for _, c := range cards {
		questions = append(questions, Question{CardID: c.ID, Prompt: c.Front, Hint: c.Hint})
	}
	return &Attempt{Test: *test, Questions: questions}, nil
}

// Submit grades answers keyed by card ID and records the result.
// Pending and expired tests accept submissions.
func (m *Module) Submit(ctx context.Context, testID int64, answers map[int64]string, mode Mode) (*Result, error) {
	if mode == "" {
		mode = ModeFuzzy
	}
	if mode != ModeFuzzy && mode != ModeAI {
		return nil, fmt.Errorf("unknown grading mode %q", mode)
	}
	if mode == ModeAI && m.grader == nil {
		return nil, ai.ErrGraderUnavailable
	}

	test, err := m.repos.Tests.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if !test.Status.Open() {
		return nil, fmt.Errorf("test %d is %s: %w", testID, test.Status, ErrTestClosed)
	}
	cards, err := m.repos.Cards.ListByStack(ctx, test.StackID)
	if err != nil {
		return nil, err
	}

	res := &Result{TestID: test.ID}
	for _, card := range cards {
		answer, ok := answers[card.ID]
		if !ok {
			continue
		}
		ar, err := m.gradeAnswer(ctx, card, answer, mode)
		if err != nil {
			return nil, err
		}
		res.Total++
		if ar.Correct {
			res.Correct++
		}
		res.Answers = append(res.Answers, ar)
	}
	if res.Total == 0 {
		return nil, ErrNoAnswers
	}

	res.Score = float64(res.Correct) / float64(res.Total)
	res.Status = models.TestFailed
	if res.Score >= m.passRatio {
		res.Status = models.TestPassed
	}

	now := m.Now()
	err = m.repos.InTx(ctx, func(tx *database.Repositories) error {
		test.Status = res.Status
		test.TotalCards = res.Total
		test.CorrectCards = res.Correct
		test.SubmittedAt = &now
		if err := tx.Tests.Complete(ctx, test); err != nil {
			return err
		}

		if res.Status == models.TestFailed {
			_, err := tx.Stacks.Suspend(ctx, test.StackID)
			return err
		}

		if err := tx.Stacks.Reinstate(ctx, test.StackID); err != nil {
			return err
		}
		user, err := tx.Users.GetByID(ctx, test.UserID)
		if err != nil {
			return err
		}
		next, change := m.engine.Apply(user.StreakState, m.engine.Location(user.Timezone),
			streak.TestPassed{CanUnfreeze: test.CanUnfreezeStreak})
		if !change.Changed {
			return nil
		}
		res.Unfroze = change.Unfroze
		return tx.Users.UpdateStreak(ctx, user.ID, next)
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("mastery test submitted",
		"test_id", test.ID,
		"user_id", test.UserID,
		"status", res.Status,
		"correct", res.Correct,
		"total", res.Total,
		"unfroze", res.Unfroze,
	)
	return res, nil
}

func (m *Module) gradeAnswer(ctx context.Context, card models.Card, answer string, mode Mode) (AnswerResult, error) {
	ar := AnswerResult{CardID: card.ID, Expected: card.Back}
	if mode == ModeAI {
		v, err := m.grader.Grade(ctx, card.Front, card.Back, answer)
		if err != nil {
			return ar, err
		}
		ar.Correct, ar.Feedback = v.Passed, v.Feedback
		return ar, nil
	}
	g := grading.Grade(answer, card.Back)
	ar.Correct = g.Outcome.Passed()
	ar.Outcome = g.Outcome.String()
	return ar, nil
}
