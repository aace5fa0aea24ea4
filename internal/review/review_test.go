package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashstack/internal/database"
	"github.com/example/flashstack/internal/grading"
	"github.com/example/flashstack/internal/spaced_repetition"
	"github.com/example/flashstack/internal/streak"
	"github.com/example/flashstack/pkg/models"
)

var now = time.Date(2026, 6, 15, 18, 30, 0, 0, time.UTC)

type fixture struct {
	repos *database.Repositories
	svc   *Service
	user  *models.User
	stack *models.Stack
	cards []models.Card
}

func setup(t *testing.T, dailyGoal, threshold int) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.Connect(database.TypeSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := fixture{repos: database.NewRepositories(db), user: &models.User{Username: "mia"}}
	require.NoError(t, f.repos.Users.Create(ctx, f.user))
	f.stack = &models.Stack{UserID: f.user.ID, Name: "colors"}
	require.NoError(t, f.repos.Stacks.Create(ctx, f.stack))
	for _, pair := range [][2]string{{"rojo", "red"}, {"verde", "green"}} {
		c := models.Card{StackID: f.stack.ID, Front: pair[0], Back: pair[1]}
		require.NoError(t, f.repos.Cards.Create(ctx, &c))
		f.cards = append(f.cards, c)
	}

	f.svc = NewService(f.repos, spaced_repetition.NewSM2(), streak.NewEngine(dailyGoal, time.UTC), threshold, nil)
	f.svc.Now = func() time.Time { return now }
	return f
}

func TestAnswerFirstReview(t *testing.T) {
	f := setup(t, 10, 3)
	ctx := context.Background()

	out, err := f.svc.Answer(ctx, f.user.ID, f.cards[0].ID, "  RED! ")
	require.NoError(t, err)
	assert.Equal(t, grading.Exact, out.Grade.Outcome)
	assert.Equal(t, 5, out.Quality)
	assert.Equal(t, 1, out.State.MasteryLevel)
	assert.Equal(t, 1, out.State.IntervalDays)
	assert.InDelta(t, 2.6, out.State.EaseFactor, 1e-9)
	assert.True(t, out.Counted)
	assert.Equal(t, 1, out.Streak.CardsMasteredToday)

	stored, err := f.repos.States.GetByUserAndCard(ctx, f.user.ID, f.cards[0].ID)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 1), stored.NextReviewDate.UTC())

	stack, err := f.repos.Stacks.GetByID(ctx, f.stack.ID)
	require.NoError(t, err)
	assert.True(t, stack.ContributedToStreak)
}

func TestAnswerSoftPassAndFail(t *testing.T) {
	f := setup(t, 10, 3)
	ctx := context.Background()

	out, err := f.svc.Answer(ctx, f.user.ID, f.cards[1].ID, "gren")
	require.NoError(t, err)
	assert.Equal(t, grading.SoftPass, out.Grade.Outcome)
	assert.Equal(t, 4, out.Quality)
	assert.InDelta(t, 2.5, out.State.EaseFactor, 1e-9)

	out, err = f.svc.Answer(ctx, f.user.ID, f.cards[1].ID, "blue")
	require.NoError(t, err)
	assert.Equal(t, grading.Fail, out.Grade.Outcome)
	assert.Equal(t, 2, out.Quality)
	assert.False(t, out.Counted)
	assert.Zero(t, out.State.MasteryLevel)
	assert.InDelta(t, 2.5, out.State.EaseFactor, 1e-9)
	assert.Equal(t, 1, out.Streak.CardsMasteredToday)
}

func TestAnswerMeetsGoalWithoutCrediting(t *testing.T) {
	f := setup(t, 2, 3)
	ctx := context.Background()

	_, err := f.svc.Answer(ctx, f.user.ID, f.cards[0].ID, "red")
	require.NoError(t, err)
	out, err := f.svc.Answer(ctx, f.user.ID, f.cards[1].ID, "green")
	require.NoError(t, err)
	assert.True(t, out.GoalMet)

	u, err := f.repos.Users.GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, u.GoalPending)
	assert.Zero(t, u.CurrentStreak, "only the sweep credits a streak")
	require.NotNil(t, u.GoalMetAt)
}

func TestAnswerOpensTestOnMastery(t *testing.T) {
	f := setup(t, 10, 1)
	ctx := context.Background()

	out, err := f.svc.Answer(ctx, f.user.ID, f.cards[0].ID, "red")
	require.NoError(t, err)
	assert.Nil(t, out.TestOpened)

	out, err = f.svc.Answer(ctx, f.user.ID, f.cards[1].ID, "green")
	require.NoError(t, err)
	require.NotNil(t, out.TestOpened)
	assert.Equal(t, models.TestPending, out.TestOpened.Status)
	assert.True(t, out.TestOpened.CanUnfreezeStreak)
	assert.Equal(t, streak.TestDeadline(now, 2), out.TestOpened.TestDeadline)

	out, err = f.svc.Answer(ctx, f.user.ID, f.cards[1].ID, "green")
	require.NoError(t, err)
	assert.Nil(t, out.TestOpened, "one pending test per stack")
}

func masterStack(t *testing.T, f fixture) *models.StackTest {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Answer(ctx, f.user.ID, f.cards[0].ID, "red")
	require.NoError(t, err)
	out, err := f.svc.Answer(ctx, f.user.ID, f.cards[1].ID, "green")
	require.NoError(t, err)
	require.NotNil(t, out.TestOpened)
	return out.TestOpened
}

func TestAnswerMasteredCardAfterPassOpensNoTest(t *testing.T) {
	f := setup(t, 10, 1)
	ctx := context.Background()
	test := masterStack(t, f)

	test.Status = models.TestPassed
	require.NoError(t, f.repos.Tests.Complete(ctx, test))

	for _, c := range f.cards {
		out, err := f.svc.Answer(ctx, f.user.ID, c.ID, c.Back)
		require.NoError(t, err)
		assert.Nil(t, out.TestOpened)
	}

	// lapse and re-master a card: the stack was already passed
	_, err := f.svc.Answer(ctx, f.user.ID, f.cards[0].ID, "blue")
	require.NoError(t, err)
	out, err := f.svc.Answer(ctx, f.user.ID, f.cards[0].ID, "red")
	require.NoError(t, err)
	assert.Nil(t, out.TestOpened)
}

func TestAnswerMasteredCardAfterExpiryOpensNoTest(t *testing.T) {
	f := setup(t, 10, 1)
	ctx := context.Background()
	test := masterStack(t, f)

	expired, err := f.repos.Tests.Expire(ctx, test.ID, false)
	require.NoError(t, err)
	require.True(t, expired)

	for _, c := range f.cards {
		out, err := f.svc.Answer(ctx, f.user.ID, c.ID, c.Back)
		require.NoError(t, err)
		assert.Nil(t, out.TestOpened)
	}
	open, err := f.repos.Tests.GetOpenForStack(ctx, f.user.ID, f.stack.ID)
	require.NoError(t, err)
	assert.Equal(t, test.ID, open.ID)
}

func TestAnswerRemasteryAfterFailureOpensTest(t *testing.T) {
	f := setup(t, 10, 1)
	ctx := context.Background()
	test := masterStack(t, f)

	test.Status = models.TestFailed
	require.NoError(t, f.repos.Tests.Complete(ctx, test))

	out, err := f.svc.Answer(ctx, f.user.ID, f.cards[0].ID, "red")
	require.NoError(t, err)
	assert.Nil(t, out.TestOpened, "card was already mastered")

	_, err = f.svc.Answer(ctx, f.user.ID, f.cards[0].ID, "blue")
	require.NoError(t, err)
	out, err = f.svc.Answer(ctx, f.user.ID, f.cards[0].ID, "red")
	require.NoError(t, err)
	require.NotNil(t, out.TestOpened)
	assert.NotEqual(t, test.ID, out.TestOpened.ID)
}

func TestAnswerSuspendedStackDoesNotCount(t *testing.T) {
	f := setup(t, 10, 3)
	ctx := context.Background()

	_, err := f.svc.Answer(ctx, f.user.ID, f.cards[0].ID, "red")
	require.NoError(t, err)
	suspended, err := f.repos.Stacks.Suspend(ctx, f.stack.ID)
	require.NoError(t, err)
	require.True(t, suspended)

	out, err := f.svc.Answer(ctx, f.user.ID, f.cards[1].ID, "green")
	require.NoError(t, err)
	assert.False(t, out.Counted)
	assert.Equal(t, 1, out.State.MasteryLevel, "the card is still scheduled")
	assert.Equal(t, 1, out.Streak.CardsMasteredToday)
}

func TestAnswerForeignCard(t *testing.T) {
	f := setup(t, 10, 3)
	other := &models.User{Username: "intruder"}
	require.NoError(t, f.repos.Users.Create(context.Background(), other))

	_, err := f.svc.Answer(context.Background(), other.ID, f.cards[0].ID, "red")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestDue(t *testing.T) {
	f := setup(t, 10, 3)
	ctx := context.Background()

	due, err := f.svc.Due(ctx, f.user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, due, 2)

	_, err = f.svc.Answer(ctx, f.user.ID, f.cards[0].ID, "red")
	require.NoError(t, err)

	due, err = f.svc.Due(ctx, f.user.ID, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, f.cards[1].ID, due[0].Card.ID)
	assert.False(t, due[0].State.Reviewed())

	f.svc.Now = func() time.Time { return now.AddDate(0, 0, 1) }
	due, err = f.svc.Due(ctx, f.user.ID, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, f.cards[1].ID, due[0].Card.ID, "never-reviewed cards come first")
}
