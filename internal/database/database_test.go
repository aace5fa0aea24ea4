package database

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashstack/pkg/models"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Connect(TypeSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sqlx.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func seedStack(t *testing.T, db *sqlx.DB, userID int64, name string, cards ...string) (*models.Stack, []models.Card) {
	t.Helper()
	ctx := context.Background()
	s := &models.Stack{UserID: userID, Name: name}
	require.NoError(t, NewStackRepository(db).Create(ctx, s))
	var out []models.Card
	for _, front := range cards {
		c := models.Card{StackID: s.ID, Front: front, Back: front + "-back"}
		require.NoError(t, NewCardRepository(db).Create(ctx, &c))
		out = append(out, c)
	}
	return s, out
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InitSchema(context.Background(), db))
}

func TestConnectRejectsUnknownType(t *testing.T) {
	_, err := Connect("oracle", "x")
	require.Error(t, err)
}

func TestUserStreakRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	u := seedUser(t, db, "ana")

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", got.Username)
	assert.Zero(t, got.CurrentStreak)
	assert.Nil(t, got.StreakDeadline)

	deadline := time.Date(2026, 5, 2, 23, 59, 59, 0, time.UTC)
	met := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	state := models.StreakState{
		CurrentStreak:      3,
		LongestStreak:      8,
		CardsMasteredToday: 11,
		LastActivityAt:     &met,
		StreakDeadline:     &deadline,
		GoalMetAt:          &met,
		GoalPending:        true,
	}
	require.NoError(t, repo.UpdateStreak(ctx, u.ID, state))

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentStreak)
	assert.Equal(t, 8, got.LongestStreak)
	assert.True(t, got.GoalPending)
	require.NotNil(t, got.StreakDeadline)
	assert.True(t, deadline.Equal(*got.StreakDeadline))
	require.NotNil(t, got.GoalMetAt)
	assert.True(t, met.Equal(*got.GoalMetAt))

	_, err = repo.GetByID(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.UpdateStreak(ctx, 999, state), ErrNotFound)
}

func TestListStreakCandidates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	idle := seedUser(t, db, "idle")
	active := seedUser(t, db, "active")
	pending := seedUser(t, db, "pending")
	require.NoError(t, repo.UpdateStreak(ctx, active.ID, models.StreakState{CurrentStreak: 2}))
	require.NoError(t, repo.UpdateStreak(ctx, pending.ID, models.StreakState{GoalPending: true}))

	users, err := repo.ListStreakCandidates(ctx)
	require.NoError(t, err)
	var ids []int64
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []int64{active.ID, pending.ID}, ids)
	assert.NotContains(t, ids, idle.ID)

	byID, err := repo.GetByIDs(ctx, []int64{idle.ID, active.ID})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
	assert.Equal(t, 2, byID[active.ID].CurrentStreak)
}

func TestFreezeStreak(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	u := seedUser(t, db, "bo")

	froze, err := repo.FreezeStreak(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, froze, "no streak to freeze")

	require.NoError(t, repo.UpdateStreak(ctx, u.ID, models.StreakState{CurrentStreak: 4}))
	froze, err = repo.FreezeStreak(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, froze)

	froze, err = repo.FreezeStreak(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, froze, "already frozen")
}

func TestStackStreakFlags(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewStackRepository(db)
	u := seedUser(t, db, "cy")
	a, _ := seedStack(t, db, u.ID, "verbs")
	b, _ := seedStack(t, db, u.ID, "nouns")

	suspended, err := repo.Suspend(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, suspended, "never contributed")

	require.NoError(t, repo.MarkContributed(ctx, a.ID))
	suspended, err = repo.Suspend(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, suspended)

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.CountsTowardStreak())

	require.NoError(t, repo.ResetStreakFlags(ctx, u.ID))
	stacks, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, stacks, 2)
	for _, s := range stacks {
		assert.False(t, s.ContributedToStreak)
		assert.False(t, s.SuspendedFromStreak)
	}

	again, created, err := repo.GetOrCreate(ctx, u.ID, "nouns")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, b.ID, again.ID)

	_, created, err = repo.GetOrCreate(ctx, u.ID, "adjectives")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestReviewStateUpsertAndMastery(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewReviewStateRepository(db)
	u := seedUser(t, db, "dee")
	s, cards := seedStack(t, db, u.ID, "food", "pan", "agua", "leche")

	below, err := repo.CountBelowMastery(ctx, u.ID, s.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, below)

	reviewed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, c := range cards {
		st := &models.CardReviewState{
			UserID: u.ID, CardID: c.ID, MasteryLevel: 2 + i, EaseFactor: 2.5, IntervalDays: 6,
			LastReviewDate: &reviewed, NextReviewDate: reviewed.AddDate(0, 0, 6),
		}
		require.NoError(t, repo.Upsert(ctx, st))
		assert.NotZero(t, st.ID)
	}

	below, err = repo.CountBelowMastery(ctx, u.ID, s.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, below)

	st, err := repo.GetByUserAndCard(ctx, u.ID, cards[0].ID)
	require.NoError(t, err)
	firstID := st.ID
	st.MasteryLevel = 3
	require.NoError(t, repo.Upsert(ctx, st))
	assert.Equal(t, firstID, st.ID, "upsert keeps the row")

	below, err = repo.CountBelowMastery(ctx, u.ID, s.ID, 3)
	require.NoError(t, err)
	assert.Zero(t, below)

	states, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, states, 3)

	_, err = repo.GetByUserAndCard(ctx, u.ID, 12345)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStackTestLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewStackTestRepository(db)
	u := seedUser(t, db, "eve")
	s, _ := seedStack(t, db, u.ID, "colors", "rojo")

	deadline := time.Date(2026, 5, 3, 12, 0, 0, 0, time.UTC)
	test := &models.StackTest{UserID: u.ID, StackID: s.ID, TestDeadline: deadline, CanUnfreezeStreak: true, TotalCards: 1}
	require.NoError(t, repo.Create(ctx, test))
	assert.Equal(t, models.TestPending, test.Status)

	dup := &models.StackTest{UserID: u.ID, StackID: s.ID, TestDeadline: deadline}
	require.Error(t, repo.Create(ctx, dup), "one pending test per stack")

	outstanding, err := repo.HasOutstanding(ctx, u.ID, s.ID)
	require.NoError(t, err)
	assert.True(t, outstanding)

	list, err := repo.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, deadline.Equal(list[0].TestDeadline))

	expired, err := repo.Expire(ctx, test.ID, true)
	require.NoError(t, err)
	assert.True(t, expired)
	expired, err = repo.Expire(ctx, test.ID, true)
	require.NoError(t, err)
	assert.False(t, expired, "no longer pending")

	open, err := repo.GetOpenForStack(ctx, u.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TestExpired, open.Status)
	assert.True(t, open.HasFrozenStreak)

	require.NoError(t, repo.RevokeUnfreeze(ctx, u.ID))
	got, err := repo.GetByID(ctx, test.ID)
	require.NoError(t, err)
	assert.False(t, got.CanUnfreezeStreak)

	submitted := deadline.Add(time.Hour)
	got.Status = models.TestPassed
	got.CorrectCards = 1
	got.SubmittedAt = &submitted
	require.NoError(t, repo.Complete(ctx, got))
	require.ErrorIs(t, repo.Complete(ctx, got), ErrNotFound, "closed tests cannot be completed twice")

	_, err = repo.GetOpenForStack(ctx, u.ID, s.ID)
	require.ErrorIs(t, err, ErrNotFound)

	outstanding, err = repo.HasOutstanding(ctx, u.ID, s.ID)
	require.NoError(t, err)
	assert.True(t, outstanding, "a passed test closes the obligation for good")
}

func TestFailedTestIsNotOutstanding(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewStackTestRepository(db)
	u := seedUser(t, db, "gus")
	s, _ := seedStack(t, db, u.ID, "numbers", "uno")

	test := &models.StackTest{UserID: u.ID, StackID: s.ID, TestDeadline: time.Date(2026, 5, 3, 12, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Create(ctx, test))
	test.Status = models.TestFailed
	require.NoError(t, repo.Complete(ctx, test))

	outstanding, err := repo.HasOutstanding(ctx, u.ID, s.ID)
	require.NoError(t, err)
	assert.False(t, outstanding)
}

func TestUserStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "fay")
	_, cards := seedStack(t, db, u.ID, "days", "lunes", "martes")
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	states := NewReviewStateRepository(db)
	require.NoError(t, states.Upsert(ctx, &models.CardReviewState{
		UserID: u.ID, CardID: cards[0].ID, MasteryLevel: 4, EaseFactor: 2.6, IntervalDays: 15, NextReviewDate: now.AddDate(0, 0, 15),
	}))
	require.NoError(t, states.Upsert(ctx, &models.CardReviewState{
		UserID: u.ID, CardID: cards[1].ID, MasteryLevel: 1, EaseFactor: 2.4, IntervalDays: 1, NextReviewDate: now.Add(-time.Hour),
	}))
	require.NoError(t, NewUserRepository(db).UpdateStreak(ctx, u.ID, models.StreakState{CurrentStreak: 2, LongestStreak: 5}))

	stats, err := NewStatisticsRepository(db).GetUserStats(ctx, u.ID, now, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CardsTotal)
	assert.Equal(t, 1, stats.DueToday)
	assert.Equal(t, 1, stats.Mastered)
	assert.InDelta(t, 2.5, stats.AvgEaseFactor, 1e-9)
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 5, stats.LongestStreak)

	_, err = NewStatisticsRepository(db).GetUserStats(ctx, 999, now, 3)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInTxRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "gus")

	err := InTx(ctx, db, func(tx *sqlx.Tx) error {
		if err := NewUserRepository(tx).UpdateStreak(ctx, u.ID, models.StreakState{CurrentStreak: 9}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := NewUserRepository(db).GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CurrentStreak)
}

func TestRepositoriesInTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repos := NewRepositories(db)

	err := repos.InTx(ctx, func(tx *Repositories) error {
		assert.Nil(t, tx.DB)
		assert.Error(t, tx.InTx(ctx, func(*Repositories) error { return nil }))
		return tx.Users.Create(ctx, &models.User{Username: "tx"})
	})
	require.NoError(t, err)

	users, err := repos.Users.GetByIDs(ctx, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, "tx", users[1].Username)
}
