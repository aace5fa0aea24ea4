package sweep

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashstack/internal/database"
	"github.com/example/flashstack/pkg/models"
)

// Store is the persistence the sweep needs
type Store interface {
	StreakCandidates(ctx context.Context) ([]models.User, error)
	PendingTests(ctx context.Context) ([]models.StackTest, error)
	UsersByID(ctx context.Context, ids []int64) (map[int64]models.User, error)
	// ApplyStreak re-reads the user inside its transaction, lets replan
	// compute the transition from that row and persists it. ok is false
	// when the fresh row needed no change.
	ApplyStreak(ctx context.Context, userID int64, replan func(models.User) (StreakTransition, bool)) (t StreakTransition, ok bool, err error)
	// ApplyTestExpiry persists a Pass B transition. It reports false when the
	// test was already handled by a concurrent run; froze reports whether the
	// user row was actually frozen.
	ApplyTestExpiry(ctx context.Context, t TestTransition) (applied, froze bool, err error)
}

// SQLStore implements Store over the database repositories
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) StreakCandidates(ctx context.Context) ([]models.User, error) {
	return database.NewUserRepository(s.db).ListStreakCandidates(ctx)
}

func (s *SQLStore) PendingTests(ctx context.Context) ([]models.StackTest, error) {
	return database.NewStackTestRepository(s.db).ListPending(ctx)
}

func (s *SQLStore) UsersByID(ctx context.Context, ids []int64) (map[int64]models.User, error) {
	return database.NewUserRepository(s.db).GetByIDs(ctx, ids)
}

func (s *SQLStore) ApplyStreak(ctx context.Context, userID int64, replan func(models.User) (StreakTransition, bool)) (StreakTransition, bool, error) {
	var (
		t  StreakTransition
		ok bool
	)
	err := database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		users := database.NewUserRepository(tx)
		u, err := users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		t, ok = replan(*u)
		if !ok {
			return nil
		}
		if err := users.UpdateStreak(ctx, userID, t.After); err != nil {
			return err
		}
		if !t.Change.Reset {
			return nil
		}
		if err := database.NewStackRepository(tx).ResetStreakFlags(ctx, userID); err != nil {
			return err
		}
		return database.NewStackTestRepository(tx).RevokeUnfreeze(ctx, userID)
	})
	if err != nil {
		return StreakTransition{}, false, err
	}
	return t, ok, nil
}

var errSkip = errors.New("test no longer pending")

func (s *SQLStore) ApplyTestExpiry(ctx context.Context, t TestTransition) (bool, bool, error) {
	var froze bool
	err := database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		froze = false
		if t.Freeze {
			ok, err := database.NewUserRepository(tx).FreezeStreak(ctx, t.Test.UserID)
			if err != nil {
				return err
			}
			froze = ok
		}
		expired, err := database.NewStackTestRepository(tx).Expire(ctx, t.Test.ID, froze)
		if err != nil {
			return err
		}
		if !expired {
			return errSkip
		}
		_, err = database.NewStackRepository(tx).Suspend(ctx, t.Test.StackID)
		return err
	})
	if errors.Is(err, errSkip) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return true, froze, nil
}
