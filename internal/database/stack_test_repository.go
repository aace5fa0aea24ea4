package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashstack/pkg/models"
)

const stackTestColumns = `id, user_id, stack_id, status, test_deadline, can_unfreeze_streak,
	has_frozen_streak, total_cards, correct_cards, submitted_at, created_at, updated_at`

// StackTestRepository handles database operations for stack mastery tests
type StackTestRepository struct {
	db sqlx.ExtContext
}

// NewStackTestRepository creates a new repository instance
func NewStackTestRepository(db sqlx.ExtContext) *StackTestRepository {
	return &StackTestRepository{db: db}
}

// Create inserts a new test record
func (r *StackTestRepository) Create(ctx context.Context, t *models.StackTest) error {
	if t.Status == "" {
		t.Status = models.TestPending
	}
	query := r.db.Rebind(`
		INSERT INTO stack_tests (
			user_id, stack_id, status, test_deadline, can_unfreeze_streak, has_frozen_streak, total_cards
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query,
		t.UserID,
		t.StackID,
		t.Status,
		t.TestDeadline.UTC(),
		t.CanUnfreezeStreak,
		t.HasFrozenStreak,
		t.TotalCards,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create stack test: %w", err)
	}
	return loadTimestamps(ctx, r.db, "stack_tests", t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID returns a test record by ID
func (r *StackTestRepository) GetByID(ctx context.Context, id int64) (*models.StackTest, error) {
	var t models.StackTest
	query := r.db.Rebind("SELECT " + stackTestColumns + " FROM stack_tests WHERE id = ?")
	if err := sqlx.GetContext(ctx, r.db, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("stack test %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get stack test: %w", err)
	}
	return &t, nil
}

// GetOpenForStack returns the stack's pending or expired test, newest first
func (r *StackTestRepository) GetOpenForStack(ctx context.Context, userID, stackID int64) (*models.StackTest, error) {
	var t models.StackTest
	query := r.db.Rebind(`SELECT ` + stackTestColumns + ` FROM stack_tests
		WHERE user_id = ? AND stack_id = ? AND status IN ('pending', 'expired')
		ORDER BY id DESC LIMIT 1`)
	if err := sqlx.GetContext(ctx, r.db, &t, query, userID, stackID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("open test for stack %d: %w", stackID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get open stack test: %w", err)
	}
	return &t, nil
}

// HasOutstanding reports whether the stack has a test that is still open
// (pending or expired) or already passed. Only a failed test lets a new one open.
func (r *StackTestRepository) HasOutstanding(ctx context.Context, userID, stackID int64) (bool, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM stack_tests
		WHERE user_id = ? AND stack_id = ? AND status IN ('pending', 'expired', 'passed')`)
	if err := sqlx.GetContext(ctx, r.db, &n, query, userID, stackID); err != nil {
		return false, fmt.Errorf("failed to check outstanding tests: %w", err)
	}
	return n > 0, nil
}

// ListPending returns every pending test. Deadlines are compared by the caller.
func (r *StackTestRepository) ListPending(ctx context.Context) ([]models.StackTest, error) {
	var tests []models.StackTest
	query := "SELECT " + stackTestColumns + " FROM stack_tests WHERE status = 'pending' ORDER BY test_deadline, id"
	if err := sqlx.SelectContext(ctx, r.db, &tests, query); err != nil {
		return nil, fmt.Errorf("failed to list pending tests: %w", err)
	}
	return tests, nil
}

// Expire moves a pending test to expired, recording whether its expiry froze the streak.
// Reports false when the test was no longer pending.
func (r *StackTestRepository) Expire(ctx context.Context, id int64, hasFrozenStreak bool) (bool, error) {
	query := r.db.Rebind(`
		UPDATE stack_tests SET status = 'expired', has_frozen_streak = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'
	`)
	res, err := r.db.ExecContext(ctx, query, hasFrozenStreak, id)
	if err != nil {
		return false, fmt.Errorf("failed to expire stack test %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// Complete records a submission result
func (r *StackTestRepository) Complete(ctx context.Context, t *models.StackTest) error {
	query := r.db.Rebind(`
		UPDATE stack_tests SET
			status = ?,
			total_cards = ?,
			correct_cards = ?,
			submitted_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN ('pending', 'expired')
	`)
	res, err := r.db.ExecContext(ctx, query, t.Status, t.TotalCards, t.CorrectCards, utcPtr(t.SubmittedAt), t.ID)
	if err != nil {
		return fmt.Errorf("failed to complete stack test %d: %w", t.ID, err)
	}
	return expectRow(res, "open stack test", t.ID)
}

// RevokeUnfreeze marks a user's open tests as no longer able to lift a freeze
func (r *StackTestRepository) RevokeUnfreeze(ctx context.Context, userID int64) error {
	query := r.db.Rebind(`
		UPDATE stack_tests SET can_unfreeze_streak = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND status IN ('pending', 'expired') AND can_unfreeze_streak
	`)
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to revoke unfreeze for user %d: %w", userID, err)
	}
	return nil
}
