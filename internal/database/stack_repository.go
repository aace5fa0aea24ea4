package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashstack/pkg/models"
)

const stackColumns = `id, user_id, name, contributed_to_streak, suspended_from_streak, created_at, updated_at`

// StackRepository handles database operations for stacks
type StackRepository struct {
	db sqlx.ExtContext
}

// NewStackRepository creates a new repository instance
func NewStackRepository(db sqlx.ExtContext) *StackRepository {
	return &StackRepository{db: db}
}

// Create inserts a new stack
func (r *StackRepository) Create(ctx context.Context, stack *models.Stack) error {
	query := r.db.Rebind(`
		INSERT INTO stacks (user_id, name) VALUES (?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query, stack.UserID, stack.Name).
		Scan(&stack.ID)
	if err != nil {
		return fmt.Errorf("failed to create stack: %w", err)
	}
	return loadTimestamps(ctx, r.db, "stacks", stack.ID, &stack.CreatedAt, &stack.UpdatedAt)
}

// GetByID retrieves a stack by its ID
func (r *StackRepository) GetByID(ctx context.Context, id int64) (*models.Stack, error) {
	var stack models.Stack
	query := r.db.Rebind("SELECT " + stackColumns + " FROM stacks WHERE id = ?")
	if err := sqlx.GetContext(ctx, r.db, &stack, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("stack %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get stack: %w", err)
	}
	return &stack, nil
}

// GetByName retrieves a user's stack by its name
func (r *StackRepository) GetByName(ctx context.Context, userID int64, name string) (*models.Stack, error) {
	var stack models.Stack
	query := r.db.Rebind("SELECT " + stackColumns + " FROM stacks WHERE user_id = ? AND name = ?")
	if err := sqlx.GetContext(ctx, r.db, &stack, query, userID, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("stack %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get stack: %w", err)
	}
	return &stack, nil
}

// GetOrCreate returns the user's stack with this name, creating it if needed.
// The bool reports whether it was created.
func (r *StackRepository) GetOrCreate(ctx context.Context, userID int64, name string) (*models.Stack, bool, error) {
	stack, err := r.GetByName(ctx, userID, name)
	if err == nil {
		return stack, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	stack = &models.Stack{UserID: userID, Name: name}
	if err := r.Create(ctx, stack); err != nil {
		return nil, false, err
	}
	return stack, true, nil
}

// ListByUser returns all stacks owned by a user
func (r *StackRepository) ListByUser(ctx context.Context, userID int64) ([]models.Stack, error) {
	var stacks []models.Stack
	query := r.db.Rebind("SELECT " + stackColumns + " FROM stacks WHERE user_id = ? ORDER BY name")
	if err := sqlx.SelectContext(ctx, r.db, &stacks, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list stacks: %w", err)
	}
	return stacks, nil
}

// MarkContributed flags a stack whose cards counted toward the current streak
func (r *StackRepository) MarkContributed(ctx context.Context, id int64) error {
	query := r.db.Rebind(`
		UPDATE stacks SET contributed_to_streak = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND NOT contributed_to_streak
	`)
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark stack %d contributed: %w", id, err)
	}
	return nil
}

// Suspend stops a stack that contributed to the current streak from counting further.
// Stacks that never contributed are left alone. Reports whether a row changed.
func (r *StackRepository) Suspend(ctx context.Context, id int64) (bool, error) {
	query := r.db.Rebind(`
		UPDATE stacks SET suspended_from_streak = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND contributed_to_streak AND NOT suspended_from_streak
	`)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to suspend stack %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// Reinstate lifts a suspension, e.g. after the stack's test is passed
func (r *StackRepository) Reinstate(ctx context.Context, id int64) error {
	query := r.db.Rebind(`
		UPDATE stacks SET suspended_from_streak = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`)
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to reinstate stack %d: %w", id, err)
	}
	return nil
}

// ResetStreakFlags unlocks all of a user's stacks after their streak reset
func (r *StackRepository) ResetStreakFlags(ctx context.Context, userID int64) error {
	query := r.db.Rebind(`
		UPDATE stacks SET
			contributed_to_streak = FALSE,
			suspended_from_streak = FALSE,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`)
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to reset stack flags for user %d: %w", userID, err)
	}
	return nil
}

// Delete removes a stack together with its cards and tests
func (r *StackRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM stacks WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete stack: %w", err)
	}
	return expectRow(res, "stack", id)
}
