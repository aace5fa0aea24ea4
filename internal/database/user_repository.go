package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashstack/pkg/models"
)

const userColumns = `id, username, timezone, telegram_chat_id,
	current_streak, longest_streak, streak_frozen, cards_mastered_today,
	last_activity_at, streak_deadline, goal_met_at, goal_pending,
	created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db sqlx.ExtContext
}

// NewUserRepository creates a new repository instance. db may be a *sqlx.DB or a *sqlx.Tx.
func NewUserRepository(db sqlx.ExtContext) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with an empty streak
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := r.db.Rebind(`
		INSERT INTO users (username, timezone, telegram_chat_id)
		VALUES (?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query, user.Username, user.Timezone, user.TelegramChatID).
		Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return loadTimestamps(ctx, r.db, "users", user.ID, &user.CreatedAt, &user.UpdatedAt)
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	if err := sqlx.GetContext(ctx, r.db, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}

// GetForUpdate reads a user inside a transaction. On Postgres the row stays
// locked until the transaction ends; SQLite already serializes writers.
func (r *UserRepository) GetForUpdate(ctx context.Context, id int64) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	if r.db.DriverName() == TypePostgres {
		query += " FOR UPDATE"
	}
	var user models.User
	if err := sqlx.GetContext(ctx, r.db, &user, r.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return &user, nil
}

// GetByTelegramChatID returns the user linked to a Telegram chat
func (r *UserRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error) {
	var user models.User
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE telegram_chat_id = ? ORDER BY id LIMIT 1")
	if err := sqlx.GetContext(ctx, r.db, &user, query, chatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user for chat %d: %w", chatID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by chat: %w", err)
	}
	return &user, nil
}

// GetByIDs returns the users with the given IDs keyed by ID
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error) {
	out := make(map[int64]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In("SELECT "+userColumns+" FROM users WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build users query: %w", err)
	}
	var users []models.User
	if err := sqlx.SelectContext(ctx, r.db, &users, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// ListStreakCandidates returns users the hourly sweep has to look at:
// an active streak, or a met daily goal not yet reconciled.
func (r *UserRepository) ListStreakCandidates(ctx context.Context) ([]models.User, error) {
	var users []models.User
	query := "SELECT " + userColumns + " FROM users WHERE current_streak > 0 OR goal_pending ORDER BY id"
	if err := sqlx.SelectContext(ctx, r.db, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list streak candidates: %w", err)
	}
	return users, nil
}

// UpdateStreak overwrites the streak fields of a user
func (r *UserRepository) UpdateStreak(ctx context.Context, id int64, s models.StreakState) error {
	query := r.db.Rebind(`
		UPDATE users SET
			current_streak = ?,
			longest_streak = ?,
			streak_frozen = ?,
			cards_mastered_today = ?,
			last_activity_at = ?,
			streak_deadline = ?,
			goal_met_at = ?,
			goal_pending = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		s.CurrentStreak,
		s.LongestStreak,
		s.StreakFrozen,
		s.CardsMasteredToday,
		utcPtr(s.LastActivityAt),
		utcPtr(s.StreakDeadline),
		utcPtr(s.GoalMetAt),
		s.GoalPending,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update streak for user %d: %w", id, err)
	}
	return expectRow(res, "user", id)
}

// FreezeStreak sets streak_frozen on a user with an active, unfrozen streak.
// It reports whether a row changed.
func (r *UserRepository) FreezeStreak(ctx context.Context, id int64) (bool, error) {
	query := r.db.Rebind(`
		UPDATE users SET streak_frozen = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND current_streak > 0 AND NOT streak_frozen
	`)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to freeze streak for user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// SetTelegramChatID links a Telegram chat for streak notifications
func (r *UserRepository) SetTelegramChatID(ctx context.Context, id int64, chatID *int64) error {
	query := r.db.Rebind("UPDATE users SET telegram_chat_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	res, err := r.db.ExecContext(ctx, query, chatID, id)
	if err != nil {
		return fmt.Errorf("failed to set telegram chat for user %d: %w", id, err)
	}
	return expectRow(res, "user", id)
}
