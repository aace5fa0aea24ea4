package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashstack/pkg/models"
)

// StatisticsRepository computes per-user progress figures
type StatisticsRepository struct {
	db sqlx.ExtContext
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db sqlx.ExtContext) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// GetUserStats returns statistics about a user's progress.
// dueBefore bounds "due today"; masteryThreshold defines a mastered card.
func (r *StatisticsRepository) GetUserStats(ctx context.Context, userID int64, dueBefore time.Time, masteryThreshold int) (*models.UserStats, error) {
	stats := models.UserStats{UserID: userID}

	query := r.db.Rebind(`
		SELECT current_streak, longest_streak, streak_frozen FROM users WHERE id = ?
	`)
	if err := sqlx.GetContext(ctx, r.db, &stats, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %d streak: %w", userID, err)
	}

	// Get cards with review progress
	query = r.db.Rebind("SELECT COUNT(*) FROM card_review_states WHERE user_id = ?")
	if err := sqlx.GetContext(ctx, r.db, &stats.CardsTotal, query, userID); err != nil {
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}

	// Get cards due today
	query = r.db.Rebind("SELECT COUNT(*) FROM card_review_states WHERE user_id = ? AND next_review_date <= ?")
	if err := sqlx.GetContext(ctx, r.db, &stats.DueToday, query, userID, dueBefore.UTC()); err != nil {
		return nil, fmt.Errorf("failed to count due cards: %w", err)
	}

	// Get mastered cards
	query = r.db.Rebind("SELECT COUNT(*) FROM card_review_states WHERE user_id = ? AND mastery_level >= ?")
	if err := sqlx.GetContext(ctx, r.db, &stats.Mastered, query, userID, masteryThreshold); err != nil {
		return nil, fmt.Errorf("failed to count mastered cards: %w", err)
	}

	// Get average ease factor
	query = r.db.Rebind("SELECT COALESCE(AVG(ease_factor), 2.5) FROM card_review_states WHERE user_id = ?")
	if err := sqlx.GetContext(ctx, r.db, &stats.AvgEaseFactor, query, userID); err != nil {
		return nil, fmt.Errorf("failed to average ease factor: %w", err)
	}

	return &stats, nil
}
