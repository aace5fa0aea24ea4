package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashstack/pkg/models"
)

const reviewStateColumns = `id, user_id, card_id, mastery_level, ease_factor, interval_days,
	last_quality, last_review_date, next_review_date, created_at, updated_at`

// ReviewStateRepository handles database operations for per-card review state
type ReviewStateRepository struct {
	db sqlx.ExtContext
}

// NewReviewStateRepository creates a new repository instance
func NewReviewStateRepository(db sqlx.ExtContext) *ReviewStateRepository {
	return &ReviewStateRepository{db: db}
}

// GetByUserAndCard returns the review state for a specific user and card
func (r *ReviewStateRepository) GetByUserAndCard(ctx context.Context, userID, cardID int64) (*models.CardReviewState, error) {
	var state models.CardReviewState
	query := r.db.Rebind("SELECT " + reviewStateColumns + " FROM card_review_states WHERE user_id = ? AND card_id = ?")
	if err := sqlx.GetContext(ctx, r.db, &state, query, userID, cardID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("review state for card %d: %w", cardID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get review state: %w", err)
	}
	return &state, nil
}

// ListByUser returns every review state a user has
func (r *ReviewStateRepository) ListByUser(ctx context.Context, userID int64) ([]models.CardReviewState, error) {
	var states []models.CardReviewState
	query := r.db.Rebind("SELECT " + reviewStateColumns + " FROM card_review_states WHERE user_id = ? ORDER BY next_review_date")
	if err := sqlx.SelectContext(ctx, r.db, &states, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list review states: %w", err)
	}
	return states, nil
}

// Upsert creates or updates the review state for (user, card)
func (r *ReviewStateRepository) Upsert(ctx context.Context, state *models.CardReviewState) error {
	// SQLite (3.35+) и PostgreSQL оба поддерживают ON CONFLICT ... RETURNING
	query := r.db.Rebind(`
		INSERT INTO card_review_states (
			user_id, card_id, mastery_level, ease_factor, interval_days,
			last_quality, last_review_date, next_review_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, card_id) DO UPDATE SET
			mastery_level = EXCLUDED.mastery_level,
			ease_factor = EXCLUDED.ease_factor,
			interval_days = EXCLUDED.interval_days,
			last_quality = EXCLUDED.last_quality,
			last_review_date = EXCLUDED.last_review_date,
			next_review_date = EXCLUDED.next_review_date,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query,
		state.UserID,
		state.CardID,
		state.MasteryLevel,
		state.EaseFactor,
		state.IntervalDays,
		state.LastQuality,
		utcPtr(state.LastReviewDate),
		state.NextReviewDate.UTC(),
	).Scan(&state.ID)
	if err != nil {
		return fmt.Errorf("failed to save review state: %w", err)
	}
	return loadTimestamps(ctx, r.db, "card_review_states", state.ID, &state.CreatedAt, &state.UpdatedAt)
}

// CountBelowMastery returns how many cards of a stack the user has not yet
// brought to the mastery threshold, unreviewed cards included.
func (r *ReviewStateRepository) CountBelowMastery(ctx context.Context, userID, stackID int64, threshold int) (int, error) {
	var n int
	query := r.db.Rebind(`
		SELECT COUNT(*) FROM cards c
		LEFT JOIN card_review_states s ON s.card_id = c.id AND s.user_id = ?
		WHERE c.stack_id = ? AND (s.id IS NULL OR s.mastery_level < ?)
	`)
	if err := sqlx.GetContext(ctx, r.db, &n, query, userID, stackID, threshold); err != nil {
		return 0, fmt.Errorf("failed to count unmastered cards: %w", err)
	}
	return n, nil
}
