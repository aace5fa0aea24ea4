package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashstack/pkg/models"
)

const cardColumns = `id, stack_id, front, back, hint, created_at, updated_at`

// CardRepository handles database operations for cards
type CardRepository struct {
	db sqlx.ExtContext
}

// NewCardRepository creates a new repository instance
func NewCardRepository(db sqlx.ExtContext) *CardRepository {
	return &CardRepository{db: db}
}

// Create inserts a new card
func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	query := r.db.Rebind(`
		INSERT INTO cards (stack_id, front, back, hint) VALUES (?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query, card.StackID, card.Front, card.Back, card.Hint).
		Scan(&card.ID)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return loadTimestamps(ctx, r.db, "cards", card.ID, &card.CreatedAt, &card.UpdatedAt)
}

// Update modifies an existing card's text
func (r *CardRepository) Update(ctx context.Context, card *models.Card) error {
	query := r.db.Rebind(`
		UPDATE cards SET front = ?, back = ?, hint = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`)
	res, err := r.db.ExecContext(ctx, query, card.Front, card.Back, card.Hint, card.ID)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	return expectRow(res, "card", card.ID)
}

// GetByID returns a card by ID
func (r *CardRepository) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	var card models.Card
	query := r.db.Rebind("SELECT " + cardColumns + " FROM cards WHERE id = ?")
	if err := sqlx.GetContext(ctx, r.db, &card, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("card %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get card by ID: %w", err)
	}
	return &card, nil
}

// GetByFront returns the card in a stack with the given front text
func (r *CardRepository) GetByFront(ctx context.Context, stackID int64, front string) (*models.Card, error) {
	var card models.Card
	query := r.db.Rebind("SELECT " + cardColumns + " FROM cards WHERE stack_id = ? AND front = ?")
	if err := sqlx.GetContext(ctx, r.db, &card, query, stackID, front); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("card %q: %w", front, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

// ListByStack returns the cards of a stack
func (r *CardRepository) ListByStack(ctx context.Context, stackID int64) ([]models.Card, error) {
	var cards []models.Card
	query := r.db.Rebind("SELECT " + cardColumns + " FROM cards WHERE stack_id = ? ORDER BY id")
	if err := sqlx.SelectContext(ctx, r.db, &cards, query, stackID); err != nil {
		return nil, fmt.Errorf("failed to get cards by stack: %w", err)
	}
	return cards, nil
}

// CountByStack returns the number of cards in a stack
func (r *CardRepository) CountByStack(ctx context.Context, stackID int64) (int, error) {
	var n int
	query := r.db.Rebind("SELECT COUNT(*) FROM cards WHERE stack_id = ?")
	if err := sqlx.GetContext(ctx, r.db, &n, query, stackID); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

// Delete removes a card
func (r *CardRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM cards WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return expectRow(res, "card", id)
}
