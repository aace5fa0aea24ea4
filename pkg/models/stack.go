package models

import "time"

// Stack is a user's flashcard deck
type Stack struct {
	ID                  int64     `json:"id" db:"id"`
	UserID              int64     `json:"user_id" db:"user_id"`
	Name                string    `json:"name" db:"name"`
	ContributedToStreak bool      `json:"contributed_to_streak" db:"contributed_to_streak"`
	SuspendedFromStreak bool      `json:"suspended_from_streak" db:"suspended_from_streak"` // test failed/expired after contributing
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// CountsTowardStreak reports whether reviews of this stack's cards feed the daily goal.
func (s *Stack) CountsTowardStreak() bool {
	return !s.SuspendedFromStreak
}
