package models

import "time"

// CardReviewState tracks a user's SM-2 progress with a specific card
type CardReviewState struct {
	ID             int64      `json:"id" db:"id"`
	UserID         int64      `json:"user_id" db:"user_id"`
	CardID         int64      `json:"card_id" db:"card_id"`
	MasteryLevel   int        `json:"mastery_level" db:"mastery_level"` // 0-5
	EaseFactor     float64    `json:"ease_factor" db:"ease_factor"`     // never below 1.3
	IntervalDays   int        `json:"interval_days" db:"interval_days"` // at least 1
	LastQuality    int        `json:"last_quality" db:"last_quality"`   // 0-5 rating of last recall
	LastReviewDate *time.Time `json:"last_review_date" db:"last_review_date"`
	NextReviewDate time.Time  `json:"next_review_date" db:"next_review_date"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Reviewed reports whether the card has been reviewed at least once.
func (s *CardReviewState) Reviewed() bool {
	return s.LastReviewDate != nil
}
