package models

import "time"

// Card is a single flashcard: prompt on the front, expected answer on the back
type Card struct {
	ID        int64     `json:"id" db:"id"`
	StackID   int64     `json:"stack_id" db:"stack_id"`
	Front     string    `json:"front" db:"front"`
	Back      string    `json:"back" db:"back"`
	Hint      string    `json:"hint" db:"hint"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
