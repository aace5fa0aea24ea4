package models

// UserStats summarizes a user's review progress
type UserStats struct {
	UserID        int64   `json:"user_id" db:"user_id"`
	CardsTotal    int     `json:"cards_total" db:"cards_total"`
	DueToday      int     `json:"due_today" db:"due_today"`
	Mastered      int     `json:"mastered" db:"mastered"`
	AvgEaseFactor float64 `json:"avg_ease_factor" db:"avg_ease_factor"`
	CurrentStreak int     `json:"current_streak" db:"current_streak"`
	LongestStreak int     `json:"longest_streak" db:"longest_streak"`
	StreakFrozen  bool    `json:"streak_frozen" db:"streak_frozen"`
}
