package models

import "time"

// StreakState is the per-user streak aggregate. It is embedded in User and
// only ever changed through streak.Apply.
type StreakState struct {
	CurrentStreak      int        `json:"current_streak" db:"current_streak"`
	LongestStreak      int        `json:"longest_streak" db:"longest_streak"`
	StreakFrozen       bool       `json:"streak_frozen" db:"streak_frozen"`
	CardsMasteredToday int        `json:"cards_mastered_today" db:"cards_mastered_today"`
	LastActivityAt     *time.Time `json:"last_activity_at" db:"last_activity_at"` // last counted review
	StreakDeadline     *time.Time `json:"streak_deadline" db:"streak_deadline"`
	GoalMetAt          *time.Time `json:"goal_met_at" db:"goal_met_at"`
	GoalPending        bool       `json:"goal_pending" db:"goal_pending"` // goal met, not yet reconciled
}

// User represents a learner account
type User struct {
	ID             int64     `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Timezone       string    `json:"timezone" db:"timezone"`                 // IANA name, empty means default
	TelegramChatID *int64    `json:"telegram_chat_id" db:"telegram_chat_id"` // Optional: streak notifications
	StreakState
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
