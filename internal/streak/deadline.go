package streak

import "time"

const (
	cardsPerGraceDay = 10
	minGraceDays     = 1
	maxGraceDays     = 7
)

// TestDeadline is the moment a stack's mastery test must be passed by.
// Larger stacks get longer: one day per started block of ten cards, 1 to 7 days.
func TestDeadline(masteredAt time.Time, cardCount int) time.Time {
	days := (cardCount + cardsPerGraceDay - 1) / cardsPerGraceDay
	days = min(max(days, minGraceDays), maxGraceDays)
	return masteredAt.AddDate(0, 0, days)
}
