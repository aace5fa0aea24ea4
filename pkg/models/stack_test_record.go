package models

import "time"

// TestStatus is the lifecycle state of a stack mastery test
type TestStatus string

const (
	TestPending TestStatus = "pending"
	TestPassed  TestStatus = "passed"
	TestFailed  TestStatus = "failed"
	TestExpired TestStatus = "expired"
)

// Open reports whether the test still accepts a submission.
func (s TestStatus) Open() bool {
	return s == TestPending || s == TestExpired
}

// StackTest is a mastery test attempt for a fully mastered stack
type StackTest struct {
	ID                int64      `json:"id" db:"id"`
	UserID            int64      `json:"user_id" db:"user_id"`
	StackID           int64      `json:"stack_id" db:"stack_id"`
	Status            TestStatus `json:"status" db:"status"`
	TestDeadline      time.Time  `json:"test_deadline" db:"test_deadline"`
	CanUnfreezeStreak bool       `json:"can_unfreeze_streak" db:"can_unfreeze_streak"`
	HasFrozenStreak   bool       `json:"has_frozen_streak" db:"has_frozen_streak"`
	TotalCards        int        `json:"total_cards" db:"total_cards"`
	CorrectCards      int        `json:"correct_cards" db:"correct_cards"`
	SubmittedAt       *time.Time `json:"submitted_at" db:"submitted_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}
