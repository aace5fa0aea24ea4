package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// column types that differ between SQLite and PostgreSQL
type dialect struct {
	id string
	ts string
}

func dialectFor(driverName string) dialect {
	if driverName == "postgres" {
		return dialect{id: "BIGSERIAL PRIMARY KEY", ts: "TIMESTAMPTZ"}
	}
	// go-sqlite3 only parses declared TIMESTAMP columns into time.Time
	return dialect{id: "INTEGER PRIMARY KEY AUTOINCREMENT", ts: "TIMESTAMP"}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{ID}},
		username TEXT NOT NULL UNIQUE,
		timezone TEXT NOT NULL DEFAULT '',
		telegram_chat_id BIGINT,
		current_streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		streak_frozen BOOLEAN NOT NULL DEFAULT FALSE,
		cards_mastered_today INTEGER NOT NULL DEFAULT 0,
		last_activity_at {{TS}},
		streak_deadline {{TS}},
		goal_met_at {{TS}},
		goal_pending BOOLEAN NOT NULL DEFAULT FALSE,
		created_at {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS stacks (
		id {{ID}},
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		contributed_to_streak BOOLEAN NOT NULL DEFAULT FALSE,
		suspended_from_streak BOOLEAN NOT NULL DEFAULT FALSE,
		created_at {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id {{ID}},
		stack_id BIGINT NOT NULL REFERENCES stacks(id) ON DELETE CASCADE,
		front TEXT NOT NULL,
		back TEXT NOT NULL,
		hint TEXT NOT NULL DEFAULT '',
		created_at {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(stack_id, front)
	)`,
	`CREATE TABLE IF NOT EXISTS card_review_states (
		id {{ID}},
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		card_id BIGINT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
		mastery_level INTEGER NOT NULL DEFAULT 0,
		ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
		interval_days INTEGER NOT NULL DEFAULT 1,
		last_quality INTEGER NOT NULL DEFAULT 0,
		last_review_date {{TS}},
		next_review_date {{TS}} NOT NULL,
		created_at {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, card_id)
	)`,
	`CREATE TABLE IF NOT EXISTS stack_tests (
		id {{ID}},
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		stack_id BIGINT NOT NULL REFERENCES stacks(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'pending',
		test_deadline {{TS}} NOT NULL,
		can_unfreeze_streak BOOLEAN NOT NULL DEFAULT TRUE,
		has_frozen_streak BOOLEAN NOT NULL DEFAULT FALSE,
		total_cards INTEGER NOT NULL DEFAULT 0,
		correct_cards INTEGER NOT NULL DEFAULT 0,
		submitted_at {{TS}},
		created_at {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	// a stack has at most one pending test
	`CREATE UNIQUE INDEX IF NOT EXISTS stack_tests_one_pending
		ON stack_tests(user_id, stack_id) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS card_review_states_next_review
		ON card_review_states(user_id, next_review_date)`,
}

// InitSchema creates necessary tables if they don't exist
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	d := dialectFor(db.DriverName())
	r := strings.NewReplacer("{{ID}}", d.id, "{{TS}}", d.ts)
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
