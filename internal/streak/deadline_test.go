package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTestDeadline(t *testing.T) {
	masteredAt := time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		cards int
		days  int
	}{
		{0, 1}, {1, 1}, {10, 1}, {11, 2}, {35, 4}, {70, 7}, {500, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, masteredAt.AddDate(0, 0, tt.days), TestDeadline(masteredAt, tt.cards), "cards=%d", tt.cards)
	}
}
