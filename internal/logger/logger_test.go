package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedact(t *testing.T) {
	in := []interface{}{"user_id", 7, "cron_secret", "s3cr3t", "Authorization", "Bearer x", "dangling"}
	got := redact(in)
	assert.Equal(t, []interface{}{"user_id", 7, "cron_secret", "[REDACTED]", "Authorization", "[REDACTED]", "dangling"}, got)
	assert.Equal(t, "s3cr3t", in[3], "input is not modified")
}

func TestLoggerWritesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("component", "sweep").Info("done", "expired", 2, "api_key", "k")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "sweep", fields["component"])
		assert.EqualValues(t, 2, fields["expired"])
		assert.Equal(t, "[REDACTED]", fields["api_key"])
	}
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode)
		assert.NoError(t, err)
		assert.NotNil(t, l.SugaredLogger)
	}
	Nop().Info("discarded")
}
