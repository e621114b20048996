package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, Level(false, false))
	assert.Equal(t, zapcore.DebugLevel, Level(true, false))
	assert.Equal(t, zapcore.ErrorLevel, Level(false, true))
	assert.Equal(t, zapcore.ErrorLevel, Level(true, true))
}

func TestNew(t *testing.T) {
	t.Run("default hides info", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&buf, false, false)
		log.Info("depth done")
		log.Warn("search failed", zap.String("index", "logstash-wxm-app"))

		out := buf.String()
		assert.NotContains(t, out, "depth done")
		assert.Contains(t, out, "search failed")
		assert.Contains(t, out, "logstash-wxm-app")
	})

	t.Run("verbose shows debug", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, true, false).Debug("refreshing token")
		assert.Contains(t, buf.String(), "refreshing token")
	})

	t.Run("quiet keeps errors only", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&buf, false, true)
		log.Warn("token refresh failed")
		log.Error("fatal")
		assert.NotContains(t, buf.String(), "token refresh failed")
		assert.Contains(t, buf.String(), "fatal")
	})
}
