package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl.Level())

	lvl, err = ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl.Level())

	_, err = ParseLogLevel("loud")
	require.Error(t, err)
}

func TestCreateLoggerWithLumberjack(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "memscope.log")

	l := CreateLoggerWithLumberjack(logFile, 1, zapcore.InfoLevel)
	l.Infow("section skipped", "timestamp", "Jan  1 00:00:00")
	require.NoError(t, l.Sync())

	b, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), "section skipped")
}

func TestNilLogger(t *testing.T) {
	var l *memscopeLogger
	assert.NotPanics(t, func() {
		l.Warnw("no-op")
		l.Debugw("no-op")
	})
}

func TestSetLogger(t *testing.T) {
	orig := Logger.get()
	defer Logger.set(orig)

	SetLogger(nil)
	assert.Equal(t, nopLogger, Logger.get())
}
