// Package log provides the logging functionality for memscope.
//
// Reports are written to stdout by the commands; everything logged here goes
// to stderr (or to a rotated file) so diagnostics never interleave with a table.
package log

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger *memscopeLogger
var nopLogger = zap.NewNop().Sugar()

func init() {
	Logger = CreateLoggerWithConfig(DefaultLoggerConfig())
}

// DefaultLoggerConfig logs warnings and above to stderr.
func DefaultLoggerConfig() *zap.Config {
	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	c.OutputPaths = []string{"stderr"}
	c.ErrorOutputPaths = []string{"stderr"}
	return &c
}

func CreateLoggerWithLumberjack(logFile string, maxSize int, logLevel zapcore.Level) *memscopeLogger {
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    maxSize, // megabytes
		MaxBackups: 5,
		MaxAge:     3,    // days
		Compress:   true, // compress the rotated files
	})

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		w,
		logLevel,
	)
	return newMemscopeLogger(zap.New(core).Sugar())
}

// ParseLogLevel parses the level flag value.
// Empty defaults to "warn" since the commands print their reports to stdout.
func ParseLogLevel(logLevel string) (zap.AtomicLevel, error) {
	if logLevel == "" {
		return zap.NewAtomicLevelAt(zapcore.WarnLevel), nil
	}
	return zap.ParseAtomicLevel(logLevel)
}

func CreateLogger(logLevel zap.AtomicLevel, logFile string) *memscopeLogger {
	if logFile != "" {
		return CreateLoggerWithLumberjack(logFile, 128, logLevel.Level())
	}

	lCfg := DefaultLoggerConfig()
	lCfg.Level = logLevel
	return CreateLoggerWithConfig(lCfg)
}

func CreateLoggerWithConfig(config *zap.Config) *memscopeLogger {
	if config == nil {
		config = DefaultLoggerConfig()
	}

	l, err := config.Build()
	if err != nil {
		panic(err)
	}

	return newMemscopeLogger(l.Sugar())
}

type memscopeLogger struct {
	logger atomic.Pointer[zap.SugaredLogger]
}

func newMemscopeLogger(logger *zap.SugaredLogger) *memscopeLogger {
	l := &memscopeLogger{}
	l.set(logger)
	return l
}

func (l *memscopeLogger) get() *zap.SugaredLogger {
	if l == nil {
		return nopLogger
	}
	logger := l.logger.Load()
	if logger == nil {
		return nopLogger
	}
	return logger
}

func (l *memscopeLogger) set(logger *zap.SugaredLogger) {
	if logger == nil {
		logger = nopLogger
	}
	l.logger.Store(logger)
}

// SetLogger swaps the underlying logger of the package-level Logger.
func SetLogger(logger *memscopeLogger) {
	if logger == nil {
		Logger.set(nil)
		return
	}
	Logger.set(logger.get())
}

func (l *memscopeLogger) Debugw(msg string, keysAndValues ...interface{}) {
	l.get().Debugw(msg, keysAndValues...)
}

func (l *memscopeLogger) Infow(msg string, keysAndValues ...interface{}) {
	l.get().Infow(msg, keysAndValues...)
}

func (l *memscopeLogger) Warnw(msg string, keysAndValues ...interface{}) {
	l.get().Warnw(msg, keysAndValues...)
}

func (l *memscopeLogger) Errorw(msg string, keysAndValues ...interface{}) {
	l.get().Errorw(msg, keysAndValues...)
}

func (l *memscopeLogger) With(args ...interface{}) *zap.SugaredLogger {
	return l.get().With(args...)
}

func (l *memscopeLogger) Sync() error {
	return l.get().Sync()
}
