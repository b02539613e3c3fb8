package internal

import (
	"os"

	_ "github.com/jsternberg/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sispay/services"
)

// Logger implements services.LogHandler over zap with logfmt encoding.
// An optional database sink mirrors every record into the payment log.
type Logger struct {
	zap      *zap.Logger
	database services.Database
}

type logRecord struct {
	Module  string `bson:"module" json:"module"`
	Level   string `bson:"level" json:"level"`
	Message string `bson:"message" json:"message"`
}

func (r *logRecord) DataType() string {
	return "log"
}

// NewLogger builds a module-scoped logger. When database is not nil, every
// record is also written to the persistent payment log.
func NewLogger(module string, debug bool, database services.Database) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "logfmt"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.InitialFields = map[string]any{"module": module}
	cfg.InitialFields["host"], _ = os.Hostname()
	cfg.OutputPaths = []string{"stdout"}

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return &Logger{
		zap:      logger.Named(module),
		database: database,
	}
}

func (l *Logger) Debug(message string) {
	l.zap.Debug(message)
}

func (l *Logger) Info(message string) {
	l.zap.Info(message)
	l.persist("info", message)
}

func (l *Logger) Warn(message string) {
	l.zap.Warn(message)
	l.persist("warn", message)
}

func (l *Logger) Error(message string, err error) {
	l.zap.Error(message, zap.Error(err))
	if err != nil {
		message = message + ": " + err.Error()
	}
	l.persist("error", message)
}

func (l *Logger) persist(level, message string) {
	if l.database == nil {
		return
	}
	_ = l.database.WriteLogMessage(&logRecord{
		Module:  l.zap.Name(),
		Level:   level,
		Message: message,
	})
}
