package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log struct {
	Base   *zap.Logger
	Level  zap.AtomicLevel
	Closer func()
}

// Init собирает zap: prod — JSON, всё остальное — консольный dev-формат.
func Init(level, env string) (*Log, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var cfg zap.Config
	if strings.ToLower(env) == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, err
	}
	base = base.With(zap.String("env", strings.ToLower(env)))
	return &Log{
		Base:   base,
		Level:  lvl,
		Closer: func() { _ = base.Sync() },
	}, nil
}

// Component — именованный логгер подсистемы (ledger, outbox, http ...).
func (l *Log) Component(name string) *zap.Logger {
	return l.Base.Named(name)
}

// OrNop защищает от nil-логгера в тестах и в необязательных зависимостях.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
