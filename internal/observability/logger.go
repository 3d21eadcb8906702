package observability

import (
	"context"
	"os"
	"strconv"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("observability",
	fx.Provide(NewLogger),
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		zl := &fxevent.ZapLogger{Logger: log.Named("fx")}
		zl.UseLogLevel(zapcore.DebugLevel)
		return zl
	}),
)

// NewLogger builds the process-wide logger. Console output is the default
// because clipsmith is an operator-facing CLI; set CLIPSMITH_LOG_JSON=true
// for machine-readable output in serve mode.
func NewLogger(lc fx.Lifecycle) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if envBool("CLIPSMITH_LOG_JSON") {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(levelFromEnv())

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}

func levelFromEnv() zapcore.Level {
	raw := strings.TrimSpace(os.Getenv("CLIPSMITH_LOG_LEVEL"))
	if raw == "" {
		return zapcore.InfoLevel
	}
	var lvl zapcore.Level
	if err := lvl.Set(raw); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}
