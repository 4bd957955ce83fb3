package logger

import (
	"context"
	"testing"

	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_WithoutFluentd(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Logging.FluentdEnabled = true

	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.Nil(t, l.fluentdLogger)
	assert.Equal(t, "local", l.serviceName)
}

func TestWithContext_KeepsSink(t *testing.T) {
	ctx := types.SetRequestID(context.Background(), "req_1")
	ctx = types.SetTenantID(ctx, "user_1")

	l := GetLoggerWithContext(ctx)
	require.NotNil(t, l)
	l.Infow("hello", "k", "v")
}

func TestNewLogger_Level(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = "warn"

	l, err := NewLogger(cfg)
	require.NoError(t, err)
	core := l.Desugar().Core()
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
}
