package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_IsNop(t *testing.T) {
	l := New()
	require.NotNil(t, l.Log)
	require.False(t, l.Log.Core().Enabled(zapcore.ErrorLevel))
}

func TestInit_Levels(t *testing.T) {
	cases := []struct {
		level   string
		enabled zapcore.Level
		off     zapcore.Level
	}{
		{"Info", zapcore.InfoLevel, zapcore.DebugLevel},
		{"debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"WARN", zapcore.WarnLevel, zapcore.InfoLevel},
	}
	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			l := New()
			require.NoError(t, l.Init(tc.level))
			require.True(t, l.Log.Core().Enabled(tc.enabled))
			require.False(t, l.Log.Core().Enabled(tc.off))
		})
	}
}

func TestInit_BadLevel(t *testing.T) {
	l := New()
	require.Error(t, l.Init("loud"))
}
