package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	SetLevel("debug")
	assert.Equal(t, zapcore.DebugLevel, Level())

	SetLevel("error")
	assert.Equal(t, zapcore.ErrorLevel, Level())

	// 无法识别的级别回退到info
	SetLevel("verbose")
	assert.Equal(t, zapcore.InfoLevel, Level())
}
