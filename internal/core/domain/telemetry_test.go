package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/tome/internal/core/domain"
)

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", domain.LogLevelDebug.String())
	assert.Equal(t, "INFO", domain.LogLevelInfo.String())
	assert.Equal(t, "WARN", domain.LogLevelWarn.String())
	assert.Equal(t, "ERROR", domain.LogLevelError.String())

	// Unknown levels fall back to INFO.
	assert.Equal(t, "INFO", domain.LogLevel(42).String())
}
