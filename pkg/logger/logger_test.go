package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInit_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Init("test", false)
	})
}

func TestInit_SetsDebugLevel(t *testing.T) {
	Init("test", true)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestInit_SetsInfoLevel(t *testing.T) {
	Init("test", false)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestInfo_OddKeyValuesDoesNotPanic(t *testing.T) {
	Init("test", false)
	assert.NotPanics(t, func() {
		Info("message", "key-without-value")
	})
}
