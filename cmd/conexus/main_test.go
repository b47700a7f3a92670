package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeFor_ConfigError(t *testing.T) {
	assert.Equal(t, 2, exitCodeFor(configError(errors.New("bad config"))))
}

func TestExitCodeFor_RuntimeError(t *testing.T) {
	assert.Equal(t, 1, exitCodeFor(runtimeError(errors.New("sync failed"))))
}

func TestExitCodeFor_PlainErrorDefaultsToRuntime(t *testing.T) {
	assert.Equal(t, 1, exitCodeFor(errors.New("unwrapped")))
}

func TestExitCode_KeepsUnderlyingMessage(t *testing.T) {
	underlying := errors.New("boom")
	err := runtimeError(underlying)
	assert.Equal(t, underlying.Error(), err.Error())
}
