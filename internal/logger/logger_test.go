package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	Init()
	assert.NotNil(t, InfoLogger)
	assert.NotNil(t, WarnLogger)
	assert.NotNil(t, ErrorLogger)
	assert.NotNil(t, DebugLogger)
}

func TestInfof(t *testing.T) {
	var buf bytes.Buffer
	InfoLogger = log.New(&buf, "INFO: ", 0)

	Infof("hello %s", "world")
	assert.Contains(t, buf.String(), "hello world")
}

func TestWarnf(t *testing.T) {
	var buf bytes.Buffer
	WarnLogger = log.New(&buf, "WARN: ", 0)

	Warnf("careful %d", 1)
	assert.Contains(t, buf.String(), "careful 1")
	assert.Contains(t, buf.String(), "WARN")
}

func TestErrorf(t *testing.T) {
	var buf bytes.Buffer
	ErrorLogger = log.New(&buf, "ERROR: ", 0)

	Errorf("boom: %v", assert.AnError)
	assert.Contains(t, buf.String(), "boom")
}
