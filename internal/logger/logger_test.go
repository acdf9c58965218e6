package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("verbose"))
}

func TestWithFieldsWritesFields(t *testing.T) {
	var buf bytes.Buffer
	prev := Log
	defer func() { Log = prev }()

	Log = newLogger(&buf, logrus.InfoLevel)
	WithFields(map[string]interface{}{"method": "frequency"}).Info("generated")
	Debugf("hidden %d", 1)

	out := buf.String()
	assert.Contains(t, out, "method=frequency")
	assert.Contains(t, out, "generated")
	assert.NotContains(t, out, "hidden")
}
