package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Release(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	l := New(&buf, "moviestore")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())

	l.WithField("orderID", 7).Info("settled")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "moviestore", record["service"])
	assert.Equal(t, "settled", record["msg"])
	assert.InDelta(t, 7, record["orderID"], 0)
}

func TestNew_LevelOverride(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("LOG_LEVEL", "warn")

	l := New(&bytes.Buffer{}, "moviestore")
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	assert.IsType(t, new(logrus.TextFormatter), l.Formatter)
}
