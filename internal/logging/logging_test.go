package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "json")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("vehicle_id", "v1").Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "v1", line["vehicle_id"])
}

func TestNew_UnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "loud", "text")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "Unknown log level")
}
