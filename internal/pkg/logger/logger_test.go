package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shipping-updates/storefront/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Name = "Shipping Updates"
	cfg.App.Environment = "test"
	cfg.Logging = config.LoggingConfig{Level: "warn", Format: "json"}

	var buf bytes.Buffer
	l := newWithOutput(cfg, &buf)
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())

	entry := WithApp(l, cfg)
	entry.Info("dropped")
	entry.WithField("order_id", "ord-1").Warn("kept")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "ord-1", line["order_id"])
	assert.Equal(t, "Shipping Updates", line["app"])
	assert.Equal(t, "test", line["env"])
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging = config.LoggingConfig{Level: "chatty", Format: "text"}

	l := newWithOutput(cfg, &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	_, ok := l.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}
