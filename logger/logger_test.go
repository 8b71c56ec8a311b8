package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "debug", true)

	log.WithField("order_id", 7).Info("order placed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "order placed", entry["msg"])
	assert.EqualValues(t, 7, entry["order_id"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	log := NewWithOutput(&bytes.Buffer{}, "nonsense", false)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
