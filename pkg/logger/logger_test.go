package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWithOptions_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOptions(Options{Output: &buf, Level: slog.LevelInfo, Format: FormatJSON})

	l.Debug("hidden")
	l.Info("visit recorded", UserID("u1"), LandmarkID("eiffel"), Points(10), Err(errors.New("boom")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "visit recorded", rec["msg"])
	assert.Equal(t, "u1", rec["user_id"])
	assert.Equal(t, "eiffel", rec["landmark_id"])
	assert.Equal(t, float64(10), rec["points"])
	assert.Equal(t, "boom", rec["error"])
}

func TestNewWithOptions_Text(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOptions(Options{Output: &buf, Format: ParseFormat("TEXT")})
	l.Warn("slow", Window("weekly"))
	assert.Contains(t, buf.String(), "window=weekly")
}

func TestContext(t *testing.T) {
	l := Discard()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
	assert.NotNil(t, OrDefault(nil))
}
