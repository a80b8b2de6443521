package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestFileOutputWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.With(String("component", "backtest")).Info("run finished",
		Int("trades", 3),
		Float64("total_return", 12.5),
		Date("end", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		Error(errors.New("gap")),
	)
	l.Debug("hidden")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, `"component":"backtest"`)
	assert.Contains(t, out, `"trades":3`)
	assert.Contains(t, out, `"end":"2024-03-01"`)
	assert.Contains(t, out, `"error":"gap"`)
	assert.NotContains(t, out, "hidden")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := Nop()
	assert.Same(t, l, OrNop(l))
}
