package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detectcrop.log")
	require.NoError(t, Init(Options{Level: "debug", File: path}))
	t.Cleanup(func() { Set(zap.NewNop()) })

	Log().Info("hello", zap.String("k", "v"))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestInitBadLevel(t *testing.T) {
	assert.Error(t, Init(Options{Level: "loud"}))
}

func TestSetReplacesGlobals(t *testing.T) {
	l := zap.NewNop()
	Set(l)
	assert.Same(t, l, Log())
	assert.Same(t, l, zap.L())
	assert.NotNil(t, S())
}
