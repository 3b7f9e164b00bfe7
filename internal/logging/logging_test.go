package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dkeye/confdemo/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confdemo.log")

	closer := Setup(config.LogConfig{Level: "debug", File: path, MaxSizeMB: 1, MaxBackups: 1})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log.Info().Str("module", "test").Msg("hello file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}

func TestSetupBadLevelFallsBack(t *testing.T) {
	closer := Setup(config.LogConfig{Level: "loud"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	assert.NoError(t, closer.Close())

	closer = Setup(config.LogConfig{})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	assert.NoError(t, closer.Close())
}
