package platform

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CURVE_TEST_PORT", "9090")
	t.Setenv("CURVE_TEST_BAD", "x")
	t.Setenv("CURVE_TEST_FLAG", "TRUE")

	assert.Equal(t, "fallback", GetEnv("CURVE_TEST_UNSET", "fallback"))
	assert.Equal(t, 9090, GetEnvInt("CURVE_TEST_PORT", 1))
	assert.Equal(t, 1, GetEnvInt("CURVE_TEST_BAD", 1))
	assert.True(t, GetEnvBool("CURVE_TEST_FLAG", false))
	assert.True(t, GetEnvBool("CURVE_TEST_UNSET", true))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CURVE_TEST_DOTENV=from-file\nCURVE_TEST_KEEP=from-file\n"), 0o644))
	t.Setenv("CURVE_TEST_KEEP", "from-env")
	t.Cleanup(func() { os.Unsetenv("CURVE_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("CURVE_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("CURVE_TEST_KEEP"))
}

func TestInitLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	logger := initLogger(&buf, "warn", false)
	logger.Info().Msg("hidden")
	logger.Warn().Str("route", "TD3C").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"route":"TD3C"`)

	buf.Reset()
	fallback := initLogger(&buf, "nonsense", false)
	fallback.Info().Msg("info")
	assert.Contains(t, buf.String(), `"level":"info"`)
}
