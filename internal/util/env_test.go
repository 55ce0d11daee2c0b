package util

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OFFIS-RIT/kgchat/pkg/logger"
	"github.com/OFFIS-RIT/kgchat/pkg/logger/console"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireEnv(t *testing.T) {
	t.Setenv("KG_TEST_PRESENT", "value")
	t.Setenv("KG_TEST_BLANK", "  ")

	require.NoError(t, RequireEnv("KG_TEST_PRESENT"))

	err := RequireEnv("KG_TEST_PRESENT", "KG_TEST_BLANK", "KG_TEST_UNSET")
	require.Error(t, err)

	var missing *MissingEnvError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"KG_TEST_BLANK", "KG_TEST_UNSET"}, missing.Keys)
	assert.Contains(t, err.Error(), "KG_TEST_BLANK, KG_TEST_UNSET")
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("KG_TEST_NUM", "0.4")
	t.Setenv("KG_TEST_BAD_NUM", "abc")
	t.Setenv("KG_TEST_BOOL", "true")
	t.Setenv("KG_TEST_BAD_BOOL", "yes")
	t.Setenv("KG_TEST_DUR", "45s")
	t.Setenv("KG_TEST_EMPTY", "")

	assert.Equal(t, 0.4, GetEnvNumeric("KG_TEST_NUM", 1))
	assert.Equal(t, float64(7), GetEnvNumeric("KG_TEST_BAD_NUM", 7))
	assert.True(t, GetEnvBool("KG_TEST_BOOL", false))
	assert.False(t, GetEnvBool("KG_TEST_BAD_BOOL", false))
	assert.Equal(t, 45*time.Second, GetEnvDuration("KG_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("KG_TEST_UNSET_DUR", time.Second))
	assert.Equal(t, "fallback", GetEnvString("KG_TEST_EMPTY", "fallback"))
	assert.Equal(t, "", GetEnv("KG_TEST_UNSET_STR"))
}

func TestLoadEnvReportsMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Debug: true, Output: &out}))
	t.Cleanup(func() { logger.Init() })

	LoadEnv()
	assert.Contains(t, out.String(), "No .env file found")
}

func TestLoadEnvReadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("KG_TEST_FROM_FILE=loaded\n"), 0o644))
	t.Chdir(dir)
	t.Setenv("KG_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("KG_TEST_FROM_FILE"))

	LoadEnv()
	assert.Equal(t, "loaded", GetEnv("KG_TEST_FROM_FILE"))
}
