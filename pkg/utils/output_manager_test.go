package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultFilePath(t *testing.T) {
	base := t.TempDir()
	om := NewOutputManager(base)

	started := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("CET", 3600))
	path, err := om.ResultFilePath("run-1", started)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "run-1", "eval_run_20260304_040607.jsonl"), path)

	info, err := os.Stat(filepath.Join(base, "run-1"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateRunOutputDirStripsPath(t *testing.T) {
	base := t.TempDir()
	dir, err := NewOutputManager(base).CreateRunOutputDir("../escape")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "escape"), dir)
}

func TestNewOutputManagerDefault(t *testing.T) {
	assert.Equal(t, "outputs", NewOutputManager("").BaseOutputDir)
}
