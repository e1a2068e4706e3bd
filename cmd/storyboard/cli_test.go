package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbstudio/storyboard-agent/internal/config"
	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvDataDir, filepath.Join(dir, "data"))
	t.Setenv(config.EnvStorage, config.StorageSQLite)
	t.Setenv(config.EnvLogLevel, "error")
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeProjectFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := storyboard.SetName(storyboard.NewProject(0), name)
	data, err := storyboard.Encode(p)
	require.NoError(t, err)
	path := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestCLI_ImportExportReset(t *testing.T) {
	dir := setupEnv(t)
	src := writeProjectFile(t, dir, "CLI Board")

	out, err := runCLI(t, "import", src)
	require.NoError(t, err)
	assert.Contains(t, out, `imported "CLI Board"`)

	out, err = runCLI(t, "storage")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: sqlite")
	assert.NotContains(t, out, "size:    0.00 MB (0 bytes)")

	out, err = runCLI(t, "export", "--format", "json", "--out", "-")
	require.NoError(t, err)
	p, err := storyboard.ParseImport([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "CLI Board", p.Meta.Name)

	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(outDir, 0o755))
	out, err = runCLI(t, "export", "--format", "edl", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "CLI Board.edl")
	assert.FileExists(t, filepath.Join(outDir, "CLI Board.edl"))

	_, err = runCLI(t, "reset")
	require.Error(t, err)

	_, err = runCLI(t, "reset", "--yes")
	require.NoError(t, err)
	resetYes = false

	out, err = runCLI(t, "storage")
	require.NoError(t, err)
	assert.Contains(t, out, "(0 bytes)")
}

func TestCLI_ImportRejectsInvalid(t *testing.T) {
	dir := setupEnv(t)
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"meta":{}}`), 0o644))

	_, err := runCLI(t, "import", bad)
	var importErr *storyboard.ImportError
	require.ErrorAs(t, err, &importErr)
}

func TestCLI_ExportUnknownFormat(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "export", "--format", "docx", "--out", "-")
	require.Error(t, err)
}

func TestCLI_TokenIsStable(t *testing.T) {
	setupEnv(t)

	first, err := runCLI(t, "token")
	require.NoError(t, err)
	second, err := runCLI(t, "token")
	require.NoError(t, err)

	assert.Len(t, strings.TrimSpace(first), 64)
	assert.Equal(t, first, second)
}

func TestCLI_RedisBackend(t *testing.T) {
	dir := setupEnv(t)
	mr := miniredis.RunT(t)
	t.Setenv(config.EnvStorage, config.StorageRedis)
	t.Setenv(config.EnvRedisAddr, mr.Addr())

	src := writeProjectFile(t, dir, "Redis Board")
	_, err := runCLI(t, "import", src)
	require.NoError(t, err)

	assert.True(t, mr.Exists(config.DefaultRedisPrefix+config.DefaultSlotKey))

	out, err := runCLI(t, "export", "--format", "json", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Redis Board"`)
}
