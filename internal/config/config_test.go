package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Bind)
	assert.Equal(t, "ffmpeg", cfg.FFmpeg.Path)
	assert.Equal(t, "ffprobe", cfg.FFmpeg.ProbePath)
	assert.False(t, cfg.FFmpeg.Progress)
	assert.Equal(t, 100, cfg.FFmpeg.LogLines)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonus.yaml")
	data := `
ffmpeg:
  path: /opt/ffmpeg/bin/ffmpeg
  tmp_dir: /var/tmp/sonus
  progress: true
  input:
    block: ["^http://"]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpeg.Path)
	assert.Equal(t, "ffprobe", cfg.FFmpeg.ProbePath)
	assert.Equal(t, "/var/tmp/sonus", cfg.FFmpeg.TmpDir)
	assert.True(t, cfg.FFmpeg.Progress)
	assert.Equal(t, []string{"^http://"}, cfg.FFmpeg.Input.Block)
	assert.Equal(t, ":8080", cfg.Server.Bind)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonus.toml")
	data := `
[server]
bind = "127.0.0.1:9000"

[ffmpeg]
probe_path = "/usr/local/bin/ffprobe"
progress = true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Bind)
	assert.Equal(t, "/usr/local/bin/ffprobe", cfg.FFmpeg.ProbePath)
	assert.True(t, cfg.FFmpeg.Progress)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ffmpeg: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SONUS_FFMPEG", "/env/ffmpeg")
	t.Setenv("SONUS_TMP_DIR", "/env/tmp")
	t.Setenv("SONUS_PROGRESS", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/env/ffmpeg", cfg.FFmpeg.Path)
	assert.Equal(t, "/env/tmp", cfg.FFmpeg.TmpDir)
	assert.True(t, cfg.FFmpeg.Progress)
}

func TestEnvOverrideRejectsBadBool(t *testing.T) {
	t.Setenv("SONUS_PROGRESS", "sometimes")

	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SONUS_FFPROBE=/dotenv/ffprobe\n"), 0o644))
	t.Setenv("SONUS_FFPROBE", "")
	os.Unsetenv("SONUS_FFPROBE")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/dotenv/ffprobe", cfg.FFmpeg.ProbePath)
}

func TestLoadDotEnvReportsSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SONUS_BIND='unterminated\n"), 0o644))

	err := LoadDotEnv(path)
	assert.ErrorContains(t, err, path)
}
