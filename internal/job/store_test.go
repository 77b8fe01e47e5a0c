package job

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSC714725/sonus/internal/ffmpeg"
)

const convertScript = `#!/bin/sh
echo "  Duration: 00:00:04.00, start: 0.000000, bitrate: 1411 kb/s" >&2
printf 'size=     256kB time=00:00:01.00 bitrate= 209.7kbits/s speed=2.0x\r' >&2
printf 'size=     512kB time=00:00:02.00 bitrate= 209.7kbits/s speed=2.0x\n' >&2
`

func newTestFFmpeg(t *testing.T) (ffmpeg.FFmpeg, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte(convertScript), 0o755))

	tmp := t.TempDir()
	ff, err := ffmpeg.New(ffmpeg.Config{
		Binary:      bin,
		ProbeBinary: bin,
		TmpDir:      tmp,
		Progress:    true,
	})
	require.NoError(t, err)
	return ff, tmp
}

func TestConfigBuild(t *testing.T) {
	ff, _ := newTestFFmpeg(t)

	cfg := &Config{
		ID:     "abc",
		Input:  []string{"in.wav"},
		Output: []string{"out.mp3"},
		Steps: []Step{
			{Op: "overwrite"},
			{Op: "codec", Value: "libmp3lame", Track: "audio"},
			{Op: "bitrate", Value: "192k", Track: "Audio"},
			{Op: "channels", Value: "2"},
			{Op: "frequency", Value: "44100"},
			{Op: "timelimit", Value: "12.5"},
		},
	}

	b, opts, err := cfg.Build(ff)
	require.NoError(t, err)
	assert.Nil(t, opts.RawArgs)
	assert.Equal(t, "abc", b.JobID())

	args, err := b.Args(opts.RawArgs)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-i", "in.wav",
		"-y",
		"-c:a", "libmp3lame",
		"-b:a", "192k",
		"-ac", "2",
		"-ar:a", "44100",
		"-timelimit", "12.5",
		"out.mp3",
	}, args)
}

func TestConfigBuildRawArgs(t *testing.T) {
	ff, _ := newTestFFmpeg(t)

	cfg := &Config{
		Input:   []string{"in.wav"},
		Output:  []string{"out.ogg"},
		Steps:   []Step{{Op: "channels", Value: "1"}},
		RawArgs: `-q:a 4 -metadata 'artist=Some One'`,
	}
	b, opts, err := cfg.Build(ff)
	require.NoError(t, err)

	args, err := b.Args(opts.RawArgs)
	require.NoError(t, err)
	assert.Equal(t, []string{"-i", "in.wav", "-q:a", "4", "-metadata", "artist=Some One", "out.ogg"}, args)
}

func TestConfigBuildErrors(t *testing.T) {
	ff, _ := newTestFFmpeg(t)

	tests := []struct {
		name string
		cfg  Config
		err  error
	}{
		{"no input", Config{Output: []string{"o.mp3"}}, ErrInvalidConfig},
		{"no output", Config{Input: []string{"i.wav"}}, ErrInvalidConfig},
		{"blank input", Config{Input: []string{" "}, Output: []string{"o.mp3"}}, ffmpeg.ErrInvalidArgument},
		{"bad id", Config{ID: "a/b", Input: []string{"i.wav"}, Output: []string{"o.mp3"}}, ffmpeg.ErrInvalidArgument},
		{"unknown op", Config{Input: []string{"i.wav"}, Output: []string{"o.mp3"},
			Steps: []Step{{Op: "volume", Value: "2"}}}, ffmpeg.ErrInvalidArgument},
		{"not numeric", Config{Input: []string{"i.wav"}, Output: []string{"o.mp3"},
			Steps: []Step{{Op: "channels", Value: "stereo"}}}, ffmpeg.ErrInvalidArgument},
		{"bad track", Config{Input: []string{"i.wav"}, Output: []string{"o.mp3"},
			Steps: []Step{{Op: "codec", Value: "aac", Track: "data"}}}, ffmpeg.ErrInvalidArgument},
		{"bad raw args", Config{Input: []string{"i.wav"}, Output: []string{"o.mp3"},
			RawArgs: `-metadata "x`}, ffmpeg.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.cfg.Build(ff)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestStoreAddAndRun(t *testing.T) {
	ff, tmp := newTestFFmpeg(t)
	s := NewStore(ff, nil)

	j, err := s.Add(&Config{
		Reference: "album",
		Input:     []string{"in.wav"},
		Output:    []string{"out.mp3"},
		Steps:     []Step{{Op: "bitrate", Value: "128", Track: "audio"}},
	})
	require.NoError(t, err)
	assert.Len(t, j.ID, 22, "shortuuid ids are 22 characters")
	assert.Contains(t, j.Command, "-b:a 128k")
	assert.Equal(t, "stop", j.Status().Order)
	assert.False(t, j.IsRunning())
	assert.ErrorIs(t, j.Wait(), ErrNotLaunched)

	p, err := j.Progress()
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, s.Start(j.ID))
	require.NoError(t, j.Wait())
	assert.Equal(t, "start", j.Status().Order)
	assert.Equal(t, "finished", j.Status().State)

	p, err = j.Progress()
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 50, p.Progress)
	assert.Equal(t, uint64(512*1024), j.Stats().Size)
	assert.NotEmpty(t, j.Log())
	assert.FileExists(t, filepath.Join(tmp, j.ID+".sonustmp"))

	p, err = ff.Progress(j.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, p.Progress)
}

func TestStoreAutostart(t *testing.T) {
	ff, _ := newTestFFmpeg(t)
	s := NewStore(ff, nil)

	j, err := s.Add(&Config{ID: "auto", Input: []string{"in.wav"}, Output: []string{"out.mp3"}, Autostart: true})
	require.NoError(t, err)
	require.NoError(t, j.Wait())

	got, err := s.Get("auto")
	require.NoError(t, err)
	assert.Same(t, j, got)
}

func TestStoreDuplicateAndMissing(t *testing.T) {
	ff, _ := newTestFFmpeg(t)
	s := NewStore(ff, nil)

	_, err := s.Add(&Config{ID: "one", Input: []string{"a.wav"}, Output: []string{"a.mp3"}})
	require.NoError(t, err)

	_, err = s.Add(&Config{ID: "one", Input: []string{"b.wav"}, Output: []string{"b.mp3"}})
	assert.ErrorIs(t, err, ErrJobExists)

	_, err = s.Get("two")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Start("two"), ErrNotFound)
	assert.ErrorIs(t, s.Stop("two"), ErrNotFound)
	assert.ErrorIs(t, s.Delete("two"), ErrNotFound)

	_, err = s.Add(&Config{ID: "bad", Input: []string{"a.wav"}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = s.Get("bad")
	assert.ErrorIs(t, err, ErrNotFound, "invalid configs are not stored")
}

func TestStoreList(t *testing.T) {
	ff, _ := newTestFFmpeg(t)
	s := NewStore(ff, nil)

	for _, c := range []*Config{
		{ID: "a", Reference: "x", Input: []string{"a.wav"}, Output: []string{"a.mp3"}},
		{ID: "b", Reference: "x", Input: []string{"b.wav"}, Output: []string{"b.mp3"}},
		{ID: "c", Reference: "y", Input: []string{"c.wav"}, Output: []string{"c.mp3"}},
	} {
		_, err := s.Add(c)
		require.NoError(t, err)
	}

	assert.Len(t, s.List(nil, ""), 3)
	assert.Len(t, s.List(nil, "x"), 2)
	assert.Len(t, s.List([]string{"a", "c"}, ""), 2)
	assert.Len(t, s.List([]string{"a", "c"}, "y"), 1)
}

func TestStoreUpdateAndDelete(t *testing.T) {
	ff, _ := newTestFFmpeg(t)
	s := NewStore(ff, nil)

	_, err := s.Add(&Config{ID: "u", Reference: "ref", Input: []string{"a.wav"}, Output: []string{"a.mp3"}})
	require.NoError(t, err)

	j, err := s.Update("u", &Config{Input: []string{"b.wav"}, Output: []string{"b.ogg"}})
	require.NoError(t, err)
	assert.Equal(t, "u", j.Config.ID)
	assert.Equal(t, "ref", j.Config.Reference)
	assert.Contains(t, j.Command, "b.ogg")

	_, err = s.Update("u", &Config{Input: []string{"b.wav"}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, j.Command, "b.ogg", "failed update keeps the old config")

	_, err = s.Update("missing", &Config{Input: []string{"b.wav"}, Output: []string{"b.ogg"}})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete("u"))
	assert.Empty(t, s.List(nil, ""))
}
