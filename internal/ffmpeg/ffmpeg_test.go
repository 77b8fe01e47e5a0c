package ffmpeg

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSC714725/sonus/internal/ffmpeg/skills"
)

// fakeRunner answers by the first argument of each command.
type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   []Command
	mu      sync.Mutex
}

func (r *fakeRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	key := ""
	if len(c.Args) > 0 {
		key = c.Args[0]
	}
	if c.Output != nil {
		io.WriteString(c.Output, r.outputs[key])
		return nil, r.errs[key]
	}
	return []byte(r.outputs[key]), r.errs[key]
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestFFmpeg(t *testing.T, cfg Config) (*ffmpeg, *fakeRunner) {
	t.Helper()
	r, ok := cfg.Runner.(*fakeRunner)
	if !ok {
		r = &fakeRunner{outputs: map[string]string{}, errs: map[string]error{}}
		cfg.Runner = r
	}
	if cfg.TmpDir == "" {
		cfg.TmpDir = t.TempDir()
	}
	ff, err := New(cfg)
	require.NoError(t, err)
	f := ff.(*ffmpeg)
	f.now = func() time.Time { return time.Unix(1700000000, 0) }
	return f, r
}

const encodersListing = `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264
 A....D aac                  AAC (Advanced Audio Coding)
 A....D libmp3lame           libmp3lame MP3 (MPEG audio layer 3)
`

const decodersListing = `Decoders:
 V..... = Video
 A..... = Audio
 ------
 VFS..D h264                 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10
 A....D mp3                  MP3 (MPEG audio layer 3)
 A....D flac                 FLAC (Free Lossless Audio Codec)
`

func TestVersion(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})
	r.outputs["-version"] = "ffmpeg version 4.4.2-0ubuntu0.22.04.1 Copyright (c) 2000-2021\n"

	v, err := f.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, skills.Version{Major: 4, Minor: 4, Revision: 2}, v)
	assert.Equal(t, []string{"-version"}, r.calls[0].Args)
	assert.Equal(t, "ffmpeg", r.calls[0].Binary)
}

func TestVersionMismatchIsParseError(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})
	r.outputs["-version"] = "avconv version 12\n"

	_, err := f.Version(context.Background())
	assert.ErrorIs(t, err, ErrParse)
}

func TestVersionProcessFailure(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})
	r.errs["-version"] = errors.New("exit status 127")
	r.outputs["-version"] = "sh: ffmpeg: not found"

	_, err := f.Version(context.Background())
	assert.ErrorIs(t, err, ErrProcess)
	assert.Contains(t, err.Error(), "not found")
}

func TestFormats(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})
	r.outputs["-formats"] = "File formats:\n D. = Demuxing supported\n --\n DE mp3             MP3\n  E ipod            iPod H.264 MP4\n"

	formats, err := f.Formats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mp3": "DE", "ipod": "E"}, formats)
}

func TestEncodersAndDecoders(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})
	r.outputs["-encoders"] = encodersListing
	r.outputs["-decoders"] = decodersListing
	ctx := context.Background()

	audio, err := f.Encoders(ctx, skills.Audio)
	require.NoError(t, err)
	assert.Equal(t, []string{"aac", "libmp3lame"}, audio)

	video, err := f.Encoders(ctx, skills.Video)
	require.NoError(t, err)
	assert.Equal(t, []string{"libx264"}, video)

	audio, err = f.Decoders(ctx, skills.Audio)
	require.NoError(t, err)
	assert.Equal(t, []string{"mp3", "flac"}, audio)

	video, err = f.Decoders(ctx, skills.Video)
	require.NoError(t, err)
	assert.Equal(t, []string{"h264"}, video)
}

func TestCanEncodeCanDecode(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})
	r.outputs["-encoders"] = encodersListing
	r.outputs["-decoders"] = decodersListing
	ctx := context.Background()

	ok, err := f.CanEncode(ctx, "libmp3lame")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.CanEncode(ctx, "mp3")
	require.NoError(t, err)
	assert.False(t, ok, "mp3 is only a decoder here")

	ok, err = f.CanDecode(ctx, "mp3")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.CanDecode(ctx, "h264")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 4, r.count(), "every query runs the binary again")
}

func TestSkillsAreCachedUntilReload(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})
	r.outputs["-version"] = "ffmpeg version 6.0 Copyright\nbuilt with gcc 12\n"
	r.outputs["-formats"] = " DE mp3             MP3\n"
	r.outputs["-encoders"] = encodersListing
	r.outputs["-decoders"] = decodersListing
	ctx := context.Background()

	s, err := f.Skills(ctx)
	require.NoError(t, err)
	assert.Equal(t, "6.0.0", s.FFmpeg.Version.String())
	assert.Equal(t, "gcc 12", s.FFmpeg.Compiler)
	assert.True(t, s.Encoders.Has("aac"))
	calls := r.count()

	_, err = f.Skills(ctx)
	require.NoError(t, err)
	assert.Equal(t, calls, r.count())

	r.outputs["-version"] = "ffmpeg version 7.1 Copyright\n"
	require.NoError(t, f.ReloadSkills(ctx))
	s, err = f.Skills(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, s.FFmpeg.Version.Major)
}

func TestReloadSkillsKeepsCacheOnFailure(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})
	r.outputs["-version"] = "ffmpeg version 6.0 Copyright\n"
	r.outputs["-formats"] = " DE mp3             MP3\n"
	r.outputs["-encoders"] = encodersListing
	r.outputs["-decoders"] = decodersListing
	ctx := context.Background()

	_, err := f.Skills(ctx)
	require.NoError(t, err)

	r.outputs["-formats"] = ""
	assert.ErrorIs(t, f.ReloadSkills(ctx), ErrParse)

	s, err := f.Skills(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DE", s.Formats["mp3"])
}

func TestNewRequiresConverterInPath(t *testing.T) {
	_, err := New(Config{Binary: "sonus-no-such-ffmpeg-binary"})
	assert.Error(t, err)
}
