package ffmpeg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeReport = `{
    "streams": [
        {
            "index": 0,
            "codec_name": "h264",
            "codec_type": "video",
            "width": 1920,
            "height": 1080,
            "duration": "0:03:05.120000"
        },
        {
            "index": 1,
            "codec_name": "aac",
            "codec_type": "audio",
            "sample_rate": "44.100 KHz",
            "channels": 2,
            "bit_rate": "128 Kbit/s",
            "tags": {"language": "eng"}
        }
    ],
    "format": {
        "filename": "in.mp4",
        "nb_streams": 2,
        "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
        "duration": "0:03:05.120000",
        "size": "2.5 Mibyte",
        "bit_rate": "113 Kbit/s"
    }
}`

func TestMediaInfo(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})
	r.outputs["-v"] = probeReport

	info, err := f.MediaInfo(context.Background(), "in.mp4")
	require.NoError(t, err)

	require.Len(t, r.calls, 1)
	assert.Equal(t, "ffprobe", r.calls[0].Binary)
	assert.Equal(t, []string{
		"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", "-pretty", "-i", "in.mp4",
	}, r.calls[0].Args)

	require.Len(t, info.Streams, 2)
	assert.Equal(t, "h264", info.Streams[0].CodecName)
	assert.Equal(t, 1920, info.Streams[0].Width)
	assert.Equal(t, "eng", info.Streams[1].Tags["language"])
	assert.Equal(t, 1, info.CountStreams("audio"))
	assert.Equal(t, 1, info.CountStreams("VIDEO"))
	assert.Equal(t, "in.mp4", info.Format.Filename)
	assert.Contains(t, info.Raw, "format")

	d, err := info.DurationSeconds()
	require.NoError(t, err)
	assert.InDelta(t, 185.12, d, 1e-6)
}

func TestMediaInfoStripsInputFlag(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})
	r.outputs["-v"] = probeReport

	_, err := f.MediaInfo(context.Background(), "-i in.mp4")
	require.NoError(t, err)
	args := r.calls[0].Args
	assert.Equal(t, []string{"-i", "in.mp4"}, args[len(args)-2:])
}

func TestMediaInfoRawXML(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})
	r.outputs["-v"] = `<ffprobe><format filename="in.mp4"/></ffprobe>`

	out, err := f.MediaInfoRaw(context.Background(), "in.mp4", ProbeXML)
	require.NoError(t, err)
	assert.Contains(t, out, `filename="in.mp4"`)
	assert.Equal(t, "xml", r.calls[0].Args[3])
}

func TestMediaInfoRejectsBadInput(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})

	_, err := f.MediaInfoRaw(context.Background(), "-i ", ProbeJSON)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.MediaInfoRaw(context.Background(), "in.mp4", ProbeFormat("yaml"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, r.count())
}

func TestMediaInfoBadReport(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})
	r.outputs["-v"] = "not json"

	_, err := f.MediaInfo(context.Background(), "in.mp4")
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseProbeFormat(t *testing.T) {
	p, err := ParseProbeFormat("")
	require.NoError(t, err)
	assert.Equal(t, ProbeJSON, p)

	p, err = ParseProbeFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, ProbeCSV, p)

	_, err = ParseProbeFormat("ini")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestThumbnails(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})

	err := f.Thumbnails(context.Background(), ThumbnailOptions{
		Input:        "in.mp4",
		OutputPrefix: "/tmp/thumb_",
		Count:        DefaultThumbnailCount,
	})
	require.NoError(t, err)
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{
		"-i", "in.mp4",
		"-vf", `select=gt(scene\,0.5)`,
		"-frames:v", "5",
		"-vsync", "vfr",
		"/tmp/thumb_%02d.png",
	}, r.calls[0].Args)
}

func TestThumbnailsFormatIsExtension(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})

	err := f.Thumbnails(context.Background(), ThumbnailOptions{
		Input: "in.mp4", OutputPrefix: "t", Count: 2, Format: "jpg",
	})
	require.NoError(t, err)
	args := r.calls[0].Args
	assert.Equal(t, "t%02d.jpg", args[len(args)-1])
}

func TestThumbnailsZeroCountRunsNothing(t *testing.T) {
	f, r := newTestFFmpeg(t, Config{})

	err := f.Thumbnails(context.Background(), ThumbnailOptions{Input: "in.mp4", OutputPrefix: "t", Count: 0})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, r.count())
}

func newFilteredFFmpeg(t *testing.T) (*ffmpeg, *fakeRunner) {
	t.Helper()
	in, err := NewValidator(nil, []string{`^/secret/`})
	require.NoError(t, err)
	out, err := NewValidator(nil, []string{`^/etc/`})
	require.NoError(t, err)
	return newTestFFmpeg(t, Config{ValidatorInput: in, ValidatorOutput: out})
}

func TestMediaInfoAppliesInputFilter(t *testing.T) {
	f, r := newFilteredFFmpeg(t)

	_, err := f.MediaInfoRaw(context.Background(), "/secret/in.mp4", ProbeJSON)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.MediaInfo(context.Background(), "-i /secret/in.mp4")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, r.count())
}

func TestThumbnailsAppliesPathFilters(t *testing.T) {
	f, r := newFilteredFFmpeg(t)

	tests := []ThumbnailOptions{
		{Input: "/secret/in.mp4", OutputPrefix: "/tmp/t", Count: 1},
		{Input: "in.mp4", OutputPrefix: "/etc/t", Count: 1},
	}
	for _, opts := range tests {
		err := f.Thumbnails(context.Background(), opts)
		assert.ErrorIs(t, err, ErrInvalidArgument, opts)
	}
	assert.Zero(t, r.count())

	require.NoError(t, f.Thumbnails(context.Background(), ThumbnailOptions{
		Input: "in.mp4", OutputPrefix: "/tmp/t", Count: 1,
	}))
	assert.Equal(t, 1, r.count())
}
