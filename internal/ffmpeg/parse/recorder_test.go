package parse

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderTracksProgressAndSink(t *testing.T) {
	var sink bytes.Buffer
	r := NewRecorder(RecorderConfig{LogLines: 3, Sink: &sink})

	lines := strings.Split(strings.TrimSpace(sampleLog), "\n")
	for _, line := range lines {
		r.Parse(line)
	}

	s, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "01:02:03.50", s.Duration)
	assert.Equal(t, "00:31:01.75", s.Current)
	assert.Equal(t, 50, s.Progress)

	assert.Equal(t, uint64(1024*1024), r.Stats().Size)
	assert.Equal(t, 41.0, r.Stats().Speed)

	log := r.Log()
	require.Len(t, log, 3)
	assert.Contains(t, log[2].Data, "00:31:01.75")

	assert.Equal(t, strings.Join(lines, "\n")+"\n", sink.String())
	assert.NoError(t, r.SinkErr())

	// the sink content parses to the same snapshot
	fromFile, err := ParseProgress(sink.String())
	require.NoError(t, err)
	assert.Equal(t, s, fromFile)
}

func TestRecorderParseReturnValue(t *testing.T) {
	r := NewRecorder(RecorderConfig{})
	assert.Zero(t, r.Parse("Stream mapping:"))
	assert.NotZero(t, r.Parse("frame=  12 fps=0.0 q=-1.0 size=0kB time=00:00:00.48 bitrate=0.8kbits/s speed=0.9x"))
	assert.Equal(t, uint64(12), r.Stats().Frame)
}

func TestRecorderReset(t *testing.T) {
	r := NewRecorder(RecorderConfig{})
	r.Parse("  Duration: 00:00:10.00, start: 0.0")
	r.Parse("size=1kB time=00:00:05.00 bitrate=1k")

	r.ResetStats()
	r.ResetLog()

	s, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, s)
	assert.Empty(t, r.Log())
}

func TestRecorderKeepsPositionOnUnknownTime(t *testing.T) {
	r := NewRecorder(RecorderConfig{})
	r.Parse("  Duration: 00:00:10.00, start: 0.0")
	r.Parse("size=0kB time=N/A bitrate=N/A speed=N/A")

	s, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Progress)

	r.Parse("size=1kB time=00:00:05.00 bitrate=1k speed=1x")
	r.Parse("size=1kB time=N/A bitrate=N/A speed=N/A")

	s, err = r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "00:00:05.00", s.Current)
	assert.Equal(t, 50, s.Progress)
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("disk full")
}

func TestRecorderStopsWritingAfterSinkError(t *testing.T) {
	w := &failingWriter{}
	r := NewRecorder(RecorderConfig{Sink: w})
	r.Parse("  Duration: 00:00:10.00, start: 0.0")
	r.Parse("size=1kB time=00:00:05.00 bitrate=1k")

	assert.EqualError(t, r.SinkErr(), "disk full")
	assert.Equal(t, 1, w.n)

	s, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 50, s.Progress)
	assert.Len(t, r.Log(), 2)
}
