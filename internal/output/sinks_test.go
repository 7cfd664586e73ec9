package output

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidestream/slidestream/internal/codec"
	"github.com/slidestream/slidestream/internal/frame"
)

func openMJPEGEncoder(t *testing.T) codec.Encoder {
	t.Helper()
	enc, err := codec.NewRegistry().FindEncoder("mjpeg", "", "", codec.MediaVideo)
	require.NoError(t, err)
	enc.SetOption("quality", "90")
	require.NoError(t, enc.Open())
	t.Cleanup(func() { enc.Close() })
	return enc
}

func TestFileSinkWritesEncodedPackets(t *testing.T) {
	var buf bytes.Buffer
	sink := NewFileSink("file", openMJPEGEncoder(t), &buf, frame.FormatRGBA)
	set := NewOutputSet()
	set.AddOutput(sink)

	require.NoError(t, set.SendVideoFrame(videoFrame(32, 24)))
	require.NotZero(t, buf.Len())

	img, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestFileSinkPausedWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	sink := NewFileSink("file", openMJPEGEncoder(t), &buf, frame.FormatRGBA)
	sink.Pause(true)

	require.NoError(t, sink.Receive(videoFrame(16, 16)))
	assert.Zero(t, buf.Len())
}

type captureBroadcaster struct {
	frames [][]byte
}

func (b *captureBroadcaster) Broadcast(jpegData []byte) {
	buf := make([]byte, len(jpegData))
	copy(buf, jpegData)
	b.frames = append(b.frames, buf)
}

func TestNetworkSinkBroadcastsJPEG(t *testing.T) {
	bc := &captureBroadcaster{}
	sink := NewNetworkSink("net", openMJPEGEncoder(t), bc)
	set := NewOutputSet()
	set.AddOutput(sink)

	require.NoError(t, set.SendVideoFrame(videoFrame(32, 24)))
	require.NoError(t, set.SendVideoFrame(videoFrame(32, 24)))
	require.Len(t, bc.frames, 2)

	for _, data := range bc.frames {
		_, err := jpeg.Decode(bytes.NewReader(data))
		assert.NoError(t, err)
	}
}

func TestNetworkSinkFilterChain(t *testing.T) {
	bc := &captureBroadcaster{}
	sink := NewNetworkSink("net", openMJPEGEncoder(t), bc)
	require.True(t, sink.InstallFilter(GrayscaleFilter{}, 0))

	require.NoError(t, sink.Receive(videoFrame(16, 16)))
	require.Len(t, bc.frames, 1)

	img, err := jpeg.Decode(bytes.NewReader(bc.frames[0]))
	require.NoError(t, err)
	r, g, b, _ := img.At(4, 4).RGBA()
	assert.InDelta(t, r, g, 2<<8, "encoded frame is desaturated")
	assert.InDelta(t, g, b, 2<<8)
}
