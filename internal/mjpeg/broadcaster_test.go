package mjpeg

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterStartStop(t *testing.T) {
	b := NewBroadcaster(4, nil)
	assert.False(t, b.IsRunning())

	require.NoError(t, b.Start())
	assert.True(t, b.IsRunning())
	assert.Error(t, b.Start(), "double start")

	b.Stop()
	assert.False(t, b.IsRunning())
	b.Stop() // idempotent
}

func TestSubscribeRequiresRunning(t *testing.T) {
	b := NewBroadcaster(4, nil)
	_, err := b.subscribe("10.0.0.1")
	assert.Error(t, err)

	require.NoError(t, b.Start())
	ch, err := b.subscribe("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 1, b.ClientCount())
	b.unsubscribe(ch)
	assert.Equal(t, 0, b.ClientCount())
}

func TestSubscribeBlacklist(t *testing.T) {
	b := NewBroadcaster(4, []string{"192.168.1.50"})
	require.NoError(t, b.Start())

	_, err := b.subscribe("192.168.1.50")
	assert.Error(t, err)

	ch, err := b.subscribe("192.168.1.51")
	require.NoError(t, err)
	b.unsubscribe(ch)
}

func TestSubscribeLimit(t *testing.T) {
	b := NewBroadcaster(2, nil)
	require.NoError(t, b.Start())

	ch1, err := b.subscribe("10.0.0.1")
	require.NoError(t, err)
	ch2, err := b.subscribe("10.0.0.2")
	require.NoError(t, err)

	_, err = b.subscribe("10.0.0.3")
	assert.Error(t, err, "third subscriber exceeds the bound")

	b.unsubscribe(ch1)
	ch3, err := b.subscribe("10.0.0.3")
	require.NoError(t, err)
	b.unsubscribe(ch2)
	b.unsubscribe(ch3)
}

func TestBroadcastDeliversAndDrops(t *testing.T) {
	b := NewBroadcaster(4, nil)
	require.NoError(t, b.Start())

	ch, err := b.subscribe("10.0.0.1")
	require.NoError(t, err)
	defer b.unsubscribe(ch)

	// The subscriber buffer absorbs two frames; the third is dropped,
	// not queued, so the compositing loop never stalls.
	b.Broadcast([]byte("one"))
	b.Broadcast([]byte("two"))
	b.Broadcast([]byte("three"))

	assert.Equal(t, []byte("one"), <-ch)
	assert.Equal(t, []byte("two"), <-ch)
	select {
	case got := <-ch:
		t.Fatalf("expected drop, got %q", got)
	default:
	}

	stats := b.Snapshot()
	assert.Equal(t, uint64(3), stats.Frames)
	assert.Equal(t, 1, stats.Clients)
	assert.True(t, stats.Running)
}

func TestStopClosesSubscribers(t *testing.T) {
	b := NewBroadcaster(4, nil)
	require.NoError(t, b.Start())
	ch, err := b.subscribe("10.0.0.1")
	require.NoError(t, err)

	b.Stop()
	_, ok := <-ch
	assert.False(t, ok, "stop closes subscriber channels")
	assert.Equal(t, 0, b.ClientCount())
}

func TestStreamHandlerRejectsWhenStopped(t *testing.T) {
	b := NewBroadcaster(4, nil)
	srv := httptest.NewServer(b.StreamHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStreamHandlerServesMultipart(t *testing.T) {
	b := NewBroadcaster(4, nil)
	require.NoError(t, b.Start())
	defer b.Stop()

	srv := httptest.NewServer(b.StreamHandler())
	defer srv.Close()

	// Keep frames flowing until the test is done reading.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		payload := []byte{0xff, 0xd8, 0xff, 0xd9}
		for {
			select {
			case <-stop:
				return
			default:
				b.Broadcast(payload)
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "multipart/x-mixed-replace")

	reader := multipart.NewReader(resp.Body, "frame")
	part, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", part.Header.Get("Content-Type"))

	data, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xd9}, data)
}
