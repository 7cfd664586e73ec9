package mjpeg

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/slidestream/slidestream/internal/logger"
	"github.com/slidestream/slidestream/internal/metrics"
)

// Broadcaster fans JPEG frames out to every connected subscriber over a
// multipart/x-mixed-replace HTTP response. It bounds the simultaneous
// subscriber count, rejects blacklisted IPs at accept time, and drops
// frames to subscribers that cannot keep up. Frame pacing is the pushing
// loop's job, not the broadcaster's.
type Broadcaster struct {
	maxClients int
	blacklist  map[string]struct{}

	mu      sync.RWMutex
	running bool
	clients map[chan []byte]struct{}

	statsMu    sync.RWMutex
	frameCount uint64
	startTime  time.Time
	lastUpdate time.Time

	metrics *metrics.Metrics
}

// NewBroadcaster builds a stopped broadcaster.
func NewBroadcaster(maxClients int, blacklist []string) *Broadcaster {
	bl := make(map[string]struct{}, len(blacklist))
	for _, ip := range blacklist {
		bl[ip] = struct{}{}
	}
	return &Broadcaster{
		maxClients: maxClients,
		blacklist:  bl,
		clients:    make(map[chan []byte]struct{}),
	}
}

// SetMetrics attaches the metrics sink. Call before Start.
func (b *Broadcaster) SetMetrics(m *metrics.Metrics) {
	b.metrics = m
}

// Start begins accepting subscribers.
func (b *Broadcaster) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return fmt.Errorf("broadcaster already running")
	}
	b.running = true

	b.statsMu.Lock()
	b.startTime = time.Now()
	b.frameCount = 0
	b.statsMu.Unlock()

	if b.metrics != nil {
		b.metrics.StreamActive.Store(1)
	}
	return nil
}

// Stop disconnects every subscriber and stops accepting new ones.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.running = false
	for ch := range b.clients {
		close(ch)
	}
	b.clients = make(map[chan []byte]struct{})
	if b.metrics != nil {
		b.metrics.StreamActive.Store(0)
		b.metrics.ActiveClients.Store(0)
	}
	logger.WithComponent("mjpeg").Info().Msg("Broadcaster stopped")
}

// IsRunning reports whether subscribers are being accepted.
func (b *Broadcaster) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Broadcast pushes one encoded frame to every subscriber. Subscribers whose
// buffer is full skip the frame rather than stalling the compositing loop.
func (b *Broadcaster) Broadcast(jpegData []byte) {
	b.statsMu.Lock()
	b.frameCount++
	b.lastUpdate = time.Now()
	b.statsMu.Unlock()

	if b.metrics != nil {
		b.metrics.FramesBroadcast.Add(1)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- jpegData:
		default:
			// Slow client, skip this frame.
			if b.metrics != nil {
				b.metrics.FramesDropped.Add(1)
			}
		}
	}
}

// ClientCount returns the current subscriber count.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Stats is a point-in-time view of the broadcaster.
type Stats struct {
	Running    bool      `json:"running"`
	Clients    int       `json:"clients"`
	Frames     uint64    `json:"frames"`
	FPS        float64   `json:"fps"`
	StartTime  time.Time `json:"start_time"`
	LastUpdate time.Time `json:"last_update"`
}

// Snapshot returns the current stats.
func (b *Broadcaster) Snapshot() Stats {
	b.statsMu.RLock()
	frames := b.frameCount
	start := b.startTime
	last := b.lastUpdate
	b.statsMu.RUnlock()

	var fps float64
	if !start.IsZero() {
		if elapsed := time.Since(start).Seconds(); elapsed > 0 {
			fps = float64(frames) / elapsed
		}
	}
	return Stats{
		Running:    b.IsRunning(),
		Clients:    b.ClientCount(),
		Frames:     frames,
		FPS:        fps,
		StartTime:  start,
		LastUpdate: last,
	}
}

// subscribe registers a new client channel, enforcing the blacklist and
// the subscriber bound.
func (b *Broadcaster) subscribe(remoteIP string) (chan []byte, error) {
	if _, blocked := b.blacklist[remoteIP]; blocked {
		if b.metrics != nil {
			b.metrics.RejectedClients.Add(1)
		}
		return nil, fmt.Errorf("client %s is blacklisted", remoteIP)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return nil, fmt.Errorf("stream is not running")
	}
	if len(b.clients) >= b.maxClients {
		if b.metrics != nil {
			b.metrics.RejectedClients.Add(1)
		}
		return nil, fmt.Errorf("subscriber limit of %d reached", b.maxClients)
	}

	ch := make(chan []byte, 2) // absorb two frames of jitter
	b.clients[ch] = struct{}{}
	if b.metrics != nil {
		b.metrics.ActiveClients.Store(uint64(len(b.clients)))
		b.metrics.TotalClients.Add(1)
	}
	return ch, nil
}

func (b *Broadcaster) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
	}
	if b.metrics != nil {
		b.metrics.ActiveClients.Store(uint64(len(b.clients)))
	}
}

// StreamHandler returns the multipart MJPEG endpoint.
func (b *Broadcaster) StreamHandler() http.HandlerFunc {
	log := logger.WithComponent("mjpeg")
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}

		ch, err := b.subscribe(host)
		if err != nil {
			log.Warn().Str("client", host).Err(err).Msg("Subscriber rejected")
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		defer b.unsubscribe(ch)

		log.Info().Str("client", host).Int("clients", b.ClientCount()).Msg("Subscriber connected")
		defer log.Info().Str("client", host).Msg("Subscriber disconnected")

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Connection", "close")

		for {
			select {
			case jpegData, ok := <-ch:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
					return
				}
				if _, err := w.Write(jpegData); err != nil {
					return
				}
				if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
					return
				}
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}
