package mixer

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// OtoBackend plays registered channels through the system's audio device
// via oto. The process-wide oto context is created once, fixed to
// interleaved signed 16-bit stereo at the backend's sample rate.
type OtoBackend struct {
	ctx  *oto.Context
	rate int
}

// NewOto creates a live audio backend at the given sample rate.
func NewOto(sampleRate int) (*OtoBackend, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("mixer: creating audio context: %w", err)
	}
	<-ready
	return &OtoBackend{ctx: ctx, rate: sampleRate}, nil
}

// AddChannel registers a channel. The requested sample rate must match
// the backend's context rate; oto performs no per-player resampling.
func (b *OtoBackend) AddChannel(name string, sampleRate int, pull PullFunc) (Channel, error) {
	if pull == nil {
		return nil, fmt.Errorf("mixer: channel %q registered without a pull callback", name)
	}
	if sampleRate != b.rate {
		return nil, fmt.Errorf("mixer: channel %q wants %d Hz, context runs at %d Hz", name, sampleRate, b.rate)
	}
	ch := &otoChannel{
		name: name,
		pull: pull,
		volL: 1,
		volR: 1,
	}
	ch.player = b.ctx.NewPlayer(ch)
	return ch, nil
}

// otoChannel adapts oto's byte-oriented pull reader to the frame-count
// pull callback. Read runs on oto's audio goroutine; the pending buffer
// is touched only there, so it needs no lock. Control operations
// (volume, enable, close) take the mutex.
type otoChannel struct {
	name   string
	pull   PullFunc
	player *oto.Player

	pending []int16 // produced by AddSamples, drained by Read

	mu      sync.Mutex
	volFn   VolumeFunc
	volL    float32
	volR    float32
	enabled bool
	closed  bool
}

const bytesPerFrame = 4 // 2 channels, 2 bytes each

// Read implements io.Reader for oto: it asks the producer for exactly as
// many frames as the byte demand covers and serializes them little
// endian. A producer that under-delivers gets padded with silence so the
// audio goroutine can never spin.
func (c *otoChannel) Read(p []byte) (int, error) {
	need := len(p) / bytesPerFrame
	if need == 0 {
		return 0, nil
	}

	for len(c.pending) < 2*need {
		missing := need - len(c.pending)/2
		if missing > 0xFFFF {
			missing = 0xFFFF
		}
		before := len(c.pending)
		c.pull(uint16(missing))
		if len(c.pending) == before {
			// Producer delivered nothing; pad instead of looping.
			c.pending = append(c.pending, make([]int16, 2*missing)...)
		}
	}

	for i := 0; i < need*2; i++ {
		v := c.pending[i]
		p[2*i] = byte(v)
		p[2*i+1] = byte(uint16(v) >> 8)
	}
	c.pending = c.pending[:copy(c.pending, c.pending[need*2:])]
	return need * bytesPerFrame, nil
}

func (c *otoChannel) AddSamples(frames int, samples []int16) {
	c.pending = append(c.pending, samples[:2*frames]...)
}

func (c *otoChannel) RegisterVolumeFunc(fn VolumeFunc) {
	c.mu.Lock()
	c.volFn = fn
	l, r := c.volL, c.volR
	c.mu.Unlock()
	if fn != nil {
		fn(l, r)
	}
}

func (c *otoChannel) SetVolume(left, right float32) {
	c.mu.Lock()
	c.volL, c.volR = left, right
	fn := c.volFn
	c.mu.Unlock()
	if fn != nil {
		fn(left, right)
	}
}

func (c *otoChannel) Enable(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || on == c.enabled {
		return
	}
	if on {
		c.player.Play()
	} else {
		c.player.Pause()
	}
	c.enabled = on
}

func (c *otoChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.enabled = false
	c.volFn = nil
	return c.player.Close()
}
