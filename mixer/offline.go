package mixer

import "fmt"

// Offline is a Backend that captures rendered PCM in memory instead of
// playing it. The caller drives the pull side explicitly, which makes it
// the backend for file rendering and for tests.
type Offline struct {
	channels []*OfflineChannel
}

// NewOffline creates an offline capture backend.
func NewOffline() *Offline {
	return &Offline{}
}

// AddChannel registers a capture channel.
func (o *Offline) AddChannel(name string, sampleRate int, pull PullFunc) (Channel, error) {
	if pull == nil {
		return nil, fmt.Errorf("mixer: channel %q registered without a pull callback", name)
	}
	c := &OfflineChannel{
		name: name,
		rate: sampleRate,
		pull: pull,
		volL: 1,
		volR: 1,
	}
	o.channels = append(o.channels, c)
	return c, nil
}

// Channel returns the most recently registered channel with the given
// name, or nil.
func (o *Offline) Channel(name string) *OfflineChannel {
	for i := len(o.channels) - 1; i >= 0; i-- {
		if o.channels[i].name == name {
			return o.channels[i]
		}
	}
	return nil
}

// OfflineChannel accumulates every delivered sample. Not safe for
// concurrent use; the offline pull side is single-threaded.
type OfflineChannel struct {
	name    string
	rate    int
	pull    PullFunc
	volFn   VolumeFunc
	volL    float32
	volR    float32
	enabled bool
	closed  bool
	samples []int16
}

// Pull requests frames stereo frames from the producer, splitting large
// requests to stay within the callback's uint16 frame count. Disabled or
// closed channels ignore the request.
func (c *OfflineChannel) Pull(frames int) {
	if !c.enabled || c.closed {
		return
	}
	for frames > 0 {
		n := frames
		if n > 0xFFFF {
			n = 0xFFFF
		}
		c.pull(uint16(n))
		frames -= n
	}
}

func (c *OfflineChannel) AddSamples(frames int, samples []int16) {
	c.samples = append(c.samples, samples[:2*frames]...)
}

func (c *OfflineChannel) RegisterVolumeFunc(fn VolumeFunc) {
	c.volFn = fn
	if fn != nil {
		fn(c.volL, c.volR)
	}
}

func (c *OfflineChannel) SetVolume(left, right float32) {
	c.volL, c.volR = left, right
	if c.volFn != nil {
		c.volFn(left, right)
	}
}

func (c *OfflineChannel) Enable(on bool) {
	if !c.closed {
		c.enabled = on
	}
}

func (c *OfflineChannel) Close() error {
	c.enabled = false
	c.closed = true
	c.volFn = nil
	return nil
}

// Samples returns the interleaved stereo PCM captured so far.
func (c *OfflineChannel) Samples() []int16 {
	return c.samples
}

// SampleRate returns the rate the channel was registered with.
func (c *OfflineChannel) SampleRate() int {
	return c.rate
}
