package device

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/midisynth/config"
	"github.com/cwbudde/midisynth/mixer"
	"github.com/cwbudde/midisynth/synth"
)

// engineCall records one voice operation forwarded to the fake engine.
type engineCall struct {
	op      string
	channel int
	a, b    int
}

// fakeEngine implements synth.Engine and records everything it is asked
// to do. Gain behavior is configurable so the read-back compensation
// path can be exercised.
type fakeEngine struct {
	calls []engineCall
	sysex [][]byte

	banks   int
	loaded  []string
	loadErr error

	gain         float64
	gainCeiling  float64  // if > 0, SetGain clamps to this
	gainReadback *float64 // if set, Gain returns this instead

	renderValue   float32
	renderFrames  []int
	panicOnRender bool

	closed bool
}

func (e *fakeEngine) NoteOn(channel, key, velocity int) {
	e.calls = append(e.calls, engineCall{"noteOn", channel, key, velocity})
}

func (e *fakeEngine) NoteOff(channel, key int) {
	e.calls = append(e.calls, engineCall{"noteOff", channel, key, 0})
}

func (e *fakeEngine) KeyPressure(channel, key, pressure int) {
	e.calls = append(e.calls, engineCall{"keyPressure", channel, key, pressure})
}

func (e *fakeEngine) ChannelPressure(channel, pressure int) {
	e.calls = append(e.calls, engineCall{"channelPressure", channel, pressure, 0})
}

func (e *fakeEngine) ControlChange(channel, controller, value int) {
	e.calls = append(e.calls, engineCall{"controlChange", channel, controller, value})
}

func (e *fakeEngine) ProgramChange(channel, program int) {
	e.calls = append(e.calls, engineCall{"programChange", channel, program, 0})
}

func (e *fakeEngine) PitchBend(channel, value int) {
	e.calls = append(e.calls, engineCall{"pitchBend", channel, value, 0})
}

func (e *fakeEngine) Sysex(data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	e.sysex = append(e.sysex, buf)
}

func (e *fakeEngine) LoadSoundFont(path string) error {
	if e.loadErr != nil {
		return e.loadErr
	}
	e.loaded = append(e.loaded, path)
	e.banks++
	return nil
}

func (e *fakeEngine) SoundFontCount() int { return e.banks }

func (e *fakeEngine) SetGain(gain float64) {
	if e.gainCeiling > 0 && gain > e.gainCeiling {
		gain = e.gainCeiling
	}
	e.gain = gain
}

func (e *fakeEngine) Gain() float64 {
	if e.gainReadback != nil {
		return *e.gainReadback
	}
	return e.gain
}

func (e *fakeEngine) Render(out []float32) {
	if e.panicOnRender {
		panic("render blew up")
	}
	e.renderFrames = append(e.renderFrames, len(out)/2)
	for i := range out {
		out[i] = e.renderValue
	}
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

var _ synth.Engine = (*fakeEngine)(nil)

// captureBackend registers channels on an offline mixer backend and
// keeps hold of the created channel so tests can drive pulls and volume
// changes.
type captureBackend struct {
	offline  *mixer.Offline
	ch       *mixer.OfflineChannel
	addCalls int
	failAdd  bool
}

func newCaptureBackend() *captureBackend {
	return &captureBackend{offline: mixer.NewOffline()}
}

func (b *captureBackend) AddChannel(name string, sampleRate int, pull mixer.PullFunc) (mixer.Channel, error) {
	b.addCalls++
	if b.failAdd {
		return nil, errors.New("mixer rejected the channel")
	}
	c, err := b.offline.AddChannel(name, sampleRate, pull)
	if err != nil {
		return nil, err
	}
	b.ch = c.(*mixer.OfflineChannel)
	return c, nil
}

// newTestDevice opens a device around a fake engine and the capture
// backend. The configuration uses the defaults unless mutated first.
func newTestDevice(t *testing.T, engine *fakeEngine, cfg config.Config) (*Device, *captureBackend) {
	t.Helper()
	backend := newCaptureBackend()
	d := New(cfg, backend)
	d.newEngine = func(synth.Settings) (synth.Engine, error) {
		return engine, nil
	}
	if err := d.Open(); err != nil {
		t.Fatalf("opening device: %v", err)
	}
	t.Cleanup(d.Close)
	return d, backend
}

// windowRMS measures the energy of a PCM window, for amplitude-envelope
// assertions.
func windowRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func allZero(samples []int16) bool {
	for _, s := range samples {
		if s != 0 {
			return false
		}
	}
	return true
}
