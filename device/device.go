// Package device bridges a MIDI message source to a wavetable synthesis
// engine and an audio mixer channel. It decodes channel-voice and
// system-exclusive messages into engine events, pulls rendered audio out
// of the engine in bounded chunks, runs it through a protective
// gain/limiting stage and delivers 16-bit PCM to the mixer at the rate
// the mixer demands.
package device

import (
	"fmt"
	"log"
	"sync"

	"github.com/cwbudde/midisynth/config"
	"github.com/cwbudde/midisynth/mixer"
	"github.com/cwbudde/midisynth/synth"
)

// ChannelName identifies the device's mixer channel with the backend.
const ChannelName = "synth"

// Device is one MIDI synthesizer session. Construct it with New, then
// Open to acquire the engine and mixer channel. MIDI dispatch and volume
// updates run on the caller's (control) goroutine while the mixer pulls
// audio on its own; Open and Close must not race with either.
type Device struct {
	cfg config.Config
	out mixer.Backend

	// newEngine builds the synthesis engine; tests substitute fakes.
	newEngine func(synth.Settings) (synth.Engine, error)

	limiter   *Limiter
	renderBuf []float32
	pcmBuf    []int16

	mu       sync.Mutex
	isOpen   bool
	settings *synth.Settings
	engine   synth.Engine
	channel  mixer.Channel
}

// New creates a closed device that will play into the given backend.
func New(cfg config.Config, out mixer.Backend) *Device {
	return &Device{
		cfg: cfg,
		out: out,
		newEngine: func(s synth.Settings) (synth.Engine, error) {
			return synth.NewEngine(s)
		},
		limiter:   NewLimiter(),
		renderBuf: make([]float32, 2*MaxChunk),
		pcmBuf:    make([]int16, 2*MaxChunk),
	}
}

// Open acquires, in order, the engine settings, the engine itself, the
// configured soundfont and the mixer channel, then enables the channel.
// Any previous session is closed first. On failure everything acquired
// so far is released and the device stays closed.
//
// A missing or unreadable soundfont is not a failure: the session
// proceeds and synthesizes silence.
func (d *Device) Open() error {
	d.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	settings := synth.Settings{
		SampleRate: d.cfg.SampleRate,
		Threads:    d.cfg.Threads,
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("midi: %w", err)
	}

	engine, err := d.newEngine(settings)
	if err != nil {
		return fmt.Errorf("midi: creating synthesizer: %w", err)
	}

	if path := config.ResolveHome(d.cfg.SoundFont); path != "" && engine.SoundFontCount() == 0 {
		if err := engine.LoadSoundFont(path); err != nil {
			log.Printf("midi: soundfont %q not loaded: %v", path, err)
		}
	}
	log.Printf("midi: %d soundfont file(s) loaded", engine.SoundFontCount())

	channel, err := d.out.AddChannel(ChannelName, settings.SampleRate, d.pullAudio)
	if err != nil {
		_ = engine.Close()
		return fmt.Errorf("midi: registering mixer channel: %w", err)
	}

	d.settings = &settings
	d.engine = engine
	d.channel = channel

	channel.RegisterVolumeFunc(d.setMixerVolume)
	channel.Enable(true)
	d.isOpen = true
	return nil
}

// Close disables the mixer channel, emits the limiter statistics and
// releases the channel, the engine and the settings in reverse order of
// acquisition. Closing a closed device is a no-op.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isOpen {
		return
	}

	d.channel.Enable(false)
	d.limiter.PrintStats()

	_ = d.channel.Close()
	d.channel = nil
	_ = d.engine.Close()
	d.engine = nil
	d.settings = nil
	d.isOpen = false
}

// SetVolume changes the mixer channel's volume. The new levels flow
// back through the channel's volume callback into the gain model. No-op
// on a closed device.
func (d *Device) SetVolume(left, right float32) {
	d.mu.Lock()
	channel := d.channel
	d.mu.Unlock()
	if channel != nil {
		channel.SetVolume(left, right)
	}
}

// IsOpen reports whether a session is active.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isOpen
}
