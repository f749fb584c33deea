// Package synth defines the narrow capability surface this module needs
// from a wavetable synthesis engine, together with a SoundFont
// implementation backed by meltysynth. The bridge in package device only
// ever talks to the Engine interface, so tests and alternative engines
// can stand in for the real synthesizer.
package synth

import (
	"fmt"

	"github.com/cwbudde/midisynth/config"
)

// Settings is the engine configuration fixed for one session. The output
// sample format is always interleaved stereo float32; it is not
// configurable.
type Settings struct {
	// SampleRate in Hz.
	SampleRate int

	// Threads is the requested synthesis worker-thread count. Engines
	// that render on the caller's goroutine accept and ignore it.
	Threads int
}

// Validate checks the settings against the ranges the engine supports.
func (s Settings) Validate() error {
	if s.SampleRate < config.MinSampleRate || s.SampleRate > config.MaxSampleRate {
		return fmt.Errorf("sample rate %d out of range [%d, %d]", s.SampleRate, config.MinSampleRate, config.MaxSampleRate)
	}
	if s.Threads < config.MinThreads || s.Threads > config.MaxThreads {
		return fmt.Errorf("thread count %d out of range [%d, %d]", s.Threads, config.MinThreads, config.MaxThreads)
	}
	return nil
}

// Engine is the opaque synthesis capability: it consumes channel-voice
// events and produces interleaved stereo float frames. Voice-event and
// render methods never fail; bad input is dropped by the engine.
//
// The engine is safe for one goroutine sending events while another
// renders audio. Render blocks until the requested frames are produced.
type Engine interface {
	// NoteOn starts a voice. NoteOff releases it; release velocity is
	// not a parameter because this class of engine ignores it.
	NoteOn(channel, key, velocity int)
	NoteOff(channel, key int)

	// KeyPressure is polyphonic aftertouch, ChannelPressure the
	// channel-wide variant.
	KeyPressure(channel, key, pressure int)
	ChannelPressure(channel, pressure int)

	ControlChange(channel, controller, value int)
	ProgramChange(channel, program int)

	// PitchBend takes the assembled 14-bit value in [0, 16383].
	PitchBend(channel, value int)

	// Sysex hands a raw system-exclusive buffer to the engine verbatim,
	// fire-and-forget.
	Sysex(data []byte)

	// LoadSoundFont loads an instrument bank from an .sf2 file. At most
	// one bank is held; loading replaces it.
	LoadSoundFont(path string) error

	// SoundFontCount reports the number of loaded banks.
	SoundFontCount() int

	// SetGain sets the engine's internal gain multiplier. The engine
	// may clamp or quantize the value; Gain returns what was actually
	// stored.
	SetGain(gain float64)
	Gain() float64

	// Render fills out with interleaved stereo frames, len(out)/2 of
	// them. With no bank loaded it writes silence.
	Render(out []float32)

	Close() error
}
