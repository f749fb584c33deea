package synth

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// maxGain mirrors the upper clamp FluidSynth applies to synth.gain.
const maxGain = 10.0

// MeltyEngine is the meltysynth-backed Engine. Construction is cheap and
// never touches the filesystem; the synthesizer proper comes to life when
// a SoundFont is loaded, since meltysynth needs the bank up front. Until
// then the engine renders silence and drops voice events, which is the
// wanted behavior for a session with no bank configured.
type MeltyEngine struct {
	settings *meltysynth.SynthesizerSettings

	mu    sync.Mutex
	synth *meltysynth.Synthesizer
	banks int
	gain  float64

	left  []float32
	right []float32
}

// NewEngine creates a meltysynth engine for the given settings.
func NewEngine(s Settings) (*MeltyEngine, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	ms := meltysynth.NewSynthesizerSettings(int32(s.SampleRate))
	return &MeltyEngine{
		settings: ms,
		gain:     1,
	}, nil
}

// LoadSoundFont reads an .sf2 file and builds the synthesizer around it.
func (e *MeltyEngine) LoadSoundFont(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing soundfont %q: %w", path, err)
	}
	sy, err := meltysynth.NewSynthesizer(sf, e.settings)
	if err != nil {
		return fmt.Errorf("creating synthesizer: %w", err)
	}

	e.mu.Lock()
	sy.MasterVolume = float32(e.gain)
	e.synth = sy
	e.banks = 1
	e.mu.Unlock()
	return nil
}

func (e *MeltyEngine) SoundFontCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.banks
}

func (e *MeltyEngine) NoteOn(channel, key, velocity int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth == nil {
		return
	}
	e.synth.NoteOn(int32(channel), int32(key), int32(velocity))
}

func (e *MeltyEngine) NoteOff(channel, key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth == nil {
		return
	}
	e.synth.NoteOff(int32(channel), int32(key))
}

func (e *MeltyEngine) KeyPressure(channel, key, pressure int) {
	e.processMessage(channel, 0xA0, key, pressure)
}

func (e *MeltyEngine) ControlChange(channel, controller, value int) {
	e.processMessage(channel, 0xB0, controller, value)
}

func (e *MeltyEngine) ProgramChange(channel, program int) {
	e.processMessage(channel, 0xC0, program, 0)
}

func (e *MeltyEngine) ChannelPressure(channel, pressure int) {
	e.processMessage(channel, 0xD0, pressure, 0)
}

func (e *MeltyEngine) PitchBend(channel, value int) {
	// meltysynth takes the raw data bytes, low 7 bits each.
	e.processMessage(channel, 0xE0, value&0x7F, value>>7)
}

func (e *MeltyEngine) processMessage(channel, command, data1, data2 int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth == nil {
		return
	}
	e.synth.ProcessMidiMessage(int32(channel), int32(command), int32(data1), int32(data2))
}

// Sysex is accepted for interface completeness; meltysynth has no
// system-exclusive handling, so the buffer is dropped.
func (e *MeltyEngine) Sysex(data []byte) {}

// SetGain clamps the requested gain to [0, maxGain] and stores it, so a
// later Gain read-back reports the value actually in effect.
func (e *MeltyEngine) SetGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	if gain > maxGain {
		gain = maxGain
	}
	e.mu.Lock()
	e.gain = gain
	if e.synth != nil {
		e.synth.MasterVolume = float32(gain)
	}
	e.mu.Unlock()
}

func (e *MeltyEngine) Gain() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gain
}

// Render fills out with len(out)/2 interleaved stereo frames.
func (e *MeltyEngine) Render(out []float32) {
	frames := len(out) / 2

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.synth == nil {
		for i := range out {
			out[i] = 0
		}
		return
	}

	if cap(e.left) < frames {
		e.left = make([]float32, frames)
		e.right = make([]float32, frames)
	}
	left := e.left[:frames]
	right := e.right[:frames]
	for i := 0; i < frames; i++ {
		left[i] = 0
		right[i] = 0
	}

	e.synth.Render(left, right)
	for i := 0; i < frames; i++ {
		out[2*i] = left[i]
		out[2*i+1] = right[i]
	}
}

// Close releases the synthesizer. Further renders produce silence.
func (e *MeltyEngine) Close() error {
	e.mu.Lock()
	e.synth = nil
	e.banks = 0
	e.mu.Unlock()
	return nil
}
