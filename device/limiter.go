package device

import (
	"log"
	"sync/atomic"
)

// FullScale is the maximum representable signed 16-bit magnitude, the
// target of the limiter's fixed-point conversion.
const FullScale = 32767

// levels is one immutable snapshot of the limiter's scaling state. The
// volume pair is the raw external mixer volume the prescale factors were
// derived from, kept for the teardown statistics.
type levels struct {
	prescale [2]float32
	volume   [2]float32
}

// Limiter converts the engine's float output to interleaved 16-bit PCM,
// applying the current pre-scale factors and clamping anything that
// overshoots the integer range. Level updates come from the control
// thread while Apply runs on the render thread, so the state is swapped
// as a whole snapshot and can never be read torn.
type Limiter struct {
	state atomic.Pointer[levels]

	// Statistics, written only by the render thread and read after the
	// channel has been disabled.
	frames  int64
	clipped int64
	peak    [2]float32
}

// NewLimiter creates a limiter at unity volume and full-scale prescale.
func NewLimiter() *Limiter {
	l := &Limiter{}
	l.state.Store(&levels{
		prescale: [2]float32{FullScale, FullScale},
		volume:   [2]float32{1, 1},
	})
	return l
}

// SetLevels installs new pre-scale factors along with the mixer volume
// they were derived from.
func (l *Limiter) SetLevels(prescaleLeft, prescaleRight, volumeLeft, volumeRight float32) {
	l.state.Store(&levels{
		prescale: [2]float32{prescaleLeft, prescaleRight},
		volume:   [2]float32{volumeLeft, volumeRight},
	})
}

// Apply scales frames stereo frames from in into out. in holds the
// engine's interleaved float output, out receives interleaved PCM of the
// same length.
func (l *Limiter) Apply(in []float32, out []int16, frames int) {
	s := l.state.Load()
	for i := 0; i < 2*frames; i++ {
		v := in[i] * s.prescale[i&1]

		mag := v
		if mag < 0 {
			mag = -mag
		}
		if mag > l.peak[i&1] {
			l.peak[i&1] = mag
		}

		if v > FullScale {
			v = FullScale
			l.clipped++
		} else if v < -FullScale-1 {
			v = -FullScale - 1
			l.clipped++
		}
		out[i] = int16(v)
	}
	l.frames += int64(frames)
}

// PrintStats emits the session summary: how hot the signal ran against
// full scale and how much of it had to be clamped.
func (l *Limiter) PrintStats() {
	s := l.state.Load()
	peakL := 100 * float64(l.peak[0]) / FullScale
	peakR := 100 * float64(l.peak[1]) / FullScale
	log.Printf("midi: rendered %d frames at mixer volume %.2f/%.2f, peak %.0f%%/%.0f%% of full scale, %d clipped samples",
		l.frames, s.volume[0], s.volume[1], peakL, peakR, l.clipped)
}
