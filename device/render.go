package device

import "github.com/cwbudde/midisynth/synth"

// MaxChunk is the largest frame count handed to the engine in one render
// call. The scratch buffers are sized for it and reused across calls, so
// the render path allocates nothing.
const MaxChunk = 2048

// pullAudio is the mixer channel's pull callback. It renders the
// requested frame count in chunks of at most MaxChunk frames, runs each
// chunk through the limiting stage and delivers the PCM to the channel.
// It always delivers exactly the requested number of frames; an engine
// failure degrades that chunk to silence rather than stalling the audio
// thread.
func (d *Device) pullAudio(frames uint16) {
	engine := d.engine
	channel := d.channel

	remaining := int(frames)
	for remaining > 0 {
		n := remaining
		if n > MaxChunk {
			n = MaxChunk
		}
		in := d.renderBuf[:2*n]
		out := d.pcmBuf[:2*n]

		if engine == nil || !renderChunk(engine, in) {
			for i := range in {
				in[i] = 0
			}
		}
		d.limiter.Apply(in, out, n)
		if channel != nil {
			channel.AddSamples(n, out)
		}
		remaining -= n
	}
}

// renderChunk shields the audio thread from a panicking engine.
func renderChunk(engine synth.Engine, buf []float32) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	engine.Render(buf)
	return true
}
