// Package mixer abstracts the audio output this module renders into. A
// Backend hands out channels; each channel owns a pull callback that the
// output side invokes whenever it needs more frames, and a volume
// callback through which user-facing volume changes flow back to the
// producer. Two backends are provided: a live one on top of oto and an
// offline capture one for file rendering and tests.
package mixer

// PullFunc is a channel's pull callback. It must deliver exactly frames
// stereo frames through Channel.AddSamples before returning.
type PullFunc func(frames uint16)

// VolumeFunc receives the user-facing stereo volume, a pair of
// non-negative multipliers with 1.0 meaning unity.
type VolumeFunc func(left, right float32)

// Channel is a registered output channel carrying interleaved signed
// 16-bit stereo PCM.
type Channel interface {
	// AddSamples delivers frames stereo frames (2*frames samples) of
	// PCM. It is only valid inside the channel's pull callback.
	AddSamples(frames int, samples []int16)

	// RegisterVolumeFunc installs the volume-change callback and
	// invokes it once with the channel's current volume.
	RegisterVolumeFunc(fn VolumeFunc)

	// SetVolume changes the channel volume and notifies the registered
	// volume callback.
	SetVolume(left, right float32)

	// Enable starts or stops pulls on this channel.
	Enable(on bool)

	// Close releases the channel. The pull callback is never invoked
	// again after Close returns.
	Close() error
}

// Backend registers output channels.
type Backend interface {
	AddChannel(name string, sampleRate int, pull PullFunc) (Channel, error)
}
