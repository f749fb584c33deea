package device

// setMixerVolume is the channel's volume-change callback. The engine
// applies gain symmetrically, so it gets the smaller of the two desired
// channel volumes; the gain actually stored is then read back (the
// engine may clamp it) and backed out of the per-channel pre-scale
// factors, so the perceived volume matches the request even when the
// engine's applied gain differs from what was asked.
func (d *Device) setMixerVolume(left, right float32) {
	engine := d.engine
	if engine == nil {
		return
	}

	gain := left
	if right < gain {
		gain = right
	}
	engine.SetGain(float64(gain))

	readback := float32(engine.Gain())
	if readback <= 0 {
		// A zero read-back would blow up the division below; fall back
		// to unity so the scale factors stay finite.
		readback = 1
	}

	d.limiter.SetLevels(FullScale*left/readback, FullScale*right/readback, left, right)
}
