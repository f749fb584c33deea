package device

import (
	"math"
	"testing"

	"github.com/cwbudde/midisynth/config"
)

func limiterLevels(d *Device) ([2]float32, [2]float32) {
	s := d.limiter.state.Load()
	return s.prescale, s.volume
}

func TestGainRoundTripUnity(t *testing.T) {
	engine := &fakeEngine{}
	d, backend := newTestDevice(t, engine, config.Default())

	backend.ch.SetVolume(1, 1)

	prescale, volume := limiterLevels(d)
	if prescale[0] != FullScale || prescale[1] != FullScale {
		t.Fatalf("unity volume with honest read-back must give full-scale prescale, got %v", prescale)
	}
	if volume != [2]float32{1, 1} {
		t.Fatalf("expected stored volume (1, 1), got %v", volume)
	}
	if engine.gain != 1 {
		t.Fatalf("expected engine gain 1, got %f", engine.gain)
	}
}

func TestGainUsesSmallerChannel(t *testing.T) {
	engine := &fakeEngine{}
	d, backend := newTestDevice(t, engine, config.Default())

	backend.ch.SetVolume(0.5, 1.0)

	if engine.gain != 0.5 {
		t.Fatalf("engine gain must be min of both channels, got %f", engine.gain)
	}
	prescale, _ := limiterLevels(d)
	// Left: FullScale*0.5/0.5, right: FullScale*1.0/0.5.
	if prescale[0] != FullScale {
		t.Fatalf("left prescale: got %f, want %d", prescale[0], FullScale)
	}
	if prescale[1] != 2*FullScale {
		t.Fatalf("right prescale: got %f, want %d", prescale[1], 2*FullScale)
	}
}

func TestGainReadbackCompensation(t *testing.T) {
	// The engine clamps gain at 2; asking for 4 must be backed out of
	// the prescale factors so the perceived volume still matches.
	engine := &fakeEngine{gainCeiling: 2}
	d, backend := newTestDevice(t, engine, config.Default())

	backend.ch.SetVolume(4, 4)

	if engine.gain != 2 {
		t.Fatalf("expected clamped engine gain 2, got %f", engine.gain)
	}
	prescale, _ := limiterLevels(d)
	want := float32(FullScale) * 4 / 2
	if prescale[0] != want || prescale[1] != want {
		t.Fatalf("expected compensated prescale %f, got %v", want, prescale)
	}
}

func TestGainZeroReadbackFallsBackToUnity(t *testing.T) {
	zero := 0.0
	engine := &fakeEngine{gainReadback: &zero}
	d, backend := newTestDevice(t, engine, config.Default())

	backend.ch.SetVolume(0.75, 0.75)

	prescale, _ := limiterLevels(d)
	want := float32(FullScale) * 0.75
	if prescale[0] != want || prescale[1] != want {
		t.Fatalf("zero read-back must substitute unity gain, got %v want %f", prescale, want)
	}
	for _, v := range prescale {
		if math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
			t.Fatalf("prescale must stay finite, got %v", prescale)
		}
	}
}

func TestOpenInstallsUnityLevels(t *testing.T) {
	engine := &fakeEngine{}
	d, _ := newTestDevice(t, engine, config.Default())

	// Registration invokes the volume callback once with the channel's
	// current (unity) volume.
	prescale, volume := limiterLevels(d)
	if prescale != [2]float32{FullScale, FullScale} || volume != [2]float32{1, 1} {
		t.Fatalf("expected unity levels after open, got prescale=%v volume=%v", prescale, volume)
	}
}
