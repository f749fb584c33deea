package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/cwbudde/midisynth/config"
	"github.com/cwbudde/midisynth/device"
	"github.com/cwbudde/midisynth/mixer"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
	"gitlab.com/gomidi/midi/v2/smf"
)

// rawEvent is one playable SMF event at an absolute tick position.
type rawEvent struct {
	tick int64
	msg  []byte
}

// tempoSegment is one stretch of constant tempo, precomputed so tick
// positions convert to seconds in a single walk.
type tempoSegment struct {
	startTick  int64
	startSec   float64
	secPerTick float64
}

func main() {
	input := flag.String("input", "", "Standard MIDI file to render")
	soundfont := flag.String("soundfont", "", "Path to a SoundFont (.sf2) file")
	sampleRate := flag.Int("sample-rate", config.DefaultSampleRate, "Render sample rate in Hz (8000-96000)")
	threads := flag.Int("threads", config.DefaultThreads, "Synthesis worker-thread count (1-256)")
	volume := flag.Float64("volume", 1.0, "Output volume multiplier (1.0 = unity)")
	tail := flag.Float64("tail", 1.0, "Seconds of audio appended after the last event for releases to decay")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		os.Exit(1)
	}

	cfg := config.Config{
		SoundFont:  *soundfont,
		SampleRate: *sampleRate,
		Threads:    *threads,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	events, segments, err := readSMF(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", *input, err)
		os.Exit(1)
	}

	backend := mixer.NewOffline()
	dev := device.New(cfg, backend)
	if err := dev.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening synthesizer: %v\n", err)
		os.Exit(1)
	}
	if *volume != 1.0 {
		dev.SetVolume(float32(*volume), float32(*volume))
	}

	ch := backend.Channel(device.ChannelName)

	fmt.Printf("Rendering %d events from %s at %d Hz...\n", len(events), *input, cfg.SampleRate)

	var cursor int64 // frames rendered so far
	for _, ev := range events {
		target := int64(ticksToSeconds(segments, ev.tick) * float64(cfg.SampleRate))
		if target > cursor {
			ch.Pull(int(target - cursor))
			cursor = target
		}
		if ev.msg[0] == 0xF0 {
			dev.PlaySysex(ev.msg)
		} else {
			dev.PlayMessage(ev.msg)
		}
	}
	tailFrames := int(*tail * float64(cfg.SampleRate))
	if tailFrames > 0 {
		ch.Pull(tailFrames)
		cursor += int64(tailFrames)
	}

	samples := ch.Samples()
	dev.Close()

	if err := writeWAV(*output, cfg.SampleRate, samples); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, cursor)
}

// readSMF loads a Standard MIDI file and flattens its tracks into one
// tick-ordered stream of playable events plus the tempo map.
func readSMF(path string) ([]rawEvent, []tempoSegment, error) {
	rd, err := smf.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	ticks, ok := rd.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, nil, fmt.Errorf("unsupported SMF time format %v", rd.TimeFormat)
	}
	resolution := float64(ticks.Resolution())

	var events []rawEvent
	for _, track := range rd.Tracks {
		var abs int64
		for _, ev := range track {
			abs += int64(ev.Delta)
			b := ev.Message.Bytes()
			if len(b) == 0 {
				continue
			}
			// Channel-voice messages and sysex; meta events carry no
			// audio and are skipped (tempo comes from the tempo map).
			if b[0] == 0xF0 || (b[0] >= 0x80 && b[0] < 0xF0) {
				events = append(events, rawEvent{tick: abs, msg: b})
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].tick < events[j].tick })

	segments := []tempoSegment{{secPerTick: 0.5 / resolution}} // 120 BPM until told otherwise
	for _, tc := range rd.TempoChanges() {
		prev := segments[len(segments)-1]
		startSec := prev.startSec + float64(tc.AbsTicks-prev.startTick)*prev.secPerTick
		segments = append(segments, tempoSegment{
			startTick:  tc.AbsTicks,
			startSec:   startSec,
			secPerTick: 60.0 / tc.BPM / resolution,
		})
	}
	return events, segments, nil
}

// ticksToSeconds converts an absolute tick position to seconds using the
// tempo map.
func ticksToSeconds(segments []tempoSegment, tick int64) float64 {
	seg := segments[0]
	for _, s := range segments[1:] {
		if s.startTick > tick {
			break
		}
		seg = s
	}
	return seg.startSec + float64(tick-seg.startTick)*seg.secPerTick
}

// writeWAV stores interleaved 16-bit stereo PCM as a WAV file.
func writeWAV(path string, sampleRate int, samples []int16) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	data := make([]float32, len(samples))
	for i, s := range samples {
		data[i] = float32(s) / 32768.0
	}

	encoder := wav.NewEncoder(file, sampleRate, 16, 2, 1)
	defer encoder.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 2,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	return encoder.Write(buf)
}
