package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cwbudde/midisynth/config"
	"github.com/cwbudde/midisynth/device"
	"github.com/cwbudde/midisynth/mixer"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	configPath := flag.String("config", "", "JSON config file path (optional)")
	soundfont := flag.String("soundfont", "", "Path to a SoundFont (.sf2) file; overrides the config file")
	sampleRate := flag.Int("sample-rate", 0, "Synthesizer sample rate in Hz (8000-96000); overrides the config file")
	threads := flag.Int("threads", 0, "Synthesis worker-thread count (1-256); overrides the config file")
	port := flag.String("port", "", "MIDI input port name to connect to; empty creates a virtual port")
	portName := flag.String("port-name", "midisynth", "Name of the virtual MIDI input port")
	volume := flag.Float64("volume", 1.0, "Output volume multiplier (1.0 = unity)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *soundfont != "" {
		cfg.SoundFont = *soundfont
	}
	if *sampleRate != 0 {
		cfg.SampleRate = *sampleRate
	}
	if *threads != 0 {
		cfg.Threads = *threads
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	backend, err := mixer.NewOto(cfg.SampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audio output: %v\n", err)
		os.Exit(1)
	}

	dev := device.New(cfg, backend)
	if err := dev.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening synthesizer: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()

	if *volume != 1.0 {
		dev.SetVolume(float32(*volume), float32(*volume))
	}

	drv, err := rtmididrv.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating MIDI driver: %v\n", err)
		os.Exit(1)
	}
	defer drv.Close()

	in, err := openInput(drv, *port, *portName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening MIDI input: %v\n", err)
		os.Exit(1)
	}
	defer in.Close()

	stop, err := in.Listen(func(msg []byte, timestampms int32) {
		if len(msg) == 0 {
			return
		}
		if msg[0] == 0xF0 {
			dev.PlaySysex(msg)
			return
		}
		dev.PlayMessage(msg)
	}, drivers.ListenConfig{SysEx: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listening on MIDI input: %v\n", err)
		os.Exit(1)
	}
	defer stop()

	fmt.Printf("Listening on %q at %d Hz, Ctrl-C to quit\n", in.String(), cfg.SampleRate)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	fmt.Println("\nShutting down")
}

// openInput connects to a named hardware port, or creates a virtual
// input port when no name is given. Port matching is exact first, then
// substring, the way users expect from rtmidi port listings.
func openInput(drv *rtmididrv.Driver, port, virtualName string) (drivers.In, error) {
	if port == "" {
		return drv.OpenVirtualIn(virtualName)
	}

	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI inputs: %w", err)
	}
	var in drivers.In
	for _, p := range ins {
		if p.String() == port {
			in = p
			break
		}
	}
	if in == nil {
		for _, p := range ins {
			if strings.Contains(p.String(), port) {
				in = p
				break
			}
		}
	}
	if in == nil {
		names := make([]string, len(ins))
		for i, p := range ins {
			names[i] = p.String()
		}
		return nil, fmt.Errorf("no MIDI input matching %q (available: %s)", port, strings.Join(names, ", "))
	}
	if err := in.Open(); err != nil {
		return nil, fmt.Errorf("opening %q: %w", in.String(), err)
	}
	return in, nil
}
