// Package config holds the session configuration for the MIDI synth bridge.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultSampleRate = 44100
	DefaultThreads    = 1

	MinSampleRate = 8000
	MaxSampleRate = 96000
	MinThreads    = 1
	MaxThreads    = 256
)

// Config describes one synthesizer session.
type Config struct {
	// SoundFont is the path to an .sf2 file. Empty means no bank is
	// loaded and the session synthesizes silence.
	SoundFont string `json:"soundfont"`

	// SampleRate of the audio generated by the synthesizer, in Hz.
	SampleRate int `json:"sample_rate"`

	// Threads is the synthesis worker-thread count requested from the
	// engine.
	Threads int `json:"synth_threads"`
}

// Default returns the configuration used when no file or flags override it.
func Default() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		Threads:    DefaultThreads,
	}
}

// Load reads a JSON config file and applies it on top of the defaults.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	c := Default()
	if err := json.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Threads == 0 {
		c.Threads = DefaultThreads
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return c, nil
}

// Validate checks the numeric ranges the engine accepts.
func (c *Config) Validate() error {
	if c.SampleRate < MinSampleRate || c.SampleRate > MaxSampleRate {
		return fmt.Errorf("sample_rate %d out of range [%d, %d]", c.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Threads < MinThreads || c.Threads > MaxThreads {
		return fmt.Errorf("synth_threads %d out of range [%d, %d]", c.Threads, MinThreads, MaxThreads)
	}
	return nil
}

// ResolveHome expands a leading "~" or "~/" in path to the user's home
// directory. Paths without the prefix are returned unchanged, as is the
// original path when the home directory cannot be determined.
func ResolveHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
