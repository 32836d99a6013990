// Package config resolves phonon's runtime configuration: the single
// documented environment variable (§6.6's PHONON_SAMPLE_DIR) plus an
// optional YAML file for the handful of driver-level knobs (sample rate,
// buffer size, worker pool) that aren't part of the patch language itself.
// Grounded on Conceptual-Machines-magda-api's config.Load (os.Getenv with
// a default, collected into one struct) for the env-var side; gopkg.in/
// yaml.v3 (already in the teacher's go.mod, used for its own session/
// preset files) for the optional file side rather than inventing an ad hoc
// key=value format.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything the CLI and driver need before a patch file is
// even read.
type Config struct {
	SampleDir  string `yaml:"sample_dir"`
	SampleRate float64 `yaml:"sample_rate"`
	BufferSize int     `yaml:"buffer_size"`
	Channels   int     `yaml:"channels"`
	WorkerPool bool    `yaml:"worker_pool"`
	SocketPath string  `yaml:"socket_path"`
}

// Default returns the built-in defaults, used when neither a config file
// nor the corresponding environment variable is present.
func Default() *Config {
	return &Config{
		SampleDir:  "",
		SampleRate: 44100,
		BufferSize: 512,
		Channels:   2,
		WorkerPool: false,
		SocketPath: "/tmp/phonon.sock",
	}
}

// Load builds a Config starting from Default, then applying path (if
// non-empty and readable) as a YAML overlay, then PHONON_SAMPLE_DIR as the
// final override — matching the env-always-wins precedence the config
// package's getEnv helper establishes for every other setting in the pack.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}
	if dir := os.Getenv("PHONON_SAMPLE_DIR"); dir != "" {
		cfg.SampleDir = dir
	}
	return cfg, nil
}
