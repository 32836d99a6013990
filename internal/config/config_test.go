package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	if cfg.SampleRate != 44100 {
		t.Fatalf("SampleRate = %v, want 44100", cfg.SampleRate)
	}
	if cfg.BufferSize != 512 {
		t.Fatalf("BufferSize = %v, want 512", cfg.BufferSize)
	}
	if cfg.SocketPath != "/tmp/phonon.sock" {
		t.Fatalf("SocketPath = %q, want /tmp/phonon.sock", cfg.SocketPath)
	}
}

func TestLoadWithNoPathReturnsDefaults(t *testing.T) {
	os.Unsetenv("PHONON_SAMPLE_DIR")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.SampleRate != 44100 {
		t.Fatalf("SampleRate = %v, want the default 44100", cfg.SampleRate)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load of a missing file should not error, got: %v", err)
	}
	if cfg.BufferSize != 512 {
		t.Fatalf("BufferSize = %v, want the default 512", cfg.BufferSize)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phonon.yaml")
	yaml := "sample_rate: 48000\nbuffer_size: 256\nworker_pool: true\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.SampleRate != 48000 {
		t.Fatalf("SampleRate = %v, want 48000 from the YAML overlay", cfg.SampleRate)
	}
	if cfg.BufferSize != 256 {
		t.Fatalf("BufferSize = %v, want 256 from the YAML overlay", cfg.BufferSize)
	}
	if !cfg.WorkerPool {
		t.Fatal("WorkerPool = false, want true from the YAML overlay")
	}
}

func TestSampleDirEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phonon.yaml")
	if err := os.WriteFile(path, []byte("sample_dir: /from/yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PHONON_SAMPLE_DIR", "/from/env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.SampleDir != "/from/env" {
		t.Fatalf("SampleDir = %q, want /from/env (env always wins per §6.6)", cfg.SampleDir)
	}
}
