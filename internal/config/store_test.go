package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honoured on Linux")
	}
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != filepath.Join(tmpDir, "lumen") {
		t.Errorf("GetConfigDir() = %v, want %v", configDir, filepath.Join(tmpDir, "lumen"))
	}

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if diff := pretty.Compare(NewConfig(), cfg); diff != "" {
		t.Errorf("LoadFrom() diff (-want +got):\n%s", diff)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := NewConfig()
	cfg.Source = 1234
	cfg.Format = FormatYAML
	cfg.LogLevel = "debug"
	cfg.SetDeviceNickname("D073D5001337", "kitchen")

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# lumen configuration file") {
		t.Errorf("saved file should start with the header comment, got:\n%s", data)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if diff := pretty.Compare(cfg, loaded); diff != "" {
		t.Errorf("LoadFrom() diff (-want +got):\n%s", diff)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\nsource: 99\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Source != 99 || cfg.Format != FormatJSON || cfg.Target != BroadcastTarget {
		t.Errorf("LoadFrom() = %+v", cfg)
	}
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "future version", content: "version: 2\n"},
		{name: "unknown format", content: "version: 1\nformat: xml\n"},
		{name: "unknown log level", content: "version: 1\nlog_level: chatty\n"},
		{name: "bad serial", content: "version: 1\ndevices:\n  nothex:\n    nickname: x\n"},
		{name: "not yaml", content: "version: [1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(path); err == nil {
				t.Error("LoadFrom() error = nil, want error")
			}
		})
	}
}

func TestResolveTarget(t *testing.T) {
	cfg := NewConfig()
	cfg.SetDeviceNickname("d073d5001337", "Kitchen")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "nickname", input: "kitchen", want: "d073d5001337"},
		{name: "serial", input: "D073D5000001", want: "d073d5000001"},
		{name: "default", input: "", want: BroadcastTarget},
		{name: "unknown", input: "garage", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfg.ResolveTarget(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveTarget() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnsureDevice(t *testing.T) {
	cfg := &Config{}

	device1 := cfg.EnsureDevice("d073d5001337")
	if device1 == nil {
		t.Fatal("EnsureDevice() returned nil")
	}
	if device2 := cfg.EnsureDevice("D073D5001337"); device1 != device2 {
		t.Error("EnsureDevice() should return same instance for same serial")
	}
	if cfg.GetDevice("d073d5000002") != nil {
		t.Error("GetDevice() should return nil for unknown serial")
	}
}
