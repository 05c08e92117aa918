package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInitializeLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		env       string
		wantDebug bool
		wantInfo  bool
	}{
		{name: "silent by default"},
		{name: "explicit debug", level: "debug", wantDebug: true, wantInfo: true},
		{name: "from environment", env: "info", wantInfo: true},
		{name: "explicit wins over environment", level: "error", env: "debug"},
		{name: "unknown level means info", level: "loud", wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(LogLevelEnvVar, tt.env)
			if err := Initialize(tt.level); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			defer func() { logger = nil }()

			core := GetLogger().Core()
			if got := core.Enabled(zapcore.DebugLevel); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := core.Enabled(zapcore.InfoLevel); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
		})
	}
}

func TestGetLoggerWithoutInitialize(t *testing.T) {
	logger = nil
	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil")
	}
	// Must not panic on a nop logger
	LogPacket("packed", "GetService", []byte{0x24, 0x00})
	LogRawBytes("input", []byte("hi"))
}

func TestDumps(t *testing.T) {
	if got := hexDump([]byte{0xd0, 0x73}); got != "d073" {
		t.Errorf("hexDump() = %q, want d073", got)
	}
	long := make([]byte, 300)
	if got := hexDump(long); !strings.HasSuffix(got, "...") || len(got) != 512+3 {
		t.Errorf("hexDump(300 bytes) length = %d", len(got))
	}
	if got := asciiDump([]byte("hi\x00!")); got != "hi.!" {
		t.Errorf("asciiDump() = %q, want hi.!", got)
	}
	if got := hexDump(nil); got != "" {
		t.Errorf("hexDump(nil) = %q, want empty", got)
	}
}
