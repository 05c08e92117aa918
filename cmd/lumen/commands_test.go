package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muurk/lumen/internal/packet"
)

// setPowerHex is SetPower level 65535 from source 0x12345678, sequence 7, to d073d5001337.
const setPowerHex = "2600" + "0014" + "78563412" + "d073d50013370000" + "000000000000" +
	"03" + "07" + "0000000000000000" + "1500" + "0000" + "ffff"

func run(t *testing.T, configPath, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LUMEN_LOG_LEVEL", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func tempConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yaml")
}

func TestPack(t *testing.T) {
	cfg := tempConfig(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "explicit header",
			args: []string{"pack", "SetPower", "--values", `{"level": 65535}`,
				"--source", "305419896", "--sequence", "7", "--target", "d073d5001337"},
			want: setPowerHex,
		},
		{
			name: "header in values",
			args: []string{"pack", "SetPower", "--values",
				"level: 65535\nsource: 305419896\nsequence: 7\ntarget: d073d5001337"},
			want: setPowerHex,
		},
		{
			name: "config defaults",
			args: []string{"pack", "GetService"},
			want: "2400" + "0034" + "02000000" + "0000000000000000" + "000000000000" +
				"03" + "01" + "0000000000000000" + "0200" + "0000",
		},
		{
			name: "sequence flag",
			args: []string{"pack", "GetService", "--sequence", "9"},
			want: "2400" + "0034" + "02000000" + "0000000000000000" + "000000000000" +
				"03" + "09" + "0000000000000000" + "0200" + "0000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, cfg, "", tt.args...)
			if err != nil {
				t.Fatalf("pack error = %v", err)
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("pack = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPackErrors(t *testing.T) {
	cfg := tempConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown message", args: []string{"pack", "NoSuchMessage"}},
		{name: "bad values", args: []string{"pack", "SetPower", "--values", "{level"}},
		{name: "missing field", args: []string{"pack", "SetPower"}},
		{name: "unknown target", args: []string{"pack", "SetPower", "--values", "level: 1", "--target", "garage"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, cfg, "", tt.args...); err == nil {
				t.Error("pack error = nil, want error")
			}
		})
	}
}

func TestUnpackFormats(t *testing.T) {
	cfg := tempConfig(t)

	tests := []struct {
		format string
		want   []string
	}{
		{format: "json", want: []string{`"level": 65535`, `"source": 305419896`, `"target": "d073d50013370000"`}},
		{format: "yaml", want: []string{"level: 65535", "pkt_type: 21"}},
		{format: "compact", want: []string{"SetPower (1024:21, 38 bytes)\n", "payload\n", "sequence"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := run(t, cfg, "", "unpack", "--format", tt.format, setPowerHex)
			if err != nil {
				t.Fatalf("unpack error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("unpack output missing %q:\n%s", w, out)
				}
			}
		})
	}

	if _, err := run(t, cfg, "", "unpack", "--format", "xml", setPowerHex); err == nil {
		t.Error("unpack with an unknown format should fail")
	}
	if _, err := run(t, cfg, "", "unpack", "zz"); err == nil {
		t.Error("unpack with bad hex should fail")
	}
}

func TestUnpackUnknownType(t *testing.T) {
	cfg := tempConfig(t)
	unknown := strings.Replace(setPowerHex, "1500", "0f27", 1) // type 9999

	_, err := run(t, cfg, "", "unpack", unknown)
	if !packet.IsLookupError(err) {
		t.Fatalf("unpack error = %v, want lookup error", err)
	}

	out, err := run(t, cfg, "", "unpack", "--unknown-ok", "--format", "compact", unknown)
	if err != nil {
		t.Fatalf("unpack --unknown-ok error = %v", err)
	}
	if !strings.Contains(out, "Frame (1024:9999, 38 bytes)") || !strings.Contains(out, "ffff") {
		t.Errorf("unpack --unknown-ok output:\n%s", out)
	}
}

func TestUnpackStdin(t *testing.T) {
	cfg := tempConfig(t)
	input := "# capture\n" + setPowerHex + "\n\n" + setPowerHex + "\n"

	out, err := run(t, cfg, input, "unpack", "--format", "cbor", "-")
	if err != nil {
		t.Fatalf("unpack - error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || lines[0] != lines[1] {
		t.Errorf("unpack - printed %d lines:\n%s", len(lines), out)
	}
}

func TestMessages(t *testing.T) {
	out, err := run(t, tempConfig(t), "", "messages")
	if err != nil {
		t.Fatalf("messages error = %v", err)
	}
	if !strings.HasPrefix(out, "PROTOCOL") {
		t.Errorf("messages should start with the header row:\n%s", out)
	}
	for _, w := range []string{"SetPower", "StateMultiZone", "hue, saturation, brightness, kelvin"} {
		if !strings.Contains(out, w) {
			t.Errorf("messages output missing %q", w)
		}
	}
}

func TestConfigCommands(t *testing.T) {
	cfg := tempConfig(t)

	if _, err := run(t, cfg, "", "config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if _, err := run(t, cfg, "", "config", "init"); err == nil {
		t.Error("config init over an existing file should fail")
	}
	if _, err := run(t, cfg, "", "config", "init", "--force"); err != nil {
		t.Fatalf("config init --force error = %v", err)
	}

	if _, err := run(t, cfg, "", "config", "nickname", "D073D5001337", "kitchen"); err != nil {
		t.Fatalf("config nickname error = %v", err)
	}

	out, err := run(t, cfg, "", "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "d073d5001337:") || !strings.Contains(out, "nickname: kitchen") {
		t.Errorf("config show output:\n%s", out)
	}

	out, err = run(t, cfg, "", "pack", "GetPower", "--target", "kitchen")
	if err != nil {
		t.Fatalf("pack --target kitchen error = %v", err)
	}
	if got := strings.TrimSpace(out)[16:28]; got != "d073d5001337" {
		t.Errorf("target bytes = %s, want d073d5001337", got)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, tempConfig(t), "", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "lumen ") {
		t.Errorf("version = %q", out)
	}
}
