package messages

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/muurk/lumen/internal/bits"
	"github.com/muurk/lumen/internal/packet"
)

func TestExtractProtocolAndType(t *testing.T) {
	raw := setPowerBytes(t)

	tests := []struct {
		name      string
		input     any
		wantProto uint16
		wantType  uint16
		wantErr   bool
	}{
		{name: "bytes", input: raw, wantProto: 1024, wantType: 21},
		{name: "hex", input: hex.EncodeToString(raw), wantProto: 1024, wantType: 21},
		{name: "bits", input: bits.FromBytes(raw), wantProto: 1024, wantType: 21},
		{name: "flat map", input: map[string]any{"protocol": 1024, "pkt_type": 117}, wantProto: 1024, wantType: 117},
		{
			name: "grouped map",
			input: map[string]any{
				"frame_header":    map[string]any{"protocol": uint64(1024)},
				"protocol_header": map[string]any{"pkt_type": uint64(2)},
			},
			wantProto: 1024,
			wantType:  2,
		},
		{name: "other protocol", input: map[string]any{"protocol": 512}, wantProto: 512},
		{name: "too short for protocol", input: raw[:3], wantErr: true},
		{name: "too short for type", input: raw[:20], wantErr: true},
		{name: "map without protocol", input: map[string]any{"pkt_type": 2}, wantErr: true},
		{name: "unsupported input", input: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proto, pktType, err := ExtractProtocolAndType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractProtocolAndType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if proto != tt.wantProto || pktType != tt.wantType {
				t.Errorf("ExtractProtocolAndType() = (%d, %d), want (%d, %d)", proto, pktType, tt.wantProto, tt.wantType)
			}
		})
	}

	_, _, err := ExtractProtocolAndType(raw[:20])
	if !errors.Is(err, packet.ErrTruncated) {
		t.Errorf("short input error = %v, want ErrTruncated", err)
	}
}

func withType(t *testing.T, raw []byte, pktType uint16) []byte {
	t.Helper()
	out := append([]byte(nil), raw...)
	out[32] = byte(pktType)
	out[33] = byte(pktType >> 8)
	return out
}

func TestResolve(t *testing.T) {
	raw := setPowerBytes(t)

	s, err := Default.Resolve(raw, false)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s != SetPower {
		t.Errorf("Resolve() = %s, want SetPower", s)
	}

	unknown := withType(t, raw, 9999)
	_, err = Default.Resolve(unknown, false)
	if !packet.IsLookupError(err) || !errors.Is(err, ErrUnknownPacket) {
		t.Fatalf("Resolve(unknown) error = %v, want lookup error", err)
	}
	var e *packet.Error
	if errors.As(err, &e) && len(e.Names) != len(Catalogue) {
		t.Errorf("lookup error lists %d known pairs, want %d", len(e.Names), len(Catalogue))
	}

	s, err = Default.Resolve(unknown, true)
	if err != nil {
		t.Fatalf("Resolve(unknown, unknownOK) error = %v", err)
	}
	if s != Frame {
		t.Errorf("Resolve(unknown, unknownOK) = %s, want Frame", s)
	}

	otherProtocol := append([]byte(nil), raw...)
	otherProtocol[3] = 0x12 // protocol 512
	if _, err := Default.Resolve(otherProtocol, true); !packet.IsLookupError(err) {
		t.Errorf("Resolve(other protocol) error = %v, want lookup error", err)
	}
}

func TestUnpackMessages(t *testing.T) {
	raw := setPowerBytes(t)

	p, err := Default.Unpack(raw, false)
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	if !p.Is(SetPower) || p.Is(StatePower) {
		t.Errorf("Is(SetPower) = %v, Is(StatePower) = %v", p.Is(SetPower), p.Is(StatePower))
	}
	if got := p.MustGet("level"); got != uint64(65535) {
		t.Errorf("Get(level) = %v, want 65535", got)
	}
	if got := p.MustGet("source"); got != uint64(0x12345678) {
		t.Errorf("Get(source) = %v, want 0x12345678", got)
	}

	generic, err := Default.Unpack(withType(t, raw, 9999), true)
	if err != nil {
		t.Fatalf("Unpack(unknown) error = %v", err)
	}
	if generic.Schema() != Frame {
		t.Fatalf("Unpack(unknown) schema = %s, want Frame", generic.Schema())
	}
	if got := generic.Payload().Hex(); got != "ffff" {
		t.Errorf("Payload() = %s, want ffff", got)
	}
	if !generic.Is(Frame) {
		t.Error("generic packet should be a Frame")
	}

	d, err := p.AsDict(true)
	if err != nil {
		t.Fatalf("AsDict() error = %v", err)
	}
	again, err := Default.Unpack(d, false)
	if err != nil {
		t.Fatalf("Unpack(map) error = %v", err)
	}
	b, err := again.PackBytes()
	if err != nil {
		t.Fatalf("PackBytes() error = %v", err)
	}
	if hex.EncodeToString(b) != hex.EncodeToString(raw) {
		t.Errorf("map round trip = %x, want %x", b, raw)
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	if _, err := NewRegistry(Frame, SetPower, GetPower, SetPower); err == nil {
		t.Error("NewRegistry() with a duplicate pair should fail")
	}

	clash := Frame.MustSpecialize("AnotherSetPower", map[string]*packet.Schema{
		"payload": packet.MustBuild("AnotherPayload", []packet.Field{packet.F("level", packet.Uint16)}),
	}, packet.WithType(21))
	if _, err := NewRegistry(Frame, SetPower, clash); err == nil {
		t.Error("NewRegistry() with two schemas on one pair should fail")
	}

	if _, err := NewRegistry(Frame, Frame); err == nil {
		t.Error("NewRegistry() with an untyped schema should fail")
	}
}

func TestRegistryLookups(t *testing.T) {
	if s, ok := Default.Lookup(FrameProtocol, 107); !ok || s != LightState {
		t.Errorf("Lookup(1024, 107) = %v, %v", s, ok)
	}
	if _, ok := Default.Lookup(FrameProtocol, 4); ok {
		t.Error("Lookup(1024, 4) should miss")
	}
	if s, ok := Default.ByName("EchoRequest"); !ok || s != EchoRequest {
		t.Errorf("ByName(EchoRequest) = %v, %v", s, ok)
	}

	known := Default.Known()
	if len(known) != len(Catalogue) {
		t.Fatalf("Known() has %d pairs, want %d", len(known), len(Catalogue))
	}
	for i := 1; i < len(known); i++ {
		if known[i-1].Type >= known[i].Type {
			t.Errorf("Known() not sorted at %d: %s before %s", i, known[i-1], known[i])
		}
	}

	if _, err := Create("NoSuchMessage", nil); !packet.IsLookupError(err) {
		t.Errorf("Create(unknown) error = %v, want lookup error", err)
	}
}
