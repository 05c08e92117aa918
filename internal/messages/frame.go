package messages

import (
	"sync"

	"github.com/muurk/lumen/internal/packet"
)

// Frame constants
const (
	FrameProtocol   = 1024 // The only protocol number with a known packet type field
	HeaderSizeBytes = 36

	protocolOffset = 16 // Bit offset of the 12 bit protocol field
	protocolBits   = 12
	typeOffset     = 256 // Bit offset of pkt_type when protocol is FrameProtocol
	typeBits       = 16
)

var frameHeader = packet.MustBuild("FrameHeader", []packet.Field{
	packet.F("size", packet.Uint16.DefaultFunc(func(p *packet.Packet) (any, error) {
		n, err := p.SizeBits()
		return n / 8, err
	})),
	packet.F("protocol", packet.Uint16.S(protocolBits).Default(FrameProtocol)),
	packet.F("addressable", packet.Bool.Default(true)),
	packet.F("tagged", packet.Bool.DefaultFunc(broadcastTarget)),
	packet.F("reserved1", packet.Reserved(2)),
	packet.F("source", packet.Uint32.AllowCallable()),
})

var frameAddress = packet.MustBuild("FrameAddress", []packet.Field{
	packet.F("target", packet.Bytes(64).Default(make([]byte, 8))),
	packet.F("reserved2", packet.Reserved(48)),
	packet.F("res_required", packet.Bool.Default(true)),
	packet.F("ack_required", packet.Bool.Default(true)),
	packet.F("reserved3", packet.Reserved(6)),
	packet.F("sequence", packet.Uint8.AllowCallable()),
})

var protocolHeader = packet.MustBuild("ProtocolHeader", []packet.Field{
	packet.F("reserved4", packet.Reserved(64)),
	packet.F("pkt_type", packet.Uint16.DefaultFunc(func(p *packet.Packet) (any, error) {
		if t, ok := p.Schema().Type(); ok {
			return t, nil
		}
		return packet.Unspecified, nil
	})),
	packet.F("reserved5", packet.Reserved(16)),
})

// Frame is the generic message: the three header groups and an opaque
// payload.
var Frame = packet.MustBuild("Frame",
	[]packet.Field{
		packet.G("frame_header", frameHeader),
		packet.G("frame_address", frameAddress),
		packet.G("protocol_header", protocolHeader),
		packet.G("payload", packet.MustBuild("Payload", nil)),
	},
	packet.AsParent("payload"),
	packet.WithProtocol(FrameProtocol),
)

// broadcastTarget reports whether the packet is addressed to every device.
func broadcastTarget(p *packet.Packet) (any, error) {
	if p.Actual("target") == packet.Unspecified {
		return true, nil
	}
	v, err := p.Get("target")
	if err != nil {
		return nil, err
	}
	b, _ := v.([]byte)
	for _, c := range b {
		if c != 0 {
			return false, nil
		}
	}
	return true, nil
}

// message declares a catalogue entry by specialising Frame.
func message(name string, pktType uint16, fields ...packet.Field) *packet.Schema {
	payload := packet.MustBuild(name+"Payload", fields)
	return Frame.MustSpecialize(name, map[string]*packet.Schema{"payload": payload}, packet.WithType(pktType))
}

// Sequencer hands out per-target sequence numbers. Each target has its own
// counter that wraps after 255.
type Sequencer struct {
	mu      sync.Mutex
	counter map[string]uint8
}

// NewSequencer creates an empty Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{counter: make(map[string]uint8)}
}

// Next returns the next sequence number for serial.
func (s *Sequencer) Next(serial string) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter[serial]++
	return s.counter[serial]
}

// Deferred returns a value for the sequence field that is resolved with the
// target serial when the packet is packed.
func (s *Sequencer) Deferred() packet.Deferred {
	return func(_ *packet.Packet, serial string) (any, error) {
		return s.Next(serial), nil
	}
}
