package messages

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/muurk/lumen/internal/bits"
	"github.com/muurk/lumen/internal/logging"
	"github.com/muurk/lumen/internal/packet"
)

// ErrUnknownPacket is wrapped by lookup errors.
var ErrUnknownPacket = errors.New("unknown packet")

// Key identifies a message on the wire.
type Key struct {
	Protocol uint16
	Type     uint16
}

// String renders the key as protocol:type.
func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.Protocol, k.Type)
}

// Registry maps (protocol, pkt_type) pairs to message schemas.
type Registry struct {
	frame  *packet.Schema
	byKey  map[Key]*packet.Schema
	byName map[string]*packet.Schema
	keys   []Key
}

// NewRegistry registers schemas under their protocol and packet type numbers.
// frame is the generic schema returned for unknown packet types when the
// caller accepts them. Every schema must carry both numbers and no pair may be
// registered twice.
func NewRegistry(frame *packet.Schema, schemas ...*packet.Schema) (*Registry, error) {
	r := &Registry{
		frame:  frame,
		byKey:  make(map[Key]*packet.Schema, len(schemas)),
		byName: make(map[string]*packet.Schema, len(schemas)),
	}
	for _, s := range schemas {
		proto, ok := s.Protocol()
		if !ok {
			return nil, fmt.Errorf("schema %s has no protocol number", s.Name())
		}
		pktType, ok := s.Type()
		if !ok {
			return nil, fmt.Errorf("schema %s has no packet type number", s.Name())
		}
		key := Key{Protocol: proto, Type: pktType}
		if existing, dup := r.byKey[key]; dup {
			return nil, fmt.Errorf("schemas %s and %s both claim %s", existing.Name(), s.Name(), key)
		}
		if _, dup := r.byName[s.Name()]; dup {
			return nil, fmt.Errorf("schema name %s registered twice", s.Name())
		}
		r.byKey[key] = s
		r.byName[s.Name()] = s
		r.keys = append(r.keys, key)
	}
	sort.Slice(r.keys, func(i, j int) bool {
		if r.keys[i].Protocol != r.keys[j].Protocol {
			return r.keys[i].Protocol < r.keys[j].Protocol
		}
		return r.keys[i].Type < r.keys[j].Type
	})

	logging.Debug("Message registry built",
		zap.Int("messages", len(r.keys)),
		zap.String("frame", frame.Name()),
	)
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(frame *packet.Schema, schemas ...*packet.Schema) *Registry {
	r, err := NewRegistry(frame, schemas...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default holds the message catalogue.
var Default = MustNewRegistry(Frame, Catalogue...)

// Lookup returns the schema registered for a pair.
func (r *Registry) Lookup(protocol, pktType uint16) (*packet.Schema, bool) {
	s, ok := r.byKey[Key{Protocol: protocol, Type: pktType}]
	return s, ok
}

// ByName returns the schema registered under name.
func (r *Registry) ByName(name string) (*packet.Schema, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Known returns every registered pair in order.
func (r *Registry) Known() []Key {
	return append([]Key(nil), r.keys...)
}

// Schemas returns every registered schema ordered by pair.
func (r *Registry) Schemas() []*packet.Schema {
	out := make([]*packet.Schema, len(r.keys))
	for i, k := range r.keys {
		out[i] = r.byKey[k]
	}
	return out
}

// Frame returns the generic frame schema.
func (r *Registry) Frame() *packet.Schema { return r.frame }

func (r *Registry) lookupError(msg string, key Key) error {
	names := make([]string, len(r.keys))
	for i, k := range r.keys {
		names[i] = k.String() + " " + r.byKey[k].Name()
	}
	return &packet.Error{
		Kind:    packet.KindLookup,
		Message: msg,
		Value:   key.String(),
		Names:   names,
		Err:     ErrUnknownPacket,
	}
}

// ExtractProtocolAndType reads the protocol and packet type numbers from
// bytes, hex text, bits, or a map in AsDict form. The packet type is only
// read when the protocol is FrameProtocol; otherwise it is zero.
func ExtractProtocolAndType(data any) (uint16, uint16, error) {
	if m, ok := data.(map[string]any); ok {
		return fromMap(m)
	}

	var b bits.Bits
	switch v := data.(type) {
	case bits.Bits:
		b = v
	case []byte:
		b = bits.FromBytes(v)
	case string:
		parsed, err := bits.FromHex(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid hex text: %w", err)
		}
		b = parsed
	default:
		return 0, 0, fmt.Errorf("cannot extract protocol from %T", data)
	}

	if b.Len() < protocolOffset+protocolBits {
		return 0, 0, fmt.Errorf("need %d bits for the protocol, only %d available: %w",
			protocolOffset+protocolBits, b.Len(), packet.ErrTruncated)
	}
	proto := uint16(b.Slice(protocolOffset, protocolOffset+protocolBits).Uint())
	if proto != FrameProtocol {
		return proto, 0, nil
	}
	if b.Len() < typeOffset+typeBits {
		return 0, 0, fmt.Errorf("need %d bits for the packet type, only %d available: %w",
			typeOffset+typeBits, b.Len(), packet.ErrTruncated)
	}
	return proto, uint16(b.Slice(typeOffset, typeOffset+typeBits).Uint()), nil
}

func fromMap(m map[string]any) (uint16, uint16, error) {
	find := func(name, group string) (uint16, bool, error) {
		v, ok := m[name]
		if !ok {
			if g, isMap := m[group].(map[string]any); isMap {
				v, ok = g[name]
			}
		}
		if !ok {
			return 0, false, nil
		}
		u, isInt := packet.AsUint(v)
		if !isInt || u > 0xffff {
			return 0, false, fmt.Errorf("%s must be a 16 bit integer, got %v", name, v)
		}
		return uint16(u), true, nil
	}

	proto, ok, err := find("protocol", "frame_header")
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, errors.New("map has no protocol")
	}
	if proto != FrameProtocol {
		return proto, 0, nil
	}
	pktType, ok, err := find("pkt_type", "protocol_header")
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, errors.New("map has no pkt_type")
	}
	return proto, pktType, nil
}

// Resolve picks the schema for data. With unknownOK an unregistered packet
// type of a known protocol resolves to the generic frame.
func (r *Registry) Resolve(data any, unknownOK bool) (*packet.Schema, error) {
	proto, pktType, err := ExtractProtocolAndType(data)
	if err != nil {
		return nil, err
	}
	key := Key{Protocol: proto, Type: pktType}
	if s, ok := r.byKey[key]; ok {
		return s, nil
	}
	if frameProto, _ := r.frame.Protocol(); proto != frameProto {
		return nil, r.lookupError(fmt.Sprintf("unknown protocol %d", proto), key)
	}
	if !unknownOK {
		return nil, r.lookupError(fmt.Sprintf("unknown packet type %d", pktType), key)
	}
	logging.Debug("Unknown packet type, using generic frame",
		zap.Uint16("protocol", proto),
		zap.Uint16("pkt_type", pktType),
	)
	return r.frame, nil
}

// Unpack resolves the schema of data and unpacks it. A map is normalised
// instead of unpacked.
func (r *Registry) Unpack(data any, unknownOK bool) (*packet.Packet, error) {
	s, err := r.Resolve(data, unknownOK)
	if err != nil {
		return nil, err
	}
	if m, ok := data.(map[string]any); ok {
		return s.Normalise(m)
	}
	p, err := s.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", s.Name(), err)
	}
	return p, nil
}

// Create builds a message of the named schema from values.
func (r *Registry) Create(name string, values map[string]any) (*packet.Packet, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, &packet.Error{
			Kind:    packet.KindLookup,
			Message: fmt.Sprintf("unknown message %q", name),
			Names:   r.names(),
			Err:     ErrUnknownPacket,
		}
	}
	return s.Normalise(values)
}

func (r *Registry) names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Create builds a message from the Default registry.
func Create(name string, values map[string]any) (*packet.Packet, error) {
	return Default.Create(name, values)
}
