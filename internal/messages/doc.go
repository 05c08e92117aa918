// Package messages declares the LIFX LAN frame and the message catalogue
// built on top of the packet codec.
//
// # Frame Layout
//
// Every message starts with a 36 byte header made of three groups:
//
//	frame_header     size, protocol (12 bits), addressable, tagged, source
//	frame_address    target, res_required, ack_required, sequence
//	protocol_header  pkt_type
//
// followed by the payload. The generic Frame schema keeps the payload as
// opaque bits. Each catalogue message specialises Frame with a concrete
// payload schema and a packet type number.
//
// # Usage Example - Packing
//
//	msg, err := messages.Create("SetPower", map[string]any{
//	    "level":    65535,
//	    "source":   2,
//	    "sequence": 1,
//	    "target":   "d073d5001337",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	data, err := msg.PackBytes()
//
// # Usage Example - Unpacking
//
//	pkt, err := messages.Default.Unpack(data, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if pkt.Is(messages.StatePower) {
//	    level, _ := pkt.Get("level")
//	}
//
// # Registry
//
// The Registry maps (protocol, pkt_type) pairs to schemas. It is built once
// with NewRegistry and is read-only afterwards, so concurrent lookups need no
// locking. Registering two schemas under the same pair is an error.
package messages
