// Package packet implements the field-type and bit-packing engine behind the
// LIFX LAN message codec.
//
// A message shape is declared as an ordered list of fields. Each field is
// either a scalar Type (integer, float, bool, bytes, string, csv or json) or a
// nested Schema whose fields are flattened into the owner and exposed again as
// a named group:
//
//	header := packet.MustBuild("Header", []packet.Field{
//	    packet.F("size", packet.Uint16),
//	    packet.F("tagged", packet.Bool.Default(false)),
//	    packet.F("reserved", packet.Reserved(7)),
//	})
//
// # Values
//
// A Packet stores one raw value per flattened field. Raw values are whatever
// was unpacked from the wire or written by the caller after the field's
// transform was applied. Reading a field with Get runs the field's Spec in the
// read direction: defaults are filled in, enums become Members, bitmasks become
// member sets, bytes are copied out and untransform is applied. Packing runs the
// same Spec in the write direction, producing wire integers and bit buffers.
//
// Absence is explicit. A slot is Unspecified until written, and Omitted when an
// optional field was deliberately left out (reserved regions pack as zeros).
// Fields that allow deferred values may hold a Deferred function that is only
// resolved, with the target serial, when the packet is packed.
//
// # Packing
//
// Pack walks the flattened fields in declared order, converts every value to a
// bit slice of exactly the declared width and concatenates them using the
// little-endian bit order of the bits package. Schemas marked with AsParent
// append their opaque payload after the fields. UnpackBits is the inverse and
// reports how many bits were consumed.
//
// # Thread Safety
//
// Schemas are immutable once built and safe for concurrent use. A Packet is
// owned by its caller and must not be mutated concurrently. EncodingCache is
// safe for concurrent use.
package packet
