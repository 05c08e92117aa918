package messages

import "github.com/muurk/lumen/internal/packet"

// Services advertised in StateService.
var Services = packet.NewEnum("Services",
	packet.EnumValue("UDP", 1),
	packet.EnumValue("RESERVED1", 2),
	packet.EnumValue("RESERVED2", 3),
	packet.EnumValue("RESERVED3", 4),
	packet.EnumValue("RESERVED4", 5),
)

// Waveform shapes for SetWaveform.
var Waveform = packet.NewEnum("Waveform",
	packet.EnumValue("SAW", 0),
	packet.EnumValue("SINE", 1),
	packet.EnumValue("HALF_SINE", 2),
	packet.EnumValue("TRIANGLE", 3),
	packet.EnumValue("PULSE", 4),
)

// MultiZoneApplicationRequest controls when SetColorZones takes effect.
var MultiZoneApplicationRequest = packet.NewEnum("MultiZoneApplicationRequest",
	packet.EnumValue("NO_APPLY", 0),
	packet.EnumValue("APPLY", 1),
	packet.EnumValue("APPLY_ONLY", 2),
)
