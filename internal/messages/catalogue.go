package messages

import (
	"github.com/muurk/lumen/internal/packet"
)

var (
	f        = packet.F
	reserved = packet.Reserved
)

// Color is one HSBK colour as carried by multizone messages.
var Color = packet.MustBuild("Color", hsbk(false))

// colorCache memoises packed colours of StateMultiZone.
var colorCache = packet.NewEncodingCache()

func hsbk(optional bool) []packet.Field {
	if optional {
		return []packet.Field{
			f("hue", Hue.Optional()),
			f("saturation", Fraction.Optional()),
			f("brightness", Fraction.Optional()),
			f("kelvin", packet.Uint16.Optional()),
		}
	}
	return []packet.Field{
		f("hue", Hue),
		f("saturation", Fraction),
		f("brightness", Fraction),
		f("kelvin", Kelvin),
	}
}

func fields(groups ...[]packet.Field) []packet.Field {
	var out []packet.Field
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// isSet returns a default that reports whether an optional field was given.
func isSet(name string) packet.ValueFunc {
	return func(p *packet.Packet) (any, error) {
		v := p.Actual(name)
		return v != packet.Unspecified && v != packet.Omitted, nil
	}
}

// Device messages
var (
	GetService   = message("GetService", 2)
	StateService = message("StateService", 3,
		f("service", packet.Uint8.Enum(Services)),
		f("port", packet.Uint32),
	)

	GetHostFirmware   = message("GetHostFirmware", 14)
	StateHostFirmware = message("StateHostFirmware", 15,
		f("build", packet.Uint64),
		f("reserved6", reserved(64)),
		f("version", Version),
	)

	GetPower   = message("GetPower", 20)
	SetPower   = message("SetPower", 21, f("level", PowerLevel))
	StatePower = message("StatePower", 22, f("level", PowerLevel))

	GetLabel   = message("GetLabel", 23)
	SetLabel   = message("SetLabel", 24, f("label", Label))
	StateLabel = message("StateLabel", 25, f("label", Label))

	GetVersion   = message("GetVersion", 32)
	StateVersion = message("StateVersion", 33,
		f("vendor", packet.Uint32),
		f("product", packet.Uint32),
		f("reserved6", reserved(32)),
	)

	Acknowledgement = message("Acknowledgement", 45)

	GetGroup   = message("GetGroup", 51)
	StateGroup = message("StateGroup", 53,
		f("group", packet.Bytes(16*8)),
		f("label", Label),
		f("updated_at", packet.Uint64),
	)

	EchoRequest  = message("EchoRequest", 58, f("echoing", packet.Bytes(64*8)))
	EchoResponse = message("EchoResponse", 59, f("echoing", packet.Bytes(64*8)))

	StateUnhandled = message("StateUnhandled", 223, f("unhandled_type", packet.Uint16))
)

// Light messages
var (
	GetColor = message("GetColor", 101)
	SetColor = message("SetColor", 102, fields(
		[]packet.Field{f("reserved6", reserved(8))},
		hsbk(false),
		[]packet.Field{f("duration", Duration.Default(0))},
	)...)

	SetWaveform = message("SetWaveform", 103, fields(
		[]packet.Field{
			f("reserved6", reserved(8)),
			f("transient", packet.BoolInt.Default(false)),
		},
		hsbk(false),
		[]packet.Field{
			f("period", Duration),
			f("cycles", packet.Float),
			f("skew_ratio", SkewRatio.Default(0)),
			f("waveform", packet.Uint8.Enum(Waveform)),
		},
	)...)

	LightState = message("LightState", 107, fields(
		hsbk(false),
		[]packet.Field{
			f("reserved6", reserved(16)),
			f("power", PowerLevel),
			f("label", Label),
			f("reserved7", reserved(64)),
		},
	)...)

	GetLightPower   = message("GetLightPower", 116)
	SetLightPower   = message("SetLightPower", 117, f("level", PowerLevel), f("duration", Duration.Default(0)))
	StateLightPower = message("StateLightPower", 118, f("level", PowerLevel))

	SetWaveformOptional = message("SetWaveformOptional", 119, fields(
		[]packet.Field{
			f("reserved6", reserved(8)),
			f("transient", packet.BoolInt.Default(false)),
		},
		hsbk(true),
		[]packet.Field{
			f("period", Duration),
			f("cycles", packet.Float),
			f("skew_ratio", SkewRatio.Default(0)),
			f("waveform", packet.Uint8.Enum(Waveform)),
			f("set_hue", packet.BoolInt.DefaultFunc(isSet("hue"))),
			f("set_saturation", packet.BoolInt.DefaultFunc(isSet("saturation"))),
			f("set_brightness", packet.BoolInt.DefaultFunc(isSet("brightness"))),
			f("set_kelvin", packet.BoolInt.DefaultFunc(isSet("kelvin"))),
		},
	)...)
)

// MultiZone messages
var (
	SetColorZones = message("SetColorZones", 501, fields(
		[]packet.Field{
			f("start_index", packet.Uint8),
			f("end_index", packet.Uint8),
		},
		hsbk(false),
		[]packet.Field{
			f("duration", Duration.Default(0)),
			f("apply", packet.Uint8.Enum(MultiZoneApplicationRequest).Default(1)),
		},
	)...)

	GetColorZones = message("GetColorZones", 502,
		f("start_index", packet.Uint8),
		f("end_index", packet.Uint8),
	)

	StateMultiZone = message("StateMultiZone", 506,
		f("zones_count", packet.Uint8),
		f("zone_index", packet.Uint8),
		f("colors", packet.Bytes(0).Many(packet.Multiple{
			Count: 8,
			Kind:  func(*packet.Packet) (*packet.Schema, error) { return Color, nil },
			Cache: colorCache,
		})),
	)
)

// Catalogue lists every declared message in type order.
var Catalogue = []*packet.Schema{
	GetService, StateService,
	GetHostFirmware, StateHostFirmware,
	GetPower, SetPower, StatePower,
	GetLabel, SetLabel, StateLabel,
	GetVersion, StateVersion,
	Acknowledgement,
	GetGroup, StateGroup,
	EchoRequest, EchoResponse,
	GetColor, SetColor, SetWaveform, LightState,
	GetLightPower, SetLightPower, StateLightPower,
	SetWaveformOptional,
	StateUnhandled,
	SetColorZones, GetColorZones, StateMultiZone,
}
