package messages

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/muurk/lumen/internal/packet"
)

func number(v any) (float64, error) {
	f, ok := packet.AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
	return f, nil
}

func round(f float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(f*scale) / scale
}

// scaled returns a transform pair mapping [0, limit] to [0, wire].
func scaled(limit, wire float64, places int) (packet.TransformFunc, packet.TransformFunc) {
	to := func(_ *packet.Packet, v any) (any, error) {
		f, err := number(v)
		if err != nil {
			return nil, err
		}
		return int64(math.Round(f * wire / limit)), nil
	}
	from := func(_ *packet.Packet, v any) (any, error) {
		f, err := number(v)
		if err != nil {
			return nil, err
		}
		return round(f*limit/wire, places), nil
	}
	return to, from
}

// hueToWire maps degrees onto the full uint16 circle.
func hueToWire(_ *packet.Packet, v any) (any, error) {
	f, err := number(v)
	if err != nil {
		return nil, err
	}
	return int64(math.Round(0x10000*f/360)) % 0x10000, nil
}

func hueFromWire(_ *packet.Packet, v any) (any, error) {
	f, err := number(v)
	if err != nil {
		return nil, err
	}
	return round(f*360/0x10000, 2), nil
}

// versionToWire packs "major.minor" text as major<<16 | minor.
func versionToWire(_ *packet.Packet, v any) (any, error) {
	if u, ok := packet.AsUint(v); ok {
		return u, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("version must be \"major.minor\" text, got %T", v)
	}
	major, minor, found := strings.Cut(s, ".")
	if !found {
		return nil, fmt.Errorf("version %q has no minor part", s)
	}
	hi, err := strconv.ParseUint(major, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid major version %q: %w", major, err)
	}
	lo, err := strconv.ParseUint(minor, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid minor version %q: %w", minor, err)
	}
	return hi<<16 | lo, nil
}

func versionFromWire(_ *packet.Packet, v any) (any, error) {
	u, ok := packet.AsUint(v)
	if !ok {
		return nil, fmt.Errorf("expected an integer version, got %T", v)
	}
	return fmt.Sprintf("%d.%d", u>>16, u&0xffff), nil
}

var (
	fractionToWire, fractionFromWire = scaled(1, 0xffff, 4)
	secondsToMillis, millisToSeconds = scaled(1, 1000, 3)
	skewToWire, skewFromWire         = scaled(1, 0x7fff, 4)
)

// Field types shared by the catalogue.
var (
	Hue        = packet.Uint16.Transform(hueToWire, hueFromWire).AllowFloat()
	Fraction   = packet.Uint16.Transform(fractionToWire, fractionFromWire).AllowFloat()
	Kelvin     = packet.Uint16.Default(3500)
	Duration   = packet.Uint32.Transform(secondsToMillis, millisToSeconds).AllowFloat()
	SkewRatio  = packet.Int16.Transform(skewToWire, skewFromWire).AllowFloat()
	Version    = packet.Uint32.Transform(versionToWire, versionFromWire)
	Label      = packet.String(32 * 8)
	PowerLevel = packet.Uint16
)
