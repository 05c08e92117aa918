package packet

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/muurk/lumen/internal/bits"
)

// EncodingCache memoises the packed bits of small repeated sub-structures,
// such as the colours of a multizone message, keyed by their field values.
//
// Entries are populated on first use and never invalidated. The cache is safe
// for concurrent use.
type EncodingCache struct {
	entries sync.Map // string -> bits.Bits
	hits    atomic.Int64
}

// NewEncodingCache creates an empty cache.
func NewEncodingCache() *EncodingCache {
	return &EncodingCache{}
}

// Len returns the number of cached encodings.
func (c *EncodingCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Hits returns how many packs were served from the cache.
func (c *EncodingCache) Hits() int64 {
	return c.hits.Load()
}

// pack returns the packed bits of el, consulting the cache when c is not nil.
// Packets holding deferred values, directly or in a nested packet, are never
// cached.
func (c *EncodingCache) pack(el *Packet) (bits.Bits, error) {
	if c == nil {
		return el.Pack()
	}
	key, ok := cacheKey(el)
	if !ok {
		return el.Pack()
	}
	if b, ok := c.entries.Load(key); ok {
		c.hits.Add(1)
		return b.(bits.Bits), nil
	}
	b, err := el.Pack()
	if err != nil {
		return bits.Bits{}, err
	}
	c.entries.Store(key, b)
	return b, nil
}

// cacheKey identifies a packet by its schema and the values held in its
// slots, as stored after transforms and before any untransform.
func cacheKey(p *Packet) (string, bool) {
	var b strings.Builder
	if !writeKey(&b, p) {
		return "", false
	}
	return b.String(), true
}

func writeKey(b *strings.Builder, p *Packet) bool {
	fmt.Fprintf(b, "%p{", p.schema)
	for _, s := range p.slots {
		if s.state == Present && s.fn != nil {
			return false
		}
		switch v := s.raw().(type) {
		case *Packet:
			if !writeKey(b, v) {
				return false
			}
		case []*Packet:
			b.WriteByte('[')
			for _, el := range v {
				if !writeKey(b, el) {
					return false
				}
			}
			b.WriteByte(']')
		case bits.Bits:
			b.WriteString(v.String())
		default:
			fmt.Fprintf(b, "%T:%#v", v, v)
		}
		b.WriteByte(';')
	}
	fmt.Fprintf(b, "}%s", p.payload)
	return true
}
