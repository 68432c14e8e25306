// SPDX-License-Identifier: Apache-2.0

// Package keygen enumerates the 128-bit ULC key space and provides the
// key hygiene helpers (DES parity, secure random generation, hex
// parsing) used around it.
package keygen

import (
	"bytes"
	"errors"
)

// KeySize is the ULC 3DES key length in bytes.
const KeySize = 16

// ErrBadKeyLength is returned when a supplied key is not exactly 16 bytes.
var ErrBadKeyLength = errors.New("key must be exactly 16 bytes")

// DefaultManufacturerKey is the well-known ULC factory key,
// ASCII "BREAKMEIFYOUCAN!".
var DefaultManufacturerKey = []byte{
	0x42, 0x52, 0x45, 0x41, 0x4B, 0x4D, 0x45, 0x49,
	0x46, 0x59, 0x4F, 0x55, 0x43, 0x41, 0x4E, 0x21,
}

// allOnes is the enumeration ceiling FF..FF.
var allOnes = bytes.Repeat([]byte{0xFF}, KeySize)

// Generator enumerates 16-byte keys from a start value, ordered by their
// big-endian unsigned integer interpretation, up to and including FF..FF.
// A Generator is mutated only by the goroutine driving the scan loop.
type Generator struct {
	start    []byte
	current  []byte
	attempts uint64
}

// New creates a generator positioned at start.
func New(start []byte) (*Generator, error) {
	if len(start) != KeySize {
		return nil, ErrBadKeyLength
	}
	return &Generator{
		start:   append([]byte(nil), start...),
		current: append([]byte(nil), start...),
	}, nil
}

// Increment advances the current key by one as a 128-bit big-endian
// integer and bumps the attempt counter. It returns false, leaving the
// state untouched, once the value would pass FF..FF.
func (g *Generator) Increment() bool {
	if g.IsAtEnd() {
		return false
	}
	for i := KeySize - 1; i >= 0; i-- {
		g.current[i]++
		if g.current[i] != 0 {
			break
		}
	}
	g.attempts++
	return true
}

// IsAtEnd reports whether the current key is the ceiling FF..FF.
func (g *Generator) IsAtEnd() bool {
	return bytes.Equal(g.current, allOnes)
}

// Progress returns the linear position of the current key between the
// start key and FF..FF as a percentage in [0, 100]. A degenerate
// single-key space reports 100.
func (g *Generator) Progress() float64 {
	span := keyToFloat(allOnes) - keyToFloat(g.start)
	if span <= 0 {
		return 100.0
	}
	progress := (keyToFloat(g.current) - keyToFloat(g.start)) / span * 100.0
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// keyToFloat interprets a 16-byte key as a big-endian integer in float64
// space. The 53-bit mantissa loses low-order detail, which is irrelevant
// for a progress ratio over a 128-bit span.
func keyToFloat(key []byte) float64 {
	var v float64
	for _, b := range key {
		v = v*256 + float64(b)
	}
	return v
}

// Reset repositions the generator at its start key, or at newStart when
// one is supplied, and zeroes the attempt counter.
func (g *Generator) Reset(newStart []byte) error {
	if newStart != nil {
		if len(newStart) != KeySize {
			return ErrBadKeyLength
		}
		g.start = append(g.start[:0], newStart...)
	}
	g.current = append(g.current[:0], g.start...)
	g.attempts = 0
	return nil
}

// CurrentKey returns a copy of the current key.
func (g *Generator) CurrentKey() []byte {
	return append([]byte(nil), g.current...)
}

// StartKey returns a copy of the start key.
func (g *Generator) StartKey() []byte {
	return append([]byte(nil), g.start...)
}

// Attempts returns the number of increments performed since the last reset.
func (g *Generator) Attempts() uint64 {
	return g.attempts
}
