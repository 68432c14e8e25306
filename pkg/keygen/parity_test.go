// SPDX-License-Identifier: Apache-2.0

package keygen

import (
	"bytes"
	"math/bits"
	"testing"
)

func TestCheckParity(t *testing.T) {
	tests := []struct {
		name        string
		key         []byte
		wantValid   bool
		wantInvalid []int
	}{
		{
			// 0x01 has one set bit: odd parity.
			"all valid",
			bytes.Repeat([]byte{0x01}, KeySize),
			true,
			[]int{},
		},
		{
			// 0x00 has zero set bits: even parity everywhere.
			"all invalid",
			make([]byte, KeySize),
			false,
			[]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
		},
		{
			"mixed",
			[]byte{0x01, 0x03, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0xFF},
			false,
			[]int{1, 15},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, invalid := CheckParity(tt.key)
			if valid != tt.wantValid {
				t.Errorf("allValid = %v, want %v", valid, tt.wantValid)
			}
			if len(invalid) != len(tt.wantInvalid) {
				t.Fatalf("invalid positions = %v, want %v", invalid, tt.wantInvalid)
			}
			for i := range invalid {
				if invalid[i] != tt.wantInvalid[i] {
					t.Errorf("invalid positions = %v, want %v", invalid, tt.wantInvalid)
					break
				}
			}
		})
	}
}

func TestFixParity(t *testing.T) {
	for seed := 0; seed < 256; seed++ {
		key := make([]byte, KeySize)
		for i := range key {
			key[i] = byte(seed + i*17)
		}

		fixed := FixParity(key)

		valid, invalid := CheckParity(fixed)
		if !valid {
			t.Fatalf("seed %d: CheckParity(FixParity(k)) invalid at %v", seed, invalid)
		}

		// Key material in the upper 7 bits must be preserved.
		for i := range key {
			if fixed[i]&0xFE != key[i]&0xFE {
				t.Fatalf("seed %d: byte %d upper bits changed: %02X -> %02X", seed, i, key[i], fixed[i])
			}
			if bits.OnesCount8(fixed[i])%2 != 1 {
				t.Fatalf("seed %d: byte %d parity still even", seed, i)
			}
		}

		// Idempotence.
		if !bytes.Equal(FixParity(fixed), fixed) {
			t.Fatalf("seed %d: FixParity not idempotent", seed)
		}
	}
}

func TestGenerateRandomKey(t *testing.T) {
	k1, err := GenerateRandomKey()
	if err != nil {
		t.Fatalf("GenerateRandomKey error: %v", err)
	}
	if len(k1) != KeySize {
		t.Fatalf("key length = %d, want %d", len(k1), KeySize)
	}

	k2, err := GenerateRandomKey()
	if err != nil {
		t.Fatalf("GenerateRandomKey error: %v", err)
	}
	if bytes.Equal(k1, k2) {
		t.Error("two random keys are identical")
	}
}

func TestDefaultManufacturerKey(t *testing.T) {
	if len(DefaultManufacturerKey) != KeySize {
		t.Fatalf("length = %d, want %d", len(DefaultManufacturerKey), KeySize)
	}
	if string(DefaultManufacturerKey) != "BREAKMEIFYOUCAN!" {
		t.Errorf("key = %q, want BREAKMEIFYOUCAN!", DefaultManufacturerKey)
	}
}
