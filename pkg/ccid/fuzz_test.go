// SPDX-License-Identifier: Apache-2.0

package ccid

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// TestFuzzParseResponse_RandomBytes feeds arbitrary byte slices to
// ParseResponse and verifies it never panics.
func TestFuzzParseResponse_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		length := rng.Intn(128)
		data := make([]byte, length)
		rng.Read(data)

		// Must return cleanly, parse or not.
		ParseResponse(data)
	}
}

// TestFuzzParseResponse_RandomResponses builds syntactically valid
// responses with random fields and verifies they round-trip exactly.
func TestFuzzParseResponse_RandomResponses(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		msgType := byte(rng.Intn(256))
		status := byte(rng.Intn(256))
		errorCode := byte(rng.Intn(256))
		payload := make([]byte, rng.Intn(64))
		rng.Read(payload)

		resp, err := ParseResponse(buildResponse(msgType, status, errorCode, payload))
		if err != nil {
			t.Errorf("Round %d: unexpected parse error: %v", i, err)
			continue
		}
		if resp.MessageType != msgType || resp.Status != status || resp.ErrorCode != errorCode {
			t.Errorf("Round %d: header mismatch: got (%02X %02X %02X), want (%02X %02X %02X)",
				i, resp.MessageType, resp.Status, resp.ErrorCode, msgType, status, errorCode)
		}
		if len(payload) > 0 && !bytes.Equal(resp.Payload, payload) {
			t.Errorf("Round %d: payload mismatch", i)
		}
	}
}

// TestFuzzReadFrame_CorruptedEnvelopes corrupts a single byte of a valid
// envelope and verifies ReadFrame never panics.
func TestFuzzReadFrame_CorruptedEnvelopes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		payload := make([]byte, rng.Intn(32))
		rng.Read(payload)
		envelope := buildResponse(MsgDataBlock, 0x00, 0x00, payload)

		idx := rng.Intn(len(envelope))
		envelope[idx] ^= byte(rng.Intn(255) + 1)

		// Errors are fine, panics are not.
		ReadFrame(bytes.NewReader(envelope))
	}
}

// TestFuzzCodec_LoadKeyRandomKeys builds LoadKey commands with random
// 16-byte keys and verifies the staged key survives framing intact.
func TestFuzzCodec_LoadKeyRandomKeys(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	c := NewCodec()
	key := make([]byte, 16)
	for i := 0; i < rounds; i++ {
		rng.Read(key)
		slot := byte(rng.Intn(256))

		envelope, err := c.LoadKey(key, slot)
		if err != nil {
			t.Fatalf("Round %d: LoadKey error: %v", i, err)
		}

		message, checksumOK, err := Unframe(envelope)
		if err != nil {
			t.Fatalf("Round %d: Unframe error: %v", i, err)
		}
		if !checksumOK {
			t.Errorf("Round %d: checksum mismatch on built command", i)
		}
		if !bytes.Equal(message[HeaderSize+5:], key) {
			t.Errorf("Round %d: key corrupted in frame", i)
		}
		if message[HeaderSize+3] != slot {
			t.Errorf("Round %d: slot = 0x%02X, want 0x%02X", i, message[HeaderSize+3], slot)
		}
	}
}
