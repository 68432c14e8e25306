// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"fmt"

	"github.com/robertchoi/ulc-finder/pkg/ccid"
	"github.com/robertchoi/ulc-finder/pkg/keygen"
)

// WriteKeyToCard authenticates against the card with authKey and commits
// newKey permanently into the tag's key pages. When authKey is nil the
// ULC factory key is used.
//
// The commit step programs one-time-programmable storage. The sequence
// is never retried: re-issuing the commit against an already-written
// card is at best meaningless and at worst destructive, so every step
// failure aborts with a descriptive error and the caller decides what
// to do. This must only be invoked as an explicit user action, never
// from the brute-force loop.
func (e *Engine) WriteKeyToCard(newKey, authKey []byte) error {
	if len(newKey) != keygen.KeySize {
		return ccid.ErrInvalidKeyLength
	}
	if authKey == nil {
		authKey = keygen.DefaultManufacturerKey
	}
	if len(authKey) != keygen.KeySize {
		return ccid.ErrInvalidKeyLength
	}

	e.codec.ResetSeq()

	// Power on the card.
	resp, err := e.step("Power ON", e.codec.PowerOn(), e.PowerOnTimeout)
	if err != nil {
		return fmt.Errorf("power ON: %w", err)
	}
	if !ccid.IsSuccess(resp.Status, resp.ErrorCode) {
		return fmt.Errorf("power ON failed: status=%02X error=%02X", resp.Status, resp.ErrorCode)
	}
	e.settle()

	// Confirm a card is present.
	resp, err = e.step("Get UID", e.codec.GetUID(), e.UIDTimeout)
	if err != nil {
		return fmt.Errorf("get UID: %w", err)
	}
	if !ccid.IsSuccess(resp.Status, resp.ErrorCode) {
		return fmt.Errorf("get UID failed: status=%02X error=%02X", resp.Status, resp.ErrorCode)
	}
	e.settle()

	// Stage the current authentication key and prove we hold it.
	cmd, err := e.codec.LoadKey(authKey, e.KeySlot)
	if err != nil {
		return fmt.Errorf("load auth key: %w", err)
	}
	resp, err = e.step("Load Key", cmd, e.LoadKeyTimeout)
	if err != nil {
		return fmt.Errorf("load auth key: %w", err)
	}
	if !ccid.IsSuccess(resp.Status, resp.ErrorCode) {
		return fmt.Errorf("load auth key failed: status=%02X error=%02X", resp.Status, resp.ErrorCode)
	}
	e.settle()

	resp, err = e.step("Authenticate", e.codec.Authenticate(e.AuthPage, e.KeySlot), e.AuthTimeout)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if !ccid.IsAuthSuccess(resp.Status, resp.ErrorCode, resp.Payload) {
		return fmt.Errorf("authentication with the supplied key failed; wrong current key?")
	}
	e.settle()

	// Stage the new key.
	cmd, err = e.codec.LoadKey(newKey, e.KeySlot)
	if err != nil {
		return fmt.Errorf("load new key: %w", err)
	}
	resp, err = e.step("Load New Key", cmd, e.LoadKeyTimeout)
	if err != nil {
		return fmt.Errorf("load new key: %w", err)
	}
	if !ccid.IsSuccess(resp.Status, resp.ErrorCode) {
		return fmt.Errorf("load new key failed: status=%02X error=%02X", resp.Status, resp.ErrorCode)
	}
	e.settle()

	// Commit. Past this point the card's key pages are written.
	resp, err = e.step("Write Auth Key", e.codec.WriteAuthKey(), e.AuthTimeout)
	if err != nil {
		return fmt.Errorf("write auth key: %w", err)
	}
	if !ccid.IsSuccess(resp.Status, resp.ErrorCode) {
		return fmt.Errorf("write auth key failed: status=%02X error=%02X", resp.Status, resp.ErrorCode)
	}
	e.settle()

	resp, err = e.step("Power OFF", e.codec.PowerOff(), e.PowerOnTimeout)
	if err != nil {
		return fmt.Errorf("key committed, but power OFF failed: %w", err)
	}
	if !ccid.IsSuccess(resp.Status, resp.ErrorCode) {
		return fmt.Errorf("key committed, but power OFF failed: status=%02X error=%02X", resp.Status, resp.ErrorCode)
	}

	return nil
}
