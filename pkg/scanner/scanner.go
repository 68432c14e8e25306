// SPDX-License-Identifier: Apache-2.0

// Package scanner drives the brute-force search for a ULC authentication
// key. The engine owns a Transport and a ccid.Codec, runs the
// per-candidate protocol sequence (power on, get UID, load key,
// authenticate) on a single worker goroutine, and reports progress
// through a Listener.
package scanner

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robertchoi/ulc-finder/pkg/ccid"
	"github.com/robertchoi/ulc-finder/pkg/keygen"
)

// Engine states. The engine moves through these per candidate; Stopped
// and Exhausted are terminal for a session.
const (
	StateIdle = iota
	StatePoweringOn
	StateReadingUID
	StateLoadingKey
	StateAuthenticating
	StateAdvancing
	StateSuccess
	StateExhausted
	StateStopped
)

// Default per-step timeouts and inter-step settle delay. Power-on and
// authenticate involve the card's crypto engine and get the longer
// budget.
const (
	DefaultPowerOnTimeout = 2 * time.Second
	DefaultUIDTimeout     = 1 * time.Second
	DefaultLoadKeyTimeout = 1 * time.Second
	DefaultAuthTimeout    = 2 * time.Second
	DefaultStepDelay      = 50 * time.Millisecond
)

// Listener receives scan events. All methods are invoked from the
// goroutine running the scan loop; implementations that hand events to
// other goroutines must do their own marshalling.
type Listener interface {
	// OnProgress fires once per candidate after a failed authenticate.
	OnProgress(progress float64, attempts uint64, currentKey []byte)
	// OnKeyFound fires exactly once, before Scan returns success.
	OnKeyFound(key []byte)
	// OnError reports step anomalies, fatal or not.
	OnError(message string)
}

// Result is the terminal value of one scan session.
type Result struct {
	Success  bool
	Key      []byte // found key, nil unless Success
	Attempts uint64
	Message  string
}

// Engine sequences reader commands against candidate keys. All mutable
// state is owned by the goroutine that calls Scan; other goroutines may
// only call Stop and observe events through the Listener.
type Engine struct {
	transport Transport
	codec     *ccid.Codec
	listener  Listener

	keys     *keygen.Generator
	state    int
	scanning atomic.Bool
	stop     atomic.Bool
	foundKey []byte

	// Protocol parameters, set to ULC defaults by NewEngine.
	KeySlot  byte
	AuthPage byte

	// Step budgets, overridable before Scan (tests shrink them).
	PowerOnTimeout time.Duration
	UIDTimeout     time.Duration
	LoadKeyTimeout time.Duration
	AuthTimeout    time.Duration
	StepDelay      time.Duration
}

// NewEngine creates an engine over the given transport. listener may be
// nil to discard events.
func NewEngine(transport Transport, listener Listener) *Engine {
	return &Engine{
		transport: transport,
		codec:     ccid.NewCodec(),
		listener:  listener,
		state:     StateIdle,

		KeySlot:  ccid.DefaultKeySlot,
		AuthPage: ccid.DefaultAuthPage,

		PowerOnTimeout: DefaultPowerOnTimeout,
		UIDTimeout:     DefaultUIDTimeout,
		LoadKeyTimeout: DefaultLoadKeyTimeout,
		AuthTimeout:    DefaultAuthTimeout,
		StepDelay:      DefaultStepDelay,
	}
}

// IsScanning reports whether a scan loop is currently running.
func (e *Engine) IsScanning() bool {
	return e.scanning.Load()
}

// FoundKey returns the key found by the last scan, or nil.
func (e *Engine) FoundKey() []byte {
	if e.foundKey == nil {
		return nil
	}
	return append([]byte(nil), e.foundKey...)
}

// Stop requests cancellation. The flag is polled at the top of each
// candidate iteration, so latency is bounded by one candidate's step
// timeouts, not immediate. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Scan brute-forces the key space from startKey upward. It blocks until
// the key is found, the space is exhausted, Stop is called, or the
// reader fails to power the card. All terminal conditions resolve into
// a Result; no error escapes.
func (e *Engine) Scan(startKey []byte) Result {
	gen, err := keygen.New(startKey)
	if err != nil {
		return Result{Message: fmt.Sprintf("invalid start key: %v", err)}
	}

	e.keys = gen
	e.foundKey = nil
	e.stop.Store(false)
	e.scanning.Store(true)
	e.codec.ResetSeq()
	defer func() {
		e.scanning.Store(false)
		e.state = StateIdle
	}()

	for !e.stop.Load() {
		currentKey := e.keys.CurrentKey()

		found, fatal := e.tryCandidate(currentKey)
		if fatal != nil {
			e.emitError(fatal.Error())
			return Result{
				Attempts: e.keys.Attempts(),
				Message:  fmt.Sprintf("Scan aborted: %v", fatal),
			}
		}

		if found {
			e.state = StateSuccess
			e.foundKey = currentKey
			e.emitKeyFound(currentKey)
			return Result{
				Success:  true,
				Key:      currentKey,
				Attempts: e.keys.Attempts() + 1, // count the winning try
				Message:  "Key found",
			}
		}

		e.emitProgress(e.keys.Progress(), e.keys.Attempts(), currentKey)

		e.state = StateAdvancing
		if !e.keys.Increment() {
			e.state = StateExhausted
			return Result{
				Attempts: e.keys.Attempts(),
				Message:  "Scan completed. Key not found.",
			}
		}
	}

	e.state = StateStopped
	return Result{
		Attempts: e.keys.Attempts(),
		Message:  "Scan stopped by user.",
	}
}

// tryCandidate runs the four-step authentication sequence for one key.
// A power-on failure is fatal to the whole scan: a reader that cannot
// power the card cannot authenticate anything, and retrying it per
// candidate only burns the key-space clock. Load-key failures abort
// only the candidate. UID is informational and never aborts.
func (e *Engine) tryCandidate(key []byte) (found bool, fatal error) {
	// Step 1: Power On (mandatory, fatal on failure)
	e.state = StatePoweringOn
	resp, err := e.step("Power ON", e.codec.PowerOn(), e.PowerOnTimeout)
	if err != nil {
		return false, fmt.Errorf("power ON: %w", err)
	}
	if !ccid.IsSuccess(resp.Status, resp.ErrorCode) {
		return false, fmt.Errorf("power ON failed: status=%02X error=%02X", resp.Status, resp.ErrorCode)
	}
	e.settle()

	// Step 2: Get UID (best effort)
	e.state = StateReadingUID
	resp, err = e.step("Get UID", e.codec.GetUID(), e.UIDTimeout)
	if err != nil {
		e.emitError(fmt.Sprintf("get UID: %v", err))
	} else if !ccid.IsSuccess(resp.Status, resp.ErrorCode) {
		e.emitError(fmt.Sprintf("get UID failed: status=%02X error=%02X", resp.Status, resp.ErrorCode))
	}
	e.settle()

	// Step 3: Load Key (mandatory, aborts the candidate)
	e.state = StateLoadingKey
	cmd, err := e.codec.LoadKey(key, e.KeySlot)
	if err != nil {
		// Key length is validated by keygen.New; this is unreachable in
		// the scan loop but kept for the separate write path.
		return false, fmt.Errorf("load key: %w", err)
	}
	resp, err = e.step("Load Key", cmd, e.LoadKeyTimeout)
	if err != nil {
		e.emitError(fmt.Sprintf("load key: %v", err))
		return false, nil
	}
	if !ccid.IsSuccess(resp.Status, resp.ErrorCode) {
		e.emitError(fmt.Sprintf("load key failed: status=%02X error=%02X", resp.Status, resp.ErrorCode))
		return false, nil
	}
	e.settle()

	// Step 4: Authenticate
	e.state = StateAuthenticating
	resp, err = e.step("Authenticate", e.codec.Authenticate(e.AuthPage, e.KeySlot), e.AuthTimeout)
	if err != nil {
		e.emitError(fmt.Sprintf("authenticate: %v", err))
		return false, nil
	}

	return ccid.IsAuthSuccess(resp.Status, resp.ErrorCode, resp.Payload), nil
}

// step sends one command and parses the framed response. A checksum
// mismatch is reported through the error channel but does not fail the
// step; the nominal header fields are still used.
func (e *Engine) step(name string, cmd []byte, timeout time.Duration) (*ccid.Response, error) {
	raw, err := e.transport.SendReceive(cmd, timeout)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("no response")
	}

	resp, err := ccid.ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	if !resp.ChecksumOK {
		e.emitError(fmt.Sprintf("%s: response checksum mismatch, continuing", name))
	}
	return resp, nil
}

// settle pauses between protocol steps; some reader firmware drops
// back-to-back commands.
func (e *Engine) settle() {
	if e.StepDelay > 0 {
		time.Sleep(e.StepDelay)
	}
}

// TestConnection resets the session sequence and probes the reader with
// a single Power On.
func (e *Engine) TestConnection() bool {
	e.codec.ResetSeq()
	resp, err := e.step("Power ON", e.codec.PowerOn(), e.PowerOnTimeout)
	if err != nil {
		return false
	}
	return ccid.IsSuccess(resp.Status, resp.ErrorCode)
}

// CardUID reads the card identifier, stripping the trailing SW1/SW2
// status words from the payload.
func (e *Engine) CardUID() ([]byte, error) {
	resp, err := e.step("Get UID", e.codec.GetUID(), e.UIDTimeout)
	if err != nil {
		return nil, err
	}
	if !ccid.IsSuccess(resp.Status, resp.ErrorCode) {
		return nil, fmt.Errorf("get UID failed: status=%02X error=%02X", resp.Status, resp.ErrorCode)
	}
	if len(resp.Payload) <= 2 {
		return nil, fmt.Errorf("UID response carries no identifier")
	}
	return append([]byte(nil), resp.Payload[:len(resp.Payload)-2]...), nil
}

func (e *Engine) emitProgress(progress float64, attempts uint64, key []byte) {
	if e.listener != nil {
		e.listener.OnProgress(progress, attempts, key)
	}
}

func (e *Engine) emitKeyFound(key []byte) {
	if e.listener != nil {
		e.listener.OnKeyFound(key)
	}
}

func (e *Engine) emitError(message string) {
	if e.listener != nil {
		e.listener.OnError(message)
	}
}
