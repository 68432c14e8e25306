// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robertchoi/ulc-finder/pkg/ccid"
	"github.com/robertchoi/ulc-finder/pkg/keygen"
	"github.com/robertchoi/ulc-finder/pkg/scanner"
	"github.com/spf13/cobra"
)

var (
	scanStartKey string
	scanCapture  string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Brute-force the card's authentication key",
	Long: `Iterate candidate 3DES keys against the card until one
authenticates, the key space is exhausted, or the scan is interrupted.

Each candidate runs the full sequence: power on, read UID, load key,
authenticate. Progress is printed periodically; Ctrl-C stops the scan
cleanly after the current candidate.

With --capture, every frame exchanged with the reader is appended to the
given file as a CBOR record stream for offline analysis.

Examples:
  # Scan from the bottom of the key space
  ulc-finder scan --port /dev/ttyUSB0

  # Resume from a known point
  ulc-finder scan --port /dev/ttyUSB0 --start-key "00000000000000000000000000A41200"

Exit codes:
  0 - Key found
  1 - Key not found (exhausted or stopped)
  2 - Connection or reader error`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanStartKey, "start-key", "", "16-byte hex key to start from (default: all zeros)")
	scanCmd.Flags().StringVar(&scanCapture, "capture", "", "Append a CBOR trace of all reader traffic to this file")
}

// parseStartKey resolves the --start-key flag, defaulting to all zeros.
func parseStartKey(flag string) ([]byte, error) {
	if flag == "" {
		return make([]byte, keygen.KeySize), nil
	}
	return keygen.ParseKey(flag)
}

// consoleListener prints scan events to the terminal, throttling
// progress lines to one per interval.
type consoleListener struct {
	lastPrint time.Time
	interval  time.Duration
	started   time.Time
}

func newConsoleListener() *consoleListener {
	return &consoleListener{
		interval: 2 * time.Second,
		started:  time.Now(),
	}
}

func (l *consoleListener) OnProgress(progress float64, attempts uint64, currentKey []byte) {
	if time.Since(l.lastPrint) < l.interval {
		return
	}
	l.lastPrint = time.Now()

	elapsed := time.Since(l.started).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(attempts) / elapsed
	}
	fmt.Printf("[%12d keys | %6.2f keys/s | %.10f%%] current: %s\n",
		attempts, rate, progress, ccid.FormatHex(currentKey))
}

func (l *consoleListener) OnKeyFound(key []byte) {
	fmt.Printf("\n*** KEY FOUND: %s ***\n", ccid.FormatHex(key))
}

func (l *consoleListener) OnError(message string) {
	fmt.Fprintf(os.Stderr, "warning: %s\n", message)
}

func runScan(cmd *cobra.Command, args []string) error {
	startKey, err := parseStartKey(scanStartKey)
	if err != nil {
		return fmt.Errorf("invalid --start-key: %v", err)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	var transport scanner.Transport = newFrameTransport(conn)

	if scanCapture != "" {
		f, err := os.OpenFile(scanCapture, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %v", err)
		}
		defer f.Close()
		transport = scanner.NewCaptureTransport(transport, f)
		fmt.Printf("Capturing reader traffic to %s\n", scanCapture)
	}

	fmt.Printf("ulc-finder - Key Scan\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Start key:  %s\n", ccid.FormatHex(startKey))
	fmt.Printf("Press Ctrl-C to stop.\n\n")

	engine := scanner.NewEngine(transport, newConsoleListener())

	// Ctrl-C requests a stop; the loop finishes the current candidate.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nStopping after the current candidate...")
		engine.Stop()
	}()

	result := engine.Scan(startKey)

	fmt.Printf("\n--- Scan summary ---\n")
	fmt.Printf("Attempts: %d\n", result.Attempts)
	fmt.Printf("Result:   %s\n", result.Message)

	if result.Success {
		fmt.Printf("Key:      %s\n", keygen.FormatKey(result.Key))
		return nil
	}
	os.Exit(1)
	return nil
}
