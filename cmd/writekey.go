// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/robertchoi/ulc-finder/pkg/ccid"
	"github.com/robertchoi/ulc-finder/pkg/keygen"
	"github.com/robertchoi/ulc-finder/pkg/scanner"
	"github.com/spf13/cobra"
)

var (
	writeKeyHex     string
	writeGenerate   bool
	writeAuthKeyHex string
	writeFixParity  bool
	writeYes        bool
)

var writeKeyCmd = &cobra.Command{
	Use:   "write-key",
	Short: "Permanently program a new authentication key",
	Long: `Authenticate with the card's current key, then commit a new
3DES key into the tag's key pages.

THE COMMIT IS PERMANENT. There is no command to read the key back or to
restore the factory key once overwritten. Losing the new key locks the
card's protected pages forever, which is why the command prints the key
and asks for confirmation before touching the card.

The new key comes from --key or --generate (mutually exclusive). The
current key defaults to the ULC factory key; pass --auth-key after a
successful scan against a reprogrammed card.

Examples:
  # Program an explicit key on a factory-fresh card
  ulc-finder write-key --port /dev/ttyUSB0 --key "00112233445566778899AABBCCDDEEFF"

  # Generate a random key with valid DES parity
  ulc-finder write-key --port /dev/ttyUSB0 --generate --fix-parity

Exit codes:
  0 - Key committed
  1 - Write sequence failed or was declined
  2 - Connection error`,
	RunE: runWriteKey,
}

func init() {
	rootCmd.AddCommand(writeKeyCmd)
	writeKeyCmd.Flags().StringVar(&writeKeyHex, "key", "", "16-byte hex key to program")
	writeKeyCmd.Flags().BoolVar(&writeGenerate, "generate", false, "Generate a random key instead of --key")
	writeKeyCmd.Flags().StringVar(&writeAuthKeyHex, "auth-key", "", "Current 16-byte hex key (default: factory key)")
	writeKeyCmd.Flags().BoolVar(&writeFixParity, "fix-parity", false, "Force valid DES odd parity on the new key")
	writeKeyCmd.Flags().BoolVar(&writeYes, "yes", false, "Skip the interactive confirmation")
}

// resolveNewKey builds the key to program from the flag combination.
func resolveNewKey() ([]byte, error) {
	if writeGenerate && writeKeyHex != "" {
		return nil, fmt.Errorf("--key and --generate are mutually exclusive")
	}

	var key []byte
	var err error
	switch {
	case writeGenerate:
		key, err = keygen.GenerateRandomKey()
		if err != nil {
			return nil, err
		}
	case writeKeyHex != "":
		key, err = keygen.ParseKey(writeKeyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid --key: %v", err)
		}
	default:
		return nil, fmt.Errorf("one of --key or --generate is required")
	}

	if writeFixParity {
		key = keygen.FixParity(key)
	}
	return key, nil
}

// confirmWrite shows the plan and requires a literal "yes".
func confirmWrite(newKey, authKey []byte) bool {
	fmt.Printf("About to PERMANENTLY program a new authentication key.\n\n")
	fmt.Printf("  New key:     %s\n", keygen.FormatKey(newKey))
	fmt.Printf("  Current key: %s\n\n", keygen.FormatKey(authKey))
	if valid, invalid := keygen.CheckParity(newKey); !valid {
		fmt.Printf("  NOTE: new key has invalid DES parity at byte(s) %v.\n", invalid)
		fmt.Printf("        Some cards reject such keys; consider --fix-parity.\n\n")
	}
	fmt.Printf("Save the new key NOW. If it is lost, the card cannot be recovered.\n")
	fmt.Print("Type 'yes' to continue: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) == "yes"
}

func runWriteKey(cmd *cobra.Command, args []string) error {
	newKey, err := resolveNewKey()
	if err != nil {
		return err
	}

	authKey := keygen.DefaultManufacturerKey
	if writeAuthKeyHex != "" {
		authKey, err = keygen.ParseKey(writeAuthKeyHex)
		if err != nil {
			return fmt.Errorf("invalid --auth-key: %v", err)
		}
	}

	if !writeYes && !confirmWrite(newKey, authKey) {
		fmt.Println("Aborted. Nothing was written.")
		os.Exit(1)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("\nulc-finder - Write Key\n")
	fmt.Printf("Connection: %s\n", connInfo)

	engine := scanner.NewEngine(newFrameTransport(conn), nil)

	if engine.TestConnection() {
		if uid, err := engine.CardUID(); err == nil {
			fmt.Printf("Card UID:   %s\n", ccid.FormatHex(uid))
		}
	}

	fmt.Println("\nProgramming key...")
	if err := engine.WriteKeyToCard(newKey, authKey); err != nil {
		fmt.Printf("Write FAILED: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Key committed.")
	fmt.Printf("New key: %s\n", keygen.FormatKey(newKey))
	return nil
}
