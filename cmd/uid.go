// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/robertchoi/ulc-finder/pkg/ccid"
	"github.com/robertchoi/ulc-finder/pkg/scanner"
	"github.com/spf13/cobra"
)

var uidCmd = &cobra.Command{
	Use:   "uid",
	Short: "Read the UID of the card on the reader",
	Long: `Power on the card and read its 7-byte UID.

Also serves as a quick connectivity check: a successful read proves the
serial link, the reader, and card presence in one shot.

Exit codes:
  0 - UID read successfully
  1 - Reader responded but no card / UID read failed
  2 - Connection error`,
	RunE: runUID,
}

func init() {
	rootCmd.AddCommand(uidCmd)
}

func runUID(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("ulc-finder - Card UID\n")
	fmt.Printf("Connection: %s\n\n", connInfo)

	engine := scanner.NewEngine(newFrameTransport(conn), nil)

	if !engine.TestConnection() {
		fmt.Println("Reader did not power the card. Is a card on the reader?")
		os.Exit(1)
	}

	uid, err := engine.CardUID()
	if err != nil {
		fmt.Printf("UID read failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("UID: %s\n", ccid.FormatHex(uid))
	return nil
}
