// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available serial ports",
	Long: `List serial port devices visible to the operating system.

Useful for finding the reader's device path before running a scan:

  ulc-finder ports
  ulc-finder scan --port /dev/ttyUSB0`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("failed to enumerate serial ports: %v", err)
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	fmt.Printf("Available serial ports (%d):\n", len(ports))
	for _, port := range ports {
		fmt.Printf("  %s\n", port)
	}
	return nil
}
