// SPDX-License-Identifier: Apache-2.0
//
// ulc-finder - Mifare Ultralight C key recovery tool
//
// Drives a CCID-style smart-card reader over serial or WebSocket to
// brute-force, inspect, and program ULC 3DES authentication keys.

package main

import (
	"os"

	"github.com/robertchoi/ulc-finder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
