// SPDX-License-Identifier: Apache-2.0

package ccid

import (
	"fmt"
	"strings"
)

// FormatHex formats bytes as uppercase hex with single spaces,
// e.g. "62 00 00 00 00".
func FormatHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// FormatMessageType returns the symbolic name of a CCID message type.
func FormatMessageType(msgType byte) string {
	switch msgType {
	case MsgIccPowerOn:
		return "PC_to_RDR_IccPowerOn"
	case MsgIccPowerOff:
		return "PC_to_RDR_IccPowerOff"
	case MsgXfrBlock:
		return "PC_to_RDR_XfrBlock"
	case MsgDataBlock:
		return "RDR_to_PC_DataBlock"
	case MsgSlotStatus:
		return "RDR_to_PC_SlotStatus"
	default:
		return "UNKNOWN"
	}
}
