// Package profile maps inverter serial numbers to the statistics frame
// layout of their hardware family. The upper 16 bits of the 48-bit serial
// encode the model line.
package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shibida/go-dtu/internal/parser"
)

// SerialHexDigits is the length of a printed inverter serial.
const SerialHexDigits = 12

// Profile binds an inverter family to its decode table. Profiles are
// immutable; parsers borrow the assignment slice directly.
type Profile struct {
	Name        string
	DCChannels  int
	Phases      int
	Assignments []parser.ByteAssignment
}

var profilesBySerialPrefix = map[uint16]*Profile{
	0x1121: {Name: "HM-300/350/400", DCChannels: 1, Phases: 1, Assignments: hm1CHAssignments},
	0x1124: {Name: "HMS-300/350/400/450/500", DCChannels: 1, Phases: 1, Assignments: hm1CHAssignments},
	0x1125: {Name: "HMS-300/350/400/450/500", DCChannels: 1, Phases: 1, Assignments: hm1CHAssignments},
	0x1141: {Name: "HM-600/700/800", DCChannels: 2, Phases: 1, Assignments: hm2CHAssignments},
	0x1144: {Name: "HMS-600/700/800/900/1000", DCChannels: 2, Phases: 1, Assignments: hm2CHAssignments},
	0x1161: {Name: "HM-1000/1200/1500", DCChannels: 4, Phases: 1, Assignments: hm4CHAssignments},
	0x1164: {Name: "HMS-1600/1800/2000", DCChannels: 4, Phases: 1, Assignments: hm4CHAssignments},
	0x1361: {Name: "HMT-1800/2250", DCChannels: 6, Phases: 3, Assignments: hmt6CHAssignments},
	0x1382: {Name: "HMT-1800/2250", DCChannels: 6, Phases: 3, Assignments: hmt6CHAssignments},
}

// SerialPrefix extracts the model-line identifier from a serial number.
func SerialPrefix(serial uint64) uint16 {
	return uint16(serial >> 32)
}

// ForSerial returns the profile for an inverter serial number.
func ForSerial(serial uint64) (*Profile, error) {
	prefix := SerialPrefix(serial)
	profile, ok := profilesBySerialPrefix[prefix]
	if !ok {
		return nil, fmt.Errorf("unsupported inverter model: serial prefix %04x", prefix)
	}
	return profile, nil
}

// ParseSerial converts a printed 12-digit hex serial into its numeric form.
func ParseSerial(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if len(s) != SerialHexDigits {
		return 0, fmt.Errorf("serial %q must be %d hex digits", s, SerialHexDigits)
	}
	serial, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid serial %q: %w", s, err)
	}
	return serial, nil
}

// FormatSerial renders a numeric serial in its printed 12-digit hex form.
func FormatSerial(serial uint64) string {
	return fmt.Sprintf("%012x", serial)
}
