// Package protocol implements the framed wire format spoken by radio bridge units.
package protocol

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sigurn/crc16"
)

// Command bytes carried in the frame header.
const (
	CommandHeartbeat  = 0x01 // bridge keep-alive
	CommandStatistics = 0x0B // statistics payload fragment from an inverter
	CommandPoll       = 0x15 // ask the bridge to poll an inverter now
)

// AckFlag marks a frame as the response to the command in the low bits.
const AckFlag = 0x80

// Frame layout constants. A frame is:
//
//	start byte | length (2B BE) | serial (6B BE) | command | fragment | payload | CRC16 (2B LE)
//
// The length field counts the bytes from the serial through the end of the
// payload. The CRC is the Modbus CRC16 over everything between the start byte
// and the checksum itself.
const (
	FrameStartByte   = 0x68
	FrameHeaderSize  = 11 // start byte, length, serial, command, fragment
	FrameTrailerSize = 2
	FrameMinSize     = FrameHeaderSize + FrameTrailerSize
	MaxFramePayload  = 16
)

// Fragment byte encoding for statistics frames. The low bits carry the
// one-based fragment index; the top bit marks the last fragment of a record.
const (
	FragmentIndexMask = 0x7F
	FragmentFinalFlag = 0x80
)

// MaxSerial is the largest inverter serial a frame can carry (48 bits).
const MaxSerial = 1<<48 - 1

// Frame represents a single decoded bridge frame.
type Frame struct {
	Serial   uint64
	Command  uint8
	Fragment uint8
	Payload  []byte
}

// FragmentIndex returns the one-based fragment index of a statistics frame.
func (f *Frame) FragmentIndex() int {
	return int(f.Fragment & FragmentIndexMask)
}

// IsFinalFragment reports whether this frame completes a statistics record.
func (f *Frame) IsFinalFragment() bool {
	return f.Fragment&FragmentFinalFlag != 0
}

// BufferOffset returns the reassembly buffer position of a statistics fragment.
func (f *Frame) BufferOffset() int {
	return (f.FragmentIndex() - 1) * MaxFramePayload
}

// IsResponse reports whether the frame acknowledges an earlier command.
func (f *Frame) IsResponse() bool {
	return f.Command&AckFlag != 0
}

// FrameCodec encodes and decodes bridge frames.
type FrameCodec struct {
	crcTable *crc16.Table
}

// NewFrameCodec creates a new frame codec instance.
func NewFrameCodec() *FrameCodec {
	// Create CRC16 table for Modbus
	table := crc16.MakeTable(crc16.CRC16_MODBUS)

	return &FrameCodec{
		crcTable: table,
	}
}

// Encode serializes a frame into its wire representation.
func (fc *FrameCodec) Encode(frame *Frame) ([]byte, error) {
	if frame.Serial > MaxSerial {
		return nil, fmt.Errorf("serial 0x%x does not fit in 48 bits", frame.Serial)
	}
	if len(frame.Payload) > MaxFramePayload {
		return nil, fmt.Errorf("payload too large: %d bytes, maximum %d", len(frame.Payload), MaxFramePayload)
	}

	length := 8 + len(frame.Payload)
	data := make([]byte, 0, FrameMinSize+len(frame.Payload))
	data = append(data, FrameStartByte)
	data = append(data, byte(length>>8), byte(length&0xFF))
	for shift := 40; shift >= 0; shift -= 8 {
		data = append(data, byte(frame.Serial>>uint(shift)))
	}
	data = append(data, frame.Command, frame.Fragment)
	data = append(data, frame.Payload...)

	crc := crc16.Checksum(data[1:], fc.crcTable)
	data = append(data, byte(crc&0xFF), byte(crc>>8))

	return data, nil
}

// Decode parses and validates a single complete frame.
func (fc *FrameCodec) Decode(data []byte) (*Frame, error) {
	if len(data) < FrameMinSize {
		return nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	if data[0] != FrameStartByte {
		return nil, fmt.Errorf("bad start byte: 0x%02X", data[0])
	}

	length := int(data[1])<<8 | int(data[2])
	if length < 8 || length-8 > MaxFramePayload {
		return nil, fmt.Errorf("implausible frame length: %d", length)
	}
	total := 3 + length + FrameTrailerSize
	if len(data) != total {
		return nil, fmt.Errorf("frame length mismatch: header says %d bytes, got %d", total, len(data))
	}

	receivedCRC := uint16(data[total-2]) | uint16(data[total-1])<<8
	calculatedCRC := crc16.Checksum(data[1:total-2], fc.crcTable)
	if receivedCRC != calculatedCRC {
		return nil, fmt.Errorf("CRC validation failed: expected 0x%04X, got 0x%04X", calculatedCRC, receivedCRC)
	}

	var serial uint64
	for _, b := range data[3:9] {
		serial = serial<<8 | uint64(b)
	}

	frame := &Frame{
		Serial:   serial,
		Command:  data[9],
		Fragment: data[10],
	}
	if payloadLen := length - 8; payloadLen > 0 {
		frame.Payload = make([]byte, payloadLen)
		copy(frame.Payload, data[11:11+payloadLen])
	}

	return frame, nil
}

// FrameSize returns the total wire size of the frame starting at data[0].
// Three bytes of header are enough to size a frame, which lets a reader
// split frames out of a raw byte stream before decoding them.
func FrameSize(data []byte) (int, error) {
	if len(data) < 3 {
		return 0, fmt.Errorf("need 3 header bytes to size a frame, got %d", len(data))
	}
	if data[0] != FrameStartByte {
		return 0, fmt.Errorf("bad start byte: 0x%02X", data[0])
	}
	length := int(data[1])<<8 | int(data[2])
	if length < 8 || length-8 > MaxFramePayload {
		return 0, fmt.Errorf("implausible frame length: %d", length)
	}
	return 3 + length + FrameTrailerSize, nil
}

// PollCommand represents a statistics poll request for a single inverter.
type PollCommand struct {
	Serial    uint64
	Timestamp time.Time
}

// CreatePollCommand generates a poll request frame for an inverter. The
// payload carries the request time as a big-endian unix timestamp so the
// bridge can stamp the radio request.
func (fc *FrameCodec) CreatePollCommand(serial uint64) (*PollCommand, []byte, error) {
	if serial == 0 {
		return nil, nil, fmt.Errorf("serial cannot be zero")
	}

	cmd := &PollCommand{
		Serial:    serial,
		Timestamp: time.Now(),
	}

	at := uint32(cmd.Timestamp.Unix())
	payload := []byte{byte(at >> 24), byte(at >> 16), byte(at >> 8), byte(at)}

	data, err := fc.Encode(&Frame{Serial: serial, Command: CommandPoll, Payload: payload})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build poll request: %w", err)
	}

	return cmd, data, nil
}

// SplitStatistics cuts a complete statistics record into ordered fragment
// frames, the way a bridge transmits one. The last fragment carries the
// final flag.
func SplitStatistics(serial uint64, record []byte) ([]*Frame, error) {
	if len(record) == 0 {
		return nil, fmt.Errorf("statistics record cannot be empty")
	}
	if len(record) > FragmentIndexMask*MaxFramePayload {
		return nil, fmt.Errorf("statistics record too large: %d bytes", len(record))
	}

	var frames []*Frame
	for offset := 0; offset < len(record); offset += MaxFramePayload {
		end := offset + MaxFramePayload
		if end > len(record) {
			end = len(record)
		}

		fragment := uint8(offset/MaxFramePayload + 1)
		if end == len(record) {
			fragment |= FragmentFinalFlag
		}

		frames = append(frames, &Frame{
			Serial:   serial,
			Command:  CommandStatistics,
			Fragment: fragment,
			Payload:  record[offset:end],
		})
	}

	return frames, nil
}

// FrameInfo extracts basic information from a frame.
type FrameInfo struct {
	Serial     uint64
	Command    uint8
	PayloadLen int
	IsValid    bool
}

// ParseFrameInfo extracts frame information without CRC validation.
func (fc *FrameCodec) ParseFrameInfo(data []byte) *FrameInfo {
	if len(data) < FrameHeaderSize || data[0] != FrameStartByte {
		return &FrameInfo{IsValid: false}
	}

	var serial uint64
	for _, b := range data[3:9] {
		serial = serial<<8 | uint64(b)
	}

	return &FrameInfo{
		Serial:     serial,
		Command:    data[9],
		PayloadLen: (int(data[1])<<8 | int(data[2])) - 8,
		IsValid:    true,
	}
}

// FormatFrameHex returns a hex representation of frame data for logging.
func FormatFrameHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return hex.EncodeToString(data)
}
