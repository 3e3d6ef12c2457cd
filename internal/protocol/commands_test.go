package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrameCodec(t *testing.T) {
	codec := NewFrameCodec()
	require.NotNil(t, codec)
	require.NotNil(t, codec.crcTable)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewFrameCodec()

	tests := []struct {
		name  string
		frame *Frame
	}{
		{
			name:  "poll request without payload",
			frame: &Frame{Serial: 0x116180001234, Command: CommandPoll},
		},
		{
			name:  "heartbeat",
			frame: &Frame{Serial: 0x10D300005678, Command: CommandHeartbeat},
		},
		{
			name: "statistics fragment with full payload",
			frame: &Frame{
				Serial:   0x114100002222,
				Command:  CommandStatistics,
				Fragment: 0x01,
				Payload:  []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
			},
		},
		{
			name: "final statistics fragment with short payload",
			frame: &Frame{
				Serial:   0x114100002222,
				Command:  CommandStatistics,
				Fragment: 0x03 | FragmentFinalFlag,
				Payload:  []byte{0xAA, 0xBB},
			},
		},
		{
			name:  "ack response frame",
			frame: &Frame{Serial: 0x116180001234, Command: CommandStatistics | AckFlag, Fragment: 0x87},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := codec.Encode(tt.frame)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(data), FrameMinSize)

			assert.Equal(t, byte(FrameStartByte), data[0])
			assert.Equal(t, FrameMinSize+len(tt.frame.Payload), len(data))

			decoded, err := codec.Decode(data)
			require.NoError(t, err)

			assert.Equal(t, tt.frame.Serial, decoded.Serial)
			assert.Equal(t, tt.frame.Command, decoded.Command)
			assert.Equal(t, tt.frame.Fragment, decoded.Fragment)
			assert.Equal(t, tt.frame.Payload, decoded.Payload)
		})
	}
}

func TestEncodeRejectsInvalidFrames(t *testing.T) {
	codec := NewFrameCodec()

	tests := []struct {
		name  string
		frame *Frame
	}{
		{
			name:  "serial wider than 48 bits",
			frame: &Frame{Serial: 1 << 48, Command: CommandPoll},
		},
		{
			name: "oversized payload",
			frame: &Frame{
				Serial:  0x116180001234,
				Command: CommandStatistics,
				Payload: make([]byte, MaxFramePayload+1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := codec.Encode(tt.frame)
			assert.Error(t, err)
			assert.Nil(t, data)
		})
	}
}

func TestDecodeRejectsCorruptFrames(t *testing.T) {
	codec := NewFrameCodec()

	valid, err := codec.Encode(&Frame{
		Serial:   0x116180001234,
		Command:  CommandStatistics,
		Fragment: 0x01,
		Payload:  []byte{0x01, 0x02, 0x03, 0x04},
	})
	require.NoError(t, err)

	corruptPayload := append([]byte(nil), valid...)
	corruptPayload[12] ^= 0xFF

	corruptCRC := append([]byte(nil), valid...)
	corruptCRC[len(corruptCRC)-1] ^= 0xFF

	badStart := append([]byte(nil), valid...)
	badStart[0] = 0x5A

	badLength := append([]byte(nil), valid...)
	badLength[2] = 0xFF

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty data", data: nil},
		{name: "too short", data: valid[:FrameMinSize-1]},
		{name: "bad start byte", data: badStart},
		{name: "implausible length field", data: badLength},
		{name: "truncated frame", data: valid[:len(valid)-3]},
		{name: "corrupted payload", data: corruptPayload},
		{name: "corrupted checksum", data: corruptCRC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := codec.Decode(tt.data)
			assert.Error(t, err)
			assert.Nil(t, frame)
		})
	}
}

func TestFragmentHelpers(t *testing.T) {
	tests := []struct {
		name     string
		fragment uint8
		index    int
		final    bool
		offset   int
	}{
		{name: "first fragment", fragment: 0x01, index: 1, final: false, offset: 0},
		{name: "third fragment", fragment: 0x03, index: 3, final: false, offset: 32},
		{name: "final third fragment", fragment: 0x83, index: 3, final: true, offset: 32},
		{name: "final seventh fragment", fragment: 0x87, index: 7, final: true, offset: 96},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := &Frame{Command: CommandStatistics, Fragment: tt.fragment}
			assert.Equal(t, tt.index, frame.FragmentIndex())
			assert.Equal(t, tt.final, frame.IsFinalFragment())
			assert.Equal(t, tt.offset, frame.BufferOffset())
		})
	}
}

func TestIsResponse(t *testing.T) {
	assert.False(t, (&Frame{Command: CommandStatistics}).IsResponse())
	assert.True(t, (&Frame{Command: CommandStatistics | AckFlag}).IsResponse())
}

func TestFrameSize(t *testing.T) {
	codec := NewFrameCodec()

	data, err := codec.Encode(&Frame{
		Serial:  0x116180001234,
		Command: CommandStatistics,
		Payload: []byte{1, 2, 3},
	})
	require.NoError(t, err)

	size, err := FrameSize(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), size)

	// Sizing only needs the three header bytes.
	size, err = FrameSize(data[:3])
	require.NoError(t, err)
	assert.Equal(t, len(data), size)

	_, err = FrameSize(data[:2])
	assert.Error(t, err)

	_, err = FrameSize([]byte{0x00, 0x00, 0x08})
	assert.Error(t, err)

	_, err = FrameSize([]byte{FrameStartByte, 0xFF, 0xFF})
	assert.Error(t, err)
}

func TestCreatePollCommand(t *testing.T) {
	codec := NewFrameCodec()

	cmd, data, err := codec.CreatePollCommand(0x116180001234)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	require.NotNil(t, data)

	assert.Equal(t, uint64(0x116180001234), cmd.Serial)
	assert.WithinDuration(t, time.Now(), cmd.Timestamp, time.Second)

	frame, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(CommandPoll), frame.Command)
	assert.Equal(t, uint64(0x116180001234), frame.Serial)

	// The payload is the request time as a big-endian unix timestamp.
	require.Len(t, frame.Payload, 4)
	at := int64(frame.Payload[0])<<24 | int64(frame.Payload[1])<<16 |
		int64(frame.Payload[2])<<8 | int64(frame.Payload[3])
	assert.Equal(t, cmd.Timestamp.Unix(), at)

	cmd, data, err = codec.CreatePollCommand(0)
	assert.Error(t, err)
	assert.Nil(t, cmd)
	assert.Nil(t, data)
}

func TestSplitStatistics(t *testing.T) {
	record := make([]byte, 40)
	for i := range record {
		record[i] = byte(i)
	}

	frames, err := SplitStatistics(0x116180001234, record)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	assert.Equal(t, 1, frames[0].FragmentIndex())
	assert.False(t, frames[0].IsFinalFragment())
	assert.Len(t, frames[0].Payload, 16)

	assert.Equal(t, 2, frames[1].FragmentIndex())
	assert.False(t, frames[1].IsFinalFragment())
	assert.Len(t, frames[1].Payload, 16)

	assert.Equal(t, 3, frames[2].FragmentIndex())
	assert.True(t, frames[2].IsFinalFragment())
	assert.Len(t, frames[2].Payload, 8)

	// Reassembling through BufferOffset restores the record.
	reassembled := make([]byte, len(record))
	for _, frame := range frames {
		assert.Equal(t, uint8(CommandStatistics), frame.Command)
		copy(reassembled[frame.BufferOffset():], frame.Payload)
	}
	assert.Equal(t, record, reassembled)

	_, err = SplitStatistics(0x116180001234, nil)
	assert.Error(t, err)

	_, err = SplitStatistics(0x116180001234, make([]byte, FragmentIndexMask*MaxFramePayload+1))
	assert.Error(t, err)
}

func TestParseFrameInfo(t *testing.T) {
	codec := NewFrameCodec()

	data, err := codec.Encode(&Frame{
		Serial:   0x116180001234,
		Command:  CommandStatistics,
		Fragment: 0x81,
		Payload:  []byte{1, 2, 3, 4, 5},
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		data     []byte
		expected *FrameInfo
	}{
		{
			name: "too short data",
			data: []byte{FrameStartByte, 0x00},
			expected: &FrameInfo{
				IsValid: false,
			},
		},
		{
			name: "bad start byte",
			data: append([]byte{0x00}, data[1:]...),
			expected: &FrameInfo{
				IsValid: false,
			},
		},
		{
			name: "valid frame info",
			data: data,
			expected: &FrameInfo{
				Serial:     0x116180001234,
				Command:    CommandStatistics,
				PayloadLen: 5,
				IsValid:    true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := codec.ParseFrameInfo(tt.data)
			assert.Equal(t, tt.expected, info)
		})
	}
}

func TestFormatFrameHex(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{
			name:     "empty data",
			data:     []byte{},
			expected: "",
		},
		{
			name:     "simple data",
			data:     []byte{0x68, 0x00, 0x08, 0x11},
			expected: "68000811",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatFrameHex(tt.data)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Benchmark tests
func BenchmarkEncode(b *testing.B) {
	codec := NewFrameCodec()
	frame := &Frame{
		Serial:   0x116180001234,
		Command:  CommandStatistics,
		Fragment: 0x01,
		Payload:  make([]byte, MaxFramePayload),
	}
	for i := 0; i < b.N; i++ {
		_, err := codec.Encode(frame)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecode(b *testing.B) {
	codec := NewFrameCodec()
	data, err := codec.Encode(&Frame{
		Serial:   0x116180001234,
		Command:  CommandStatistics,
		Fragment: 0x01,
		Payload:  make([]byte, MaxFramePayload),
	})
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < b.N; i++ {
		_, err := codec.Decode(data)
		if err != nil {
			b.Fatal(err)
		}
	}
}
