package parser

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testAssignments models a two-string inverter: grid values on AC/CH0, one
// block per DC string, device-level values and derived totals on INV/CH0.
func testAssignments() []ByteAssignment {
	return []ByteAssignment{
		{Type: ChannelTypeAC, Channel: CH0, Field: FieldUAC, Unit: UnitVolt, Start: 0, Bytes: 2, Divisor: 10, Digits: 1},
		{Type: ChannelTypeAC, Channel: CH0, Field: FieldIAC, Unit: UnitAmpere, Start: 2, Bytes: 2, Divisor: 100, Digits: 2},
		{Type: ChannelTypeAC, Channel: CH0, Field: FieldPAC, Unit: UnitWatt, Start: 4, Bytes: 2, Divisor: 10, Digits: 1},
		{Type: ChannelTypeAC, Channel: CH0, Field: FieldFrequency, Unit: UnitHertz, Start: 6, Bytes: 2, Divisor: 100, Digits: 2},
		{Type: ChannelTypeAC, Channel: CH0, Field: FieldReactivePower, Unit: UnitVar, Start: 8, Bytes: 2, Divisor: 10, Signed: true, Digits: 1},

		{Type: ChannelTypeDC, Channel: CH1, Field: FieldUDC, Unit: UnitVolt, Start: 10, Bytes: 2, Divisor: 10, Digits: 1},
		{Type: ChannelTypeDC, Channel: CH1, Field: FieldIDC, Unit: UnitAmpere, Start: 12, Bytes: 2, Divisor: 100, Digits: 2},
		{Type: ChannelTypeDC, Channel: CH1, Field: FieldPDC, Unit: UnitWatt, Start: 14, Bytes: 2, Divisor: 10, Digits: 1},
		{Type: ChannelTypeDC, Channel: CH1, Field: FieldYieldDay, Unit: UnitWattHour, Start: 16, Bytes: 2, Divisor: 1, Digits: 0},
		{Type: ChannelTypeDC, Channel: CH1, Field: FieldYieldTotal, Unit: UnitKilowattHour, Start: 18, Bytes: 4, Divisor: 1000, Digits: 3},
		{Type: ChannelTypeDC, Channel: CH1, Field: FieldIrradiation, Unit: UnitPercent, Start: uint8(CalcIrradiation), Bytes: uint8(CH1), Divisor: CalcSentinel, Digits: 3},

		{Type: ChannelTypeDC, Channel: CH2, Field: FieldUDC, Unit: UnitVolt, Start: 22, Bytes: 2, Divisor: 10, Digits: 1},
		{Type: ChannelTypeDC, Channel: CH2, Field: FieldIDC, Unit: UnitAmpere, Start: 24, Bytes: 2, Divisor: 100, Digits: 2},
		{Type: ChannelTypeDC, Channel: CH2, Field: FieldPDC, Unit: UnitWatt, Start: 26, Bytes: 2, Divisor: 10, Digits: 1},
		{Type: ChannelTypeDC, Channel: CH2, Field: FieldYieldDay, Unit: UnitWattHour, Start: 28, Bytes: 2, Divisor: 1, Digits: 0},
		{Type: ChannelTypeDC, Channel: CH2, Field: FieldYieldTotal, Unit: UnitKilowattHour, Start: 30, Bytes: 4, Divisor: 1000, Digits: 3},
		{Type: ChannelTypeDC, Channel: CH2, Field: FieldIrradiation, Unit: UnitPercent, Start: uint8(CalcIrradiation), Bytes: uint8(CH2), Divisor: CalcSentinel, Digits: 3},

		{Type: ChannelTypeInverter, Channel: CH0, Field: FieldTemperature, Unit: UnitCelsius, Start: 34, Bytes: 2, Divisor: 10, Signed: true, Digits: 1},
		{Type: ChannelTypeInverter, Channel: CH0, Field: FieldEventLogCount, Unit: UnitNone, Start: 36, Bytes: 2, Divisor: 1, Digits: 0},
		{Type: ChannelTypeInverter, Channel: CH0, Field: FieldYieldDay, Unit: UnitWattHour, Start: uint8(CalcTotalYieldDay), Bytes: 0, Divisor: CalcSentinel, Digits: 0},
		{Type: ChannelTypeInverter, Channel: CH0, Field: FieldYieldTotal, Unit: UnitKilowattHour, Start: uint8(CalcTotalYieldTotal), Bytes: 0, Divisor: CalcSentinel, Digits: 3},
		{Type: ChannelTypeInverter, Channel: CH0, Field: FieldPDC, Unit: UnitWatt, Start: uint8(CalcTotalPowerDC), Bytes: 0, Divisor: CalcSentinel, Digits: 1},
		{Type: ChannelTypeInverter, Channel: CH0, Field: FieldEfficiency, Unit: UnitPercent, Start: uint8(CalcTotalEfficiency), Bytes: 0, Divisor: CalcSentinel, Digits: 3},
		{Type: ChannelTypeInverter, Channel: CH0, Field: FieldUDC, Unit: UnitVolt, Start: uint8(CalcDCVoltage), Bytes: uint8(CH1), Divisor: CalcSentinel, Digits: 1},
		{Type: ChannelTypeInverter, Channel: CH0, Field: FieldIAC, Unit: UnitAmpere, Start: uint8(CalcTotalCurrentAC), Bytes: 0, Divisor: CalcSentinel, Digits: 2},
	}
}

const testFrameSize = 38

// buildTestFrame fills a complete payload with known values:
// UAC 230.5, IAC 2.15, PAC 390.0, F 49.98, Q -2.5,
// CH1 UDC 33.1 / IDC 6.45 / PDC 213.4 / YD 523 / YT 1234.567,
// CH2 UDC 32.7 / IDC 6.02 / PDC 196.8 / YD 498 / YT 7654.321,
// T -12.3, event count 4.
func buildTestFrame() []byte {
	frame := make([]byte, testFrameSize)
	binary.BigEndian.PutUint16(frame[0:], 2305)
	binary.BigEndian.PutUint16(frame[2:], 215)
	binary.BigEndian.PutUint16(frame[4:], 3900)
	binary.BigEndian.PutUint16(frame[6:], 4998)
	q := int16(-25)
	binary.BigEndian.PutUint16(frame[8:], uint16(q))
	binary.BigEndian.PutUint16(frame[10:], 331)
	binary.BigEndian.PutUint16(frame[12:], 645)
	binary.BigEndian.PutUint16(frame[14:], 2134)
	binary.BigEndian.PutUint16(frame[16:], 523)
	binary.BigEndian.PutUint32(frame[18:], 1234567)
	binary.BigEndian.PutUint16(frame[22:], 327)
	binary.BigEndian.PutUint16(frame[24:], 602)
	binary.BigEndian.PutUint16(frame[26:], 1968)
	binary.BigEndian.PutUint16(frame[28:], 498)
	binary.BigEndian.PutUint32(frame[30:], 7654321)
	temp := int16(-123)
	binary.BigEndian.PutUint16(frame[34:], uint16(temp))
	binary.BigEndian.PutUint16(frame[36:], 4)
	return frame
}

func newTestParser(t *testing.T) *StatisticsParser {
	t.Helper()
	p := NewStatisticsParser()
	p.SetByteAssignment(testAssignments())
	return p
}

func feedFrame(t *testing.T, p *StatisticsParser, frame []byte) {
	t.Helper()
	p.ClearBuffer()
	require.NoError(t, p.AppendFragment(0, frame))
	p.EndAppendFragment()
}

func be16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func TestDecodeRow(t *testing.T) {
	tests := []struct {
		name    string
		row     ByteAssignment
		payload []byte
		want    float64
	}{
		{
			name:    "unsigned 16-bit with divisor",
			row:     ByteAssignment{Type: ChannelTypeDC, Channel: CH0, Field: FieldUDC, Start: 0, Bytes: 2, Divisor: 10},
			payload: []byte{0x04, 0xD2},
			want:    123.4,
		},
		{
			name:    "unsigned 8-bit",
			row:     ByteAssignment{Type: ChannelTypeDC, Channel: CH0, Field: FieldUDC, Start: 0, Bytes: 1, Divisor: 1},
			payload: []byte{0xFF},
			want:    255,
		},
		{
			name:    "signed 8-bit negative",
			row:     ByteAssignment{Type: ChannelTypeDC, Channel: CH0, Field: FieldUDC, Start: 0, Bytes: 1, Divisor: 1, Signed: true},
			payload: []byte{0x80},
			want:    -128,
		},
		{
			name:    "signed 16-bit negative",
			row:     ByteAssignment{Type: ChannelTypeDC, Channel: CH0, Field: FieldUDC, Start: 0, Bytes: 2, Divisor: 10, Signed: true},
			payload: []byte{0xFF, 0x85},
			want:    -12.3,
		},
		{
			name:    "unsigned 32-bit with divisor",
			row:     ByteAssignment{Type: ChannelTypeDC, Channel: CH0, Field: FieldUDC, Start: 0, Bytes: 4, Divisor: 1000},
			payload: []byte{0x00, 0x12, 0xD6, 0x87},
			want:    1234.567,
		},
		{
			name:    "signed 32-bit negative",
			row:     ByteAssignment{Type: ChannelTypeDC, Channel: CH0, Field: FieldUDC, Start: 0, Bytes: 4, Divisor: 1, Signed: true},
			payload: []byte{0xFF, 0xFF, 0xFF, 0xFF},
			want:    -1,
		},
		{
			name:    "unsigned 24-bit",
			row:     ByteAssignment{Type: ChannelTypeDC, Channel: CH0, Field: FieldUDC, Start: 0, Bytes: 3, Divisor: 1},
			payload: []byte{0x01, 0x00, 0x00},
			want:    65536,
		},
		{
			name:    "signed 24-bit negative",
			row:     ByteAssignment{Type: ChannelTypeDC, Channel: CH0, Field: FieldUDC, Start: 0, Bytes: 3, Divisor: 1, Signed: true},
			payload: []byte{0xFF, 0xFF, 0xFE},
			want:    -2,
		},
		{
			name:    "offset into buffer",
			row:     ByteAssignment{Type: ChannelTypeDC, Channel: CH0, Field: FieldUDC, Start: 3, Bytes: 2, Divisor: 10},
			payload: []byte{0xAA, 0xBB, 0xCC, 0x04, 0xD2},
			want:    123.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewStatisticsParser()
			p.SetByteAssignment([]ByteAssignment{tt.row})
			require.NoError(t, p.AppendFragment(0, tt.payload))
			p.EndAppendFragment()
			assert.InDelta(t, tt.want, p.GetChannelFieldValue(tt.row.Type, tt.row.Channel, tt.row.Field), 1e-9)
		})
	}
}

func TestGetExpectedByteCount(t *testing.T) {
	p := newTestParser(t)
	assert.Equal(t, testFrameSize, p.GetExpectedByteCount(), "computed rows must not count")

	p.SetByteAssignment([]ByteAssignment{
		{Type: ChannelTypeInverter, Channel: CH0, Field: FieldYieldDay, Start: uint8(CalcTotalYieldDay), Divisor: CalcSentinel},
	})
	assert.Equal(t, 0, p.GetExpectedByteCount(), "calc-only table expects no payload")

	p.SetByteAssignment(nil)
	assert.Equal(t, 0, p.GetExpectedByteCount())
}

func TestDecodeCompleteFrame(t *testing.T) {
	p := newTestParser(t)
	feedFrame(t, p, buildTestFrame())

	assert.InDelta(t, 230.5, p.GetChannelFieldValue(ChannelTypeAC, CH0, FieldUAC), 1e-9)
	assert.InDelta(t, 2.15, p.GetChannelFieldValue(ChannelTypeAC, CH0, FieldIAC), 1e-9)
	assert.InDelta(t, 390.0, p.GetChannelFieldValue(ChannelTypeAC, CH0, FieldPAC), 1e-9)
	assert.InDelta(t, 49.98, p.GetChannelFieldValue(ChannelTypeAC, CH0, FieldFrequency), 1e-9)
	assert.InDelta(t, -2.5, p.GetChannelFieldValue(ChannelTypeAC, CH0, FieldReactivePower), 1e-9)

	assert.InDelta(t, 33.1, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldUDC), 1e-9)
	assert.InDelta(t, 6.45, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldIDC), 1e-9)
	assert.InDelta(t, 213.4, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldPDC), 1e-9)
	assert.InDelta(t, 523, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldDay), 1e-9)
	assert.InDelta(t, 1234.567, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldTotal), 1e-9)

	assert.InDelta(t, 32.7, p.GetChannelFieldValue(ChannelTypeDC, CH2, FieldUDC), 1e-9)
	assert.InDelta(t, 7654.321, p.GetChannelFieldValue(ChannelTypeDC, CH2, FieldYieldTotal), 1e-9)

	assert.InDelta(t, -12.3, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldTemperature), 1e-9)
	assert.InDelta(t, 4, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldEventLogCount), 1e-9)
}

func TestDecodeOutOfOrderFragments(t *testing.T) {
	p := newTestParser(t)
	frame := buildTestFrame()

	p.ClearBuffer()
	require.NoError(t, p.AppendFragment(16, frame[16:32]))
	require.NoError(t, p.AppendFragment(0, frame[0:16]))
	require.NoError(t, p.AppendFragment(32, frame[32:38]))
	p.EndAppendFragment()

	assert.Equal(t, testFrameSize, p.GetBufferLength())
	assert.InDelta(t, 230.5, p.GetChannelFieldValue(ChannelTypeAC, CH0, FieldUAC), 1e-9)
	assert.InDelta(t, 523, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldDay), 1e-9)
	assert.InDelta(t, 4, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldEventLogCount), 1e-9)
}

func TestAppendFragmentBounds(t *testing.T) {
	p := newTestParser(t)
	feedFrame(t, p, buildTestFrame())

	err := p.AppendFragment(100, make([]byte, 13))
	require.Error(t, err, "fragment past the buffer end must be rejected")
	assert.Equal(t, testFrameSize, p.GetBufferLength(), "rejected fragment must not move the high-water mark")
	assert.InDelta(t, 230.5, p.GetChannelFieldValue(ChannelTypeAC, CH0, FieldUAC), 1e-9, "rejected fragment must not touch the buffer")

	require.Error(t, p.AppendFragment(-1, []byte{0x00}))

	// A fragment ending exactly at the buffer boundary is fine.
	require.NoError(t, p.AppendFragment(StatisticsPacketSize-16, make([]byte, 16)))
}

func TestClearBuffer(t *testing.T) {
	p := newTestParser(t)
	feedFrame(t, p, buildTestFrame())
	require.Equal(t, testFrameSize, p.GetBufferLength())

	p.ClearBuffer()
	assert.Equal(t, 0, p.GetBufferLength())
	assert.InDelta(t, 0, p.GetChannelFieldValue(ChannelTypeAC, CH0, FieldUAC), 1e-9)
}

func TestDerivedTotals(t *testing.T) {
	p := newTestParser(t)
	feedFrame(t, p, buildTestFrame())

	assert.InDelta(t, 523+498, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldYieldDay), 1e-9)
	assert.InDelta(t, 1234.567+7654.321, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldYieldTotal), 1e-9)
	assert.InDelta(t, 213.4+196.8, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldPDC), 1e-9)
	assert.InDelta(t, 390.0/(213.4+196.8)*100, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldEfficiency), 1e-9)
	assert.InDelta(t, 33.1, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldUDC), 1e-9, "device DC voltage mirrors the argument channel")
	assert.InDelta(t, 2.15, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldIAC), 1e-9, "single-phase total current is the grid current")
}

func TestEfficiencyZeroWithoutProduction(t *testing.T) {
	p := newTestParser(t)
	feedFrame(t, p, make([]byte, testFrameSize))
	assert.InDelta(t, 0, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldEfficiency), 1e-9)
}

func TestTotalCurrentThreePhase(t *testing.T) {
	p := NewStatisticsParser()
	p.SetByteAssignment([]ByteAssignment{
		{Type: ChannelTypeAC, Channel: CH0, Field: FieldIACPhase1, Unit: UnitAmpere, Start: 0, Bytes: 2, Divisor: 100, Digits: 2},
		{Type: ChannelTypeAC, Channel: CH0, Field: FieldIACPhase2, Unit: UnitAmpere, Start: 2, Bytes: 2, Divisor: 100, Digits: 2},
		{Type: ChannelTypeAC, Channel: CH0, Field: FieldIACPhase3, Unit: UnitAmpere, Start: 4, Bytes: 2, Divisor: 100, Digits: 2},
		{Type: ChannelTypeAC, Channel: CH0, Field: FieldIAC, Unit: UnitAmpere, Start: uint8(CalcTotalCurrentAC), Bytes: 0, Divisor: CalcSentinel, Digits: 2},
	})

	payload := make([]byte, 6)
	binary.BigEndian.PutUint16(payload[0:], 150)
	binary.BigEndian.PutUint16(payload[2:], 225)
	binary.BigEndian.PutUint16(payload[4:], 75)
	require.NoError(t, p.AppendFragment(0, payload))
	p.EndAppendFragment()

	assert.InDelta(t, 4.5, p.GetChannelFieldValue(ChannelTypeAC, CH0, FieldIAC), 1e-9)
}

func TestIrradiation(t *testing.T) {
	p := newTestParser(t)
	feedFrame(t, p, buildTestFrame())

	assert.InDelta(t, 0, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldIrradiation), 1e-9,
		"unset panel power disables the ratio")

	p.SetStringMaxPower(CH1, 400)
	assert.Equal(t, 400, p.GetStringMaxPower(CH1))
	assert.InDelta(t, 213.4/400*100, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldIrradiation), 1e-9)
	assert.InDelta(t, 0, p.GetChannelFieldValue(ChannelTypeDC, CH2, FieldIrradiation), 1e-9,
		"other channels stay disabled")
}

func TestCalibrationOffset(t *testing.T) {
	p := newTestParser(t)
	feedFrame(t, p, buildTestFrame())

	assert.InDelta(t, 0, p.GetChannelFieldOffset(ChannelTypeDC, CH1, FieldYieldTotal), 1e-9)

	p.SetChannelFieldOffset(ChannelTypeDC, CH1, FieldYieldTotal, 1.5)
	assert.InDelta(t, 1.5, p.GetChannelFieldOffset(ChannelTypeDC, CH1, FieldYieldTotal), 1e-9)
	assert.InDelta(t, 1234.567+1.5, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldTotal), 1e-9)

	p.SetChannelFieldOffset(ChannelTypeDC, CH1, FieldYieldTotal, -0.5)
	assert.InDelta(t, 1234.567-0.5, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldTotal), 1e-9,
		"offsets replace, they do not accumulate")

	assert.InDelta(t, 7654.321, p.GetChannelFieldValue(ChannelTypeDC, CH2, FieldYieldTotal), 1e-9,
		"offset applies to one triple only")
}

func TestYieldDayCorrection(t *testing.T) {
	p := newTestParser(t)
	p.SetYieldDayCorrection(true)
	require.True(t, p.GetYieldDayCorrection())

	const yieldDayOffset = 16
	sequence := []uint16{500, 520, 15, 530}
	observed := []float64{500, 520, 520, 520}
	for i, raw := range sequence {
		require.NoError(t, p.AppendFragment(yieldDayOffset, be16(raw)))
		p.EndAppendFragment()
		assert.InDelta(t, observed[i], p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldDay), 1e-9,
			"step %d (raw %d)", i, raw)
		assert.InDelta(t, observed[i], p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldYieldDay), 1e-9,
			"total follows the held channel at step %d", i)
	}

	// The hold survives until the day-boundary reset.
	p.ResetYieldDayCorrection()
	assert.InDelta(t, 530, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldDay), 1e-9,
		"reset releases the hold")

	require.NoError(t, p.AppendFragment(yieldDayOffset, be16(5)))
	p.EndAppendFragment()
	assert.InDelta(t, 5, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldDay), 1e-9,
		"after reset any value is accepted as the new baseline")
}

func TestYieldDayCorrectionEqualValues(t *testing.T) {
	p := newTestParser(t)
	p.SetYieldDayCorrection(true)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.AppendFragment(16, be16(750)))
		p.EndAppendFragment()
	}
	assert.InDelta(t, 750, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldDay), 1e-9,
		"repeated equal readings never trigger the hold")
}

func TestYieldDayCorrectionDisabled(t *testing.T) {
	p := newTestParser(t)

	for _, raw := range []uint16{500, 15} {
		require.NoError(t, p.AppendFragment(16, be16(raw)))
		p.EndAppendFragment()
	}
	assert.InDelta(t, 15, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldDay), 1e-9,
		"without correction regressions pass through")
}

func TestUnmappedTriple(t *testing.T) {
	p := newTestParser(t)
	feedFrame(t, p, buildTestFrame())

	assert.False(t, p.HasChannelFieldValue(ChannelTypeDC, CH3, FieldUDC))
	assert.InDelta(t, 0, p.GetChannelFieldValue(ChannelTypeDC, CH3, FieldUDC), 1e-9)
	assert.Empty(t, p.GetChannelFieldUnit(ChannelTypeDC, CH3, FieldUDC))
	assert.Empty(t, p.GetChannelFieldValueString(ChannelTypeDC, CH3, FieldUDC))
	assert.Equal(t, 0, p.GetChannelFieldDigits(ChannelTypeDC, CH3, FieldUDC))

	assert.True(t, p.HasChannelFieldValue(ChannelTypeDC, CH1, FieldUDC))
}

func TestSetChannelFieldValue(t *testing.T) {
	p := newTestParser(t)
	feedFrame(t, p, buildTestFrame())

	err := p.SetChannelFieldValue(ChannelTypeAC, CH0, FieldUAC, 999)
	require.Error(t, err, "mapped triples cannot be overridden")
	assert.InDelta(t, 230.5, p.GetChannelFieldValue(ChannelTypeAC, CH0, FieldUAC), 1e-9)

	require.Error(t, p.SetChannelFieldValue(ChannelTypeInverter, CH0, FieldEfficiency, 99),
		"computed triples cannot be overridden either")

	require.NoError(t, p.SetChannelFieldValue(ChannelTypeInverter, CH0, FieldPowerFactor, 0.95))
	assert.InDelta(t, 0.95, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldPowerFactor), 1e-9)
	assert.False(t, p.HasChannelFieldValue(ChannelTypeInverter, CH0, FieldPowerFactor),
		"injected values do not register a table row")
}

func TestZeroRuntimeData(t *testing.T) {
	p := newTestParser(t)
	feedFrame(t, p, buildTestFrame())
	require.NoError(t, p.SetChannelFieldValue(ChannelTypeInverter, CH0, FieldPowerFactor, 0.95))

	p.ZeroRuntimeData()

	assert.InDelta(t, 0, p.GetChannelFieldValue(ChannelTypeAC, CH0, FieldUAC), 1e-9)
	assert.InDelta(t, 0, p.GetChannelFieldValue(ChannelTypeAC, CH0, FieldPAC), 1e-9)
	assert.InDelta(t, 0, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldPDC), 1e-9)
	assert.InDelta(t, 0, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldTemperature), 1e-9)
	assert.InDelta(t, 0, p.GetChannelFieldValue(ChannelTypeInverter, CH0, FieldPowerFactor), 1e-9,
		"injected runtime values are zeroed too")

	assert.InDelta(t, 523, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldDay), 1e-9,
		"production counters survive runtime zeroing")
	assert.InDelta(t, 1234.567, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldTotal), 1e-9)
}

func TestZeroDailyData(t *testing.T) {
	p := newTestParser(t)
	p.SetYieldDayCorrection(true)
	feedFrame(t, p, buildTestFrame())

	// Latch the hold first, then make sure zeroing releases it.
	require.NoError(t, p.AppendFragment(16, be16(15)))
	p.EndAppendFragment()
	require.InDelta(t, 523, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldDay), 1e-9)

	p.ZeroDailyData()

	assert.InDelta(t, 0, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldDay), 1e-9)
	assert.InDelta(t, 0, p.GetChannelFieldValue(ChannelTypeDC, CH2, FieldYieldDay), 1e-9)
	assert.InDelta(t, 1234.567, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldTotal), 1e-9,
		"lifetime counters survive daily zeroing")

	require.NoError(t, p.AppendFragment(16, be16(17)))
	p.EndAppendFragment()
	assert.InDelta(t, 17, p.GetChannelFieldValue(ChannelTypeDC, CH1, FieldYieldDay), 1e-9,
		"correction accepts fresh values after daily zeroing")
}

func TestChannelEnumeration(t *testing.T) {
	p := newTestParser(t)

	assert.Equal(t, []ChannelType{ChannelTypeAC, ChannelTypeDC, ChannelTypeInverter}, p.GetChannelTypes())
	assert.Equal(t, []ChannelNum{CH0}, p.GetChannelsByType(ChannelTypeAC))
	assert.Equal(t, []ChannelNum{CH1, CH2}, p.GetChannelsByType(ChannelTypeDC))
	assert.Equal(t, []ChannelNum{CH0}, p.GetChannelsByType(ChannelTypeInverter))

	p.SetByteAssignment(nil)
	assert.Empty(t, p.GetChannelTypes())
	assert.Empty(t, p.GetChannelsByType(ChannelTypeDC))
}

func TestValueFormatting(t *testing.T) {
	p := newTestParser(t)
	feedFrame(t, p, buildTestFrame())

	assert.Equal(t, "230.5 V", p.GetChannelFieldValueString(ChannelTypeAC, CH0, FieldUAC))
	assert.Equal(t, "523 Wh", p.GetChannelFieldValueString(ChannelTypeDC, CH1, FieldYieldDay))
	assert.Equal(t, "2.15 A", p.GetChannelFieldValueString(ChannelTypeAC, CH0, FieldIAC))
	assert.Equal(t, "4", p.GetChannelFieldValueString(ChannelTypeInverter, CH0, FieldEventLogCount),
		"unitless values carry no suffix")

	assert.Equal(t, "V", p.GetChannelFieldUnit(ChannelTypeAC, CH0, FieldUAC))
	assert.Equal(t, 1, p.GetChannelFieldDigits(ChannelTypeAC, CH0, FieldUAC))
	assert.Equal(t, "Voltage", p.GetChannelFieldName(ChannelTypeAC, CH0, FieldUAC))
	assert.Equal(t, "YieldDay", p.GetChannelFieldName(ChannelTypeDC, CH1, FieldYieldDay))
}

func TestRxFailureCount(t *testing.T) {
	p := newTestParser(t)
	assert.Equal(t, uint32(0), p.GetRxFailureCount())

	p.IncrementRxFailureCount()
	p.IncrementRxFailureCount()
	assert.Equal(t, uint32(2), p.GetRxFailureCount())

	p.ResetRxFailureCount()
	assert.Equal(t, uint32(0), p.GetRxFailureCount())
}

func TestUpdateStamps(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base

	p := NewStatisticsParser()
	p.SetTimeSource(func() time.Time { return current })
	assert.True(t, p.GetLastUpdate().IsZero(), "no frame ingested yet")

	p.SetByteAssignment(testAssignments())
	assert.Equal(t, base, p.GetLastUpdateFromInternal(), "table swap is a structural mutation")
	assert.True(t, p.GetLastUpdate().IsZero(), "structural mutations leave the telemetry stamp alone")

	current = base.Add(time.Minute)
	p.SetChannelFieldOffset(ChannelTypeDC, CH1, FieldYieldTotal, 2)
	assert.Equal(t, current, p.GetLastUpdateFromInternal())

	frameTime := base.Add(2 * time.Minute)
	p.SetLastUpdate(frameTime)
	assert.Equal(t, frameTime, p.GetLastUpdate())
	assert.Equal(t, frameTime, p.GetLastUpdateFromInternal(), "telemetry updates move both stamps")

	internal := base.Add(3 * time.Minute)
	p.SetLastUpdateFromInternal(internal)
	assert.Equal(t, internal, p.GetLastUpdateFromInternal())
	assert.Equal(t, frameTime, p.GetLastUpdate())
}
