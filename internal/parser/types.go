// Package parser implements the statistics value model for Hoymiles-style
// microinverters: fragment reassembly, table-driven byte decoding, derived
// field calculation and yield-day correction.
package parser

import "strings"

// StatisticsPacketSize is the fixed capacity of one reassembled statistics
// frame. Inverters deliver at most seven 16-byte radio fragments per frame.
const StatisticsPacketSize = 7 * 16

// CalcSentinel in the Divisor slot marks a row as computed rather than read
// from the frame buffer. For such rows Start selects the calculation routine
// and Bytes carries its channel argument.
const CalcSentinel uint16 = 0xFFFF

// ChannelType groups the measurement channels an inverter exposes.
type ChannelType uint8

const (
	ChannelTypeAC ChannelType = iota
	ChannelTypeDC
	ChannelTypeInverter
	channelTypeCount
)

var channelTypeNames = [channelTypeCount]string{"AC", "DC", "INV"}

// String returns the short channel-type name used on wire topics and in the
// live-data document.
func (t ChannelType) String() string {
	if int(t) >= len(channelTypeNames) {
		return "unknown"
	}
	return channelTypeNames[t]
}

// ChannelNum identifies one logical channel within a channel type. AC and
// inverter-wide values live on CH0; DC strings count up from CH0 in panel
// order.
type ChannelNum uint8

const (
	CH0 ChannelNum = iota
	CH1
	CH2
	CH3
	CH4
	CH5
	ChannelCount
)

// FieldID names a measured or derived quantity.
type FieldID uint8

const (
	FieldUDC FieldID = iota // DC voltage
	FieldIDC                // DC current
	FieldPDC                // DC power
	FieldYieldDay
	FieldYieldTotal
	FieldUAC
	FieldIAC
	FieldPAC
	FieldFrequency
	FieldTemperature
	FieldPowerFactor
	FieldEfficiency
	FieldIrradiation
	FieldReactivePower
	FieldEventLogCount
	// Three-phase models only.
	FieldUACPhase1N
	FieldUACPhase2N
	FieldUACPhase3N
	FieldUACPhase12
	FieldUACPhase23
	FieldUACPhase31
	FieldIACPhase1
	FieldIACPhase2
	FieldIACPhase3
	fieldCount
)

var fieldNames = [fieldCount]string{
	"Voltage", "Current", "Power", "YieldDay", "YieldTotal",
	"Voltage", "Current", "Power", "Frequency", "Temperature",
	"PowerFactor", "Efficiency", "Irradiation", "ReactivePower", "EventLogCount",
	"Voltage Ph1-N", "Voltage Ph2-N", "Voltage Ph3-N",
	"Voltage Ph1-Ph2", "Voltage Ph2-Ph3", "Voltage Ph3-Ph1",
	"Current Ph1", "Current Ph2", "Current Ph3",
}

// String returns the human-readable field name.
func (f FieldID) String() string {
	if int(f) >= len(fieldNames) {
		return "unknown"
	}
	return fieldNames[f]
}

// TopicName returns the lower-case field name used as a topic segment and
// live-data document key.
func (f FieldID) TopicName() string {
	return strings.ReplaceAll(strings.ToLower(f.String()), " ", "_")
}

// AllFields lists every defined field identifier, for consumers that
// enumerate a channel's mapped fields.
func AllFields() []FieldID {
	fields := make([]FieldID, fieldCount)
	for i := range fields {
		fields[i] = FieldID(i)
	}
	return fields
}

// UnitID indexes the static unit table.
type UnitID uint8

const (
	UnitVolt UnitID = iota
	UnitAmpere
	UnitWatt
	UnitWattHour
	UnitKilowattHour
	UnitHertz
	UnitCelsius
	UnitPercent
	UnitVar
	UnitNone
	unitCount
)

var unitNames = [unitCount]string{"V", "A", "W", "Wh", "kWh", "Hz", "°C", "%", "var", ""}

// String returns the unit symbol, empty for UnitNone.
func (u UnitID) String() string {
	if int(u) >= len(unitNames) {
		return ""
	}
	return unitNames[u]
}

// CalcFunc selects one of the derived-field calculation routines. The value
// is stored in the Start slot of a computed row.
type CalcFunc uint8

const (
	CalcTotalYieldTotal CalcFunc = iota
	CalcTotalYieldDay
	CalcDCVoltage
	CalcTotalPowerDC
	CalcTotalEfficiency
	CalcIrradiation
	CalcTotalCurrentAC
)

// ByteAssignment describes how one (channel type, channel, field) triple is
// decoded from the statistics frame. Tables of these rows are owned by the
// device profile and borrowed by the parser; they must stay immutable and
// alive for the parser's lifetime.
type ByteAssignment struct {
	Type    ChannelType
	Channel ChannelNum
	Field   FieldID
	Unit    UnitID
	Start   uint8  // position of the first byte in the frame buffer
	Bytes   uint8  // number of bytes, 1-4
	Divisor uint16 // scale divisor applied to the raw integer, or CalcSentinel
	Signed  bool
	Digits  uint8 // valid digits after the decimal point
}

// fieldCalibration is a sparse additive correction for one decoded field,
// created lazily on the first SetChannelFieldOffset call.
type fieldCalibration struct {
	typ     ChannelType
	channel ChannelNum
	field   FieldID
	offset  float64
}

// fieldKey identifies a (channel type, channel, field) triple in the
// injected-value store.
type fieldKey struct {
	typ     ChannelType
	channel ChannelNum
	field   FieldID
}

// runtimeFields are zeroed when an inverter stops responding, so consumers
// see production drop to zero instead of a frozen last reading.
var runtimeFields = []FieldID{
	FieldUDC, FieldIDC, FieldPDC, FieldUAC, FieldIAC, FieldPAC,
	FieldFrequency, FieldTemperature, FieldPowerFactor, FieldEfficiency,
	FieldIrradiation, FieldReactivePower,
	FieldUACPhase1N, FieldUACPhase2N, FieldUACPhase3N,
	FieldUACPhase12, FieldUACPhase23, FieldUACPhase31,
	FieldIACPhase1, FieldIACPhase2, FieldIACPhase3,
}

// dailyProductionFields are zeroed at the day boundary for inverters that
// have been offline too long to report their own counter reset.
var dailyProductionFields = []FieldID{
	FieldYieldDay,
}
