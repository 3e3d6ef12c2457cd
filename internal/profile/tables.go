package profile

import (
	"github.com/shibida/go-dtu/internal/parser"
)

// The tables below mirror the statistics record layouts of the supported
// hardware families. Offsets are byte positions in the reassembled frame;
// byte 0-1 carry the record preamble and are not mapped. Multi-string
// models wire two strings to one MPPT, so string pairs share a voltage
// reading.

var hm1CHAssignments = []parser.ByteAssignment{
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 2, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 4, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 6, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 8, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 12, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH0), Divisor: parser.CalcSentinel, Digits: 3},

	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldUAC, Unit: parser.UnitVolt, Start: 14, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldFrequency, Unit: parser.UnitHertz, Start: 16, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldPAC, Unit: parser.UnitWatt, Start: 18, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldReactivePower, Unit: parser.UnitVar, Start: 20, Bytes: 2, Divisor: 10, Signed: true, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldIAC, Unit: parser.UnitAmpere, Start: 22, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldPowerFactor, Unit: parser.UnitNone, Start: 24, Bytes: 2, Divisor: 1000, Digits: 3},

	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldTemperature, Unit: parser.UnitCelsius, Start: 26, Bytes: 2, Divisor: 10, Signed: true, Digits: 1},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldEventLogCount, Unit: parser.UnitNone, Start: 28, Bytes: 2, Divisor: 1, Digits: 0},

	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: uint8(parser.CalcTotalYieldDay), Divisor: parser.CalcSentinel, Digits: 0},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: uint8(parser.CalcTotalYieldTotal), Divisor: parser.CalcSentinel, Digits: 3},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: uint8(parser.CalcTotalPowerDC), Divisor: parser.CalcSentinel, Digits: 1},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldEfficiency, Unit: parser.UnitPercent, Start: uint8(parser.CalcTotalEfficiency), Divisor: parser.CalcSentinel, Digits: 3},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: uint8(parser.CalcDCVoltage), Bytes: uint8(parser.CH0), Divisor: parser.CalcSentinel, Digits: 1},
}

var hm2CHAssignments = []parser.ByteAssignment{
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 2, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 4, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 6, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 14, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 22, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH0), Divisor: parser.CalcSentinel, Digits: 3},

	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 8, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 10, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 12, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 18, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 24, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH1), Divisor: parser.CalcSentinel, Digits: 3},

	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldUAC, Unit: parser.UnitVolt, Start: 26, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldFrequency, Unit: parser.UnitHertz, Start: 28, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldPAC, Unit: parser.UnitWatt, Start: 30, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldReactivePower, Unit: parser.UnitVar, Start: 32, Bytes: 2, Divisor: 10, Signed: true, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldIAC, Unit: parser.UnitAmpere, Start: 34, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldPowerFactor, Unit: parser.UnitNone, Start: 36, Bytes: 2, Divisor: 1000, Digits: 3},

	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldTemperature, Unit: parser.UnitCelsius, Start: 38, Bytes: 2, Divisor: 10, Signed: true, Digits: 1},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldEventLogCount, Unit: parser.UnitNone, Start: 40, Bytes: 2, Divisor: 1, Digits: 0},

	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: uint8(parser.CalcTotalYieldDay), Divisor: parser.CalcSentinel, Digits: 0},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: uint8(parser.CalcTotalYieldTotal), Divisor: parser.CalcSentinel, Digits: 3},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: uint8(parser.CalcTotalPowerDC), Divisor: parser.CalcSentinel, Digits: 1},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldEfficiency, Unit: parser.UnitPercent, Start: uint8(parser.CalcTotalEfficiency), Divisor: parser.CalcSentinel, Digits: 3},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: uint8(parser.CalcDCVoltage), Bytes: uint8(parser.CH0), Divisor: parser.CalcSentinel, Digits: 1},
}

var hm4CHAssignments = []parser.ByteAssignment{
	// MPPT 1 feeds strings CH0 and CH1.
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 2, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 4, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 8, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 12, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 20, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH0), Divisor: parser.CalcSentinel, Digits: 3},

	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 2, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 6, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 10, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 16, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 22, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH1), Divisor: parser.CalcSentinel, Digits: 3},

	// MPPT 2 feeds strings CH2 and CH3.
	{Type: parser.ChannelTypeDC, Channel: parser.CH2, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 24, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH2, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 26, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH2, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 30, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH2, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 34, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH2, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 42, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH2, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH2), Divisor: parser.CalcSentinel, Digits: 3},

	{Type: parser.ChannelTypeDC, Channel: parser.CH3, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 24, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH3, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 28, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH3, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 32, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH3, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 38, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH3, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 44, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH3, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH3), Divisor: parser.CalcSentinel, Digits: 3},

	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldUAC, Unit: parser.UnitVolt, Start: 46, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldFrequency, Unit: parser.UnitHertz, Start: 48, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldPAC, Unit: parser.UnitWatt, Start: 50, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldReactivePower, Unit: parser.UnitVar, Start: 52, Bytes: 2, Divisor: 10, Signed: true, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldIAC, Unit: parser.UnitAmpere, Start: 54, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldPowerFactor, Unit: parser.UnitNone, Start: 56, Bytes: 2, Divisor: 1000, Digits: 3},

	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldTemperature, Unit: parser.UnitCelsius, Start: 58, Bytes: 2, Divisor: 10, Signed: true, Digits: 1},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldEventLogCount, Unit: parser.UnitNone, Start: 60, Bytes: 2, Divisor: 1, Digits: 0},

	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: uint8(parser.CalcTotalYieldDay), Divisor: parser.CalcSentinel, Digits: 0},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: uint8(parser.CalcTotalYieldTotal), Divisor: parser.CalcSentinel, Digits: 3},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: uint8(parser.CalcTotalPowerDC), Divisor: parser.CalcSentinel, Digits: 1},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldEfficiency, Unit: parser.UnitPercent, Start: uint8(parser.CalcTotalEfficiency), Divisor: parser.CalcSentinel, Digits: 3},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: uint8(parser.CalcDCVoltage), Bytes: uint8(parser.CH0), Divisor: parser.CalcSentinel, Digits: 1},
}

var hmt6CHAssignments = []parser.ByteAssignment{
	// MPPT 1 feeds strings CH0 and CH1.
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 2, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 4, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 8, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 12, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 20, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH0, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH0), Divisor: parser.CalcSentinel, Digits: 3},

	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 2, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 6, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 10, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 16, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 22, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH1, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH1), Divisor: parser.CalcSentinel, Digits: 3},

	// MPPT 2 feeds strings CH2 and CH3.
	{Type: parser.ChannelTypeDC, Channel: parser.CH2, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 24, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH2, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 26, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH2, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 30, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH2, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 34, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH2, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 42, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH2, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH2), Divisor: parser.CalcSentinel, Digits: 3},

	{Type: parser.ChannelTypeDC, Channel: parser.CH3, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 24, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH3, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 28, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH3, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 32, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH3, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 38, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH3, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 44, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH3, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH3), Divisor: parser.CalcSentinel, Digits: 3},

	// MPPT 3 feeds strings CH4 and CH5.
	{Type: parser.ChannelTypeDC, Channel: parser.CH4, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 46, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH4, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 48, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH4, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 52, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH4, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 56, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH4, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 64, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH4, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH4), Divisor: parser.CalcSentinel, Digits: 3},

	{Type: parser.ChannelTypeDC, Channel: parser.CH5, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: 46, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH5, Field: parser.FieldIDC, Unit: parser.UnitAmpere, Start: 50, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeDC, Channel: parser.CH5, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: 54, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeDC, Channel: parser.CH5, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: 60, Bytes: 4, Divisor: 1000, Digits: 3},
	{Type: parser.ChannelTypeDC, Channel: parser.CH5, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: 66, Bytes: 2, Divisor: 1, Digits: 0},
	{Type: parser.ChannelTypeDC, Channel: parser.CH5, Field: parser.FieldIrradiation, Unit: parser.UnitPercent, Start: uint8(parser.CalcIrradiation), Bytes: uint8(parser.CH5), Divisor: parser.CalcSentinel, Digits: 3},

	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldUACPhase1N, Unit: parser.UnitVolt, Start: 68, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldUACPhase2N, Unit: parser.UnitVolt, Start: 70, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldUACPhase3N, Unit: parser.UnitVolt, Start: 72, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldUACPhase12, Unit: parser.UnitVolt, Start: 74, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldUACPhase23, Unit: parser.UnitVolt, Start: 76, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldUACPhase31, Unit: parser.UnitVolt, Start: 78, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldFrequency, Unit: parser.UnitHertz, Start: 80, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldPAC, Unit: parser.UnitWatt, Start: 82, Bytes: 2, Divisor: 10, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldReactivePower, Unit: parser.UnitVar, Start: 84, Bytes: 2, Divisor: 10, Signed: true, Digits: 1},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldIACPhase1, Unit: parser.UnitAmpere, Start: 86, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldIACPhase2, Unit: parser.UnitAmpere, Start: 88, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldIACPhase3, Unit: parser.UnitAmpere, Start: 90, Bytes: 2, Divisor: 100, Digits: 2},
	{Type: parser.ChannelTypeAC, Channel: parser.CH0, Field: parser.FieldPowerFactor, Unit: parser.UnitNone, Start: 92, Bytes: 2, Divisor: 1000, Digits: 3},

	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldTemperature, Unit: parser.UnitCelsius, Start: 94, Bytes: 2, Divisor: 10, Signed: true, Digits: 1},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldEventLogCount, Unit: parser.UnitNone, Start: 96, Bytes: 2, Divisor: 1, Digits: 0},

	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldYieldDay, Unit: parser.UnitWattHour, Start: uint8(parser.CalcTotalYieldDay), Divisor: parser.CalcSentinel, Digits: 0},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldYieldTotal, Unit: parser.UnitKilowattHour, Start: uint8(parser.CalcTotalYieldTotal), Divisor: parser.CalcSentinel, Digits: 3},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldPDC, Unit: parser.UnitWatt, Start: uint8(parser.CalcTotalPowerDC), Divisor: parser.CalcSentinel, Digits: 1},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldEfficiency, Unit: parser.UnitPercent, Start: uint8(parser.CalcTotalEfficiency), Divisor: parser.CalcSentinel, Digits: 3},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldIAC, Unit: parser.UnitAmpere, Start: uint8(parser.CalcTotalCurrentAC), Divisor: parser.CalcSentinel, Digits: 2},
	{Type: parser.ChannelTypeInverter, Channel: parser.CH0, Field: parser.FieldUDC, Unit: parser.UnitVolt, Start: uint8(parser.CalcDCVoltage), Bytes: uint8(parser.CH0), Divisor: parser.CalcSentinel, Digits: 1},
}
