package parser

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StatisticsParser reassembles statistics frames from radio fragments and
// decodes them through a borrowed byte-assignment table. One instance holds
// the state of one physical inverter. Reads and writes may come from
// different goroutines (radio ingest, API, publisher), so all exported
// methods are safe for concurrent use.
type StatisticsParser struct {
	mu sync.RWMutex

	buffer       [StatisticsPacketSize]byte
	bufferLength int // high-water mark of appended fragment bytes

	assignments   []ByteAssignment
	expectedBytes int

	calibrations []fieldCalibration
	injected     map[fieldKey]float64

	stringMaxPower [ChannelCount]int

	correctionEnabled bool
	lastYieldDay      [ChannelCount]float64
	yieldDayHeld      [ChannelCount]bool

	rxFailureCount         uint32
	lastUpdate             time.Time
	lastUpdateFromInternal time.Time

	logger zerolog.Logger
	now    func() time.Time
}

// NewStatisticsParser creates an empty parser. It decodes nothing until a
// byte assignment table is installed via SetByteAssignment.
func NewStatisticsParser() *StatisticsParser {
	return &StatisticsParser{
		injected: make(map[fieldKey]float64),
		logger:   log.With().Str("component", "parser").Logger(),
		now:      time.Now,
	}
}

// SetCustomLogger allows updating the logger (useful for tests and for
// tagging per-inverter context).
func (p *StatisticsParser) SetCustomLogger(logger *zerolog.Logger) {
	p.logger = logger.With().Str("component", "parser").Logger()
}

// SetTimeSource replaces the wall clock used for internal update stamps
// (useful for tests).
func (p *StatisticsParser) SetTimeSource(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

// SetByteAssignment installs the decode table for the detected inverter
// model and recomputes the expected payload size. The slice is borrowed, not
// copied; callers must not mutate it afterwards.
func (p *StatisticsParser) SetByteAssignment(assignments []ByteAssignment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assignments = assignments
	p.expectedBytes = 0
	for i := range assignments {
		row := &assignments[i]
		if row.Divisor == CalcSentinel {
			continue
		}
		if end := int(row.Start) + int(row.Bytes); end > p.expectedBytes {
			p.expectedBytes = end
		}
	}
	p.lastUpdateFromInternal = p.now()
}

// GetExpectedByteCount reports how many payload bytes a complete statistics
// frame must deliver for the installed table. Computed rows do not count.
func (p *StatisticsParser) GetExpectedByteCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.expectedBytes
}

// ClearBuffer discards any partially assembled frame. Call it before the
// first fragment of a new request cycle.
func (p *StatisticsParser) ClearBuffer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffer = [StatisticsPacketSize]byte{}
	p.bufferLength = 0
}

// AppendFragment copies one radio fragment into the frame buffer at the
// given byte offset. Fragments may arrive out of order and may overlap on
// retransmit. A fragment that would overrun the buffer is rejected and the
// buffer is left unchanged.
func (p *StatisticsParser) AppendFragment(offset int, fragment []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if offset < 0 || offset+len(fragment) > StatisticsPacketSize {
		return fmt.Errorf("fragment out of bounds: offset %d length %d exceeds %d byte buffer",
			offset, len(fragment), StatisticsPacketSize)
	}
	copy(p.buffer[offset:], fragment)
	if end := offset + len(fragment); end > p.bufferLength {
		p.bufferLength = end
	}
	return nil
}

// GetBufferLength returns the high-water mark of appended bytes for the
// frame currently being assembled.
func (p *StatisticsParser) GetBufferLength() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bufferLength
}

// EndAppendFragment finalizes the assembled frame. With yield-day correction
// enabled it compares each DC channel's reported daily yield against the
// last accepted value: a lower reading latches the channel into a hold that
// keeps reporting the old value until ResetYieldDayCorrection is called at
// the real day boundary.
func (p *StatisticsParser) EndAppendFragment() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.correctionEnabled {
		p.resetYieldDayCorrectionLocked()
		return
	}

	for _, ch := range p.channelsByTypeLocked(ChannelTypeDC) {
		row := p.assignmentFor(ChannelTypeDC, ch, FieldYieldDay)
		if row == nil || row.Divisor == CalcSentinel {
			continue
		}
		if p.yieldDayHeld[ch] {
			continue
		}
		value := p.decodeRow(row)
		if value < p.lastYieldDay[ch] {
			p.yieldDayHeld[ch] = true
			p.logger.Debug().
				Int("channel", int(ch)).
				Float64("reported", value).
				Float64("held", p.lastYieldDay[ch]).
				Msg("Yield day regressed, holding last accepted value")
			continue
		}
		p.lastYieldDay[ch] = value
	}
}

// assignmentFor looks up the table row for a triple. Caller must hold the
// lock. Returns nil when the triple is not mapped.
func (p *StatisticsParser) assignmentFor(t ChannelType, ch ChannelNum, field FieldID) *ByteAssignment {
	for i := range p.assignments {
		row := &p.assignments[i]
		if row.Type == t && row.Channel == ch && row.Field == field {
			return row
		}
	}
	return nil
}

// decodeRow extracts a byte-backed row from the frame buffer: big-endian
// accumulation, optional sign extension, divisor scaling and the calibration
// offset. Caller must hold the lock.
func (p *StatisticsParser) decodeRow(row *ByteAssignment) float64 {
	start := int(row.Start)
	end := start + int(row.Bytes)
	if end > StatisticsPacketSize {
		return 0
	}

	var raw uint32
	for i := start; i < end; i++ {
		raw = raw<<8 | uint32(p.buffer[i])
	}

	var value float64
	switch {
	case row.Signed && row.Bytes == 1:
		value = float64(int8(raw))
	case row.Signed && row.Bytes == 2:
		value = float64(int16(raw))
	case row.Signed && row.Bytes == 4:
		value = float64(int32(raw))
	case row.Signed:
		bits := uint(row.Bytes) * 8
		if raw >= 1<<(bits-1) {
			value = float64(int64(raw) - int64(1)<<bits)
		} else {
			value = float64(raw)
		}
	default:
		value = float64(raw)
	}

	if row.Divisor > 0 {
		value /= float64(row.Divisor)
	}
	return value + p.calibrationOffset(row.Type, row.Channel, row.Field)
}

// calibrationOffset returns the additive correction for a triple, zero when
// none is configured. Caller must hold the lock.
func (p *StatisticsParser) calibrationOffset(t ChannelType, ch ChannelNum, field FieldID) float64 {
	for i := range p.calibrations {
		c := &p.calibrations[i]
		if c.typ == t && c.channel == ch && c.field == field {
			return c.offset
		}
	}
	return 0
}

// channelFieldValue resolves a triple without locking: byte-backed rows are
// decoded from the buffer, computed rows dispatch to their calculation
// routine, and unmapped triples fall back to the injected-value store.
func (p *StatisticsParser) channelFieldValue(t ChannelType, ch ChannelNum, field FieldID) float64 {
	row := p.assignmentFor(t, ch, field)
	if row == nil {
		return p.injected[fieldKey{t, ch, field}]
	}
	if row.Divisor == CalcSentinel {
		return p.calculate(row)
	}
	if t == ChannelTypeDC && field == FieldYieldDay && p.correctionEnabled && p.yieldDayHeld[ch] {
		return p.lastYieldDay[ch]
	}
	return p.decodeRow(row)
}

// GetChannelFieldValue returns the decoded value for a triple. Unmapped
// triples without an injected value read as 0.
func (p *StatisticsParser) GetChannelFieldValue(t ChannelType, ch ChannelNum, field FieldID) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.channelFieldValue(t, ch, field)
}

// HasChannelFieldValue reports whether the installed table maps the triple.
func (p *StatisticsParser) HasChannelFieldValue(t ChannelType, ch ChannelNum, field FieldID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.assignmentFor(t, ch, field) != nil
}

// GetChannelFieldValueString formats the value with the row's digit count
// and unit, e.g. "235.4 V".
func (p *StatisticsParser) GetChannelFieldValueString(t ChannelType, ch ChannelNum, field FieldID) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	row := p.assignmentFor(t, ch, field)
	if row == nil {
		return ""
	}
	value := strconv.FormatFloat(p.channelFieldValue(t, ch, field), 'f', int(row.Digits), 64)
	if unit := row.Unit.String(); unit != "" {
		return value + " " + unit
	}
	return value
}

// GetChannelFieldUnit returns the unit symbol of a mapped triple, empty
// otherwise.
func (p *StatisticsParser) GetChannelFieldUnit(t ChannelType, ch ChannelNum, field FieldID) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if row := p.assignmentFor(t, ch, field); row != nil {
		return row.Unit.String()
	}
	return ""
}

// GetChannelFieldName returns the human-readable field name.
func (p *StatisticsParser) GetChannelFieldName(_ ChannelType, _ ChannelNum, field FieldID) string {
	return field.String()
}

// GetChannelFieldDigits returns the number of valid decimal digits for a
// mapped triple.
func (p *StatisticsParser) GetChannelFieldDigits(t ChannelType, ch ChannelNum, field FieldID) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if row := p.assignmentFor(t, ch, field); row != nil {
		return int(row.Digits)
	}
	return 0
}

// SetChannelFieldValue injects a value for a triple the assignment table
// does not map, so external components can attach readings the inverter
// itself never reports. Writes to mapped triples are rejected.
func (p *StatisticsParser) SetChannelFieldValue(t ChannelType, ch ChannelNum, field FieldID, value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.assignmentFor(t, ch, field) != nil {
		return fmt.Errorf("%s channel %d field %s is mapped by the assignment table", t, ch, field)
	}
	p.injected[fieldKey{t, ch, field}] = value
	p.lastUpdateFromInternal = p.now()
	return nil
}

// GetChannelFieldOffset returns the calibration offset for a triple, 0 when
// unset.
func (p *StatisticsParser) GetChannelFieldOffset(t ChannelType, ch ChannelNum, field FieldID) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calibrationOffset(t, ch, field)
}

// SetChannelFieldOffset sets an additive calibration offset applied to every
// subsequent read of the triple.
func (p *StatisticsParser) SetChannelFieldOffset(t ChannelType, ch ChannelNum, field FieldID, offset float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.calibrations {
		c := &p.calibrations[i]
		if c.typ == t && c.channel == ch && c.field == field {
			c.offset = offset
			p.lastUpdateFromInternal = p.now()
			return
		}
	}
	p.calibrations = append(p.calibrations, fieldCalibration{typ: t, channel: ch, field: field, offset: offset})
	p.lastUpdateFromInternal = p.now()
}

// GetChannelTypes enumerates the channel types present in the installed
// table, in declaration order of the type enum.
func (p *StatisticsParser) GetChannelTypes() []ChannelType {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var present [channelTypeCount]bool
	for i := range p.assignments {
		present[p.assignments[i].Type] = true
	}
	types := make([]ChannelType, 0, channelTypeCount)
	for t := ChannelType(0); t < channelTypeCount; t++ {
		if present[t] {
			types = append(types, t)
		}
	}
	return types
}

// GetChannelsByType enumerates the channels the table maps for one channel
// type, in ascending order.
func (p *StatisticsParser) GetChannelsByType(t ChannelType) []ChannelNum {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.channelsByTypeLocked(t)
}

func (p *StatisticsParser) channelsByTypeLocked(t ChannelType) []ChannelNum {
	var present [ChannelCount]bool
	for i := range p.assignments {
		if p.assignments[i].Type == t {
			present[p.assignments[i].Channel] = true
		}
	}
	channels := make([]ChannelNum, 0, ChannelCount)
	for ch := CH0; ch < ChannelCount; ch++ {
		if present[ch] {
			channels = append(channels, ch)
		}
	}
	return channels
}

// SetStringMaxPower records the nameplate power of the panel attached to a
// DC channel. A value of 0 means unknown and disables the irradiation
// calculation for that channel.
func (p *StatisticsParser) SetStringMaxPower(ch ChannelNum, maxPower int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(ch) >= len(p.stringMaxPower) {
		return
	}
	p.stringMaxPower[ch] = maxPower
	p.lastUpdateFromInternal = p.now()
}

// GetStringMaxPower returns the configured panel power for a DC channel.
func (p *StatisticsParser) GetStringMaxPower(ch ChannelNum) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if int(ch) >= len(p.stringMaxPower) {
		return 0
	}
	return p.stringMaxPower[ch]
}

// SetYieldDayCorrection enables or disables the daily-yield regression
// hold.
func (p *StatisticsParser) SetYieldDayCorrection(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.correctionEnabled = enabled
}

// GetYieldDayCorrection reports whether the regression hold is enabled.
func (p *StatisticsParser) GetYieldDayCorrection() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.correctionEnabled
}

// ResetYieldDayCorrection releases all holds and clears the per-channel
// baselines. The scheduler calls this at the local day boundary, after
// which any reported value is accepted again.
func (p *StatisticsParser) ResetYieldDayCorrection() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetYieldDayCorrectionLocked()
}

func (p *StatisticsParser) resetYieldDayCorrectionLocked() {
	p.lastYieldDay = [ChannelCount]float64{}
	p.yieldDayHeld = [ChannelCount]bool{}
}

// ZeroRuntimeData zeroes all instantaneous readings (power, current,
// voltage, temperature and the like) while leaving production counters
// untouched. Used when an inverter stops responding.
func (p *StatisticsParser) ZeroRuntimeData() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.zeroFieldsLocked(runtimeFields)
}

// ZeroDailyData zeroes the daily production counters and their correction
// state. Used for inverters that stayed offline across a day boundary and
// therefore never report their own counter reset.
func (p *StatisticsParser) ZeroDailyData() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.zeroFieldsLocked(dailyProductionFields)
	p.resetYieldDayCorrectionLocked()
}

func (p *StatisticsParser) zeroFieldsLocked(fields []FieldID) {
	zeroed := func(f FieldID) bool {
		for _, z := range fields {
			if z == f {
				return true
			}
		}
		return false
	}

	for i := range p.assignments {
		row := &p.assignments[i]
		if row.Divisor == CalcSentinel || !zeroed(row.Field) {
			continue
		}
		start := int(row.Start)
		end := start + int(row.Bytes)
		if end > StatisticsPacketSize {
			continue
		}
		for j := start; j < end; j++ {
			p.buffer[j] = 0
		}
	}
	for key := range p.injected {
		if zeroed(key.field) {
			p.injected[key] = 0
		}
	}
	p.lastUpdateFromInternal = p.now()
}

// IncrementRxFailureCount counts one failed request cycle (timeout, CRC
// mismatch, incomplete reassembly).
func (p *StatisticsParser) IncrementRxFailureCount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rxFailureCount++
}

// ResetRxFailureCount clears the failure counter.
func (p *StatisticsParser) ResetRxFailureCount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rxFailureCount = 0
}

// GetRxFailureCount returns the number of failed request cycles since the
// last reset.
func (p *StatisticsParser) GetRxFailureCount() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rxFailureCount
}

// SetLastUpdate records the arrival time of the most recent complete
// telemetry frame. The internal stamp follows it so consumers keyed on
// either notice the update.
func (p *StatisticsParser) SetLastUpdate(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastUpdate = t
	p.lastUpdateFromInternal = t
}

// GetLastUpdate returns the arrival time of the most recent telemetry
// frame. The zero time means no frame has ever been ingested.
func (p *StatisticsParser) GetLastUpdate() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastUpdate
}

// SetLastUpdateFromInternal records a state change that did not come from
// the inverter itself (zeroing, calibration, injected values).
func (p *StatisticsParser) SetLastUpdateFromInternal(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastUpdateFromInternal = t
}

// GetLastUpdateFromInternal returns the time of the last internal or
// external state change.
func (p *StatisticsParser) GetLastUpdateFromInternal() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastUpdateFromInternal
}
