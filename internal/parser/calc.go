package parser

// calcFn computes a derived field from already-decoded channel values. The
// channel argument comes from the Bytes slot of the computed row; only some
// routines use it.
type calcFn func(p *StatisticsParser, arg ChannelNum) float64

// calcFunctions is indexed by the CalcFunc a computed row stores in its
// Start slot. Populated in init to break the initialization cycle through
// the routines' use of (*StatisticsParser).channelFieldValue.
var calcFunctions []calcFn

func init() {
	calcFunctions = []calcFn{
		CalcTotalYieldTotal: calcTotalYieldTotal,
		CalcTotalYieldDay:   calcTotalYieldDay,
		CalcDCVoltage:       calcDCVoltage,
		CalcTotalPowerDC:    calcTotalPowerDC,
		CalcTotalEfficiency: calcTotalEfficiency,
		CalcIrradiation:     calcIrradiation,
		CalcTotalCurrentAC:  calcTotalCurrentAC,
	}
}

// calculate dispatches a computed row to its routine. Caller must hold the
// lock.
func (p *StatisticsParser) calculate(row *ByteAssignment) float64 {
	idx := int(row.Start)
	if idx >= len(calcFunctions) || calcFunctions[idx] == nil {
		p.logger.Debug().Int("function", idx).Msg("Unknown calculation function in assignment table")
		return 0
	}
	return calcFunctions[idx](p, ChannelNum(row.Bytes))
}

// calcTotalYieldTotal sums the lifetime production of all DC channels.
func calcTotalYieldTotal(p *StatisticsParser, _ ChannelNum) float64 {
	var sum float64
	for _, ch := range p.channelsByTypeLocked(ChannelTypeDC) {
		sum += p.channelFieldValue(ChannelTypeDC, ch, FieldYieldTotal)
	}
	return sum
}

// calcTotalYieldDay sums today's production of all DC channels. Held
// channels contribute their last accepted value, so the total never
// regresses either.
func calcTotalYieldDay(p *StatisticsParser, _ ChannelNum) float64 {
	var sum float64
	for _, ch := range p.channelsByTypeLocked(ChannelTypeDC) {
		sum += p.channelFieldValue(ChannelTypeDC, ch, FieldYieldDay)
	}
	return sum
}

// calcDCVoltage reports the DC voltage of the argument channel on the
// device channel, for models that expose a single representative string
// voltage.
func calcDCVoltage(p *StatisticsParser, arg ChannelNum) float64 {
	return p.channelFieldValue(ChannelTypeDC, arg, FieldUDC)
}

// calcTotalPowerDC sums the instantaneous input power of all DC channels.
func calcTotalPowerDC(p *StatisticsParser, _ ChannelNum) float64 {
	var sum float64
	for _, ch := range p.channelsByTypeLocked(ChannelTypeDC) {
		sum += p.channelFieldValue(ChannelTypeDC, ch, FieldPDC)
	}
	return sum
}

// calcTotalEfficiency is AC output over DC input in percent, 0 while the
// inverter produces nothing.
func calcTotalEfficiency(p *StatisticsParser, _ ChannelNum) float64 {
	acPower := p.channelFieldValue(ChannelTypeAC, CH0, FieldPAC)
	var dcPower float64
	for _, ch := range p.channelsByTypeLocked(ChannelTypeDC) {
		dcPower += p.channelFieldValue(ChannelTypeDC, ch, FieldPDC)
	}
	if dcPower > 0 {
		return acPower / dcPower * 100
	}
	return 0
}

// calcIrradiation is the argument channel's input power relative to its
// configured panel power in percent. Without a configured panel power the
// ratio is undefined and reads as 0.
func calcIrradiation(p *StatisticsParser, arg ChannelNum) float64 {
	if int(arg) >= len(p.stringMaxPower) {
		return 0
	}
	maxPower := p.stringMaxPower[arg]
	if maxPower <= 0 {
		return 0
	}
	return p.channelFieldValue(ChannelTypeDC, arg, FieldPDC) / float64(maxPower) * 100
}

// calcTotalCurrentAC sums the grid currents: the three phase fields on
// three-phase models, the per-channel AC current otherwise.
func calcTotalCurrentAC(p *StatisticsParser, _ ChannelNum) float64 {
	if p.assignmentFor(ChannelTypeAC, CH0, FieldIACPhase1) != nil {
		return p.channelFieldValue(ChannelTypeAC, CH0, FieldIACPhase1) +
			p.channelFieldValue(ChannelTypeAC, CH0, FieldIACPhase2) +
			p.channelFieldValue(ChannelTypeAC, CH0, FieldIACPhase3)
	}
	var sum float64
	for _, ch := range p.channelsByTypeLocked(ChannelTypeAC) {
		sum += p.channelFieldValue(ChannelTypeAC, ch, FieldIAC)
	}
	return sum
}
