// Package chip models the register state of the two Mega Drive sound chips.
// The models track every documented register field bit-exactly but run no
// synthesis: they exist to answer "what is this channel configured as" and
// "is this channel sounding" while a command log is replayed against them.
package chip

import "fmt"

// FMChannels is the YM2612 channel count.
const FMChannels = 6

// Channel 3 mode values (register $27 bits 7-6)
const (
	Ch3ModeNormal  = 0 // All operators share frequency
	Ch3ModeSpecial = 1 // Per-operator frequencies
	Ch3ModeCSM     = 2 // Per-operator frequencies + Timer A overflow key-on
)

// fmOperator holds decoded register state for one of four operators in a channel.
type fmOperator struct {
	dt  uint8 // Detune (3-bit: bit2=sign, bits1-0=value)
	mul uint8 // Frequency multiplier (4-bit, 0=x0.5, 1-15=x1..x15)
	tl  uint8 // Total level / attenuation (7-bit, 0=max vol, 127=min)
	rs  uint8 // Rate scaling (2-bit)
	ar  uint8 // Attack rate (5-bit)
	d1r uint8 // Decay 1 rate (5-bit) (aka DR)
	d2r uint8 // Decay 2 rate (5-bit) (aka SR)
	d1l uint8 // Decay 1 level / sustain level (4-bit)
	rr  uint8 // Release rate (4-bit)
	am  bool  // AM enable (amplitude modulation from LFO)

	ssgEG uint8 // SSG-EG mode (4-bit)

	keyOn bool // Current key-on state
}

// freqLatch buffers a block + F-number MSB write until the matching LSB
// write arrives. The hardware applies both halves on the LSB write, so an
// intermediate mixed frequency is never observable.
type freqLatch struct {
	block  uint8
	fNumHi uint8
	armed  bool
}

// fmChannel holds decoded register state for one of six FM channels.
type fmChannel struct {
	op [4]fmOperator

	// Frequency registers
	fNum  uint16 // 11-bit F-number
	block uint8  // 3-bit block (octave)
	latch freqLatch

	// Channel registers
	algorithm uint8 // 3-bit algorithm (0-7)
	feedback  uint8 // 3-bit feedback level (0=disabled, 1-7)
	panL      bool  // Left output enable
	panR      bool  // Right output enable
	ams       uint8 // 2-bit AM sensitivity
	fms       uint8 // 3-bit FM sensitivity
}

// YM2612 tracks the register state of the Yamaha YM2612 (OPN2) FM chip.
type YM2612 struct {
	clockHz int

	ch [FMChannels]fmChannel

	// Key-on edge counters, incremented whenever a $28 write keys at least
	// one operator of a channel that was previously off. Lets observers
	// distinguish a retrigger from an unchanged held key.
	keyEdges [FMChannels]uint32

	// DAC
	dacEnable bool
	dacSample uint8 // 8-bit unsigned DAC sample

	// LFO
	lfoEnable bool
	lfoFreq   uint8 // 3-bit LFO frequency select

	// Timer periods and control bits (stored, never run)
	timerAPeriod uint16 // 10-bit
	timerBPeriod uint8
	timerALoad   bool
	timerBLoad   bool
	timerAEnable bool
	timerBEnable bool

	// Channel 3 mode (normal/special/CSM)
	ch3Mode  uint8
	ch3Freq  [3]uint16 // Per-operator F-number for ch3 slots S1-S3
	ch3Block [3]uint8  // Per-operator block for ch3 slots S1-S3
	ch3Latch [3]freqLatch
}

// NewYM2612 creates a YM2612 state model in its power-on configuration.
// clockHz is the chip's master clock (the 68K clock, NTSC ~7.67MHz).
func NewYM2612(clockHz int) *YM2612 {
	y := &YM2612{clockHz: clockHz}
	// Hardware reset leaves panning enabled (L+R) on all channels
	for ch := range y.ch {
		y.ch[ch].panL = true
		y.ch[ch].panR = true
	}
	return y
}

// ClockHz returns the chip clock the model was created with.
func (y *YM2612) ClockHz() int {
	return y.clockHz
}

// Write applies one address/data register write to the given part.
// part: 0 = Part I (channels 0-2), 1 = Part II (channels 3-5)
// It returns a bitmask of channels (bit 0 = channel 0) whose derived state
// may have changed. A part outside 0/1 cannot be produced by a correct
// command decoder and is reported as an error.
func (y *YM2612) Write(part int, addr, val uint8) (uint8, error) {
	if part != 0 && part != 1 {
		return 0, fmt.Errorf("ym2612: invalid part %d for register $%02X", part, addr)
	}

	switch {
	case addr < 0x20:
		// Invalid register range (below $20)
		return 0, nil
	case addr < 0x30:
		// Global registers $20-$2F (only valid in Part I)
		if part == 0 {
			return y.writeGlobalRegister(addr, val), nil
		}
		return 0, nil
	case addr < 0xA0:
		// Operator registers $30-$9F
		return y.writeOperatorRegister(part, addr, val), nil
	default:
		// Channel registers $A0-$B6
		return y.writeChannelRegister(part, addr, val), nil
	}
}

// writeGlobalRegister handles writes to registers $20-$2F.
func (y *YM2612) writeGlobalRegister(addr, val uint8) uint8 {
	switch addr {
	case 0x22:
		// LFO control. The LFO setting is part of every channel's timbre,
		// so all six channels are affected.
		y.lfoEnable = val&0x08 != 0
		y.lfoFreq = val & 0x07
		return 0x3F
	case 0x24:
		// Timer A MSB (high 8 bits of 10-bit period)
		y.timerAPeriod = (y.timerAPeriod & 0x003) | (uint16(val) << 2)
	case 0x25:
		// Timer A LSB (low 2 bits of 10-bit period)
		y.timerAPeriod = (y.timerAPeriod & 0x3FC) | uint16(val&0x03)
	case 0x26:
		// Timer B period (8-bit)
		y.timerBPeriod = val
	case 0x27:
		// Timer control / Channel 3 mode
		y.ch3Mode = (val >> 6) & 0x03
		y.timerALoad = val&0x01 != 0
		y.timerBLoad = val&0x02 != 0
		y.timerAEnable = val&0x04 != 0
		y.timerBEnable = val&0x08 != 0
		// Bits 4-5 reset the timer overflow flags; nothing to track here.
		// The mode switch changes how channel 3 derives its pitch.
		return 0x04
	case 0x28:
		// Key on/off
		return y.writeKeyOnOff(val)
	case 0x2A:
		// DAC data
		y.dacSample = val
	case 0x2B:
		// DAC enable. While set, channel 5's FM output is replaced by
		// the DAC, which changes whether that channel counts as sounding.
		y.dacEnable = val&0x80 != 0
		return 0x20
	}
	return 0
}

// operatorOrder maps register slot bits to operator index.
// Register order is S1(0), S3(1), S2(2), S4(3) but we store as 0,1,2,3 = S1,S2,S3,S4.
// So register slot 0->op0(S1), slot 1->op2(S3), slot 2->op1(S2), slot 3->op3(S4).
var operatorOrder = [4]int{0, 2, 1, 3}

// writeOperatorRegister handles writes to registers $30-$9F.
func (y *YM2612) writeOperatorRegister(part int, addr, val uint8) uint8 {
	chSlot := int(addr & 0x03)
	if chSlot == 3 {
		return 0 // Invalid channel slot
	}
	opSlot := int((addr >> 2) & 0x03)
	opIdx := operatorOrder[opSlot]
	chIdx := chSlot + part*3

	op := &y.ch[chIdx].op[opIdx]

	switch addr & 0xF0 {
	case 0x30:
		// DT1/MUL
		op.dt = (val >> 4) & 0x07
		op.mul = val & 0x0F
	case 0x40:
		// TL (Total Level)
		op.tl = val & 0x7F
	case 0x50:
		// RS/AR
		op.rs = (val >> 6) & 0x03
		op.ar = val & 0x1F
	case 0x60:
		// AM/D1R
		op.am = val&0x80 != 0
		op.d1r = val & 0x1F
	case 0x70:
		// D2R
		op.d2r = val & 0x1F
	case 0x80:
		// D1L/RR
		op.d1l = (val >> 4) & 0x0F
		op.rr = val & 0x0F
	case 0x90:
		// SSG-EG
		op.ssgEG = val & 0x0F
	}
	return 1 << chIdx
}

// writeChannelRegister handles writes to registers $A0-$B6.
func (y *YM2612) writeChannelRegister(part int, addr, val uint8) uint8 {
	chSlot := int(addr & 0x03)
	if chSlot == 3 {
		return 0 // Invalid channel slot
	}
	chIdx := chSlot + part*3
	ch := &y.ch[chIdx]

	switch {
	case addr >= 0xA0 && addr <= 0xA2:
		// F-Number LSB. Commits the latched block + MSB pair when one is
		// armed; a bare LSB write merges with the current high bits.
		if ch.latch.armed {
			ch.block = ch.latch.block
			ch.fNum = (uint16(ch.latch.fNumHi) << 8) | uint16(val)
			ch.latch.armed = false
		} else {
			ch.fNum = (ch.fNum & 0x700) | uint16(val)
		}
		return 1 << chIdx
	case addr >= 0xA4 && addr <= 0xA6:
		// Block + F-Number MSB, latched until the LSB write
		ch.latch.block = (val >> 3) & 0x07
		ch.latch.fNumHi = val & 0x07
		ch.latch.armed = true
		return 0
	case addr >= 0xA8 && addr <= 0xAA:
		// Channel 3 special mode: per-operator F-Number LSB (slots S1-S3)
		slot := int(addr - 0xA8)
		if part != 0 {
			return 0
		}
		l := &y.ch3Latch[slot]
		if l.armed {
			y.ch3Block[slot] = l.block
			y.ch3Freq[slot] = (uint16(l.fNumHi) << 8) | uint16(val)
			l.armed = false
		} else {
			y.ch3Freq[slot] = (y.ch3Freq[slot] & 0x700) | uint16(val)
		}
		if y.ch3Mode != Ch3ModeNormal {
			return 0x04
		}
		return 0
	case addr >= 0xAC && addr <= 0xAE:
		// Channel 3 special mode: per-operator block + F-Number MSB, latched
		slot := int(addr - 0xAC)
		if part != 0 {
			return 0
		}
		y.ch3Latch[slot].block = (val >> 3) & 0x07
		y.ch3Latch[slot].fNumHi = val & 0x07
		y.ch3Latch[slot].armed = true
		return 0
	case addr >= 0xB0 && addr <= 0xB2:
		// Feedback/Algorithm
		ch.algorithm = val & 0x07
		ch.feedback = (val >> 3) & 0x07
		return 1 << chIdx
	case addr >= 0xB4 && addr <= 0xB6:
		// Panning/AMS/FMS
		ch.panL = val&0x80 != 0
		ch.panR = val&0x40 != 0
		ch.ams = (val >> 4) & 0x03
		ch.fms = val & 0x07
		return 1 << chIdx
	}
	return 0
}

// writeKeyOnOff handles the Key On/Off register ($28).
// val bits 0-2: channel (0-2=Part I, 4-6=Part II)
// val bits 4-7: operator enable (bit4=S1, bit5=S2, bit6=S3, bit7=S4)
func (y *YM2612) writeKeyOnOff(val uint8) uint8 {
	chLow := int(val & 0x03)
	if chLow >= 3 {
		return 0 // Invalid
	}
	chIdx := chLow
	if val&0x04 != 0 {
		chIdx += 3 // Part II channels
	}

	ch := &y.ch[chIdx]
	edge := false
	for i := 0; i < 4; i++ {
		on := val&(0x10<<uint(i)) != 0
		op := &ch.op[i]
		if on && !op.keyOn {
			edge = true
		}
		op.keyOn = on
	}
	if edge {
		y.keyEdges[chIdx]++
	}
	return 1 << chIdx
}

// KeyOn reports whether any operator of the channel currently has its key
// bit set.
func (y *YM2612) KeyOn(ch int) bool {
	if ch < 0 || ch >= FMChannels {
		return false
	}
	for i := range y.ch[ch].op {
		if y.ch[ch].op[i].keyOn {
			return true
		}
	}
	return false
}

// KeyEdges returns the number of key-on edges seen on the channel so far.
// The counter advances once per $28 write that keys at least one previously
// off operator, so comparing values across writes detects retriggers.
func (y *YM2612) KeyEdges(ch int) uint32 {
	if ch < 0 || ch >= FMChannels {
		return 0
	}
	return y.keyEdges[ch]
}

// carrierMask maps algorithm to the set of carrier operators (bit i = op i
// in S1,S2,S3,S4 storage order). Algorithms 0-3 route only S4 to the
// output; 4 adds S2; 5 and 6 add S3; 7 makes every operator a carrier.
var carrierMask = [8]uint8{0x08, 0x08, 0x08, 0x08, 0x0A, 0x0E, 0x0E, 0x0F}

// Carriers returns the carrier operator mask for an algorithm (bit i =
// operator i in S1,S2,S3,S4 order).
func Carriers(algorithm uint8) uint8 {
	return carrierMask[algorithm&0x07]
}

// IsSounding reports whether the channel is producing audible FM output:
// at least one carrier operator of the current algorithm is keyed with a
// total level below maximum attenuation. Channel 5 stops sounding as an FM
// voice while the DAC has taken over its slot.
func (y *YM2612) IsSounding(ch int) bool {
	if ch < 0 || ch >= FMChannels {
		return false
	}
	if ch == 5 && y.dacEnable {
		return false
	}
	c := &y.ch[ch]
	mask := carrierMask[c.algorithm]
	for i := 0; i < 4; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if c.op[i].keyOn && c.op[i].tl < 0x7F {
			return true
		}
	}
	return false
}

// DACEnabled reports the state of the $2B DAC enable bit.
func (y *YM2612) DACEnabled() bool {
	return y.dacEnable
}

// DACSample returns the last value written to the $2A DAC data register.
func (y *YM2612) DACSample() uint8 {
	return y.dacSample
}

// Ch3Mode returns the channel 3 mode bits from register $27.
func (y *YM2612) Ch3Mode() uint8 {
	return y.ch3Mode
}

// Ch3Special returns the committed per-operator F-number and block for one
// of channel 3's special-mode slots (0-2 = S1-S3; S4 uses the regular
// channel registers).
func (y *YM2612) Ch3Special(slot int) (uint16, uint8) {
	if slot < 0 || slot >= 3 {
		return 0, 0
	}
	return y.ch3Freq[slot], y.ch3Block[slot]
}

// FMOperator is the decoded register state of one FM operator slot.
type FMOperator struct {
	DT    uint8
	MUL   uint8
	TL    uint8
	RS    uint8
	AR    uint8
	D1R   uint8
	D2R   uint8
	D1L   uint8
	RR    uint8
	AM    bool
	SSGEG uint8
}

// FMChannelState is the derived view of one FM channel, recomputed from the
// stored registers on every call.
type FMChannelState struct {
	Op [4]FMOperator

	FNum  uint16
	Block uint8

	Algorithm uint8
	Feedback  uint8
	PanL      bool
	PanR      bool
	AMS       uint8
	FMS       uint8

	KeyOn    bool  // any operator keyed
	KeyMask  uint8 // per-operator key bits (bit 0 = S1)
	Sounding bool

	LFOEnable bool
	LFOFreq   uint8
}

// ChannelState computes the current derived state of the given FM channel.
func (y *YM2612) ChannelState(ch int) FMChannelState {
	var s FMChannelState
	if ch < 0 || ch >= FMChannels {
		return s
	}
	c := &y.ch[ch]
	for i := range c.op {
		op := &c.op[i]
		s.Op[i] = FMOperator{
			DT:    op.dt,
			MUL:   op.mul,
			TL:    op.tl,
			RS:    op.rs,
			AR:    op.ar,
			D1R:   op.d1r,
			D2R:   op.d2r,
			D1L:   op.d1l,
			RR:    op.rr,
			AM:    op.am,
			SSGEG: op.ssgEG,
		}
		if op.keyOn {
			s.KeyMask |= 1 << uint(i)
		}
	}
	s.FNum = c.fNum
	s.Block = c.block
	s.Algorithm = c.algorithm
	s.Feedback = c.feedback
	s.PanL = c.panL
	s.PanR = c.panR
	s.AMS = c.ams
	s.FMS = c.fms
	s.KeyOn = s.KeyMask != 0
	s.Sounding = y.IsSounding(ch)
	s.LFOEnable = y.lfoEnable
	s.LFOFreq = y.lfoFreq
	return s
}

// FreqHz converts the channel's committed F-number and block to Hz.
func (y *YM2612) FreqHz(ch int) float64 {
	if ch < 0 || ch >= FMChannels {
		return 0
	}
	return FMFreqHz(y.ch[ch].fNum, y.ch[ch].block, y.clockHz)
}

// FMFreqHz converts an F-number and block to a frequency in Hz.
// The OPN2 phase generator steps at clock/144 and accumulates
// (fnum << block) >> 1 per step against a 20-bit phase, so
// f = fnum * 2^(block-1) * (clock/144) / 2^20.
func FMFreqHz(fNum uint16, block uint8, clockHz int) float64 {
	if fNum == 0 {
		return 0
	}
	inc := float64(uint32(fNum)<<block) / 2.0
	return inc * float64(clockHz) / 144.0 / (1 << 20)
}
