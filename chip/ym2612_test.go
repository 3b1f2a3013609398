package chip

import "testing"

const testFMClock = 7670454

// --- Construction tests ---

func TestYM2612_PowerOnDefaults(t *testing.T) {
	y := NewYM2612(testFMClock)

	if y.ClockHz() != testFMClock {
		t.Errorf("ClockHz: got %d, want %d", y.ClockHz(), testFMClock)
	}
	for ch := 0; ch < 6; ch++ {
		if !y.ch[ch].panL || !y.ch[ch].panR {
			t.Errorf("ch%d: panning should default to L+R on", ch)
		}
		if y.KeyOn(ch) {
			t.Errorf("ch%d: should not be keyed at power-on", ch)
		}
		if y.IsSounding(ch) {
			t.Errorf("ch%d: should not be sounding at power-on", ch)
		}
	}
	if y.DACEnabled() {
		t.Error("DAC should be disabled at power-on")
	}
}

func TestYM2612_InvalidPart(t *testing.T) {
	y := NewYM2612(testFMClock)

	if _, err := y.Write(2, 0x28, 0x10); err == nil {
		t.Error("part 2 write should return an error")
	}
	if _, err := y.Write(-1, 0x30, 0x01); err == nil {
		t.Error("part -1 write should return an error")
	}
}

// --- Invalid address range tests ---

func TestYM2612_WriteBelowAddr20Ignored(t *testing.T) {
	y := NewYM2612(testFMClock)

	dacBefore := y.dacSample
	lfoBefore := y.lfoEnable

	for _, addr := range []uint8{0x00, 0x10, 0x1F} {
		mask, err := y.Write(0, addr, 0xFF)
		if err != nil {
			t.Fatalf("write $%02X: %v", addr, err)
		}
		if mask != 0 {
			t.Errorf("write $%02X: affected mask got 0x%02X, want 0", addr, mask)
		}
	}

	if y.dacSample != dacBefore {
		t.Error("write below $20 should not change dacSample")
	}
	if y.lfoEnable != lfoBefore {
		t.Error("write below $20 should not change lfoEnable")
	}
}

func TestYM2612_UnhandledGlobalRegsIgnored(t *testing.T) {
	y := NewYM2612(testFMClock)

	dacEn := y.dacEnable
	dacSamp := y.dacSample
	lfoEn := y.lfoEnable
	ch3sp := y.ch3Mode

	// Global registers with no tracked state ($20, $21, $23, $29, $2C-$2F)
	unhandled := []uint8{0x20, 0x21, 0x23, 0x29, 0x2C, 0x2D, 0x2E, 0x2F}
	for _, addr := range unhandled {
		mask, _ := y.Write(0, addr, 0xFF)
		if mask != 0 {
			t.Errorf("write $%02X: affected mask got 0x%02X, want 0", addr, mask)
		}
	}

	if y.dacEnable != dacEn {
		t.Error("unhandled global reg changed dacEnable")
	}
	if y.dacSample != dacSamp {
		t.Error("unhandled global reg changed dacSample")
	}
	if y.lfoEnable != lfoEn {
		t.Error("unhandled global reg changed lfoEnable")
	}
	if y.ch3Mode != ch3sp {
		t.Error("unhandled global reg changed ch3Mode")
	}
}

func TestYM2612_GlobalRegsPartIIIgnored(t *testing.T) {
	y := NewYM2612(testFMClock)

	// $20-$2F only exist in Part I; a Part II write must not key anything
	mask, err := y.Write(1, 0x28, 0xF0)
	if err != nil {
		t.Fatalf("part II $28 write: %v", err)
	}
	if mask != 0 {
		t.Errorf("part II $28 write: affected mask got 0x%02X, want 0", mask)
	}
	for ch := 0; ch < 6; ch++ {
		if y.KeyOn(ch) {
			t.Errorf("part II $28 write keyed ch%d", ch)
		}
	}
}

// --- Global register tests ---

func TestYM2612_LFOControl(t *testing.T) {
	y := NewYM2612(testFMClock)

	mask, _ := y.Write(0, 0x22, 0x0B)
	if !y.lfoEnable {
		t.Error("LFO should be enabled after writing 0x0B to $22")
	}
	if y.lfoFreq != 3 {
		t.Errorf("lfoFreq: got %d, want 3", y.lfoFreq)
	}
	if mask != 0x3F {
		t.Errorf("$22 write should affect all channels: got 0x%02X, want 0x3F", mask)
	}

	y.Write(0, 0x22, 0x00)
	if y.lfoEnable {
		t.Error("LFO should be disabled after writing 0x00 to $22")
	}
}

func TestYM2612_TimerPeriods(t *testing.T) {
	y := NewYM2612(testFMClock)

	y.Write(0, 0x24, 0xFF)
	y.Write(0, 0x25, 0x03)
	if y.timerAPeriod != 0x3FF {
		t.Errorf("timerAPeriod: got 0x%03X, want 0x3FF", y.timerAPeriod)
	}

	y.Write(0, 0x25, 0x01)
	if y.timerAPeriod != 0x3FD {
		t.Errorf("timerAPeriod after LSB rewrite: got 0x%03X, want 0x3FD", y.timerAPeriod)
	}

	y.Write(0, 0x26, 0xAB)
	if y.timerBPeriod != 0xAB {
		t.Errorf("timerBPeriod: got 0x%02X, want 0xAB", y.timerBPeriod)
	}
}

func TestYM2612_TimerControlBits(t *testing.T) {
	y := NewYM2612(testFMClock)

	y.Write(0, 0x27, 0x0F)
	if !y.timerALoad || !y.timerBLoad {
		t.Error("load bits should be set after writing 0x0F to $27")
	}
	if !y.timerAEnable || !y.timerBEnable {
		t.Error("enable bits should be set after writing 0x0F to $27")
	}

	y.Write(0, 0x27, 0x00)
	if y.timerALoad || y.timerBLoad || y.timerAEnable || y.timerBEnable {
		t.Error("timer bits should clear after writing 0x00 to $27")
	}
}

func TestYM2612_Ch3ModeFromReg27(t *testing.T) {
	y := NewYM2612(testFMClock)

	mask, _ := y.Write(0, 0x27, 0x40)
	if y.Ch3Mode() != Ch3ModeSpecial {
		t.Errorf("ch3 mode: got %d, want special (%d)", y.Ch3Mode(), Ch3ModeSpecial)
	}
	if mask != 0x04 {
		t.Errorf("$27 write should affect ch3: got mask 0x%02X, want 0x04", mask)
	}

	y.Write(0, 0x27, 0x80)
	if y.Ch3Mode() != Ch3ModeCSM {
		t.Errorf("ch3 mode: got %d, want CSM (%d)", y.Ch3Mode(), Ch3ModeCSM)
	}

	y.Write(0, 0x27, 0x00)
	if y.Ch3Mode() != Ch3ModeNormal {
		t.Errorf("ch3 mode: got %d, want normal (%d)", y.Ch3Mode(), Ch3ModeNormal)
	}
}

func TestYM2612_DACEnableAndData(t *testing.T) {
	y := NewYM2612(testFMClock)

	y.Write(0, 0x2A, 0x42)
	if y.DACSample() != 0x42 {
		t.Errorf("DAC sample: got 0x%02X, want 0x42", y.DACSample())
	}

	mask, _ := y.Write(0, 0x2B, 0x80)
	if !y.DACEnabled() {
		t.Error("DAC should be enabled after writing 0x80 to $2B")
	}
	if mask != 0x20 {
		t.Errorf("$2B write should affect ch5: got mask 0x%02X, want 0x20", mask)
	}

	y.Write(0, 0x2B, 0x00)
	if y.DACEnabled() {
		t.Error("DAC should be disabled after writing 0x00 to $2B")
	}
}

// --- Operator register tests ---

func TestYM2612_OperatorOrderRoundTrip(t *testing.T) {
	y := NewYM2612(testFMClock)

	// Unique DT/MUL per register slot for ch0
	slotVals := []struct {
		reg uint8
		dt  uint8
		mul uint8
	}{
		{0x30, 1, 1},
		{0x34, 2, 3},
		{0x38, 3, 5},
		{0x3C, 4, 7},
	}
	for _, sv := range slotVals {
		y.Write(0, sv.reg, (sv.dt<<4)|sv.mul)
	}

	for slot, sv := range slotVals {
		opIdx := operatorOrder[slot]
		op := &y.ch[0].op[opIdx]
		if op.dt != sv.dt {
			t.Errorf("slot %d (reg $%02X) -> op[%d]: dt got %d, want %d",
				slot, sv.reg, opIdx, op.dt, sv.dt)
		}
		if op.mul != sv.mul {
			t.Errorf("slot %d (reg $%02X) -> op[%d]: mul got %d, want %d",
				slot, sv.reg, opIdx, op.mul, sv.mul)
		}
	}
}

func TestYM2612_OperatorRegisterDecode(t *testing.T) {
	y := NewYM2612(testFMClock)
	op := &y.ch[0].op[0]

	// TL is 7-bit
	y.Write(0, 0x40, 0xFF)
	if op.tl != 0x7F {
		t.Errorf("TL: got 0x%02X, want 0x7F", op.tl)
	}

	y.Write(0, 0x50, 0xDF)
	if op.rs != 3 {
		t.Errorf("RS: got %d, want 3", op.rs)
	}
	if op.ar != 0x1F {
		t.Errorf("AR: got %d, want 31", op.ar)
	}

	y.Write(0, 0x60, 0x85)
	if !op.am {
		t.Error("AM should be true after writing 0x85 to $60")
	}
	if op.d1r != 5 {
		t.Errorf("D1R: got %d, want 5", op.d1r)
	}
	y.Write(0, 0x60, 0x05)
	if op.am {
		t.Error("AM should be false after writing 0x05 to $60")
	}

	y.Write(0, 0x70, 0x1F)
	if op.d2r != 31 {
		t.Errorf("D2R: got %d, want 31", op.d2r)
	}

	y.Write(0, 0x80, 0xA7)
	if op.d1l != 0x0A {
		t.Errorf("D1L: got 0x%02X, want 0x0A", op.d1l)
	}
	if op.rr != 0x07 {
		t.Errorf("RR: got 0x%02X, want 0x07", op.rr)
	}

	y.Write(0, 0x90, 0xFF)
	if op.ssgEG != 0x0F {
		t.Errorf("SSG-EG: got 0x%02X, want 0x0F", op.ssgEG)
	}
}

func TestYM2612_OperatorRegInvalidSlot(t *testing.T) {
	y := NewYM2612(testFMClock)

	// Operator registers with addr&3==3 address no channel
	for _, addr := range []uint8{0x33, 0x43, 0x57, 0x6B, 0x7F, 0x93} {
		mask, _ := y.Write(0, addr, 0xFF)
		if mask != 0 {
			t.Errorf("write $%02X: affected mask got 0x%02X, want 0", addr, mask)
		}
	}
	for ch := range y.ch {
		for i := range y.ch[ch].op {
			op := &y.ch[ch].op[i]
			if op.dt != 0 || op.tl != 0 || op.ar != 0 {
				t.Errorf("invalid slot write changed ch%d op%d", ch, i)
			}
		}
	}
}

func TestYM2612_OperatorRegPartII(t *testing.T) {
	y := NewYM2612(testFMClock)

	mask, err := y.Write(1, 0x40, 0x20)
	if err != nil {
		t.Fatalf("part II $40 write: %v", err)
	}
	if y.ch[3].op[0].tl != 0x20 {
		t.Errorf("ch3 op0 TL: got 0x%02X, want 0x20", y.ch[3].op[0].tl)
	}
	if y.ch[0].op[0].tl != 0 {
		t.Error("part II write leaked into ch0")
	}
	if mask != 0x08 {
		t.Errorf("affected mask: got 0x%02X, want 0x08", mask)
	}
}

// --- Frequency register latching tests ---

func TestYM2612_FreqMSBLatched(t *testing.T) {
	y := NewYM2612(testFMClock)

	mask, _ := y.Write(0, 0xA4, 0x22) // block=4, fNum_hi=2
	if mask != 0 {
		t.Errorf("MSB-only write: affected mask got 0x%02X, want 0", mask)
	}
	if y.ch[0].fNum != 0 || y.ch[0].block != 0 {
		t.Errorf("MSB-only write changed committed freq: fNum=0x%03X block=%d",
			y.ch[0].fNum, y.ch[0].block)
	}

	mask, _ = y.Write(0, 0xA0, 0x9A)
	if mask != 0x01 {
		t.Errorf("LSB write: affected mask got 0x%02X, want 0x01", mask)
	}
	if y.ch[0].fNum != 0x29A {
		t.Errorf("fNum: got 0x%03X, want 0x29A", y.ch[0].fNum)
	}
	if y.ch[0].block != 4 {
		t.Errorf("block: got %d, want 4", y.ch[0].block)
	}
}

func TestYM2612_FreqDoubleMSBBeforeLSB(t *testing.T) {
	y := NewYM2612(testFMClock)

	y.Write(0, 0xA4, 0x11) // first MSB: block=2, fNum_hi=1
	y.Write(0, 0xA4, 0x2C) // second MSB: block=5, fNum_hi=4
	y.Write(0, 0xA0, 0x00)

	if y.ch[0].block != 5 {
		t.Errorf("double MSB: block should be 5 (second write), got %d", y.ch[0].block)
	}
	if y.ch[0].fNum&0x700 != 0x400 {
		t.Errorf("double MSB: fNum hi should be 4, got 0x%03X", y.ch[0].fNum)
	}
}

func TestYM2612_FreqBareLSB(t *testing.T) {
	y := NewYM2612(testFMClock)

	y.Write(0, 0xA4, 0x22)
	y.Write(0, 0xA0, 0x9A)

	// A second LSB with no armed latch merges into the committed value
	y.Write(0, 0xA0, 0x55)
	if y.ch[0].fNum != 0x255 {
		t.Errorf("bare LSB: fNum got 0x%03X, want 0x255", y.ch[0].fNum)
	}
	if y.ch[0].block != 4 {
		t.Errorf("bare LSB: block got %d, want 4", y.ch[0].block)
	}
}

func TestYM2612_FreqPartIILatching(t *testing.T) {
	y := NewYM2612(testFMClock)

	y.Write(1, 0xA4, 0x22)
	y.Write(1, 0xA0, 0x9A)

	if y.ch[3].fNum != 0x29A {
		t.Errorf("Part II freq: fNum got 0x%03X, want 0x29A", y.ch[3].fNum)
	}
	if y.ch[3].block != 4 {
		t.Errorf("Part II freq: block got %d, want 4", y.ch[3].block)
	}
	if y.ch[0].fNum != 0 {
		t.Error("Part II freq write leaked into ch0")
	}
}

func TestYM2612_ChannelRegInvalidSlot(t *testing.T) {
	y := NewYM2612(testFMClock)

	var fNums [6]uint16
	for i := range y.ch {
		fNums[i] = y.ch[i].fNum
	}

	for _, addr := range []uint8{0xA3, 0xA7, 0xAB, 0xAF, 0xB3, 0xB7} {
		mask, _ := y.Write(0, addr, 0xFF)
		if mask != 0 {
			t.Errorf("write $%02X: affected mask got 0x%02X, want 0", addr, mask)
		}
	}

	for i := range y.ch {
		if y.ch[i].fNum != fNums[i] {
			t.Errorf("invalid slot addr changed ch%d fNum: got 0x%03X, was 0x%03X",
				i, y.ch[i].fNum, fNums[i])
		}
	}
}

func TestYM2612_AlgorithmFeedback(t *testing.T) {
	y := NewYM2612(testFMClock)

	mask, _ := y.Write(0, 0xB1, 0x3A)
	if y.ch[1].algorithm != 2 {
		t.Errorf("algorithm: got %d, want 2", y.ch[1].algorithm)
	}
	if y.ch[1].feedback != 7 {
		t.Errorf("feedback: got %d, want 7", y.ch[1].feedback)
	}
	if mask != 0x02 {
		t.Errorf("affected mask: got 0x%02X, want 0x02", mask)
	}
}

func TestYM2612_PanAmsFms(t *testing.T) {
	y := NewYM2612(testFMClock)

	y.Write(0, 0xB4, 0x37)
	if y.ch[0].panL || y.ch[0].panR {
		t.Error("panning should be off after writing 0x37 to $B4")
	}
	if y.ch[0].ams != 3 {
		t.Errorf("AMS: got %d, want 3", y.ch[0].ams)
	}
	if y.ch[0].fms != 7 {
		t.Errorf("FMS: got %d, want 7", y.ch[0].fms)
	}

	y.Write(0, 0xB4, 0xC0)
	if !y.ch[0].panL || !y.ch[0].panR {
		t.Error("panning should be L+R after writing 0xC0 to $B4")
	}
}

// --- Key on/off tests ---

func TestYM2612_KeyOnSelective(t *testing.T) {
	y := NewYM2612(testFMClock)

	y.Write(0, 0x28, 0x10) // S1 only
	if !y.ch[0].op[0].keyOn {
		t.Error("op0 should be on")
	}
	for i := 1; i < 4; i++ {
		if y.ch[0].op[i].keyOn {
			t.Errorf("op%d should be off", i)
		}
	}
	if !y.KeyOn(0) {
		t.Error("KeyOn(0) should be true with one operator keyed")
	}

	y.Write(0, 0x28, 0xF0)
	st := y.ChannelState(0)
	if st.KeyMask != 0x0F {
		t.Errorf("KeyMask: got 0x%02X, want 0x0F", st.KeyMask)
	}

	y.Write(0, 0x28, 0x00)
	if y.KeyOn(0) {
		t.Error("KeyOn(0) should be false after keying off")
	}
}

func TestYM2612_KeyOnPartII(t *testing.T) {
	y := NewYM2612(testFMClock)

	mask, _ := y.Write(0, 0x28, 0xF6) // bit2 set: channel 2+3 = ch5
	if !y.KeyOn(5) {
		t.Error("ch5 should be keyed")
	}
	if y.KeyOn(2) {
		t.Error("ch2 should not be keyed")
	}
	if mask != 0x20 {
		t.Errorf("affected mask: got 0x%02X, want 0x20", mask)
	}
}

func TestYM2612_KeyOnInvalidChannel(t *testing.T) {
	y := NewYM2612(testFMClock)

	// Channel field value 3 addresses no channel
	for _, val := range []uint8{0xF3, 0xF7} {
		mask, _ := y.Write(0, 0x28, val)
		if mask != 0 {
			t.Errorf("$28 val 0x%02X: affected mask got 0x%02X, want 0", val, mask)
		}
	}
	for ch := 0; ch < 6; ch++ {
		if y.KeyOn(ch) {
			t.Errorf("invalid $28 write keyed ch%d", ch)
		}
	}
}

func TestYM2612_KeyEdgesCountRetriggers(t *testing.T) {
	y := NewYM2612(testFMClock)

	if y.KeyEdges(0) != 0 {
		t.Errorf("initial edges: got %d, want 0", y.KeyEdges(0))
	}

	y.Write(0, 0x28, 0x10)
	if y.KeyEdges(0) != 1 {
		t.Errorf("edges after key-on: got %d, want 1", y.KeyEdges(0))
	}

	// Same mask again: no operator transitions off->on
	y.Write(0, 0x28, 0x10)
	if y.KeyEdges(0) != 1 {
		t.Errorf("edges after repeated key-on: got %d, want 1", y.KeyEdges(0))
	}

	// Adding an operator is an edge
	y.Write(0, 0x28, 0x30)
	if y.KeyEdges(0) != 2 {
		t.Errorf("edges after adding op: got %d, want 2", y.KeyEdges(0))
	}

	// Key off is not an edge
	y.Write(0, 0x28, 0x00)
	if y.KeyEdges(0) != 2 {
		t.Errorf("edges after key-off: got %d, want 2", y.KeyEdges(0))
	}

	y.Write(0, 0x28, 0xF0)
	if y.KeyEdges(0) != 3 {
		t.Errorf("edges after re-key: got %d, want 3", y.KeyEdges(0))
	}

	if y.KeyEdges(1) != 0 {
		t.Errorf("ch1 edges: got %d, want 0", y.KeyEdges(1))
	}
}

// --- Sounding tests ---

func TestYM2612_IsSoundingCarrierRules(t *testing.T) {
	y := NewYM2612(testFMClock)

	// Algorithm 0: only S4 is a carrier. TL defaults to 0 (full volume).
	y.Write(0, 0xB0, 0x00)
	y.Write(0, 0x28, 0x80) // key S4
	if !y.IsSounding(0) {
		t.Error("algo 0 with S4 keyed should be sounding")
	}

	y.Write(0, 0x28, 0x10) // key S1 only (a modulator)
	if y.IsSounding(0) {
		t.Error("algo 0 with only S1 keyed should not be sounding")
	}

	// Carrier at max attenuation is inaudible
	y.Write(0, 0x28, 0x80)
	y.Write(0, 0x4C, 0x7F) // S4 TL ($4C = slot 3, ch0)
	if y.IsSounding(0) {
		t.Error("carrier at TL=0x7F should not be sounding")
	}

	// Algorithm 7: every operator is a carrier
	y.Write(0, 0xB0, 0x07)
	y.Write(0, 0x28, 0x10) // only S1 keyed, TL=0
	if !y.IsSounding(0) {
		t.Error("algo 7 with S1 keyed should be sounding")
	}
}

func TestYM2612_IsSoundingAlgo4Carriers(t *testing.T) {
	y := NewYM2612(testFMClock)

	// Algorithm 4: S2 and S4 are carriers
	y.Write(0, 0xB0, 0x04)
	y.Write(0, 0x28, 0x20) // key S2
	if !y.IsSounding(0) {
		t.Error("algo 4 with S2 keyed should be sounding")
	}

	y.Write(0, 0x28, 0x40) // key S3 only (a modulator)
	if y.IsSounding(0) {
		t.Error("algo 4 with only S3 keyed should not be sounding")
	}
}

func TestYM2612_DACReplacesCh5(t *testing.T) {
	y := NewYM2612(testFMClock)

	// Key ch5's carrier so it sounds as an FM voice
	y.Write(0, 0x28, 0xF6)
	if !y.IsSounding(5) {
		t.Fatal("ch5 should be sounding before DAC enable")
	}

	y.Write(0, 0x2B, 0x80)
	if y.IsSounding(5) {
		t.Error("ch5 should not count as an FM voice while the DAC owns it")
	}
	if y.IsSounding(4) {
		t.Error("DAC enable should not affect ch4")
	}

	y.Write(0, 0x2B, 0x00)
	if !y.IsSounding(5) {
		t.Error("ch5 should sound again after DAC disable")
	}
}

// --- Channel 3 special mode tests ---

func TestYM2612_Ch3SpecialFreqs(t *testing.T) {
	y := NewYM2612(testFMClock)
	y.Write(0, 0x27, 0x40) // special mode

	// S1 slot: MSB latch then LSB commit
	mask, _ := y.Write(0, 0xAC, 0x22)
	if mask != 0 {
		t.Errorf("ch3 MSB-only write: affected mask got 0x%02X, want 0", mask)
	}
	mask, _ = y.Write(0, 0xA8, 0x9A)
	if mask != 0x04 {
		t.Errorf("ch3 slot LSB write: affected mask got 0x%02X, want 0x04", mask)
	}

	fNum, block := y.Ch3Special(0)
	if fNum != 0x29A {
		t.Errorf("slot 0 fNum: got 0x%03X, want 0x29A", fNum)
	}
	if block != 4 {
		t.Errorf("slot 0 block: got %d, want 4", block)
	}

	// Remaining slots
	y.Write(0, 0xAD, 0x0A)
	y.Write(0, 0xA9, 0x11)
	y.Write(0, 0xAE, 0x1C)
	y.Write(0, 0xAA, 0x22)

	if fNum, block = y.Ch3Special(1); fNum != 0x211 || block != 1 {
		t.Errorf("slot 1: got fNum=0x%03X block=%d, want 0x211/1", fNum, block)
	}
	if fNum, block = y.Ch3Special(2); fNum != 0x422 || block != 3 {
		t.Errorf("slot 2: got fNum=0x%03X block=%d, want 0x422/3", fNum, block)
	}

	// The regular ch2 frequency is untouched
	if y.ch[2].fNum != 0 || y.ch[2].block != 0 {
		t.Error("special slot writes changed the ch2 channel frequency")
	}
}

func TestYM2612_Ch3SpecialNormalModeMask(t *testing.T) {
	y := NewYM2612(testFMClock)

	// In normal mode the slot registers still store, but nothing derived
	// from channel 3 changes.
	y.Write(0, 0xAC, 0x22)
	mask, _ := y.Write(0, 0xA8, 0x9A)
	if mask != 0 {
		t.Errorf("normal mode slot write: affected mask got 0x%02X, want 0", mask)
	}
	if fNum, _ := y.Ch3Special(0); fNum != 0x29A {
		t.Errorf("slot value should still store: got 0x%03X, want 0x29A", fNum)
	}
}

func TestYM2612_Ch3SpecialPartIIIgnored(t *testing.T) {
	y := NewYM2612(testFMClock)
	y.Write(0, 0x27, 0x40)

	mask, _ := y.Write(1, 0xA8, 0x77)
	if mask != 0 {
		t.Errorf("part II slot write: affected mask got 0x%02X, want 0", mask)
	}
	if fNum, _ := y.Ch3Special(0); fNum != 0 {
		t.Errorf("part II slot write stored a value: got 0x%03X", fNum)
	}
}

// --- Snapshot tests ---

func TestYM2612_ChannelStateSnapshot(t *testing.T) {
	y := NewYM2612(testFMClock)

	y.Write(0, 0x22, 0x0A) // LFO on, freq 2
	y.Write(1, 0x31, 0x71) // ch4 op0: DT=7, MUL=1
	y.Write(1, 0x41, 0x23) // ch4 op0: TL=0x23
	y.Write(1, 0xA5, 0x22)
	y.Write(1, 0xA1, 0x9A)
	y.Write(1, 0xB1, 0x32) // algo 2, feedback 6
	y.Write(1, 0xB5, 0x95) // L on, R off, AMS=1, FMS=5
	y.Write(0, 0x28, 0x35) // key S1+S2 on ch4

	st := y.ChannelState(4)
	if st.Op[0].DT != 7 || st.Op[0].MUL != 1 {
		t.Errorf("op0 DT/MUL: got %d/%d, want 7/1", st.Op[0].DT, st.Op[0].MUL)
	}
	if st.Op[0].TL != 0x23 {
		t.Errorf("op0 TL: got 0x%02X, want 0x23", st.Op[0].TL)
	}
	if st.FNum != 0x29A || st.Block != 4 {
		t.Errorf("freq: got fNum=0x%03X block=%d, want 0x29A/4", st.FNum, st.Block)
	}
	if st.Algorithm != 2 || st.Feedback != 6 {
		t.Errorf("algo/fb: got %d/%d, want 2/6", st.Algorithm, st.Feedback)
	}
	if !st.PanL || st.PanR {
		t.Error("pan: want L on, R off")
	}
	if st.AMS != 1 || st.FMS != 5 {
		t.Errorf("AMS/FMS: got %d/%d, want 1/5", st.AMS, st.FMS)
	}
	if !st.KeyOn || st.KeyMask != 0x03 {
		t.Errorf("key: got on=%v mask=0x%02X, want on/0x03", st.KeyOn, st.KeyMask)
	}
	if !st.LFOEnable || st.LFOFreq != 2 {
		t.Errorf("LFO: got en=%v freq=%d, want on/2", st.LFOEnable, st.LFOFreq)
	}
}

// --- Frequency conversion tests ---

func TestYM2612_FMFreqHzMiddleC(t *testing.T) {
	// fNum 644 at block 4 on an NTSC clock lands on middle C
	f := FMFreqHz(644, 4, testFMClock)
	if f < 261.0 || f > 262.5 {
		t.Errorf("freq: got %.2f Hz, want ~261.7", f)
	}
}

func TestYM2612_FMFreqHzBlockDoubles(t *testing.T) {
	f1 := FMFreqHz(0x100, 2, testFMClock)
	f2 := FMFreqHz(0x100, 3, testFMClock)
	if f2 != 2*f1 {
		t.Errorf("block step should double frequency: %.4f -> %.4f", f1, f2)
	}
}

func TestYM2612_FMFreqHzZero(t *testing.T) {
	if f := FMFreqHz(0, 4, testFMClock); f != 0 {
		t.Errorf("fNum 0: got %.4f, want 0", f)
	}
}

func TestYM2612_FreqHzUsesCommittedValue(t *testing.T) {
	y := NewYM2612(testFMClock)

	y.Write(0, 0xA4, 0x22)
	y.Write(0, 0xA0, 0x84) // fNum 0x284 = 644, block 4

	before := y.FreqHz(0)
	y.Write(0, 0xA4, 0x3F) // latch a new MSB, not committed yet
	if y.FreqHz(0) != before {
		t.Error("latched MSB should not change FreqHz until the LSB commits")
	}
}
