package chip

import "github.com/user-none/go-chip-sn76489"

// PSG channel counts.
const (
	PSGTones    = 3
	PSGChannels = 4 // three tone channels + noise
)

// The library wants an output rate and buffer size for synthesis; the
// ripper never generates samples, so these are nominal.
const (
	psgSampleRate = 44100
	psgBufferSize = 16
)

// PSG tracks the register state of the SN76489 sound generator. Register
// storage and the latch/data write protocol come from the sn76489 package;
// this wrapper adds what a ripper needs on top: a mirror of the latch, the
// Game Gear stereo register, and deferred reporting of two-part tone
// writes. A tone latch byte only carries the low 4 bits of the 10-bit
// value, so the reported tone for that channel keeps its previous value
// until the matching data byte arrives (or the chip is re-latched, which
// ends the two-byte sequence).
type PSG struct {
	hw      *sn76489.SN76489
	clockHz int

	// Latch mirror (the library keeps its own copy private)
	latchedChannel uint8
	latchedType    uint8 // 0 = tone/noise, 1 = volume

	// Deferred tone reporting
	reported     [PSGTones]uint16
	pendingCh    uint8
	pendingArmed bool

	// Game Gear stereo register: bits 7-4 enable left for channels 3-0,
	// bits 3-0 enable right. Power-on has every channel on both sides.
	stereo uint8
}

// NewPSG creates an SN76489 state model (Sega variant) in its power-on
// configuration. clockHz is the chip clock (the Z80 clock, NTSC ~3.58MHz).
func NewPSG(clockHz int) *PSG {
	return &PSG{
		hw:      sn76489.New(clockHz, psgSampleRate, psgBufferSize, sn76489.Sega),
		clockHz: clockHz,
		stereo:  0xFF,
	}
}

// ClockHz returns the chip clock the model was created with.
func (p *PSG) ClockHz() int {
	return p.clockHz
}

// Write applies one data bus byte and returns a bitmask of channels
// (bit 0 = tone 0, bit 3 = noise) whose reported state changed.
func (p *PSG) Write(val uint8) uint8 {
	if val&0x80 != 0 {
		// LATCH/DATA byte: 1 CC T DDDD. A new latch ends any open
		// two-byte tone sequence, so a lone low-nibble change becomes
		// visible now.
		mask := p.commitPending()
		p.latchedChannel = (val >> 5) & 0x03
		p.latchedType = (val >> 4) & 0x01
		p.hw.Write(val)
		switch {
		case p.latchedType == 1:
			// Volume applies immediately
			mask |= 1 << p.latchedChannel
		case p.latchedChannel == 3:
			// Noise control applies immediately
			mask |= 0x08
		default:
			// Tone low nibble: hold back until the data byte
			p.pendingCh = p.latchedChannel
			p.pendingArmed = true
		}
		return mask
	}

	// DATA byte: 0 X DDDDDD, applies to the latched register
	p.hw.Write(val)
	if p.latchedType != 0 {
		return 0
	}
	if p.latchedChannel < PSGTones {
		ch := p.latchedChannel
		p.reported[ch] = p.hw.GetToneReg(int(ch))
		if p.pendingArmed && p.pendingCh == ch {
			p.pendingArmed = false
		}
		return 1 << ch
	}
	return 0x08
}

// commitPending publishes a tone change that never received its data byte.
func (p *PSG) commitPending() uint8 {
	if !p.pendingArmed {
		return 0
	}
	ch := p.pendingCh
	p.reported[ch] = p.hw.GetToneReg(int(ch))
	p.pendingArmed = false
	return 1 << ch
}

// WriteStereo applies a Game Gear stereo mask write. Panning does not
// affect pitch or gating, so no channels are reported as changed.
func (p *PSG) WriteStereo(val uint8) uint8 {
	p.stereo = val
	return 0
}

// Stereo returns the Game Gear stereo mask.
func (p *PSG) Stereo() uint8 {
	return p.stereo
}

// Tone returns the reported 10-bit tone value for a tone channel. A
// half-written two-part update is not visible here.
func (p *PSG) Tone(ch int) uint16 {
	if ch < 0 || ch >= PSGTones {
		return 0
	}
	return p.reported[ch]
}

// Volume returns the 4-bit attenuation for the given channel (0xF = silent).
func (p *PSG) Volume(ch int) uint8 {
	if ch < 0 || ch >= PSGChannels {
		return 0x0F
	}
	return p.hw.GetVolume(ch)
}

// Noise returns the 3-bit noise control register.
func (p *PSG) Noise() uint8 {
	return p.hw.GetNoiseReg()
}

// IsSounding reports whether the channel's attenuator is open at all.
func (p *PSG) IsSounding(ch int) bool {
	if ch < 0 || ch >= PSGChannels {
		return false
	}
	return p.hw.GetVolume(ch) != 0x0F
}

// PSGChannelState is the derived view of one PSG channel.
type PSGChannelState struct {
	Tone     uint16 // committed 10-bit tone value (tone channels)
	Noise    uint8  // noise control register (noise channel)
	Volume   uint8  // 4-bit attenuation, 0xF = silent
	PanL     bool
	PanR     bool
	Sounding bool
}

// ChannelState computes the current derived state of the given PSG channel
// (0-2 tone, 3 noise).
func (p *PSG) ChannelState(ch int) PSGChannelState {
	var s PSGChannelState
	if ch < 0 || ch >= PSGChannels {
		s.Volume = 0x0F
		return s
	}
	if ch < PSGTones {
		s.Tone = p.reported[ch]
	} else {
		s.Noise = p.hw.GetNoiseReg()
	}
	s.Volume = p.hw.GetVolume(ch)
	s.PanL = p.stereo&(0x10<<uint(ch)) != 0
	s.PanR = p.stereo&(1<<uint(ch)) != 0
	s.Sounding = s.Volume != 0x0F
	return s
}

// FreqHz converts the channel's reported tone value to Hz.
func (p *PSG) FreqHz(ch int) float64 {
	if ch < 0 || ch >= PSGTones {
		return 0
	}
	return PSGFreqHz(p.reported[ch], p.clockHz)
}

// PSGFreqHz converts a 10-bit tone value to a frequency in Hz.
// The divider runs at clock/16 and a full square wave period takes two
// reloads, so f = clock / (32 * tone). The Sega variant treats a tone
// value of 0 as 1.
func PSGFreqHz(tone uint16, clockHz int) float64 {
	if tone == 0 {
		tone = 1
	}
	return float64(clockHz) / (32.0 * float64(tone))
}
