package rip

import (
	"math"

	"github.com/FluffyKn1ght/mdfmvgmrip/chip"
	"github.com/FluffyKn1ght/mdfmvgmrip/vgm"
)

// PitchChange marks a pitch movement inside an open note (bend or
// portamento). The note itself is not fragmented by it.
type PitchChange struct {
	Tick  uint64
	Key   int     // MIDI note number
	Cents float64 // deviation from Key
}

// NoteEvent is one note sounded on one channel. Events are ordered by
// start tick; pitch movement during the note is attached as markers.
type NoteEvent struct {
	Chip    vgm.Chip
	Channel int

	Key      int
	Cents    float64
	Velocity uint8 // 0-127 volume proxy

	Start uint64
	End   uint64

	Bends []PitchChange
}

// midiPitch quantizes a frequency to the nearest MIDI key plus a cent
// deviation. Out-of-range keys are clamped to the MIDI note range.
func midiPitch(hz float64) (int, float64) {
	if hz <= 0 {
		return 0, 0
	}
	semis := 69 + 12*math.Log2(hz/440)
	key := int(math.Round(semis))
	if key < 0 {
		key = 0
	} else if key > 127 {
		key = 127
	}
	return key, (semis - float64(key)) * 100
}

// noteBuilder derives the note timeline from chip state transitions. It
// reads the chip models it was built with and never mutates them.
type noteBuilder struct {
	ym    *chip.YM2612
	psg   *chip.PSG
	merge bool // retrigger policy: merge instead of force-close

	fm     [chip.FMChannels]*NoteEvent
	fmEdge [chip.FMChannels]uint32
	tone   [chip.PSGTones]*NoteEvent

	events []*NoteEvent
}

func newNoteBuilder(ym *chip.YM2612, psg *chip.PSG, merge bool) *noteBuilder {
	return &noteBuilder{ym: ym, psg: psg, merge: merge}
}

// reconcileFM processes a state change on an FM channel. The gate is the
// channel's key flag; a key-on edge while the gate is already open is a
// retrigger and, unless merging, closes the running note at the same tick.
func (b *noteBuilder) reconcileFM(ch int, tick uint64) {
	st := b.ym.ChannelState(ch)
	edges := b.ym.KeyEdges(ch)
	retrig := edges != b.fmEdge[ch]
	b.fmEdge[ch] = edges

	if open := b.fm[ch]; open != nil {
		switch {
		case !st.KeyOn:
			open.End = tick
			b.fm[ch] = nil
			return
		case retrig && !b.merge:
			open.End = tick
			b.fm[ch] = nil
		default:
			b.bend(open, tick, b.ym.FreqHz(ch))
			return
		}
	}
	if !st.KeyOn {
		return
	}

	key, cents := midiPitch(b.ym.FreqHz(ch))
	b.fm[ch] = b.open(&NoteEvent{
		Chip:     vgm.ChipYM2612,
		Channel:  ch,
		Key:      key,
		Cents:    cents,
		Velocity: fmVelocity(st),
		Start:    tick,
	})
}

// reconcilePSG processes a state change on a PSG tone channel. The gate is
// the attenuator: a channel leaving 0xF starts a note, reaching 0xF ends
// it. The noise channel has no pitch formula and emits no events.
func (b *noteBuilder) reconcilePSG(ch int, tick uint64) {
	if ch >= chip.PSGTones {
		return
	}
	sounding := b.psg.IsSounding(ch)

	if open := b.tone[ch]; open != nil {
		if !sounding {
			open.End = tick
			b.tone[ch] = nil
			return
		}
		b.bend(open, tick, b.psg.FreqHz(ch))
		return
	}
	if !sounding {
		return
	}

	key, cents := midiPitch(b.psg.FreqHz(ch))
	b.tone[ch] = b.open(&NoteEvent{
		Chip:     vgm.ChipSN76489,
		Channel:  ch,
		Key:      key,
		Cents:    cents,
		Velocity: psgVelocity(b.psg.Volume(ch)),
		Start:    tick,
	})
}

// bend records a pitch marker when the sounding frequency moved away from
// the note's last reported pitch.
func (b *noteBuilder) bend(ev *NoteEvent, tick uint64, hz float64) {
	key, cents := midiPitch(hz)
	lastKey, lastCents := ev.Key, ev.Cents
	if n := len(ev.Bends); n > 0 {
		lastKey, lastCents = ev.Bends[n-1].Key, ev.Bends[n-1].Cents
	}
	if key == lastKey && math.Abs(cents-lastCents) < 0.5 {
		return
	}
	ev.Bends = append(ev.Bends, PitchChange{Tick: tick, Key: key, Cents: cents})
}

func (b *noteBuilder) open(ev *NoteEvent) *NoteEvent {
	b.events = append(b.events, ev)
	return ev
}

// closeAll ends every open note at the given tick. Used at end-of-stream
// and when finalizing a failed pass.
func (b *noteBuilder) closeAll(tick uint64) {
	for ch, ev := range b.fm {
		if ev != nil {
			ev.End = tick
			b.fm[ch] = nil
		}
	}
	for ch, ev := range b.tone {
		if ev != nil {
			ev.End = tick
			b.tone[ch] = nil
		}
	}
}

// notes returns the finished timeline as a value slice.
func (b *noteBuilder) notes() []NoteEvent {
	out := make([]NoteEvent, len(b.events))
	for i, ev := range b.events {
		out[i] = *ev
	}
	return out
}

// fmVelocity maps the loudest carrier's total level to 0-127. TL is an
// attenuation, so lower is louder.
func fmVelocity(st chip.FMChannelState) uint8 {
	minTL := uint8(0x7F)
	mask := chip.Carriers(st.Algorithm)
	for i, op := range st.Op {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if op.TL < minTL {
			minTL = op.TL
		}
	}
	return 127 - minTL
}

// psgVelocity maps a 4-bit attenuation to 0-127.
func psgVelocity(att uint8) uint8 {
	if att > 0x0F {
		att = 0x0F
	}
	return uint8((15 - int(att)) * 127 / 15)
}
