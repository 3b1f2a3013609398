package export

import (
	"fmt"
	"io"
	"math"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/FluffyKn1ght/mdfmvgmrip/chip"
	"github.com/FluffyKn1ght/mdfmvgmrip/rip"
	"github.com/FluffyKn1ght/mdfmvgmrip/vgm"
)

const (
	midiTicksPerBeat = 480
	midiTempoBPM     = 120

	// Bend messages are emitted against a +-2 semitone wheel range, the
	// GM default.
	bendRangeSemis = 2

	// FM channels map to MIDI channels 0-5, PSG tones to 6-8.
	midiPSGBase = chip.FMChannels
)

// MIDI writes the note timeline as a format 1 standard MIDI file with one
// track per source channel. Pitch-change markers become pitch wheel
// messages; totalTicks places each track's end so all tracks span the
// whole piece.
func MIDI(w io.Writer, notes []rip.NoteEvent, totalTicks uint64) error {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(midiTicksPerBeat)

	var tempo smf.Track
	tempo.Add(0, smf.MetaTrackSequenceName("vgm rip"))
	tempo.Add(0, smf.MetaTempo(midiTempoBPM))
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Close(midiTicks(totalTicks))
	s.Add(tempo)

	for _, src := range sourceChannels(notes) {
		tr := buildTrack(src, notes, totalTicks)
		s.Add(tr)
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("writing midi file: %w", err)
	}
	return nil
}

// sourceChannel identifies one chip channel, in fixed track order: FM 0-5,
// then PSG tones.
type sourceChannel struct {
	chip    vgm.Chip
	channel int
}

func (s sourceChannel) midiChannel() uint8 {
	if s.chip == vgm.ChipSN76489 {
		return uint8(midiPSGBase + s.channel)
	}
	return uint8(s.channel)
}

func (s sourceChannel) name() string {
	return fmt.Sprintf("%v ch%d", s.chip, s.channel)
}

// sourceChannels lists the channels that actually play, in track order.
func sourceChannels(notes []rip.NoteEvent) []sourceChannel {
	var out []sourceChannel
	for ch := 0; ch < chip.FMChannels; ch++ {
		if channelHasNotes(notes, vgm.ChipYM2612, ch) {
			out = append(out, sourceChannel{chip: vgm.ChipYM2612, channel: ch})
		}
	}
	for ch := 0; ch < chip.PSGTones; ch++ {
		if channelHasNotes(notes, vgm.ChipSN76489, ch) {
			out = append(out, sourceChannel{chip: vgm.ChipSN76489, channel: ch})
		}
	}
	return out
}

func channelHasNotes(notes []rip.NoteEvent, c vgm.Chip, ch int) bool {
	for _, n := range notes {
		if n.Chip == c && n.Channel == ch {
			return true
		}
	}
	return false
}

// buildTrack renders one channel's notes. Events inside a track are
// chronological because the note list is ordered by start tick and bends
// fall inside their note's span.
func buildTrack(src sourceChannel, notes []rip.NoteEvent, totalTicks uint64) smf.Track {
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(src.name()))

	ch := src.midiChannel()
	var cursor uint32

	add := func(tick uint64, msg []byte) {
		at := midiTicks(tick)
		tr.Add(at-cursor, msg)
		cursor = at
	}

	for _, n := range notes {
		if n.Chip != src.chip || n.Channel != src.channel {
			continue
		}

		key := uint8(n.Key)
		vel := n.Velocity
		if vel == 0 {
			// A zero-velocity note-on reads as note-off.
			vel = 1
		}

		add(n.Start, midi.Pitchbend(ch, bendValue(n.Cents/100)))
		add(n.Start, midi.NoteOn(ch, key, vel))
		for _, b := range n.Bends {
			delta := float64(b.Key-n.Key) + b.Cents/100
			add(b.Tick, midi.Pitchbend(ch, bendValue(delta)))
		}
		add(n.End, midi.NoteOff(ch, key))
	}

	end := midiTicks(totalTicks)
	tr.Close(end - cursor)
	return tr
}

// midiTicks rescales the 44100Hz stream clock to MIDI ticks at the fixed
// tempo.
func midiTicks(tick uint64) uint32 {
	return uint32(tick * midiTicksPerBeat * midiTempoBPM / 60 / vgm.TicksPerSecond)
}

// bendValue maps a semitone offset to the 14-bit wheel range, clamped.
func bendValue(semis float64) int16 {
	v := int(math.Round(semis / bendRangeSemis * 8192))
	if v > 8191 {
		v = 8191
	}
	if v < -8192 {
		v = -8192
	}
	return int16(v)
}
