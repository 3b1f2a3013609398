// Package export serializes extraction results: the instrument set as
// JSON, the note timeline as a standard MIDI file, data blocks as raw
// dumps plus listenable WAVs, and the decoded command stream as a text
// listing.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/FluffyKn1ght/mdfmvgmrip/rip"
	"github.com/FluffyKn1ght/mdfmvgmrip/vgm"
)

// instrumentFileVersion is bumped when the JSON shape changes.
const instrumentFileVersion = 1

type instrumentFile struct {
	Version     int              `json:"version"`
	TickRate    int              `json:"tick_rate"`
	Instruments []instrumentJSON `json:"instruments"`
}

type instrumentJSON struct {
	Index int `json:"index"`

	Algorithm uint8 `json:"algorithm"`
	Feedback  uint8 `json:"feedback"`
	AMS       uint8 `json:"ams"`
	FMS       uint8 `json:"fms"`
	LFOEnable bool  `json:"lfo_enable"`
	LFOFreq   uint8 `json:"lfo_freq"`

	Operators [4]operatorJSON `json:"operators"`

	Channels     []int   `json:"channels"`
	FirstSeenSec float64 `json:"first_seen_sec"`
	ActiveSec    float64 `json:"active_sec"`
}

type operatorJSON struct {
	DT    uint8 `json:"dt"`
	MUL   uint8 `json:"mul"`
	TL    uint8 `json:"tl"`
	RS    uint8 `json:"rs"`
	AR    uint8 `json:"ar"`
	D1R   uint8 `json:"d1r"`
	D2R   uint8 `json:"d2r"`
	D1L   uint8 `json:"d1l"`
	RR    uint8 `json:"rr"`
	AM    bool  `json:"am"`
	SSGEG uint8 `json:"ssg_eg"`
}

// Instruments writes the extracted instrument set as indented JSON, with
// tick counts also rendered as seconds for human reading.
func Instruments(w io.Writer, recs []rip.InstrumentUsage, tickRate int) error {
	if tickRate <= 0 {
		tickRate = vgm.TicksPerSecond
	}

	out := instrumentFile{
		Version:     instrumentFileVersion,
		TickRate:    tickRate,
		Instruments: make([]instrumentJSON, 0, len(recs)),
	}
	for i, rec := range recs {
		inst := instrumentJSON{
			Index:        i,
			Algorithm:    rec.Inst.Algorithm,
			Feedback:     rec.Inst.Feedback,
			AMS:          rec.Inst.AMS,
			FMS:          rec.Inst.FMS,
			LFOEnable:    rec.Inst.LFOEnable,
			LFOFreq:      rec.Inst.LFOFreq,
			Channels:     rec.Channels,
			FirstSeenSec: float64(rec.FirstSeenTick) / float64(tickRate),
			ActiveSec:    float64(rec.ActiveTicks) / float64(tickRate),
		}
		for op, p := range rec.Inst.Ops {
			inst.Operators[op] = operatorJSON{
				DT:    p.DT,
				MUL:   p.MUL,
				TL:    p.TL,
				RS:    p.RS,
				AR:    p.AR,
				D1R:   p.D1R,
				D2R:   p.D2R,
				D1L:   p.D1L,
				RR:    p.RR,
				AM:    p.AM,
				SSGEG: p.SSGEG,
			}
		}
		out.Instruments = append(out.Instruments, inst)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding instruments: %w", err)
	}
	return nil
}
