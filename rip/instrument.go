package rip

import (
	"sort"

	"github.com/FluffyKn1ght/mdfmvgmrip/chip"
)

// Instrument is the timbre-defining subset of an FM channel's state: the
// four operator parameter sets plus the channel's routing and modulation
// setup. It is a plain comparable value, so two snapshots describe the same
// instrument exactly when the structs compare equal, and the dedup table
// can key on the snapshot itself. Frequency, key state and panning are
// playback state and deliberately not part of it.
type Instrument struct {
	Ops [4]chip.FMOperator

	Algorithm uint8
	Feedback  uint8
	AMS       uint8
	FMS       uint8

	LFOEnable bool
	LFOFreq   uint8
}

// snapshotInstrument extracts the timbre fields from a channel state.
func snapshotInstrument(st chip.FMChannelState) Instrument {
	return Instrument{
		Ops:       st.Op,
		Algorithm: st.Algorithm,
		Feedback:  st.Feedback,
		AMS:       st.AMS,
		FMS:       st.FMS,
		LFOEnable: st.LFOEnable,
		LFOFreq:   st.LFOFreq,
	}
}

// InstrumentUsage aggregates every sighting of one distinct instrument
// across the pass.
type InstrumentUsage struct {
	Inst          Instrument
	FirstSeenTick uint64
	ActiveTicks   uint64 // ticks during which some channel sounded this instrument
	Channels      []int  // sorted channel indices the instrument was configured on
}

// instrumentTable is the dedup table plus the per-channel active record.
// Records are kept in first-seen order so results are deterministic.
type instrumentTable struct {
	recs    map[Instrument]*InstrumentUsage
	order   []*InstrumentUsage
	current [chip.FMChannels]*InstrumentUsage
}

func newInstrumentTable() *instrumentTable {
	return &instrumentTable{recs: make(map[Instrument]*InstrumentUsage)}
}

// reconcile recomputes channel ch's snapshot at the given tick and rebinds
// the channel to the matching record, inserting a new one for a
// never-seen timbre. A snapshot equal to the channel's current record is a
// no-op, so non-timbre writes are cheap.
func (t *instrumentTable) reconcile(ch int, st chip.FMChannelState, tick uint64) {
	inst := snapshotInstrument(st)

	rec := t.recs[inst]
	if rec == nil {
		rec = &InstrumentUsage{Inst: inst, FirstSeenTick: tick}
		t.recs[inst] = rec
		t.order = append(t.order, rec)
	}
	if t.current[ch] == rec {
		return
	}
	t.current[ch] = rec
	rec.addChannel(ch)
}

// accrue adds an elapsed interval to every record that is the active
// instrument on at least one sounding channel. A record counts once per
// interval no matter how many channels sound it.
func (t *instrumentTable) accrue(dt uint64, sounding [chip.FMChannels]bool) {
	var done [chip.FMChannels]*InstrumentUsage
	n := 0
	for ch := 0; ch < chip.FMChannels; ch++ {
		if !sounding[ch] {
			continue
		}
		rec := t.current[ch]
		if rec == nil {
			continue
		}
		dup := false
		for i := 0; i < n; i++ {
			if done[i] == rec {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		done[n] = rec
		n++
		rec.ActiveTicks += dt
	}
}

// records returns the usage table as a value slice in first-seen order.
func (t *instrumentTable) records() []InstrumentUsage {
	out := make([]InstrumentUsage, len(t.order))
	for i, rec := range t.order {
		out[i] = *rec
		out[i].Channels = append([]int(nil), rec.Channels...)
	}
	return out
}

func (u *InstrumentUsage) addChannel(ch int) {
	for _, c := range u.Channels {
		if c == ch {
			return
		}
	}
	u.Channels = append(u.Channels, ch)
	sort.Ints(u.Channels)
}
