// Package rip replays a decoded VGM command stream against register state
// models and extracts what the music is made of: the FM instrument set with
// usage statistics, a note event timeline for every pitched channel, and the
// embedded sample data blocks.
package rip

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/log"

	"github.com/FluffyKn1ght/mdfmvgmrip/chip"
	"github.com/FluffyKn1ght/mdfmvgmrip/vgm"
)

// Config adjusts one extraction pass.
//
// The zero value replays against NTSC-clocked chips, splits retriggered
// notes into separate events and builds its own default logger.
type Config struct {
	// FMClock and PSGClock set the chip clocks in Hz, normally taken from
	// the file header. Zero selects the NTSC rate.
	FMClock  int
	PSGClock int

	// MergeRetriggers keeps a note open across key-on retriggers instead
	// of splitting it at each retrigger edge.
	MergeRetriggers bool

	// Logger receives warnings about stream oddities. Nil gets a default
	// logger.
	Logger *log.Logger
}

// Ripper replays one command stream against fresh chip models. It is
// single-use: Run consumes it, and independent Rippers share nothing.
type Ripper struct {
	logger *log.Logger

	ym  *chip.YM2612
	psg *chip.PSG

	insts *instrumentTable
	notes *noteBuilder

	blocks  []DataBlock
	bank    map[uint8][]byte
	bankPos int

	// tick is the stream clock in 44100Hz sample ticks.
	tick     uint64
	commands int

	// DAC rate estimator inputs: bank write count and tick span.
	dacWrites uint64
	dacFirst  uint64
	dacLast   uint64

	ran bool
}

// New creates a Ripper for a single pass over one stream.
func New(cfg Config) *Ripper {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithConfig(log.DefaultConfig())
	}
	clocks := chip.ClocksForRegion(chip.RegionNTSC)
	fmClock := cfg.FMClock
	if fmClock == 0 {
		fmClock = clocks.FMClockHz
	}
	psgClock := cfg.PSGClock
	if psgClock == 0 {
		psgClock = clocks.PSGClockHz
	}

	ym := chip.NewYM2612(fmClock)
	psg := chip.NewPSG(psgClock)
	return &Ripper{
		logger: logger,
		ym:     ym,
		psg:    psg,
		insts:  newInstrumentTable(),
		notes:  newNoteBuilder(ym, psg, cfg.MergeRetriggers),
		bank:   make(map[uint8][]byte),
	}
}

// Result holds everything one pass extracted. On error it holds whatever
// was extracted before the failure, with open notes closed at the failing
// tick.
type Result struct {
	Instruments []InstrumentUsage
	Notes       []NoteEvent
	Blocks      []DataBlock

	// Commands is the number of commands processed, the end marker
	// included.
	Commands int
	// TotalTicks is the stream clock when the pass ended.
	TotalTicks uint64
	// TickRate converts ticks to seconds.
	TickRate int

	// DACRate estimates the sample playback rate in Hz from the spacing
	// of the bank write commands. Zero when fewer than two occurred.
	DACRate int
	// BankSize is the assembled PCM databank length in bytes.
	BankSize int
}

// Run replays the stream until its end command or first fatal error. A
// non-nil error is a *StreamError carrying the failing tick and byte
// offset, and the result still holds everything extracted up to there.
func (r *Ripper) Run(dec *vgm.Decoder) (*Result, error) {
	if r.ran {
		return nil, errors.New("ripper already ran")
	}
	r.ran = true

	for {
		cmd, err := dec.Next()
		if err != nil {
			return r.fail(dec.Pos(), fmt.Errorf("%w: %w", ErrMalformedStream, err))
		}
		r.commands++

		switch cmd.Kind {
		case vgm.KindWrite:
			if err := r.write(cmd); err != nil {
				return r.fail(cmd.Offset, err)
			}
		case vgm.KindWait:
			r.wait(uint64(cmd.Ticks))
		case vgm.KindDataBlock:
			if err := r.dataBlock(dec, cmd); err != nil {
				return r.fail(cmd.Offset, err)
			}
		case vgm.KindBankSeek:
			r.bankPos = int(cmd.BankPos)
		case vgm.KindBankWrite:
			r.bankWrite()
			r.wait(uint64(cmd.Ticks))
		case vgm.KindEnd:
			r.notes.closeAll(r.tick)
			return r.result(), nil
		}
	}
}

func (r *Ripper) fail(offset int, err error) (*Result, error) {
	r.notes.closeAll(r.tick)
	return r.result(), &StreamError{Tick: r.tick, Offset: offset, Err: err}
}

// write dispatches a register write to the tagged chip model and
// reconciles the extractors for every channel the write touched.
func (r *Ripper) write(cmd vgm.Command) error {
	switch cmd.Chip {
	case vgm.ChipYM2612:
		mask, err := r.ym.Write(int(cmd.Port), cmd.Register, cmd.Value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRegisterTarget, err)
		}
		for ch := 0; ch < chip.FMChannels; ch++ {
			if mask&(1<<uint(ch)) == 0 {
				continue
			}
			r.insts.reconcile(ch, r.ym.ChannelState(ch), r.tick)
			r.notes.reconcileFM(ch, r.tick)
		}
		return nil

	case vgm.ChipSN76489:
		var mask uint8
		if cmd.Port == vgm.PortGGStereo {
			mask = r.psg.WriteStereo(cmd.Value)
		} else {
			mask = r.psg.Write(cmd.Value)
		}
		for ch := 0; ch < chip.PSGTones; ch++ {
			if mask&(1<<uint(ch)) != 0 {
				r.notes.reconcilePSG(ch, r.tick)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: chip %d", ErrInvalidRegisterTarget, cmd.Chip)
}

// wait advances the stream clock. Usage accrues before the clock moves so
// the interval is credited to the state that sounded through it.
func (r *Ripper) wait(dt uint64) {
	if dt == 0 {
		return
	}
	var sounding [chip.FMChannels]bool
	for ch := range sounding {
		sounding[ch] = r.ym.IsSounding(ch)
	}
	r.insts.accrue(dt, sounding)
	r.tick += dt
}

// dataBlock validates and records an embedded data block. This is the one
// place the declared length is checked against the bytes actually present.
func (r *Ripper) dataBlock(dec *vgm.Decoder, cmd vgm.Command) error {
	if int(cmd.BlockLen) > dec.Remaining() {
		r.logger.Warn("data block runs past end of file",
			log.Hex("type", cmd.BlockType),
			log.Int("declared", int(cmd.BlockLen)),
			log.Int("remaining", dec.Remaining()))
		return fmt.Errorf("%w: declared %d bytes, %d remain",
			ErrTruncatedDataBlock, cmd.BlockLen, dec.Remaining())
	}

	payload := make([]byte, cmd.BlockLen)
	copy(payload, dec.Payload(cmd))
	r.blocks = append(r.blocks, DataBlock{
		Type:   cmd.BlockType,
		Offset: cmd.Offset + 7,
		Data:   payload,
	})
	r.bank[cmd.BlockType] = append(r.bank[cmd.BlockType], payload...)
	if cmd.BlockType != 0x00 {
		r.logger.Warn("unhandled data block type",
			log.Hex("type", cmd.BlockType),
			log.Int("len", len(payload)))
	}
	dec.Skip(int(cmd.BlockLen))
	return nil
}

// bankWrite feeds the next databank byte to the DAC data register. $2A
// is a global register, so the write returns no channel mask and cannot
// fail. Reads past the end of the bank happen in sloppy rips and are
// skipped.
func (r *Ripper) bankWrite() {
	if r.dacWrites == 0 {
		r.dacFirst = r.tick
	}
	r.dacLast = r.tick
	r.dacWrites++

	bank := r.bank[0x00]
	if r.bankPos >= len(bank) {
		r.logger.Debug("bank read past end",
			log.Int("pos", r.bankPos),
			log.Int("bank", len(bank)))
		return
	}
	_, _ = r.ym.Write(0, 0x2A, bank[r.bankPos])
	r.bankPos++
}

func (r *Ripper) result() *Result {
	res := &Result{
		Instruments: r.insts.records(),
		Notes:       r.notes.notes(),
		Blocks:      r.blocks,
		Commands:    r.commands,
		TotalTicks:  r.tick,
		TickRate:    vgm.TicksPerSecond,
		BankSize:    len(r.bank[0x00]),
	}
	if r.dacWrites >= 2 && r.dacLast > r.dacFirst {
		span := r.dacLast - r.dacFirst
		res.DACRate = int((r.dacWrites - 1) * vgm.TicksPerSecond / span)
	}
	return res
}
