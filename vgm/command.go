package vgm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Decode errors. Commands the stream declares but this package does not
// implement get ErrUnsupportedCommand; opcodes outside the format get
// ErrUnknownCommand. Both halt the decoder.
var (
	ErrUnknownCommand     = errors.New("unknown command opcode")
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrTruncatedCommand   = errors.New("command operands truncated")
)

// CommandKind identifies what a decoded command instructs the player to do.
type CommandKind uint8

const (
	KindWrite     CommandKind = iota // chip register write
	KindWait                         // advance time
	KindDataBlock                    // embedded data block header
	KindBankSeek                     // reposition the PCM databank cursor
	KindBankWrite                    // next databank byte to the DAC + short wait
	KindEnd                          // end of sound data
)

// Chip identifies the target of a KindWrite command.
type Chip uint8

const (
	ChipYM2612 Chip = iota
	ChipSN76489
)

func (c Chip) String() string {
	switch c {
	case ChipYM2612:
		return "ym2612"
	case ChipSN76489:
		return "sn76489"
	}
	return fmt.Sprintf("chip(%d)", uint8(c))
}

// PortGGStereo marks an SN76489 write that targets the Game Gear stereo
// mask instead of the data bus.
const PortGGStereo = 6

// Command is one decoded VGM command.
type Command struct {
	Kind CommandKind

	// KindWrite
	Chip     Chip
	Port     uint8 // FM part 0/1; PSG 0 for the data bus, PortGGStereo for the stereo mask
	Register uint8 // FM register address
	Value    uint8

	// KindWait and KindBankWrite (44100Hz sample ticks)
	Ticks uint32

	// KindDataBlock. The declared length is reported as-is; whether the
	// payload actually fits in the stream is the caller's check.
	BlockType uint8
	BlockLen  uint32

	// KindBankSeek
	BankPos uint32

	// Offset is the absolute file offset of the command's opcode byte.
	Offset int
}

// String renders the command for dump listings.
func (c Command) String() string {
	switch c.Kind {
	case KindWrite:
		if c.Chip == ChipSN76489 {
			if c.Port == PortGGStereo {
				return fmt.Sprintf("write %v stereo $%02X", c.Chip, c.Value)
			}
			return fmt.Sprintf("write %v $%02X", c.Chip, c.Value)
		}
		return fmt.Sprintf("write %v p%d $%02X <- $%02X", c.Chip, c.Port, c.Register, c.Value)
	case KindWait:
		return fmt.Sprintf("wait %d", c.Ticks)
	case KindDataBlock:
		return fmt.Sprintf("data block type $%02X len %d", c.BlockType, c.BlockLen)
	case KindBankSeek:
		return fmt.Sprintf("seek bank $%08X", c.BankPos)
	case KindBankWrite:
		return fmt.Sprintf("bank byte, wait %d", c.Ticks)
	case KindEnd:
		return "end"
	}
	return fmt.Sprintf("command(kind=%d)", c.Kind)
}

// Decoder walks a VGM command stream one command at a time. It is a lazy
// cursor over the file image: commands decode on demand and the decoder
// halts at the first malformed byte. Reported offsets are absolute file
// offsets.
type Decoder struct {
	data  []byte // complete (inflated) file image
	pos   int
	ended bool
}

// Pos returns the absolute offset of the next undecoded byte.
func (d *Decoder) Pos() int {
	return d.pos
}

// Remaining returns the number of bytes between the cursor and the end of
// the file image.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}

// Skip advances the cursor by n bytes, clamped to the end of the image.
// Data block payloads are consumed this way after the caller has read them.
func (d *Decoder) Skip(n int) {
	d.pos += n
	if d.pos > len(d.data) {
		d.pos = len(d.data)
	}
}

// Payload returns the payload bytes of a data block command, clamped to the
// end of the image. The caller compares the declared length against
// Remaining before trusting it.
func (d *Decoder) Payload(c Command) []byte {
	start := c.Offset + 7
	if start > len(d.data) {
		return nil
	}
	end := start + int(c.BlockLen)
	if end > len(d.data) {
		end = len(d.data)
	}
	return d.data[start:end]
}

// Next decodes and returns the command at the cursor. Exhausting the stream
// without an end command yields KindEnd as well. After an error the cursor
// stays on the failing opcode.
func (d *Decoder) Next() (Command, error) {
	if d.ended || d.pos >= len(d.data) {
		return Command{Kind: KindEnd, Offset: d.pos}, nil
	}

	off := d.pos
	op := d.data[off]

	switch {
	case op == 0x4F:
		// Game Gear stereo mask
		ops, err := d.operands(off, 1)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindWrite, Chip: ChipSN76489, Port: PortGGStereo, Value: ops[0], Offset: off}, nil

	case op == 0x50:
		// PSG data bus write
		ops, err := d.operands(off, 1)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindWrite, Chip: ChipSN76489, Value: ops[0], Offset: off}, nil

	case op == 0x52 || op == 0x53:
		// YM2612 register write, part I / part II
		ops, err := d.operands(off, 2)
		if err != nil {
			return Command{}, err
		}
		return Command{
			Kind: KindWrite, Chip: ChipYM2612,
			Port: op - 0x52, Register: ops[0], Value: ops[1],
			Offset: off,
		}, nil

	case op == 0x61:
		ops, err := d.operands(off, 2)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindWait, Ticks: uint32(binary.LittleEndian.Uint16(ops)), Offset: off}, nil

	case op == 0x62:
		// Wait one 60Hz frame
		d.pos++
		return Command{Kind: KindWait, Ticks: 735, Offset: off}, nil

	case op == 0x63:
		// Wait one 50Hz frame
		d.pos++
		return Command{Kind: KindWait, Ticks: 882, Offset: off}, nil

	case op == 0x66:
		d.pos++
		d.ended = true
		return Command{Kind: KindEnd, Offset: off}, nil

	case op == 0x67:
		// Data block: 0x67 0x66 tt ssssssss, then ss bytes of payload.
		// Only the header is decoded here; the cursor lands on the payload.
		if off+7 > len(d.data) {
			return Command{}, fmt.Errorf("data block header at offset %d: %w", off, ErrTruncatedCommand)
		}
		if compat := d.data[off+1]; compat != 0x66 {
			return Command{}, fmt.Errorf("data block at offset %d: compat byte $%02X, want $66: %w",
				off, compat, ErrUnknownCommand)
		}
		d.pos = off + 7
		return Command{
			Kind:      KindDataBlock,
			BlockType: d.data[off+2],
			BlockLen:  binary.LittleEndian.Uint32(d.data[off+3 : off+7]),
			Offset:    off,
		}, nil

	case op == 0x68:
		return Command{}, fmt.Errorf("PCM RAM write ($68) at offset %d: %w", off, ErrUnsupportedCommand)

	case op >= 0x70 && op <= 0x7F:
		d.pos++
		return Command{Kind: KindWait, Ticks: uint32(op&0x0F) + 1, Offset: off}, nil

	case op >= 0x80 && op <= 0x8F:
		// YM2612 $2A write from the databank, then wait n ticks
		d.pos++
		return Command{Kind: KindBankWrite, Ticks: uint32(op & 0x0F), Offset: off}, nil

	case op >= 0x90 && op <= 0x95:
		return Command{}, fmt.Errorf("DAC stream control ($%02X) at offset %d: %w", op, off, ErrUnsupportedCommand)

	case op == 0xE0:
		ops, err := d.operands(off, 4)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindBankSeek, BankPos: binary.LittleEndian.Uint32(ops), Offset: off}, nil
	}

	return Command{}, fmt.Errorf("opcode $%02X at offset %d: %w", op, off, ErrUnknownCommand)
}

// operands returns n operand bytes following the opcode at off and advances
// the cursor past them.
func (d *Decoder) operands(off, n int) ([]byte, error) {
	if off+1+n > len(d.data) {
		return nil, fmt.Errorf("command $%02X at offset %d: %w", d.data[off], off, ErrTruncatedCommand)
	}
	d.pos = off + 1 + n
	return d.data[off+1 : off+1+n], nil
}
