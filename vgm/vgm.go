// Package vgm reads the VGM command-log container: header, GD3 tag and the
// command stream. Only the fields a Mega Drive rip needs are decoded; other
// chips' clocks are left alone and their commands fail decoding rather than
// being guessed at.
package vgm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// TicksPerSecond is the VGM time base. Waits count samples at 44100Hz
// regardless of the recording's own rate.
const TicksPerSecond = 44100

var vgmIdent = []byte("Vgm ")

// File is a parsed VGM container. Offsets stored here are absolute file
// offsets, already unfolded from the header's relative encoding.
type File struct {
	Version uint32 // BCD, e.g. 0x00000150 for 1.50

	ClockSN76489 uint32 // Hz, 0 when the chip is absent
	ClockYM2612  uint32 // Hz, 0 when the chip is absent
	SNFeedback   uint16 // SN76489 noise LFSR feedback pattern
	SNShiftWidth uint8  // SN76489 noise LFSR width in bits

	TotalSamples uint32 // declared length in 44100Hz ticks
	LoopOffset   int    // absolute offset of the loop point, 0 = no loop
	LoopSamples  uint32
	Rate         uint32 // recording rate in Hz (50/60), informational

	DataStart int // absolute offset of the first command

	GD3 *GD3 // nil when the file carries no tag

	data []byte
}

// Load reads a VGM or VGZ file from disk. A gzip stream (VGZ) is detected
// by its magic bytes and inflated.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vgm file: %w", err)
	}
	defer f.Close()

	magic := make([]byte, 2)
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, fmt.Errorf("reading vgm file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("reading vgm file: %w", err)
	}

	var r io.Reader = f
	if magic[0] == 0x1F && magic[1] == 0x8B {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("inflating vgz: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading vgm file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a VGM header from an inflated file image.
func Parse(data []byte) (*File, error) {
	if len(data) < 0x40 {
		return nil, fmt.Errorf("vgm header too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[0:4], vgmIdent) {
		return nil, fmt.Errorf("not a vgm file: ident %q", data[0:4])
	}

	f := &File{
		Version:      binary.LittleEndian.Uint32(data[0x08:]),
		ClockSN76489: binary.LittleEndian.Uint32(data[0x0C:]),
		TotalSamples: binary.LittleEndian.Uint32(data[0x18:]),
		LoopSamples:  binary.LittleEndian.Uint32(data[0x20:]),
		Rate:         binary.LittleEndian.Uint32(data[0x24:]),
		SNFeedback:   binary.LittleEndian.Uint16(data[0x28:]),
		SNShiftWidth: data[0x2A],
		ClockYM2612:  binary.LittleEndian.Uint32(data[0x2C:]),
		data:         data,
	}

	// Early rips stored the YM2612 clock in the YM2413 slot. When the
	// declared clock is implausibly high on a pre-1.10 file, the real
	// value lives at 0x30.
	if f.ClockYM2612 > 5000000 && f.Version <= 0x101 {
		f.ClockYM2612 = binary.LittleEndian.Uint32(data[0x30:])
	}

	if loop := binary.LittleEndian.Uint32(data[0x1C:]); loop != 0 {
		f.LoopOffset = 0x1C + int(loop)
	}

	// Version 1.50 made the command start relocatable
	f.DataStart = 0x40
	if f.Version >= 0x150 {
		if rel := binary.LittleEndian.Uint32(data[0x34:]); rel != 0 {
			f.DataStart = 0x34 + int(rel)
		}
	}
	if f.DataStart >= len(data) {
		return nil, fmt.Errorf("vgm data offset 0x%X out of range (%d bytes)", f.DataStart, len(data))
	}

	if gd3 := binary.LittleEndian.Uint32(data[0x14:]); gd3 != 0 {
		tag, err := parseGD3(data, 0x14+int(gd3))
		if err != nil {
			return nil, err
		}
		f.GD3 = tag
	}

	return f, nil
}

// IsGenesis reports whether the file declares both Mega Drive sound chips.
func (f *File) IsGenesis() bool {
	return f.ClockYM2612 != 0 && f.ClockSN76489 != 0
}

// Size returns the inflated file size in bytes.
func (f *File) Size() int {
	return len(f.data)
}

// Decoder returns a fresh command decoder positioned at the first command.
func (f *File) Decoder() *Decoder {
	return &Decoder{data: f.data, pos: f.DataStart}
}
