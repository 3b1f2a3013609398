package vgm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

var gd3Ident = []byte("Gd3 ")

// GD3 is the metadata tag appended to a VGM file. Strings are stored in the
// file as null-terminated UTF-16LE, decoded here.
type GD3 struct {
	Version uint32

	TrackName    string
	TrackNameJP  string
	GameName     string
	GameNameJP   string
	SystemName   string
	SystemNameJP string
	Author       string
	AuthorJP     string
	ReleaseDate  string
	RippedBy     string
	Notes        string
}

// parseGD3 decodes the GD3 tag at the given absolute offset.
func parseGD3(data []byte, off int) (*GD3, error) {
	if off < 0 || off+12 > len(data) {
		return nil, fmt.Errorf("gd3 tag offset 0x%X out of range (%d bytes)", off, len(data))
	}
	if !bytes.Equal(data[off:off+4], gd3Ident) {
		return nil, fmt.Errorf("bad gd3 ident %q at offset 0x%X", data[off:off+4], off)
	}

	length := binary.LittleEndian.Uint32(data[off+8:])
	body := data[off+12:]
	if int(length) > len(body) {
		return nil, fmt.Errorf("gd3 tag declares %d bytes, %d remain", length, len(body))
	}
	body = body[:length]

	tag := &GD3{Version: binary.LittleEndian.Uint32(data[off+4:])}
	fields := []*string{
		&tag.TrackName, &tag.TrackNameJP,
		&tag.GameName, &tag.GameNameJP,
		&tag.SystemName, &tag.SystemNameJP,
		&tag.Author, &tag.AuthorJP,
		&tag.ReleaseDate, &tag.RippedBy, &tag.Notes,
	}

	pos := 0
	for i, field := range fields {
		s, next, err := gd3String(body, pos)
		if err != nil {
			return nil, fmt.Errorf("gd3 field %d: %w", i, err)
		}
		*field = s
		pos = next
	}
	return tag, nil
}

// gd3String reads one null-terminated UTF-16LE string starting at pos.
func gd3String(body []byte, pos int) (string, int, error) {
	var units []uint16
	for {
		if pos+2 > len(body) {
			return "", 0, fmt.Errorf("string runs past the tag end")
		}
		u := binary.LittleEndian.Uint16(body[pos:])
		pos += 2
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units)), pos, nil
}
