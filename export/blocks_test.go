package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/retroenv/retrogolib/assert"

	"github.com/FluffyKn1ght/mdfmvgmrip/rip"
)

func TestBlocksWritesBinAndWAV(t *testing.T) {
	dir := t.TempDir()
	res := &rip.Result{
		Blocks: []rip.DataBlock{
			{Type: 0x00, Offset: 0x47, Data: []byte{0x80, 0xFF, 0x00, 0x81}},
			{Type: 0x01, Offset: 0x60, Data: []byte{0x10}},
		},
		DACRate: 11025,
	}

	assert.NoError(t, Blocks(dir, res, 0))

	raw, err := os.ReadFile(filepath.Join(dir, "DATABLK0.bin"))
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0xFF, 0x00, 0x81}, raw)

	raw, err = os.ReadFile(filepath.Join(dir, "DATABLK1.bin"))
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x10}, raw)

	f, err := os.Open(filepath.Join(dir, "DATABLK0.wav"))
	assert.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	assert.True(t, dec.IsValidFile())

	buf, err := dec.FullPCMBuffer()
	assert.NoError(t, err)
	assert.Equal(t, 11025, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)
	assert.Len(t, buf.Data, 4)

	// 0x80 is DAC silence, 0xFF near full positive, 0x00 full negative.
	assert.Equal(t, 0, buf.Data[0])
	assert.Equal(t, (0xFF-0x80)<<8, buf.Data[1])
	assert.Equal(t, (0x00-0x80)<<8, buf.Data[2])
}

func TestBlocksExplicitRateWins(t *testing.T) {
	dir := t.TempDir()
	res := &rip.Result{
		Blocks:  []rip.DataBlock{{Data: []byte{0x80, 0x80}}},
		DACRate: 11025,
	}

	assert.NoError(t, Blocks(dir, res, 22050))

	f, err := os.Open(filepath.Join(dir, "DATABLK0.wav"))
	assert.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	assert.NoError(t, err)
	assert.Equal(t, 22050, buf.Format.SampleRate)
}

func TestBlocksNoEstimateFallsBack(t *testing.T) {
	dir := t.TempDir()
	res := &rip.Result{Blocks: []rip.DataBlock{{Data: []byte{0x80}}}}

	assert.NoError(t, Blocks(dir, res, 0))

	f, err := os.Open(filepath.Join(dir, "DATABLK0.wav"))
	assert.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	assert.NoError(t, err)
	assert.Equal(t, defaultDACRate, buf.Format.SampleRate)
}

func TestBlocksEmptyResult(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blocks")
	assert.NoError(t, Blocks(dir, &rip.Result{}, 0))

	// The directory is still created, holding nothing.
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 0)
}
