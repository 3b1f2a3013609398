package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/FluffyKn1ght/mdfmvgmrip/rip"
)

// defaultDACRate is used for block WAVs when the stream gave no rate
// estimate. Genesis sample drivers commonly stream around this rate.
const defaultDACRate = 8000

// Blocks dumps every extracted data block into dir: DATABLK<i>.bin holds
// the raw bytes, DATABLK<i>.wav the same bytes read as 8-bit unsigned PCM
// and widened to 16-bit signed mono. rate 0 takes the stream's DAC rate
// estimate.
func Blocks(dir string, res *rip.Result, rate int) error {
	if rate == 0 {
		rate = res.DACRate
	}
	if rate == 0 {
		rate = defaultDACRate
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating data block directory: %w", err)
	}
	for i, blk := range res.Blocks {
		base := filepath.Join(dir, fmt.Sprintf("DATABLK%d", i))
		if err := os.WriteFile(base+".bin", blk.Data, 0644); err != nil {
			return fmt.Errorf("writing data block %d: %w", i, err)
		}
		if err := writeBlockWAV(base+".wav", blk, rate); err != nil {
			return fmt.Errorf("writing data block %d wav: %w", i, err)
		}
	}
	return nil
}

func writeBlockWAV(path string, blk rip.DataBlock, rate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	samples := make([]int, len(blk.Data))
	for i, b := range blk.Data {
		// DAC bytes are unsigned with silence at 0x80.
		samples[i] = (int(b) - 0x80) << 8
	}

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Data:   samples,
		Format: &audio.Format{SampleRate: rate, NumChannels: 1},
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
