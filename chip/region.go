package chip

// Region selects the console timing variant. The Genesis sound chips are
// clocked off the main crystal, so FM and PSG rates differ between NTSC
// and PAL units.
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
)

// RegionClocks holds the sound chip clock rates for a region.
// The YM2612 runs at the 68000 clock, the SN76489 at the Z80 clock.
type RegionClocks struct {
	FMClockHz  int // YM2612 master clock
	PSGClockHz int // SN76489 master clock
}

// NTSC clocks: YM2612 7.670454 MHz, SN76489 3.579545 MHz
var NTSCClocks = RegionClocks{
	FMClockHz:  7670454,
	PSGClockHz: 3579545,
}

// PAL clocks: YM2612 7.600489 MHz, SN76489 3.546893 MHz
var PALClocks = RegionClocks{
	FMClockHz:  7600489,
	PSGClockHz: 3546893,
}

// ClocksForRegion returns the chip clock rates for a region.
func ClocksForRegion(r Region) RegionClocks {
	if r == RegionPAL {
		return PALClocks
	}
	return NTSCClocks
}
