package chip

import "testing"

func TestClocksForRegion_NTSC(t *testing.T) {
	c := ClocksForRegion(RegionNTSC)
	if c != NTSCClocks {
		t.Errorf("got %+v, want the NTSC table", c)
	}
	if c.FMClockHz != 7670454 {
		t.Errorf("FM clock: got %d, want 7670454", c.FMClockHz)
	}
	if c.PSGClockHz != 3579545 {
		t.Errorf("PSG clock: got %d, want 3579545", c.PSGClockHz)
	}
}

func TestClocksForRegion_PAL(t *testing.T) {
	c := ClocksForRegion(RegionPAL)
	if c != PALClocks {
		t.Errorf("got %+v, want the PAL table", c)
	}
	if c.FMClockHz != 7600489 {
		t.Errorf("FM clock: got %d, want 7600489", c.FMClockHz)
	}
	if c.PSGClockHz != 3546893 {
		t.Errorf("PSG clock: got %d, want 3546893", c.PSGClockHz)
	}
}

func TestClocksForRegion_UnknownDefaultsNTSC(t *testing.T) {
	if got := ClocksForRegion(Region(99)); got != NTSCClocks {
		t.Errorf("got %+v, want NTSC (default)", got)
	}
}
