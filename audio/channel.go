package audio

// Channel holds the generator state shared by all four APU voices; fields
// apply depending on channel type (see field comments).
type Channel struct {
	enabled bool

	left, right bool // NR51 panning; if neither, the channel contributes nothing

	duty   uint8
	timer  uint8
	length uint16
	volume uint8

	// Frequency sweep, CH1 only.
	sweepPeriod  uint8
	sweepDown    bool
	sweepStep    uint8
	sweepEnabled bool
	sweepTimer   uint8
	shadowFreq   uint16
	sweepNegUsed bool

	envelopePace    uint8
	envelopeUp      bool
	envelopeCounter uint8
	envelopeLatched bool

	period       uint16
	trigger      bool
	lengthEnable bool
	freqTimer    int
	dutyStep     uint8
	waveIndex    uint8
	waveSample   uint8
	noiseTimer   int

	lfsr        uint16
	use7bitLFSR bool
	shift       uint8
	divider     uint8

	dacEnabled bool

	muted bool
}

// calculateSweepFrequency applies the sweep shift to the shadow frequency.
func (ch *Channel) calculateSweepFrequency() (newFreq uint16, overflow bool) {
	if ch.sweepStep == 0 {
		return ch.shadowFreq, false
	}
	return ch.checkSweepOverflow()
}

// checkSweepOverflow computes the sweep target even when shift is zero,
// for the periodic overflow recheck that must run regardless.
func (ch *Channel) checkSweepOverflow() (newFreq uint16, overflow bool) {
	delta := ch.shadowFreq >> ch.sweepStep
	if ch.sweepDown {
		if delta > ch.shadowFreq {
			newFreq = 0
		} else {
			newFreq = ch.shadowFreq - delta
		}
	} else {
		newFreq = ch.shadowFreq + delta
	}
	return newFreq, newFreq > 2047
}

// ChannelSnapshot is a Channel's resumable generator state, for save states.
type ChannelSnapshot struct {
	Enabled     bool
	Left, Right bool

	Duty, Timer uint8
	Length      uint16
	Volume      uint8

	SweepPeriod  uint8
	SweepDown    bool
	SweepStep    uint8
	SweepEnabled bool
	SweepTimer   uint8
	ShadowFreq   uint16
	SweepNegUsed bool

	EnvelopePace    uint8
	EnvelopeUp      bool
	EnvelopeCounter uint8
	EnvelopeLatched bool

	Period       uint16
	Trigger      bool
	LengthEnable bool
	FreqTimer    int
	DutyStep     uint8
	WaveIndex    uint8
	WaveSample   uint8
	NoiseTimer   int

	LFSR        uint16
	Use7BitLFSR bool
	Shift       uint8
	Divider     uint8

	DACEnabled bool
	Muted      bool
}

func (ch *Channel) snapshot() ChannelSnapshot {
	return ChannelSnapshot{
		Enabled: ch.enabled, Left: ch.left, Right: ch.right,
		Duty: ch.duty, Timer: ch.timer, Length: ch.length, Volume: ch.volume,
		SweepPeriod: ch.sweepPeriod, SweepDown: ch.sweepDown, SweepStep: ch.sweepStep,
		SweepEnabled: ch.sweepEnabled, SweepTimer: ch.sweepTimer, ShadowFreq: ch.shadowFreq,
		SweepNegUsed: ch.sweepNegUsed,
		EnvelopePace: ch.envelopePace, EnvelopeUp: ch.envelopeUp,
		EnvelopeCounter: ch.envelopeCounter, EnvelopeLatched: ch.envelopeLatched,
		Period: ch.period, Trigger: ch.trigger, LengthEnable: ch.lengthEnable,
		FreqTimer: ch.freqTimer, DutyStep: ch.dutyStep, WaveIndex: ch.waveIndex,
		WaveSample: ch.waveSample, NoiseTimer: ch.noiseTimer,
		LFSR: ch.lfsr, Use7BitLFSR: ch.use7bitLFSR, Shift: ch.shift, Divider: ch.divider,
		DACEnabled: ch.dacEnabled, Muted: ch.muted,
	}
}

func (ch *Channel) restore(s ChannelSnapshot) {
	ch.enabled, ch.left, ch.right = s.Enabled, s.Left, s.Right
	ch.duty, ch.timer, ch.length, ch.volume = s.Duty, s.Timer, s.Length, s.Volume
	ch.sweepPeriod, ch.sweepDown, ch.sweepStep = s.SweepPeriod, s.SweepDown, s.SweepStep
	ch.sweepEnabled, ch.sweepTimer, ch.shadowFreq = s.SweepEnabled, s.SweepTimer, s.ShadowFreq
	ch.sweepNegUsed = s.SweepNegUsed
	ch.envelopePace, ch.envelopeUp = s.EnvelopePace, s.EnvelopeUp
	ch.envelopeCounter, ch.envelopeLatched = s.EnvelopeCounter, s.EnvelopeLatched
	ch.period, ch.trigger, ch.lengthEnable = s.Period, s.Trigger, s.LengthEnable
	ch.freqTimer, ch.dutyStep, ch.waveIndex = s.FreqTimer, s.DutyStep, s.WaveIndex
	ch.waveSample, ch.noiseTimer = s.WaveSample, s.NoiseTimer
	ch.lfsr, ch.use7bitLFSR, ch.shift, ch.divider = s.LFSR, s.Use7BitLFSR, s.Shift, s.Divider
	ch.dacEnabled, ch.muted = s.DACEnabled, s.Muted
}
