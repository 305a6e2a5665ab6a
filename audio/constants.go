package audio

// waveRAMSize is the size of wave pattern RAM in bytes (16 bytes = 32 nibbles).
const waveRAMSize = 16

// hostSampleRate is the APU's fixed output rate; mCyclesPerFrame (m-cycles per stereo frame) is derived
// from the master m-cycle rate (1,048,576 Hz) so resampling needs no
// external wall-clock.
const (
	hostSampleRate  = 48000
	mCyclesPerFrame = 1048576.0 / hostSampleRate
)

var dutyPatterns = [4][8]int64{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

var noiseDividers = [8]int{8, 16, 32, 48, 64, 80, 96, 112}
