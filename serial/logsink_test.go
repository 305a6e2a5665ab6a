package serial

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchwillow/dmgo/addr"
	"github.com/finchwillow/dmgo/bit"
)

func TestImmediateTransferCompletesOnSCWrite(t *testing.T) {
	fired := 0
	s := NewLogSink(func() { fired++ })

	s.Write(addr.SB, 'A')
	s.Write(addr.SC, 0b1000_0001) // start + internal clock

	assert.Equal(t, byte(0xFF), s.Read(addr.SB), "immediate transfer replaces SB with the default RX byte")
	assert.False(t, bit.IsSet(7, s.Read(addr.SC)), "start bit clears once the transfer completes")
	assert.Equal(t, 1, fired)
}

func TestExternalClockDoesNotStartATransfer(t *testing.T) {
	fired := 0
	s := NewLogSink(func() { fired++ })

	s.Write(addr.SB, 'A')
	s.Write(addr.SC, 0b1000_0000) // start bit set, but external clock
	assert.Equal(t, 0, fired)
	assert.Equal(t, byte('A'), s.Read(addr.SB), "SB is untouched without a completed transfer")
}

func TestFixedTimingTransferCompletesAfterCountdown(t *testing.T) {
	fired := 0
	s := NewLogSink(func() { fired++ }, WithFixedTiming())

	s.Write(addr.SB, 'A')
	s.Write(addr.SC, 0b1000_0001)
	assert.Equal(t, 0, fired, "fixed-timing transfer must not complete on the same cycle it starts")

	s.Tick(4095)
	assert.Equal(t, 0, fired)

	s.Tick(1)
	assert.Equal(t, 1, fired)
	assert.Equal(t, byte(0xFF), s.Read(addr.SB))
}

func TestLineBufferingFlushesOnNewline(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(func() {})
	s.logger = slog.New(slog.NewTextHandler(&buf, nil))

	for _, b := range []byte("HI\n") {
		s.Write(addr.SB, b)
		s.Write(addr.SC, 0b1000_0001)
	}

	require.Contains(t, buf.String(), "line=HI")
}

func TestSnapshotRestoreRoundTripsInFlightTransfer(t *testing.T) {
	s := NewLogSink(func() {}, WithFixedTiming())
	s.Write(addr.SB, 'H')
	s.Write(addr.SC, 0b1000_0001)
	require.True(t, s.transferActive)

	snap := s.Snapshot()

	fresh := NewLogSink(func() {}, WithFixedTiming())
	fresh.Restore(snap)

	assert.True(t, fresh.transferActive)
	assert.Equal(t, s.countdown, fresh.countdown)
	assert.Equal(t, []byte("H"), fresh.line)
}

func TestResetClearsPendingLineAndTransferState(t *testing.T) {
	s := NewLogSink(func() {}, WithFixedTiming())
	s.Write(addr.SB, 'X')
	s.Write(addr.SC, 0b1000_0001)
	require.True(t, s.transferActive)

	s.Reset()
	assert.False(t, s.transferActive)
	assert.Empty(t, s.line)
	assert.Equal(t, byte(0), s.Read(addr.SB))
}
