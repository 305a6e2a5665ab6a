// Package serial stubs out the game-link port. This core has no peer-link
// emulation (a Non-goal); instead it implements a log-only sink, which is
// what DMG test ROMs use to report pass/fail text.
package serial

import (
	"log/slog"

	"github.com/finchwillow/dmgo/addr"
	"github.com/finchwillow/dmgo/bit"
)

// Port is the minimal interface the bus needs from a serial device.
type Port interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	Tick(cycles int)
	Reset()
}

// LogSink implements Port by logging completed transfers as text, buffering
// bytes into lines for readability.
type LogSink struct {
	irqHandler func()
	sb, sc     byte

	transferActive bool
	countdown      int
	immediate      bool
	defaultRX      byte

	line   []byte
	logger *slog.Logger
}

// Option configures a LogSink at construction.
type Option func(*LogSink)

// WithFixedTiming makes transfers complete after a realistic ~4096-cycle
// countdown instead of instantly, for timing-sensitive test ROMs.
func WithFixedTiming() Option { return func(s *LogSink) { s.immediate = false } }

// NewLogSink creates a serial stub. irq is invoked once per completed
// transfer and should request the Serial interrupt on the bus.
func NewLogSink(irq func(), opts ...Option) *LogSink {
	s := &LogSink{
		irqHandler: irq,
		immediate:  true,
		defaultRX:  0xFF,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

func (s *LogSink) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return s.sc
	default:
		return 0xFF
	}
}

func (s *LogSink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value
		s.maybeStartTransfer()
	}
}

func (s *LogSink) Tick(cycles int) {
	if s.immediate || !s.transferActive {
		return
	}
	s.countdown -= cycles
	if s.countdown <= 0 {
		s.completeTransfer()
	}
}

func (s *LogSink) Reset() {
	s.sb, s.sc = 0, 0
	s.transferActive = false
	s.countdown = 0
	s.line = s.line[:0]
}

func (s *LogSink) maybeStartTransfer() {
	if s.transferActive {
		return
	}
	if !bit.IsSet(7, s.sc) || !bit.IsSet(0, s.sc) {
		return
	}

	b := s.sb
	if b == 0 || b == '\n' || b == '\r' {
		if len(s.line) > 0 {
			s.logger.Info("serial", "line", string(s.line))
			s.line = s.line[:0]
		}
	} else {
		s.line = append(s.line, b)
	}

	if s.immediate {
		s.completeTransfer()
		return
	}
	s.transferActive = true
	s.countdown = 4096
}

// Snapshot is a LogSink's resumable state: the in-flight transfer, the
// SB/SC register contents, and any buffered partial line.
type Snapshot struct {
	SB, SC         byte
	TransferActive bool
	Countdown      int
	Line           []byte
}

// Snapshot captures the sink's current state.
func (s *LogSink) Snapshot() Snapshot {
	line := make([]byte, len(s.line))
	copy(line, s.line)
	return Snapshot{
		SB:             s.sb,
		SC:             s.sc,
		TransferActive: s.transferActive,
		Countdown:      s.countdown,
		Line:           line,
	}
}

// Restore replaces the sink's state with a previously captured Snapshot.
// The irqHandler callback is left untouched.
func (s *LogSink) Restore(snap Snapshot) {
	s.sb = snap.SB
	s.sc = snap.SC
	s.transferActive = snap.TransferActive
	s.countdown = snap.Countdown
	s.line = append(s.line[:0], snap.Line...)
}

func (s *LogSink) completeTransfer() {
	s.sb = s.defaultRX
	s.sc = bit.Reset(7, s.sc)
	s.transferActive = false
	s.countdown = 0
	if s.irqHandler != nil {
		s.irqHandler()
	}
}

