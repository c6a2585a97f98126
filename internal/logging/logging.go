// Package logging configures the program's structured logger and exposes
// a bounded ring buffer of recently formatted lines for the diagnostics
// server (SPEC_FULL.md §6).
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const linesMax = 500

// RingBuffer is a fixed-size ring buffer of formatted log lines.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []string
	index int
	full  bool
}

func newRingBuffer(size int) *RingBuffer {
	return &RingBuffer{buf: make([]string, size)}
}

func (rb *RingBuffer) add(line string) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buf[rb.index] = strings.TrimRight(line, "\n")
	rb.index = (rb.index + 1) % len(rb.buf)

	if rb.index == 0 {
		rb.full = true
	}
}

// Lines returns the buffered lines, oldest first.
func (rb *RingBuffer) Lines() []string {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if !rb.full {
		out := make([]string, rb.index)
		copy(out, rb.buf[:rb.index])

		return out
	}

	size := len(rb.buf)
	out := make([]string, size)
	copy(out, rb.buf[rb.index:])
	copy(out[size-rb.index:], rb.buf[:rb.index])

	return out
}

// ringHook is a logrus.Hook mirroring every formatted entry into a
// [RingBuffer], so the diagnostics server can serve recent log lines
// without tailing a file.
type ringHook struct {
	rb *RingBuffer
}

func (h *ringHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *ringHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err //nolint:wrapcheck
	}

	h.rb.add(line)

	return nil
}

// New returns a configured [logrus.Logger] and the [RingBuffer] it mirrors
// into. debug raises the level to Debug; otherwise Info is used, matching
// spec.md §6's level requirements.
func New(debug bool) (*logrus.Logger, *RingBuffer) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	rb := newRingBuffer(linesMax)
	log.AddHook(&ringHook{rb: rb})

	return log, rb
}
