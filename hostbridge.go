// hostbridge.go - feeds raw host stdin into the PS/2 scancode decoder
//
// Only instantiated from cmd/luxkernel for interactive use, never in
// tests: it puts the real terminal into raw mode.
//
// License: GPLv3 or later

package luxkernel

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

const (
	hostBridgePollFloor = time.Millisecond
	hostBridgePollCeil  = 20 * time.Millisecond
)

// asciiToScancode maps an ASCII byte to the make scancode that produces
// it on LayoutUS, and whether shift must be held while it is sent.
var asciiToScancode = buildASCIIToScancode()

func buildASCIIToScancode() map[byte]struct {
	code  byte
	shift bool
} {
	table := make(map[byte]struct {
		code  byte
		shift bool
	})
	for code := 0; code < 128; code++ {
		if ch := LayoutUS.Normal[code]; ch != 0 {
			table[ch] = struct {
				code  byte
				shift bool
			}{byte(code), false}
		}
	}
	for code := 0; code < 128; code++ {
		if ch := LayoutUS.Shift[code]; ch != 0 {
			if _, exists := table[ch]; !exists {
				table[ch] = struct {
					code  byte
					shift bool
				}{byte(code), true}
			}
		}
	}
	return table
}

// HostBridge reads raw stdin and turns each byte into a synthetic PS/2
// make/break scancode sequence fed into a PS2Port, the way a real
// keyboard's scan-code stream would arrive over the clock/data lines.
type HostBridge struct {
	port         *PS2Port
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

// NewHostBridge creates a bridge that feeds decoded stdin bytes into port.
func NewHostBridge(port *PS2Port) *HostBridge {
	return &HostBridge{
		port:   port,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start puts stdin into raw, non-blocking mode and begins translating
// bytes in a goroutine. Call Stop to restore stdin.
func (h *HostBridge) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hostbridge: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "hostbridge: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)
		backoff := hostBridgePollFloor

		for {
			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				backoff = hostBridgePollFloor
				b := buf[0]
				if b == '\r' {
					b = '\n'
				}
				if b == 0x7F {
					b = 0x08
				}
				h.feed(b)
				continue
			}
			if err != nil && err != syscall.EAGAIN && err != syscall.EWOULDBLOCK {
				return
			}
			// No byte was ready: back off a little more each time stdin
			// stays idle, up to a ceiling, and reset as soon as data
			// arrives again. A select on stopCh here (rather than a
			// separate poll at the top of the loop) means Stop() is
			// noticed immediately instead of only after the next read.
			select {
			case <-h.stopCh:
				return
			case <-time.After(backoff):
			}
			if backoff < hostBridgePollCeil {
				backoff *= 2
			}
		}
	}()
}

// feed translates one ASCII byte into a make/break scancode sequence and
// latches each byte into the PS/2 port, one IRQ1 per scancode, as if it
// came from a real keyboard cable.
func (h *HostBridge) feed(b byte) {
	if b == 0x03 {
		cEntry := asciiToScancode['c']
		h.port.Feed(scLeftCtrl)
		h.port.Feed(cEntry.code)
		h.port.Feed(cEntry.code | 0x80)
		h.port.Feed(scLeftCtrl | 0x80)
		return
	}
	entry, ok := asciiToScancode[b]
	if !ok {
		return
	}
	if entry.shift {
		h.port.Feed(scLeftShift)
	}
	h.port.Feed(entry.code)
	h.port.Feed(entry.code | 0x80)
	if entry.shift {
		h.port.Feed(scLeftShift | 0x80)
	}
}

// Stop terminates the reading goroutine and restores stdin to its
// original mode.
func (h *HostBridge) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
