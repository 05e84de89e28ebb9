// ps2.go - PS/2 keyboard port: one-byte latch plus IRQ1 discipline
//
// Mirrors the ATA split between a hardware-register device and the
// software driver that reads it: PS2Port is the register a scancode
// lands in; the IRQ1 handler (wired in kernel.go) is what actually reads
// it and hands the byte to the decoder.
//
// License: GPLv3 or later

package luxkernel

import "sync"

const ps2StatusOutputFull = 0x01

// PS2Port is the hardware side of the keyboard controller: a one-byte
// scancode latch and a status register, addressable at PortPS2Data and
// PortPS2Status.
type PS2Port struct {
	mu    sync.Mutex
	idt   *IDT
	latch byte
	full  bool
}

// NewPS2Port returns an unattached PS/2 port. Attach wires it to a bus;
// SetIDT wires the IRQ1 line it raises on Feed.
func NewPS2Port() *PS2Port {
	return &PS2Port{}
}

// SetIDT installs the IDT whose IRQ1 line Feed raises.
func (p *PS2Port) SetIDT(idt *IDT) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idt = idt
}

// Attach registers the port's data and status ports on bus.
func (p *PS2Port) Attach(bus *IOBus) {
	bus.Attach(PortPS2Data, PortPS2Data, p)
	bus.Attach(PortPS2Status, PortPS2Status, p)
}

func (p *PS2Port) OnIn(port uint16) byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch port {
	case PortPS2Status:
		if p.full {
			return ps2StatusOutputFull
		}
		return 0
	case PortPS2Data:
		p.full = false
		return p.latch
	default:
		return 0
	}
}

func (p *PS2Port) OnOut(port uint16, value byte) {}

// Feed latches b as the next scancode and raises IRQ1, the way a real
// keyboard's clock/data lines would. The IRQ1 handler is responsible for
// reading the byte back out via the bus before returning.
func (p *PS2Port) Feed(b byte) {
	p.mu.Lock()
	p.latch = b
	p.full = true
	idt := p.idt
	p.mu.Unlock()

	if idt != nil {
		idt.RaiseIRQ(1)
	}
}

// Reset clears the latch.
func (p *PS2Port) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latch = 0
	p.full = false
}
