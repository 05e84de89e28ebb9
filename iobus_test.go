package luxkernel

import "testing"

type recordingDevice struct {
	lastOutPort uint16
	lastOutVal  byte
	inVal       byte
}

func (d *recordingDevice) OnIn(port uint16) byte {
	return d.inVal
}

func (d *recordingDevice) OnOut(port uint16, value byte) {
	d.lastOutPort = port
	d.lastOutVal = value
}

func TestIOBusByteRoundTrip(t *testing.T) {
	bus := NewIOBus()
	dev := &recordingDevice{inVal: 0x42}
	bus.Attach(0x60, 0x60, dev)

	bus.OutB(0x60, 0x99)
	if dev.lastOutPort != 0x60 || dev.lastOutVal != 0x99 {
		t.Fatalf("OnOut not invoked with expected args: %v", dev)
	}
	if got := bus.InB(0x60); got != 0x42 {
		t.Fatalf("InB = %#x, want 0x42", got)
	}
}

func TestIOBusUnmappedPort(t *testing.T) {
	bus := NewIOBus()
	if got := bus.InB(0x1234); got != 0xFF {
		t.Fatalf("InB on unmapped port = %#x, want 0xFF", got)
	}
	// Must not panic.
	bus.OutB(0x1234, 0x01)
}

func TestIOBusWordIsLittleEndianBytearPair(t *testing.T) {
	bus := NewIOBus()
	dev := &twoByteDevice{}
	bus.Attach(0x1F0, 0x1F1, dev)

	bus.OutW(0x1F0, 0xBEEF)
	if dev.vals[0x1F0] != 0xEF || dev.vals[0x1F1] != 0xBE {
		t.Fatalf("OutW did not split little-endian: %v", dev.vals)
	}

	dev.vals[0x1F0] = 0x34
	dev.vals[0x1F1] = 0x12
	if got := bus.InW(0x1F0); got != 0x1234 {
		t.Fatalf("InW = %#x, want 0x1234", got)
	}
}

type twoByteDevice struct {
	vals map[uint16]byte
}

func (d *twoByteDevice) OnIn(port uint16) byte {
	if d.vals == nil {
		return 0
	}
	return d.vals[port]
}

func (d *twoByteDevice) OnOut(port uint16, value byte) {
	if d.vals == nil {
		d.vals = make(map[uint16]byte)
	}
	d.vals[port] = value
}
