package luxkernel

import "testing"

func TestPITTickIncrementsMonotonicCounter(t *testing.T) {
	p := NewPIT()
	for i := 0; i < 5; i++ {
		p.Tick()
	}
	if p.Ticks() != 5 {
		t.Fatalf("Ticks() = %d, want 5", p.Ticks())
	}
}

func TestPITTickInvokesCallbackWithElapsed(t *testing.T) {
	p := NewPIT()
	var got []uint32
	p.SetTickCallback(func(elapsed uint32) { got = append(got, elapsed) })

	p.Tick()
	p.Tick()
	p.Tick()

	want := []uint32{1, 1, 1}
	if len(got) != len(want) {
		t.Fatalf("callback fired %d times, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("elapsed[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPITCommandProgramsModeAndLatchesDivisor(t *testing.T) {
	bus := NewIOBus()
	p := NewPIT()
	p.Attach(bus)

	bus.OutB(PortPITCommand, pitCommandRateGenerator)
	bus.OutB(PortPITChannel0, 0xAB)
	bus.OutB(PortPITChannel0, 0xCD)

	if p.divisor != 0xCDAB {
		t.Fatalf("divisor = %#04x, want 0xcdab", p.divisor)
	}
}

func TestPITResetZeroesCounterAndReprogramsDefaultDivisor(t *testing.T) {
	p := NewPIT()
	p.Tick()
	p.Tick()
	p.Reset()
	if p.Ticks() != 0 {
		t.Fatalf("Ticks() after Reset = %d, want 0", p.Ticks())
	}
	if p.divisor != pitDivisor {
		t.Fatalf("divisor after Reset = %d, want %d", p.divisor, pitDivisor)
	}
}

func TestPITStartStopRealTimeIsIdempotent(t *testing.T) {
	p := NewPIT()
	p.StartRealTime()
	p.StartRealTime() // second call must be a no-op, not a double-start
	p.Stop()
	p.Stop() // second call must not panic on a nil channel
}
