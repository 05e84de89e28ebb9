// kernel.go - bring-up, subsystem wiring, and aggregate reset
//
// Boot follows a fixed order: heap, then dispatcher, then IDT/PIC, then
// the PIT, then the ATA channel, then the luxfs mount. Interrupts stay
// masked at the IF flag until every handler that needs to run behind
// them is already installed.
//
// License: GPLv3 or later

package luxkernel

import "fmt"

// DefaultDiskSectors is the smallest disk luxfs will mount onto: enough
// room for its reserved region plus the filesystem's own fixed extent.
const DefaultDiskSectors = fsStartLBA + fsTotalSectors

// Kernel owns every subsystem and the wiring between them. Callers reach
// individual subsystems through its exported fields; Boot and Reset are
// the only operations that touch more than one at a time.
type Kernel struct {
	Bus  *IOBus
	Heap *Heap
	Disp *Dispatcher

	PIC *PIC
	IDT *IDT
	PIT *PIT

	PS2 *PS2Port
	Kbd *KeyboardController

	ATA *ATAController
	FS  *FS

	Sched *Scheduler
	Swap  *SwapBuffer
	VGA   CellMatrixSink

	disk *ataDrive
}

// NewKernel assembles every subsystem unwired and unbooted. diskSectors
// is the size of the backing virtual disk; callers that only need the
// default luxfs footprint can pass DefaultDiskSectors.
func NewKernel(diskSectors uint32, layout *Layout, vga CellMatrixSink) *Kernel {
	bus := NewIOBus()
	disk := NewVirtualDisk(diskSectors)
	heap := NewHeap()
	disp := NewDispatcher()
	pic := NewPIC()

	k := &Kernel{
		Bus:   bus,
		Heap:  heap,
		Disp:  disp,
		PIC:   pic,
		IDT:   NewIDT(pic),
		PIT:   NewPIT(),
		PS2:   NewPS2Port(),
		Kbd:   NewKeyboardController(layout, disp),
		ATA:   NewATAController(bus),
		FS:    NewFS(),
		Sched: NewScheduler(heap),
		Swap:  NewSwapBuffer(0),
		VGA:   vga,
		disk:  disk,
	}
	return k
}

// Boot brings every subsystem up in the order the IRQ and allocation
// invariants require: heap before any allocation, IDT before interrupts
// are enabled, ATA before the luxfs mount, and the mount itself last
// because it is the only step that can fail against a disk too small
// for luxfs's fixed layout.
func (k *Kernel) Boot() error {
	k.Heap.Init()

	k.PIC.Attach(k.Bus)
	k.PIT.Attach(k.Bus)
	k.PS2.Attach(k.Bus)
	k.disk.Attach(k.Bus)

	k.PS2.SetIDT(k.IDT)
	k.IDT.SetIRQHandler(1, k.onKeyboardIRQ)

	k.PIC.Remap(k.Bus)
	k.PIT.SetTickCallback(k.onTick)
	k.IDT.SetIRQHandler(0, k.onTimerIRQ)

	if err := k.ATA.Init(); err != nil {
		return fmt.Errorf("ata init: %w", err)
	}
	if err := k.FS.Mount(k.ATA); err != nil {
		return fmt.Errorf("luxfs mount: %w", err)
	}

	k.IDT.EnableInterrupts()
	return nil
}

// onKeyboardIRQ is the IRQ1 entry point: it reads the latched scancode
// back out through the bus, the same path real firmware would use, and
// hands it to the decoder.
func (k *Kernel) onKeyboardIRQ() {
	b := k.Bus.InB(PortPS2Data)
	k.Kbd.ProcessByte(b)
}

// onTimerIRQ is the IRQ0 entry point: it runs the scheduler's pick-next
// pass after the PIT's tick callback has already aged every sleeper.
func (k *Kernel) onTimerIRQ() {
	k.Sched.Schedule()
}

// onTick is the PIT's tick callback: it ages sleeping tasks, then raises
// IRQ0 so the scheduling pass runs behind the same EOI discipline every
// other interrupt source does.
func (k *Kernel) onTick(elapsed uint32) {
	k.Sched.UpdateSleepTimes(elapsed)
	k.IDT.RaiseIRQ(0)
}

// Reset clears the heap, dispatcher, IDT, PIT, PS/2 port and keyboard
// decoder: IRQ handlers installed by Boot stay installed, the heap is left
// uninitialized, and dispatcher subscriptions are dropped. The scheduler's
// process table, the ATA driver, the swap buffer and the luxfs mount are
// not touched — callers that want a fresh heap and mount call Boot again.
func (k *Kernel) Reset() {
	k.Heap.Reset()
	k.Disp.Reset()
	k.IDT.Reset()
	k.PIT.Reset()
	k.PS2.Reset()
	k.Kbd.Reset()
}

// NewDiagConsole returns a diagnostic console wired to this kernel's
// heap, scheduler, keyboard, and filesystem.
func (k *Kernel) NewDiagConsole() *DiagConsole {
	return NewDiagConsole(k.Heap, k.Sched, k.Kbd, k.FS)
}

// LoadDiskImage restores a previously saved disk image into the virtual
// disk's backing store. Call before Boot.
func (k *Kernel) LoadDiskImage(data []byte) error {
	return k.disk.LoadImage(data)
}

// SaveDiskImage returns the virtual disk's entire backing store, for the
// host to persist to a file.
func (k *Kernel) SaveDiskImage() []byte {
	return k.disk.Snapshot()
}
