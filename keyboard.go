// keyboard.go - PS/2 scancode decoder: modifier state machine, layout
// translation, control-code remap, event ring.
//
// License: GPLv3 or later

package luxkernel

import "sync"

// Sentinel symbols for extended keys that have no ASCII representation.
const (
	KeyUp     byte = 0x80
	KeyDown   byte = 0x81
	KeyLeft   byte = 0x82
	KeyRight  byte = 0x83
	KeyHome   byte = 0x84
	KeyEnd    byte = 0x85
	KeyDelete byte = 0x86
)

const keyboardRingCapacity = 64

const (
	scLeftShift  = 0x2A
	scRightShift = 0x36
	scLeftCtrl   = 0x1D
	scCapsLock   = 0x3A
	scAltGr      = 0x38 // only an AltGr toggle when extended
)

var extendedScancodeSymbol = map[byte]byte{
	0x48: KeyUp,
	0x50: KeyDown,
	0x4B: KeyLeft,
	0x4D: KeyRight,
	0x47: KeyHome,
	0x4F: KeyEnd,
	0x53: KeyDelete,
}

// KeyEvent is one decoded keypress, carrying the modifier state at the
// time it was pushed onto the ring.
type KeyEvent struct {
	Symbol   byte
	Shift    bool
	Ctrl     bool
	CapsLock bool
	AltGr    bool
}

type keyModifiers struct {
	leftShift, rightShift bool
	leftCtrl, rightCtrl   bool
	capsLock              bool
	altGr                 bool
}

func (m keyModifiers) shiftActive() bool { return m.leftShift || m.rightShift }
func (m keyModifiers) ctrlActive() bool  { return m.leftCtrl || m.rightCtrl }

// KeyboardController decodes a PS/2 set-1 scancode stream into a ring of
// KeyEvents, tracking modifier latches and extended-sequence state across
// calls to ProcessByte.
type KeyboardController struct {
	mu sync.Mutex

	layout     *Layout
	modifiers  keyModifiers
	extended   bool
	dispatcher *Dispatcher

	ring      [keyboardRingCapacity]KeyEvent
	head, len int
}

// NewKeyboardController returns a decoder using layout and raising
// SignalCtrlC on dispatcher when it decodes a Ctrl-C byte. dispatcher may
// be nil (tests exercising just the decode path don't need one).
func NewKeyboardController(layout *Layout, dispatcher *Dispatcher) *KeyboardController {
	return &KeyboardController{layout: layout, dispatcher: dispatcher}
}

// SetLayout atomically swaps the active layout table.
func (k *KeyboardController) SetLayout(layout *Layout) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.layout = layout
}

// ProcessByte decodes exactly one scancode byte. Called from IRQ1 context
// with interrupts disabled, and by tests driving the state machine
// directly; it never polls the status port.
func (k *KeyboardController) ProcessByte(b byte) {
	k.mu.Lock()

	if b == 0xE0 {
		k.extended = true
		k.mu.Unlock()
		return
	}
	extended := k.extended
	k.extended = false

	isBreak := b&0x80 != 0
	code := b &^ 0x80

	var sym byte
	if extended {
		sym = k.translateExtendedLocked(code, isBreak)
	} else {
		sym = k.translateOrdinaryLocked(code, isBreak)
	}

	var event KeyEvent
	raiseCtrlC := false
	if sym != 0 {
		event = KeyEvent{
			Symbol:   sym,
			Shift:    k.modifiers.shiftActive(),
			Ctrl:     k.modifiers.ctrlActive(),
			CapsLock: k.modifiers.capsLock,
			AltGr:    k.modifiers.altGr,
		}
		k.pushLocked(event)
		raiseCtrlC = sym == 0x03
	}
	k.mu.Unlock()

	if raiseCtrlC && k.dispatcher != nil {
		k.dispatcher.Raise(SignalCtrlC)
	}
}

// translateOrdinaryLocked handles a non-extended scancode: modifier keys
// update latches and emit nothing; ordinary keys emit a symbol on make
// only.
func (k *KeyboardController) translateOrdinaryLocked(code byte, isBreak bool) byte {
	switch code {
	case scLeftShift:
		k.modifiers.leftShift = !isBreak
		return 0
	case scRightShift:
		k.modifiers.rightShift = !isBreak
		return 0
	case scLeftCtrl:
		k.modifiers.leftCtrl = !isBreak
		return 0
	case scCapsLock:
		if !isBreak {
			k.modifiers.capsLock = !k.modifiers.capsLock
		}
		return 0
	}
	if isBreak {
		return 0
	}
	return k.translatePlaneLocked(code)
}

// translateExtendedLocked handles a scancode preceded by 0xE0: right
// ctrl/altgr update latches, arrows/Home/End/Delete map to sentinels.
func (k *KeyboardController) translateExtendedLocked(code byte, isBreak bool) byte {
	switch code {
	case scLeftCtrl: // 0xE0 0x1D is right ctrl on set 1
		k.modifiers.rightCtrl = !isBreak
		return 0
	case scAltGr:
		k.modifiers.altGr = !isBreak
		return 0
	}
	if isBreak {
		return 0
	}
	return extendedScancodeSymbol[code]
}

func isASCIILetterByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// translatePlaneLocked picks normal/shift/altgr per the priority spec.md
// §4.5 lays out, then applies the Ctrl-to-control-code remap.
func (k *KeyboardController) translatePlaneLocked(code byte) byte {
	if int(code) >= len(k.layout.Normal) {
		return 0
	}
	normal := k.layout.Normal[code]
	isLetter := isASCIILetterByte(normal)

	var sym byte
	switch {
	case k.modifiers.altGr && k.layout.AltGr[code] != 0:
		sym = k.layout.AltGr[code]
	case k.modifiers.shiftActive() != (k.modifiers.capsLock && isLetter) && k.layout.Shift[code] != 0:
		sym = k.layout.Shift[code]
	default:
		sym = normal
	}

	if sym == 0 {
		return 0
	}
	if k.modifiers.ctrlActive() && isASCIILetterByte(sym) {
		sym = sym & 0x1F
	}
	return sym
}

func (k *KeyboardController) pushLocked(event KeyEvent) {
	if k.len == keyboardRingCapacity {
		// drop-oldest: advance head, caller's event still gets appended
		k.head = (k.head + 1) % keyboardRingCapacity
		k.len--
	}
	tail := (k.head + k.len) % keyboardRingCapacity
	k.ring[tail] = event
	k.len++
}

// PollEvent returns the oldest pending event without blocking.
func (k *KeyboardController) PollEvent() (KeyEvent, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.len == 0 {
		return KeyEvent{}, false
	}
	event := k.ring[k.head]
	k.head = (k.head + 1) % keyboardRingCapacity
	k.len--
	return event, true
}

// PollChar is PollEvent narrowed to the decoded symbol.
func (k *KeyboardController) PollChar() (byte, bool) {
	event, ok := k.PollEvent()
	return event.Symbol, ok
}

// ReadEvent spins on PollEvent until one is available.
func (k *KeyboardController) ReadEvent() KeyEvent {
	for {
		if event, ok := k.PollEvent(); ok {
			return event
		}
	}
}

// ReadChar spins on PollChar until one is available.
func (k *KeyboardController) ReadChar() byte {
	for {
		if ch, ok := k.PollChar(); ok {
			return ch
		}
	}
}

// ModifierSnapshot is the diagnostic view of current latch state, exposed
// for the console and for round-trip tests.
type ModifierSnapshot struct {
	LeftShift, RightShift bool
	LeftCtrl, RightCtrl   bool
	CapsLock              bool
	AltGr                 bool
	LayoutName            string
}

// Snapshot reports the current modifier latch state without consuming any
// ring entries.
func (k *KeyboardController) Snapshot() ModifierSnapshot {
	k.mu.Lock()
	defer k.mu.Unlock()
	return ModifierSnapshot{
		LeftShift:  k.modifiers.leftShift,
		RightShift: k.modifiers.rightShift,
		LeftCtrl:   k.modifiers.leftCtrl,
		RightCtrl:  k.modifiers.rightCtrl,
		CapsLock:   k.modifiers.capsLock,
		AltGr:      k.modifiers.altGr,
		LayoutName: k.layout.Name,
	}
}

// Reset clears modifier latches, extended-pending state, and the event
// ring, but keeps the active layout.
func (k *KeyboardController) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.modifiers = keyModifiers{}
	k.extended = false
	k.head, k.len = 0, 0
}
