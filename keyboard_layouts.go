// keyboard_layouts.go - static three-plane scancode-to-symbol tables
//
// Each Layout holds 128 make-code entries per plane (index = scancode with
// the break bit masked off). A zero entry means "this plane has nothing for
// this scancode" and the decoder falls through to the next plane in
// priority order.
//
// License: GPLv3 or later

package luxkernel

// Layout is a complete set of plane tables for one keyboard layout.
type Layout struct {
	Name  string
	Normal [128]byte
	Shift  [128]byte
	AltGr  [128]byte
}

// LayoutUS is the US-English QWERTY layout.
var LayoutUS = buildLayoutUS()

// LayoutDE is the German QWERTZ layout, including umlauts and a handful of
// AltGr glyphs.
var LayoutDE = buildLayoutDE()

func buildLayoutUS() *Layout {
	l := &Layout{Name: "US"}

	letters := map[byte]byte{
		0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't', 0x15: 'y', 0x16: 'u',
		0x17: 'i', 0x18: 'o', 0x19: 'p',
		0x1E: 'a', 0x1F: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g', 0x23: 'h', 0x24: 'j',
		0x25: 'k', 0x26: 'l',
		0x2C: 'z', 0x2D: 'x', 0x2E: 'c', 0x2F: 'v', 0x30: 'b', 0x31: 'n', 0x32: 'm',
	}
	for code, ch := range letters {
		l.Normal[code] = ch
		l.Shift[code] = ch - ('a' - 'A')
	}

	digits := map[byte][2]byte{
		0x02: {'1', '!'}, 0x03: {'2', '@'}, 0x04: {'3', '#'}, 0x05: {'4', '$'},
		0x06: {'5', '%'}, 0x07: {'6', '^'}, 0x08: {'7', '&'}, 0x09: {'8', '*'},
		0x0A: {'9', '('}, 0x0B: {'0', ')'},
	}
	for code, pair := range digits {
		l.Normal[code] = pair[0]
		l.Shift[code] = pair[1]
	}

	punct := map[byte][2]byte{
		0x0C: {'-', '_'}, 0x0D: {'=', '+'}, 0x1A: {'[', '{'}, 0x1B: {']', '}'},
		0x27: {';', ':'}, 0x28: {'\'', '"'}, 0x29: {'`', '~'}, 0x2B: {'\\', '|'},
		0x33: {',', '<'}, 0x34: {'.', '>'}, 0x35: {'/', '?'},
	}
	for code, pair := range punct {
		l.Normal[code] = pair[0]
		l.Shift[code] = pair[1]
	}

	l.Normal[0x39] = ' '
	l.Shift[0x39] = ' '
	l.Normal[0x1C] = '\r'
	l.Shift[0x1C] = '\r'
	l.Normal[0x0F] = '\t'
	l.Shift[0x0F] = '\t'
	l.Normal[0x0E] = 0x08 // backspace
	l.Shift[0x0E] = 0x08

	return l
}

func buildLayoutDE() *Layout {
	// Start from the US table and overlay the QWERTZ differences, the
	// umlauts, and the ß/AltGr glyphs the DE layout adds.
	base := buildLayoutUS()
	l := &Layout{Name: "DE", Normal: base.Normal, Shift: base.Shift, AltGr: base.AltGr}

	l.Normal[0x15] = 'z' // Y and Z swap places
	l.Shift[0x15] = 'Z'
	l.Normal[0x2C] = 'y'
	l.Shift[0x2C] = 'Y'

	l.Normal[0x1A] = 0xFC // ü
	l.Shift[0x1A] = 0xDC  // Ü
	l.Normal[0x27] = 0xF6 // ö
	l.Shift[0x27] = 0xD6  // Ö
	l.Normal[0x28] = 0xE4 // ä
	l.Shift[0x28] = 0xC4  // Ä
	l.Normal[0x0C] = 0xDF // ß
	l.Shift[0x0C] = '?'

	l.Normal[0x33] = ','
	l.Shift[0x33] = ';'
	l.Normal[0x34] = '.'
	l.Shift[0x34] = ':'
	l.Normal[0x35] = '-'
	l.Shift[0x35] = '_'

	l.AltGr[0x03] = 0xB2 // AltGr+2 -> superscript two, a common DE AltGr glyph
	l.AltGr[0x10] = '@'  // AltGr+Q -> at sign
	l.AltGr[0x12] = 0xA4 // AltGr+E -> currency sign, stand-in for Euro
	l.AltGr[0x1A] = '{'  // AltGr+ü plane carries brace/bracket glyphs on DE
	l.AltGr[0x1B] = '}'
	l.AltGr[0x08] = '{'
	l.AltGr[0x09] = '['
	l.AltGr[0x0A] = ']'
	l.AltGr[0x0B] = '}'

	return l
}
