package keyboard

// Scancode set 1 make codes for the keys that change the decoder state. The
// matching break code has bit 7 set.
const (
	scLeftShift  byte = 0x2a
	scRightShift byte = 0x36
	scCapsLock   byte = 0x3a
	scBackspace  byte = 0x0e
	scTab        byte = 0x0f
	scEnter      byte = 0x1c
	scSpace      byte = 0x39
	scEscape     byte = 0x01

	breakBit       byte = 0x80
	extendedPrefix byte = 0xe0
)

// keyRow maps a run of consecutive make codes to the characters printed on
// the keys, without and with shift held.
type keyRow struct {
	first        byte
	lower, upper string
}

// usLayout describes the printable keys of a US keyboard.
var usLayout = [...]keyRow{
	{0x02, "1234567890-=", "!@#$%^&*()_+"},
	{0x10, "qwertyuiop[]", "QWERTYUIOP{}"},
	{0x1e, "asdfghjkl;'`", "ASDFGHJKL:\"~"},
	{0x2b, "\\zxcvbnm,./", "|ZXCVBNM<>?"},
}

// Decoder converts scancode set 1 bytes into characters for a US keyboard
// layout. It keeps track of the shift keys and caps lock. The zero value is
// ready to use.
type Decoder struct {
	leftShift  bool
	rightShift bool
	capsLock   bool
	extended   bool
}

// Process feeds a scancode to the decoder. It returns the decoded character
// and true if the scancode completed a key press that produces one.
func (d *Decoder) Process(scancode byte) (rune, bool) {
	if scancode == extendedPrefix {
		d.extended = true
		return 0, false
	}

	// Extended keys (arrows, right ctrl, keypad enter...) do not produce
	// characters.
	if d.extended {
		d.extended = false
		return 0, false
	}

	if scancode&breakBit != 0 {
		switch scancode &^ breakBit {
		case scLeftShift:
			d.leftShift = false
		case scRightShift:
			d.rightShift = false
		}
		return 0, false
	}

	switch scancode {
	case scLeftShift:
		d.leftShift = true
		return 0, false
	case scRightShift:
		d.rightShift = true
		return 0, false
	case scCapsLock:
		d.capsLock = !d.capsLock
		return 0, false
	case scBackspace:
		return '\b', true
	case scTab:
		return '\t', true
	case scEnter:
		return '\n', true
	case scSpace:
		return ' ', true
	case scEscape:
		return 0x1b, true
	}

	shift := d.leftShift || d.rightShift
	for _, row := range usLayout {
		if scancode < row.first || int(scancode-row.first) >= len(row.lower) {
			continue
		}

		index := scancode - row.first
		ch := row.lower[index]
		if isLetter(ch) && d.capsLock {
			shift = !shift
		}

		if shift {
			ch = row.upper[index]
		}
		return rune(ch), true
	}

	return 0, false
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z'
}
