package main

import (
	"gopherkern/kernel/driver/keyboard"
	"gopherkern/kernel/task"

	tty "github.com/mattn/go-tty"
)

const (
	scLeftShift byte = 0x2a
	breakBit    byte = 0x80
	maxScancode byte = 0x58

	keyCtrlC rune = 0x03
	keyCtrlD rune = 0x04
	keyDel   rune = 0x7f
)

// scancodeTable maps characters to the scancode set 1 sequence that types
// them on a US keyboard.
var scancodeTable = buildScancodeTable()

// buildScancodeTable asks the kernel keyboard decoder which character each
// key produces, with and without shift, and records the sequences that
// reproduce them.
func buildScancodeTable() map[rune][]byte {
	table := make(map[rune][]byte)

	for sc := byte(1); sc <= maxScancode; sc++ {
		var dec keyboard.Decoder
		if ch, ok := dec.Process(sc); ok {
			if _, exists := table[ch]; !exists {
				table[ch] = []byte{sc, sc | breakBit}
			}
		}
	}

	for sc := byte(1); sc <= maxScancode; sc++ {
		var dec keyboard.Decoder
		dec.Process(scLeftShift)
		if ch, ok := dec.Process(sc); ok {
			if _, exists := table[ch]; !exists {
				table[ch] = []byte{scLeftShift, sc, sc | breakBit, scLeftShift | breakBit}
			}
		}
	}

	return table
}

// scancodesFor returns the scancodes that type r.
func scancodesFor(r rune) ([]byte, bool) {
	switch r {
	case '\r':
		r = '\n'
	case keyDel:
		r = '\b'
	}

	seq, ok := scancodeTable[r]
	return seq, ok
}

// openTTY opens the terminal at path or the controlling terminal if path is
// empty.
func openTTY(path string) (*tty.TTY, error) {
	if path == "" {
		return tty.Open()
	}
	return tty.OpenDevice(path)
}

// runeReader is implemented by *tty.TTY.
type runeReader interface {
	ReadRune() (rune, error)
}

// feedKeys reads characters from in, converts them into scancodes and
// delivers them to the keyboard driver the way the keyboard interrupt
// handler would. After each key the executor runs until idle. It returns on
// Ctrl-C, Ctrl-D or a read error.
func feedKeys(in runeReader, exec *task.Executor) (int, error) {
	var keys int
	for {
		r, err := in.ReadRune()
		if err != nil {
			return keys, err
		}

		if r == keyCtrlC || r == keyCtrlD {
			return keys, nil
		}

		seq, ok := scancodesFor(r)
		if !ok {
			continue
		}

		for _, sc := range seq {
			keyboard.AddScancode(sc)
		}
		keys++
		exec.RunUntilIdle()
	}
}
