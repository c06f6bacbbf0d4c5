package console

import (
	"gopherkern/kernel/sync"
	"unsafe"
)

const (
	clearColor = Black
	clearChar  = byte(' ')

	// TextBufferAddr is the physical address of the EGA/VGA text mode
	// frame buffer.
	TextBufferAddr uintptr = 0xb8000

	// DefaultWidth and DefaultHeight describe the 80x25 text mode set up by
	// the firmware.
	DefaultWidth  uint16 = 80
	DefaultHeight uint16 = 25
)

// Ega implements an EGA-compatible text console. Each screen cell is a 16-bit
// value holding the character in the low byte and its color attribute in the
// high byte.
type Ega struct {
	sync.Spinlock

	width  uint16
	height uint16

	fb []uint16
}

// Init sets up the console to use the frame buffer at fbVirtAddr. The frame
// buffer must be mapped and span at least width*height cells.
func (cons *Ega) Init(width, height uint16, fbVirtAddr uintptr) {
	cons.width = width
	cons.height = height
	cons.fb = unsafe.Slice((*uint16)(unsafe.Pointer(fbVirtAddr)), int(width)*int(height))
}

// Clear clears the specified rectangular region
func (cons *Ega) Clear(x, y, width, height uint16) {
	var (
		attr                 = uint16((clearColor << 4) | clearColor)
		clr                  = attr<<8 | uint16(clearChar)
		rowOffset, colOffset uint16
	)

	// clip rectangle
	if x >= cons.width {
		x = cons.width
	}
	if y >= cons.height {
		y = cons.height
	}

	if x+width > cons.width {
		width = cons.width - x
	}
	if y+height > cons.height {
		height = cons.height - y
	}

	rowOffset = (y * cons.width) + x
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			cons.fb[colOffset] = clr
		}
	}
}

// Dimensions returns the console width and height in characters.
func (cons *Ega) Dimensions() (uint16, uint16) {
	return cons.width, cons.height
}

// Scroll a particular number of lines to the specified direction.
func (cons *Ega) Scroll(dir ScrollDir, lines uint16) {
	if lines == 0 || lines > cons.height {
		return
	}

	var i uint16
	offset := lines * cons.width

	switch dir {
	case Up:
		for ; i < (cons.height-lines)*cons.width; i++ {
			cons.fb[i] = cons.fb[i+offset]
		}
	case Down:
		for i = cons.height*cons.width - 1; i >= lines*cons.width; i-- {
			cons.fb[i] = cons.fb[i-offset]
		}
	}
}

// Write a char to the specified location.
func (cons *Ega) Write(ch byte, attr Attr, x, y uint16) {
	if x >= cons.width || y >= cons.height {
		return
	}

	cons.fb[(y*cons.width)+x] = (uint16(attr) << 8) | uint16(ch)
}

// Cell returns the character and attribute stored at (x, y).
func (cons *Ega) Cell(x, y uint16) (byte, Attr) {
	if x >= cons.width || y >= cons.height {
		return 0, 0
	}

	v := cons.fb[(y*cons.width)+x]
	return byte(v), Attr(v >> 8)
}
