// Package kfmt implements the kernel's logging primitives. None of the
// functions in this package allocate memory so they can be used before the
// heap region has been mapped.
package kfmt

import (
	"io"
	"unsafe"
)

// numBufSize is large enough to hold a padded 64-bit value in base 8.
const numBufSize = 32

var (
	errMissingArg   = []byte("%!(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	digits = "0123456789abcdef"

	numBuf [numBufSize]byte

	// oneByte is a shared buffer for emitting single characters.
	oneByte = []byte{0}

	// earlyOutput captures Printf output until SetOutputSink is called.
	earlyOutput ringBuffer

	// outputSink receives Printf output. A nil sink redirects output to
	// earlyOutput.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and flushes
// any output accumulated before the sink became available.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		_, _ = io.Copy(w, &earlyOutput)
	}
}

// Printf is a minimal, allocation-free version of fmt.Printf. It supports the
// following verbs:
//
//	%s  string or []byte
//	%d  base 10 integer
//	%x  base 16 integer (lower-case)
//	%o  base 8 integer
//	%t  bool
//	%%  a literal percent sign
//
// An optional decimal width may precede the verb. Strings and base-10
// integers are padded with spaces; base-8 and base-16 integers are padded
// with zeroes.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but sends its output to w.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex int
		width    int
		inVerb   bool
	)

	for i := 0; i < len(format); i++ {
		ch := format[i]

		if !inVerb {
			if ch == '%' {
				inVerb, width = true, 0
				continue
			}
			writeByte(w, ch)
			continue
		}

		switch {
		case ch >= '0' && ch <= '9':
			width = width*10 + int(ch-'0')
			continue
		case ch == '%':
			writeByte(w, '%')
		case ch == 's' || ch == 'd' || ch == 'x' || ch == 'o' || ch == 't':
			if argIndex >= len(args) {
				write(w, errMissingArg)
				break
			}

			arg := args[argIndex]
			argIndex++

			switch ch {
			case 's':
				fmtString(w, arg, width)
			case 'd':
				fmtInt(w, arg, 10, width)
			case 'x':
				fmtInt(w, arg, 16, width)
			case 'o':
				fmtInt(w, arg, 8, width)
			case 't':
				fmtBool(w, arg)
			}
		default:
			write(w, errNoVerb)
		}

		inVerb = false
	}

	if inVerb {
		write(w, errNoVerb)
	}

	for ; argIndex < len(args); argIndex++ {
		write(w, errExtraArg)
	}
}

func fmtBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	switch {
	case !ok:
		write(w, errWrongArgType)
	case b:
		write(w, trueValue)
	default:
		write(w, falseValue)
	}
}

func fmtString(w io.Writer, v interface{}, width int) {
	switch s := v.(type) {
	case string:
		pad(w, ' ', width-len(s))
		// converting s to a []byte would allocate
		for i := 0; i < len(s); i++ {
			writeByte(w, s[i])
		}
	case []byte:
		pad(w, ' ', width-len(s))
		write(w, s)
	default:
		write(w, errWrongArgType)
	}
}

// fmtInt renders v in the requested base. All built-in integer types are
// supported.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		val      uint64
		negative bool
	)

	switch n := v.(type) {
	case uint8:
		val = uint64(n)
	case uint16:
		val = uint64(n)
	case uint32:
		val = uint64(n)
	case uint64:
		val = n
	case uint:
		val = uint64(n)
	case uintptr:
		val = uint64(n)
	case int8:
		val, negative = abs(int64(n))
	case int16:
		val, negative = abs(int64(n))
	case int32:
		val, negative = abs(int64(n))
	case int64:
		val, negative = abs(n)
	case int:
		val, negative = abs(int64(n))
	default:
		write(w, errWrongArgType)
		return
	}

	// Digits are produced right to left.
	pos := numBufSize
	for {
		pos--
		numBuf[pos] = digits[val%base]
		val /= base
		if val == 0 {
			break
		}
	}

	if width > numBufSize-1 {
		width = numBufSize - 1
	}

	padCh := byte('0')
	if base == 10 {
		padCh = ' '
	}

	signLen := 0
	if negative {
		signLen = 1
	}

	if padCh == '0' && negative {
		for numBufSize-pos+signLen < width {
			pos--
			numBuf[pos] = '0'
		}
	}

	if negative {
		pos--
		numBuf[pos] = '-'
	}

	for numBufSize-pos < width {
		pos--
		numBuf[pos] = padCh
	}

	write(w, numBuf[pos:])
}

func abs(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

func pad(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

func writeByte(w io.Writer, ch byte) {
	oneByte[0] = ch
	write(w, oneByte)
}

// write hides p from escape analysis. Without this the compiler flags p as
// escaping through the unknown io.Writer and every Printf call ends up in
// runtime.convT2E which allocates.
func write(w io.Writer, p []byte) {
	realWrite(w, noEscape(unsafe.Pointer(&p)))
}

func realWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		_, _ = w.Write(p)
		return
	}

	_, _ = earlyOutput.Write(p)
}

// noEscape hides a pointer from escape analysis (see runtime/stubs.go).
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
