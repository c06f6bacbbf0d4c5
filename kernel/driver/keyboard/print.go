package keyboard

import (
	"gopherkern/kernel/task"
	"io"
	"unicode/utf8"
)

// keypressPrinter is the future behind PrintKeypresses.
type keypressPrinter struct {
	stream  *ScancodeStream
	decoder Decoder
	w       io.Writer
	buf     [utf8.UTFMax]byte
}

// PrintKeypresses returns a future that decodes every scancode delivered to
// AddScancode and echoes the resulting characters to w. The future never
// completes. It must be polled by a single task.
func PrintKeypresses(w io.Writer) task.Future {
	return &keypressPrinter{stream: NewScancodeStream(), w: w}
}

// Poll implements task.Future.
func (p *keypressPrinter) Poll(ctx *task.Context) task.Poll {
	for {
		scancode, res := p.stream.PollNext(ctx)
		if res == task.Pending {
			return task.Pending
		}

		if ch, ok := p.decoder.Process(scancode); ok {
			n := utf8.EncodeRune(p.buf[:], ch)
			_, _ = p.w.Write(p.buf[:n])
		}
	}
}
