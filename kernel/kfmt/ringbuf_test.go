package kfmt

import (
	"bytes"
	"io"
	"testing"
)

func TestRingBuffer(t *testing.T) {
	expStr := "the big brown fox jumped over the lazy dog"

	t.Run("read/write", func(t *testing.T) {
		var rb ringBuffer
		n, err := rb.Write([]byte(expStr))
		if err != nil {
			t.Fatal(err)
		}

		if n != len(expStr) {
			t.Fatalf("expected to write %d bytes; wrote %d", len(expStr), n)
		}

		if got := drain(t, &rb); got != expStr {
			t.Fatalf("expected to read %q; got %q", expStr, got)
		}
	})

	t.Run("wrap around", func(t *testing.T) {
		var rb ringBuffer
		rb.head = ringBufferSize - 4

		if _, err := rb.Write([]byte(expStr)); err != nil {
			t.Fatal(err)
		}

		if got := drain(t, &rb); got != expStr {
			t.Fatalf("expected to read %q; got %q", expStr, got)
		}
	})

	t.Run("overwrite oldest", func(t *testing.T) {
		var rb ringBuffer
		_, _ = rb.Write(bytes.Repeat([]byte{'a'}, ringBufferSize))
		_, _ = rb.Write([]byte("bc"))

		got := drain(t, &rb)
		if len(got) != ringBufferSize {
			t.Fatalf("expected to read %d bytes; got %d", ringBufferSize, len(got))
		}

		if exp := "abc"; got[len(got)-3:] != exp {
			t.Fatalf("expected buffer to end with %q; got %q", exp, got[len(got)-3:])
		}
	})

	t.Run("empty", func(t *testing.T) {
		var rb ringBuffer
		if n, err := rb.Read(make([]byte, 4)); n != 0 || err != io.EOF {
			t.Fatalf("expected (0, io.EOF); got (%d, %v)", n, err)
		}
	})
}

func drain(t *testing.T, rb *ringBuffer) string {
	var buf bytes.Buffer
	chunk := make([]byte, 7)
	for {
		n, err := rb.Read(chunk)
		buf.Write(chunk[:n])
		if err == io.EOF {
			return buf.String()
		}
		if err != nil {
			t.Fatal(err)
		}
	}
}
