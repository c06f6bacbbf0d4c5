package kfmt

import (
	"bytes"
	"io"
	"testing"
)

func TestPrintf(t *testing.T) {
	defer SetOutputSink(nil)

	specs := []struct {
		format string
		args   []interface{}
		exp    string
	}{
		{"no verbs", nil, "no verbs"},
		{"100%%", nil, "100%"},
		{"[%s] %s", []interface{}{"pmm", []byte("ready")}, "[pmm] ready"},
		{"'%6s'", []interface{}{"abc"}, "'   abc'"},
		{"%t %t", []interface{}{true, false}, "true false"},
		{"%d", []interface{}{uint8(255)}, "255"},
		{"%d", []interface{}{-42}, "-42"},
		{"'%5d'", []interface{}{int16(-42)}, "'  -42'"},
		{"%d", []interface{}{int64(0)}, "0"},
		{"0x%x", []interface{}{uintptr(0xdeadbeef)}, "0xdeadbeef"},
		{"0x%16x", []interface{}{uint64(0xb8000)}, "0x00000000000b8000"},
		{"%4x", []interface{}{int32(-1)}, "-001"},
		{"%o", []interface{}{uint32(8)}, "10"},
		{"%d", []interface{}{uint(7)}, "7"},
		// errors
		{"%d", nil, "%!(MISSING)"},
		{"%d", []interface{}{"foo"}, "%!(WRONGTYPE)"},
		{"%t", []interface{}{1}, "%!(WRONGTYPE)"},
		{"%s", []interface{}{1}, "%!(WRONGTYPE)"},
		{"%q", nil, "%!(NOVERB)"},
		{"trailing %", nil, "trailing %!(NOVERB)"},
		{"%d", []interface{}{1, 2}, "1%!(EXTRA)"},
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	for specIndex, spec := range specs {
		buf.Reset()
		Printf(spec.format, spec.args...)
		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected to get %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestPrintfToRingBuffer(t *testing.T) {
	defer SetOutputSink(nil)

	SetOutputSink(io.Discard)
	SetOutputSink(nil)
	Printf("[kmain] %s %d\n", "booting", 1)

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if exp, got := "[kmain] booting 1\n", buf.String(); got != exp {
		t.Fatalf("expected buffered output %q to be flushed to the sink; got %q", exp, got)
	}
}
