package main

import (
	"gopherkern/kernel/hal/bootinfo"
	"gopherkern/kernel/kmain"
)

var bootInfoPtr uintptr

// main makes a dummy call to the actual kernel main entrypoint function. It
// is intentionally defined to prevent the Go compiler from optimizing away the
// real kernel code.
//
// A global variable is passed as an argument to SetInfoPtr to prevent the
// compiler from inlining the actual call and removing Kmain from the
// generated .o file.
func main() {
	bootinfo.SetInfoPtr(bootInfoPtr)
	kmain.Kmain(bootinfo.GetInfo())
}
