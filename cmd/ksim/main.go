// Command ksim boots the kernel memory and task core on top of a simulated
// physical address space. It can feed keystrokes from a terminal to the
// keyboard driver and render the resulting memory map and text screen.
package main

import (
	"flag"
	"log"
	"os"

	"gopherkern/kernel/mm"
	"gopherkern/kernel/mm/pmm"
)

func main() {
	var (
		memSize     = flag.Uint("mem", 16, "simulated physical memory size in MiB")
		ttyPath     = flag.String("tty", "", "terminal device to read keystrokes from; empty selects the controlling terminal")
		readKeys    = flag.Bool("keys", false, "feed keystrokes to the keyboard driver until Ctrl-D")
		mapImage    = flag.String("map-image", "", "write a PNG image of the physical memory map to this file")
		screenImage = flag.String("screen-image", "", "write a PNG image of the text screen to this file")
	)
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("ksim: ")

	m, err := newMachine(mm.Size(*memSize) * mm.Mb)
	if err != nil {
		log.Fatal(err)
	}

	exec, err := m.boot(os.Stdout)
	if err != nil {
		log.Fatalf("boot failed: %v", err)
	}

	pending := exec.RunUntilIdle()
	log.Printf("%d task(s) waiting for input", pending)

	if *readKeys {
		t, err := openTTY(*ttyPath)
		if err != nil {
			log.Fatalf("unable to open terminal: %v", err)
		}

		restore := t.MustRaw()
		keys, err := feedKeys(t, exec)
		_ = restore()
		_ = t.Close()

		if err != nil {
			log.Fatalf("reading keystrokes failed after %d keys: %v", keys, err)
		}
		log.Printf("\ndelivered %d keys", keys)
	}

	if *mapImage != "" {
		allocated := allocatedFrames(pmm.Allocator())
		if err := saveMemoryMap(*mapImage, m.info.MemoryMap, m.frameCount(), allocated); err != nil {
			log.Fatalf("unable to write memory map image: %v", err)
		}
		log.Printf("memory map written to %s", *mapImage)
	}

	if *screenImage != "" {
		if err := drawScreen(&m.cons).SavePNG(*screenImage); err != nil {
			log.Fatalf("unable to write screen image: %v", err)
		}
		log.Printf("text screen written to %s", *screenImage)
	}
}
