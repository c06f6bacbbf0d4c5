package main

import (
	"fmt"

	"gopherkern/kernel/driver/video/console"
	"gopherkern/kernel/hal/bootinfo"
	"gopherkern/kernel/mm"

	"github.com/fogleman/gg"
)

const (
	frameCellSize  = 6
	framesPerRow   = 128
	legendRowSpace = 18

	charWidth  = 9
	charHeight = 16
)

// regionColors assigns a color to each memory region type in the memory
// map image. Types missing from the map are drawn in grey.
var regionColors = map[bootinfo.RegionType]string{
	bootinfo.Usable:    "#8fd694",
	bootinfo.Reserved:  "#c0c0c0",
	bootinfo.Kernel:    "#6a8fd6",
	bootinfo.PageTable: "#d6b46a",
	bootinfo.FrameZero: "#404040",
}

const (
	unknownRegionColor  = "#909090"
	allocatedFrameColor = "#d64545"
)

// vgaPalette holds the 16 text mode colors indexed by console.Attr.
var vgaPalette = [16]string{
	"#000000", "#0000aa", "#00aa00", "#00aaaa", "#aa0000", "#aa00aa", "#aa5500", "#aaaaaa",
	"#555555", "#5555ff", "#55ff55", "#55ffff", "#ff5555", "#ff55ff", "#ffff55", "#ffffff",
}

// drawMemoryMap draws one cell per physical frame, colored by the type of
// the region that contains it. Frames handed out by the frame allocator are
// drawn in red.
func drawMemoryMap(memMap bootinfo.MemoryMap, frameCount int, allocated map[mm.Frame]bool) *gg.Context {
	rows := (frameCount + framesPerRow - 1) / framesPerRow
	legendTypes := []bootinfo.RegionType{bootinfo.Usable, bootinfo.Reserved, bootinfo.Kernel, bootinfo.PageTable, bootinfo.FrameZero}

	width := framesPerRow * frameCellSize
	height := rows*frameCellSize + (len(legendTypes)+2)*legendRowSpace

	dc := gg.NewContext(width, height)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	for i := 0; i < frameCount; i++ {
		frame := mm.Frame(i)
		color := unknownRegionColor
		if allocated[frame] {
			color = allocatedFrameColor
		} else if regionType, err := regionTypeOf(memMap, frame); err == nil {
			if c, ok := regionColors[regionType]; ok {
				color = c
			}
		}

		x := float64((i % framesPerRow) * frameCellSize)
		y := float64((i / framesPerRow) * frameCellSize)
		dc.SetHexColor(color)
		dc.DrawRectangle(x, y, frameCellSize, frameCellSize)
		dc.Fill()
	}

	legendY := float64(rows*frameCellSize + legendRowSpace)
	for i, regionType := range legendTypes {
		drawLegendEntry(dc, legendY+float64(i*legendRowSpace), regionColors[regionType], regionType.String())
	}
	drawLegendEntry(dc, legendY+float64(len(legendTypes)*legendRowSpace), allocatedFrameColor,
		fmt.Sprintf("allocated (%d frames)", len(allocated)))

	return dc
}

func drawLegendEntry(dc *gg.Context, y float64, color, label string) {
	dc.SetHexColor(color)
	dc.DrawRectangle(4, y-10, 10, 10)
	dc.Fill()
	dc.SetHexColor("#000000")
	dc.DrawString(label, 20, y)
}

// drawScreen renders the text mode screen stored in cons.
func drawScreen(cons *console.Ega) *gg.Context {
	w, h := cons.Dimensions()
	dc := gg.NewContext(int(w)*charWidth, int(h)*charHeight)
	dc.SetHexColor(vgaPalette[console.Black])
	dc.Clear()

	for y := uint16(0); y < h; y++ {
		for x := uint16(0); x < w; x++ {
			ch, attr := cons.Cell(x, y)
			fg, bg := attr&0xf, (attr>>4)&0xf

			px, py := float64(x)*charWidth, float64(y)*charHeight
			if bg != console.Black {
				dc.SetHexColor(vgaPalette[bg])
				dc.DrawRectangle(px, py, charWidth, charHeight)
				dc.Fill()
			}

			if ch > ' ' && ch < 0x7f {
				dc.SetHexColor(vgaPalette[fg])
				dc.DrawString(string(rune(ch)), px+1, py+charHeight-4)
			}
		}
	}

	return dc
}

// saveMemoryMap writes the memory map image to path.
func saveMemoryMap(path string, memMap bootinfo.MemoryMap, frameCount int, allocated map[mm.Frame]bool) error {
	return drawMemoryMap(memMap, frameCount, allocated).SavePNG(path)
}
