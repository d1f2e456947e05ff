// Package hexdump renders memory read from a target as a classic hex dump:
// address column, grouped hex bytes and an ASCII column, optionally coloured
// and annotated with values that look like pointers into mapped memory.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"memtool/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// HexDumpOptions defines options for customizing the hexdump output
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// GroupSize defines the grouping of bytes (usually 1, 2, 4, or 8)
	GroupSize int

	// ShowASCII determines whether to show the ASCII representation
	ShowASCII bool

	// StartAddress is printed for the first byte
	StartAddress uint64

	// AddressWidth is the width of the address column in hex digits
	AddressWidth int

	// Color turns ANSI colouring on. Without it the output is plain text.
	Color bool

	AddressColor      coloransi.ColorCode
	HexColor          coloransi.ColorCode
	ASCIIColor        coloransi.ColorCode
	NonPrintableColor coloransi.ColorCode
	ZeroColor         coloransi.ColorCode
	PointerColor      coloransi.ColorCode

	// HighlightPattern is a pattern to highlight in the dump
	HighlightPattern []byte
	HighlightColor   coloransi.ColorCode

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// PointerSize, when 4 or 8, appends the aligned words of each line
	// that point into a readable region of MemoryMap, which must be sorted.
	PointerSize int
	MemoryMap   []memory_map.MemoryMapItem
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine:      16,
		GroupSize:         1,
		ShowASCII:         true,
		AddressWidth:      12,
		AddressColor:      coloransi.Cyan,
		HexColor:          coloransi.Green,
		ASCIIColor:        coloransi.White,
		NonPrintableColor: coloransi.BrightBlack,
		ZeroColor:         coloransi.BrightBlack,
		PointerColor:      coloransi.Yellow,
		HighlightColor:    coloransi.ColorOrange,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options HexDumpOptions) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options HexDumpOptions) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.GroupSize <= 0 {
		options.GroupSize = 1
	}
	if options.AddressWidth <= 0 {
		options.AddressWidth = 8
	}

	highlight := highlightMask(data, options.HighlightPattern)

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], highlight[offset:end], options.StartAddress+uint64(offset), options)
		lineCount++
	}
}

// highlightMask marks every byte covered by an occurrence of pattern.
func highlightMask(data, pattern []byte) []bool {
	mask := make([]bool, len(data))
	if len(pattern) == 0 {
		return mask
	}
	for i := 0; i+len(pattern) <= len(data); i++ {
		if bytes.Equal(data[i:i+len(pattern)], pattern) {
			for j := range pattern {
				mask[i+j] = true
			}
		}
	}
	return mask
}

func paint(options HexDumpOptions, fg coloransi.ColorCode, s string) string {
	if !options.Color {
		return s
	}
	return coloransi.Foreground(fg, s)
}

func paintHighlight(options HexDumpOptions, s string) string {
	if !options.Color {
		return s
	}
	return coloransi.Color(coloransi.Black, options.HighlightColor, s)
}

// formatLine formats a single line of the hex dump
func formatLine(writer io.Writer, data []byte, highlight []bool, address uint64, options HexDumpOptions) {
	fmt.Fprint(writer, paint(options, options.AddressColor, fmt.Sprintf("%0*x", options.AddressWidth, address)), "  ")

	var groups []string
	var group strings.Builder
	for i, b := range data {
		hex := fmt.Sprintf("%02x", b)
		switch {
		case highlight[i]:
			hex = paintHighlight(options, hex)
		case b == 0:
			hex = paint(options, options.ZeroColor, hex)
		default:
			hex = paint(options, options.HexColor, hex)
		}
		group.WriteString(hex)
		if (i+1)%options.GroupSize == 0 || i == len(data)-1 {
			groups = append(groups, group.String())
			group.Reset()
		}
	}
	fmt.Fprint(writer, strings.Join(groups, " "))

	// keep the ASCII column aligned on a short last line
	if missing := options.BytesPerLine - len(data); missing > 0 {
		fullGroups := (options.BytesPerLine + options.GroupSize - 1) / options.GroupSize
		fmt.Fprint(writer, strings.Repeat(" ", missing*2+(fullGroups-len(groups))))
	}

	if options.ShowASCII {
		fmt.Fprint(writer, "  |")
		for i, b := range data {
			switch {
			case highlight[i]:
				fmt.Fprint(writer, paintHighlight(options, printable(b)))
			case b == 0:
				fmt.Fprint(writer, paint(options, options.ZeroColor, "."))
			case b < 0x20 || b > 0x7E:
				fmt.Fprint(writer, paint(options, options.NonPrintableColor, "."))
			default:
				fmt.Fprint(writer, paint(options, options.ASCIIColor, string(rune(b))))
			}
		}
		fmt.Fprint(writer, "|")
	}

	if ptrs := pointers(data, address, options); len(ptrs) > 0 {
		fmt.Fprint(writer, "  ", paint(options, options.PointerColor, strings.Join(ptrs, " ")))
	}

	fmt.Fprintln(writer)
}

func printable(b byte) string {
	if b < 0x20 || b > 0x7E {
		return "."
	}
	return string(rune(b))
}

// pointers returns the aligned words of data that land in a readable region.
func pointers(data []byte, address uint64, options HexDumpOptions) []string {
	size := options.PointerSize
	if (size != 4 && size != 8) || len(options.MemoryMap) == 0 {
		return nil
	}

	var out []string
	for off := (size - int(address%uint64(size))) % size; off+size <= len(data); off += size {
		var v uint64
		if size == 4 {
			v = uint64(binary.LittleEndian.Uint32(data[off:]))
		} else {
			v = binary.LittleEndian.Uint64(data[off:])
		}
		if v != 0 && memory_map.IsValidAddress(v, options.MemoryMap) {
			out = append(out, fmt.Sprintf("->0x%x", v))
		}
	}
	return out
}

// DumpBytes creates a simple, uncoloured hex dump
func DumpBytes(data []byte) string {
	return Dump(data, DefaultOptions())
}

// DumpWithAddress creates an uncoloured hex dump whose first byte is shown
// at address
func DumpWithAddress(data []byte, address uint64) string {
	options := DefaultOptions()
	options.StartAddress = address
	return Dump(data, options)
}
