package pod

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"memtool/process"
	"memtool/table"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// PrintOptions controls PrintStruct.
type PrintOptions struct {
	// Valid marks AsPtr cells; nil leaves the column blank.
	Valid AddressValidator
	// Colored paints values and pointer validity with ANSI colours.
	Colored bool
	// Base is the address the struct was read from, shown in the header.
	Base process.ProcessMemoryAddress
}

func tryStringer(v reflect.Value) (string, bool) {
	if !v.IsValid() || !v.CanInterface() {
		return "", false
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String(), true
	}
	return "", false
}

func formatScalar(fv reflect.Value, tag string) string {
	var raw string
	switch fv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if strings.Contains(tag, "pointer") {
			return fmt.Sprintf("0x%0*X", int(fv.Type().Size())*2, fv.Uint())
		}
		raw = fmt.Sprintf("%d (0x%X)", fv.Uint(), fv.Uint())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		raw = fmt.Sprintf("%d", fv.Int())
	case reflect.Float32, reflect.Float64:
		raw = fmt.Sprintf("%g", fv.Float())
	case reflect.Bool:
		raw = fmt.Sprintf("%v", fv.Bool())
	default:
		raw = fmt.Sprintf("%v", fv.Interface())
	}

	if s, ok := tryStringer(fv); ok && s != "" && s != raw {
		return raw + " :: " + s
	}
	return raw
}

func asPtrString(valid AddressValidator, fv reflect.Value) string {
	if valid == nil || !isPointerSized(fv) {
		return ""
	}
	addr := fv.Uint()
	if addr == 0 {
		return ""
	}
	if valid(process.ProcessMemoryAddress(addr)) {
		return fmt.Sprintf("0x%X ✓", addr)
	}
	return fmt.Sprintf("0x%X ×", addr)
}

// emitFlags adds one row per set bit of fields whose name mentions flags.
func emitFlags(t *table.Table, val uint64, bitSize int) {
	if bitSize < 64 {
		val &= (uint64(1) << bitSize) - 1
	}
	nibbles := (bitSize + 3) / 4
	for b := 0; b < bitSize; b++ {
		if (val>>b)&1 == 1 {
			t.AddRow("", fmt.Sprintf("0x%0*X", nibbles, uint64(1)<<b), fmt.Sprintf("bit %d set", b))
		}
	}
}

// PrintStruct renders v, a struct or pointer to struct, as a table of
// fields with their offsets, values and pointer validity.
func PrintStruct(w io.Writer, v any, options PrintOptions) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			_, err := fmt.Fprintln(w, "<nil pointer>")
			return err
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("PrintStruct: expected struct or *struct, got %s", rv.Kind())
	}
	rt := rv.Type()

	paint := func(fg coloransi.ColorCode) table.FormatFunc {
		if !options.Colored {
			return nil
		}
		return table.Colored(fg)
	}
	valueFormat := paint(coloransi.Green)
	if options.Colored {
		valueFormat = func(s string) string {
			if s == "0 (0x0)" || s == "0" {
				return coloransi.Foreground(coloransi.BrightBlack, s)
			}
			return coloransi.Foreground(coloransi.Green, s)
		}
	}
	ptrFormat := table.FormatFunc(nil)
	if options.Colored {
		ptrFormat = func(s string) string {
			switch {
			case strings.Contains(s, "✓"):
				return coloransi.Foreground(coloransi.Green, s)
			case strings.Contains(s, "×"):
				return coloransi.Foreground(coloransi.BrightRed, s)
			}
			return s
		}
	}

	if options.Base != 0 {
		fmt.Fprintf(w, "=== %s @ %s ===\n", rt.Name(), options.Base)
	} else {
		fmt.Fprintf(w, "=== %s ===\n", rt.Name())
	}
	fmt.Fprintf(w, "Size: 0x%X (%d bytes)\n\n", rt.Size(), rt.Size())

	t := table.NewTable(
		table.ColumnSpec{Header: "Field", MinWidth: 8},
		table.ColumnSpec{Header: "Offset", MinWidth: 6, FormatFunc: paint(coloransi.Cyan)},
		table.ColumnSpec{Header: "Value", MinWidth: 6, FormatFunc: valueFormat},
		table.ColumnSpec{Header: "AsPtr", MinWidth: 6, FormatFunc: ptrFormat},
		table.ColumnSpec{Header: "Tags", MinWidth: 4},
	)

	addFields(t, rv, "", 0, options)

	return t.Render(w)
}

func addFields(t *table.Table, rv reflect.Value, prefix string, base uintptr, options PrintOptions) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := rv.Field(i)
		name := prefix + field.Name
		offset := base + field.Offset
		offsetStr := fmt.Sprintf("0x%04X", offset)
		tag := field.Tag.Get("pod")

		switch fv.Kind() {
		case reflect.Struct:
			t.AddRow(name, offsetStr, "{"+fv.Type().Name()+"}", "", tag)
			addFields(t, fv, name+".", offset, options)
			continue

		case reflect.Array:
			elemT := fv.Type().Elem()
			if elemT.Kind() == reflect.Uint8 && strings.Contains(tag, "char_array") {
				b := make([]byte, fv.Len())
				reflect.Copy(reflect.ValueOf(b), fv)
				t.AddRow(name, offsetStr, fmt.Sprintf("%q", CharArray(b)), "", tag)
				continue
			}

			t.AddRow(name, offsetStr, arraySummary(fv), "", tag)
			for j := 0; j < fv.Len(); j++ {
				elem := fv.Index(j)
				elemVal := formatScalar(elem, "")
				if elem.Kind() == reflect.Struct || elem.Kind() == reflect.Array {
					elemVal = "{" + elem.Type().String() + "}"
				}
				t.AddRow(
					fmt.Sprintf("  %s[%d]", name, j),
					fmt.Sprintf("0x%04X", offset+uintptr(j)*elemT.Size()),
					elemVal,
					asPtrString(options.Valid, elem),
				)
			}
			continue
		}

		t.AddRow(name, offsetStr, formatScalar(fv, tag), asPtrString(options.Valid, fv), tag)

		if strings.Contains(strings.ToLower(field.Name), "flags") {
			switch fv.Kind() {
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
				emitFlags(t, fv.Uint(), fv.Type().Bits())
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				emitFlags(t, uint64(fv.Int()), fv.Type().Bits())
			}
		}
	}
}

// arraySummary previews the first three elements.
func arraySummary(fv reflect.Value) string {
	elemT := fv.Type().Elem()
	if fv.IsZero() {
		return fmt.Sprintf("[%d]%s{0...}", fv.Len(), elemT)
	}

	show := min(fv.Len(), 3)
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "[%d]%s{", fv.Len(), elemT)
	for j := 0; j < show; j++ {
		if j > 0 {
			sb.WriteString(",")
		}
		ev := fv.Index(j)
		switch ev.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			fmt.Fprintf(sb, "0x%X", ev.Uint())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fmt.Fprintf(sb, "%d", ev.Int())
		default:
			fmt.Fprintf(sb, "%v", ev.Interface())
		}
	}
	if fv.Len() > show {
		sb.WriteString("...")
	}
	sb.WriteString("}")
	return sb.String()
}

// PrintCompact writes v on one line as Name {Field:value, ...}.
func PrintCompact(w io.Writer, v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			fmt.Fprintln(w, "<nil pointer>")
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		fmt.Fprintf(w, "%v\n", v)
		return
	}
	rt := rv.Type()

	fmt.Fprintf(w, "%s {", rt.Name())
	first := true
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		if !first {
			fmt.Fprint(w, ", ")
		}
		first = false

		fv := rv.Field(i)
		tag := f.Tag.Get("pod")
		switch {
		case strings.Contains(tag, "pointer") && isPointerSized(fv):
			fmt.Fprintf(w, "%s:0x%X", f.Name, fv.Uint())
		case strings.Contains(tag, "char_array") && fv.Kind() == reflect.Array:
			b := make([]byte, fv.Len())
			reflect.Copy(reflect.ValueOf(b), fv)
			fmt.Fprintf(w, "%s:%q", f.Name, CharArray(b))
		default:
			fmt.Fprintf(w, "%s:%v", f.Name, fv.Interface())
		}
	}
	fmt.Fprintln(w, "}")
}
