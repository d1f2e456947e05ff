// Package pod reads plain old data structs (fixed layout, no Go pointers)
// from a target process. Fields can be tagged:
//
//	Name  [32]byte `pod:"char_array"`             zeroed after the first NUL
//	Next  uint64   `pod:"valid_pointer"`          zeroed unless it points into readable memory
//	Owner uint64   `pod:"valid_pointer,required"` strict validation fails on NULL
package pod

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	"memtool/process"
)

var (
	// ErrNotPOD is returned for types that contain Go pointers, strings,
	// slices, maps, interfaces or funcs.
	ErrNotPOD = errors.New("type is not plain old data")

	// ErrInvalidPointer is returned by strict validation for a
	// valid_pointer field that does not point into readable memory.
	ErrInvalidPointer = errors.New("invalid pointer field")
)

// AddressValidator reports whether addr lies in readable target memory.
type AddressValidator func(addr process.ProcessMemoryAddress) bool

func SizeOf[T any]() process.ProcessMemorySize {
	var t T
	return process.ProcessMemorySize(unsafe.Sizeof(t))
}

// ReadT reads one T at addr with a single bulk read and cleans its tagged
// fields. valid may be nil, in which case pointer fields are left alone.
func ReadT[T any](mem process.RawMemory, addr process.ProcessMemoryAddress, valid AddressValidator) (T, error) {
	var zero T
	size := SizeOf[T]()
	if size == 0 {
		return zero, errors.New("ReadT: size of T is zero")
	}
	if err := checkPOD[T](); err != nil {
		return zero, err
	}

	data, err := process.ReadBytes(mem, addr, size)
	if err != nil {
		return zero, err
	}
	return decode[T](data, valid), nil
}

// ReadSliceT reads count consecutive Ts starting at addr with one read.
func ReadSliceT[T any](mem process.RawMemory, addr process.ProcessMemoryAddress, count int, valid AddressValidator) ([]T, error) {
	if count < 0 {
		return nil, errors.New("ReadSliceT: count must not be negative")
	}
	if err := checkPOD[T](); err != nil {
		return nil, err
	}
	size := int(SizeOf[T]())
	if size == 0 || count == 0 {
		return []T{}, nil
	}

	if err := process.ValidateRange(addr, process.ProcessMemorySize(size*count)); err != nil {
		return nil, err
	}
	blob, err := process.ReadBytes(mem, addr, process.ProcessMemorySize(size*count))
	if err != nil {
		return nil, err
	}

	result := make([]T, count)
	for i := range result {
		result[i] = decode[T](blob[i*size:(i+1)*size], valid)
	}
	return result, nil
}

// WriteT serializes v with its in-memory layout and writes it through the
// protected write strategy.
func WriteT[T any](mem process.RawMemory, addr process.ProcessMemoryAddress, v T) (process.WriteReport, error) {
	if err := checkPOD[T](); err != nil {
		return process.WriteReport{}, err
	}
	return process.WriteProtected(mem, addr, Bytes(v))
}

// Bytes returns a copy of the raw bytes of v.
func Bytes[T any](v T) []byte {
	size := int(unsafe.Sizeof(v))
	if size == 0 {
		return []byte{}
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	out := make([]byte, size)
	copy(out, src)
	return out
}

// ReadPointerList reads count pointers of the architecture's width at addr
// and keeps the ones valid accepts, in order.
func ReadPointerList(mem process.RawMemory, arch process.Architecture, addr process.ProcessMemoryAddress, count int, valid AddressValidator) ([]process.ProcessMemoryAddress, error) {
	width := int(arch.PointerSize())
	if width == 0 {
		return nil, fmt.Errorf("ReadPointerList: unsupported architecture %s", arch)
	}
	if count <= 0 {
		return nil, nil
	}

	blob, err := process.ReadBytes(mem, addr, process.ProcessMemorySize(count*width))
	if err != nil {
		return nil, fmt.Errorf("ReadPointerList: failed to read at %s: %w", addr, err)
	}

	var results []process.ProcessMemoryAddress
	for i := 0; i < count; i++ {
		var ptr process.ProcessMemoryAddress
		if width == 4 {
			ptr = process.ProcessMemoryAddress(decode[uint32](blob[i*4:], nil))
		} else {
			ptr = process.ProcessMemoryAddress(decode[uint64](blob[i*8:], nil))
		}
		if ptr != 0 && (valid == nil || valid(ptr)) {
			results = append(results, ptr)
		}
	}
	return results, nil
}

// Validate checks the tagged fields of v strictly: a required pointer that
// is NULL or any valid_pointer field outside readable memory is an error.
func Validate[T any](v *T, valid AddressValidator) error {
	return walkTagged(reflect.ValueOf(v).Elem(), "", func(field reflect.Value, name string, tags map[string]string) error {
		if tags["type"] != "valid_pointer" || !isPointerSized(field) {
			return nil
		}
		ptr := process.ProcessMemoryAddress(field.Uint())
		if ptr == 0 {
			if tags["required"] == "true" {
				return fmt.Errorf("%w: required pointer field %s is NULL", ErrInvalidPointer, name)
			}
			return nil
		}
		if valid != nil && !valid(ptr) {
			return fmt.Errorf("%w: %s = %s", ErrInvalidPointer, name, ptr)
		}
		return nil
	})
}

// decode copies the first sizeof(T) bytes of data into a new T and cleans it.
func decode[T any](data []byte, valid AddressValidator) T {
	var tmp T
	size := int(unsafe.Sizeof(tmp))
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&tmp)), size)
	copy(dst, data[:size])

	if rv := reflect.ValueOf(&tmp).Elem(); rv.Kind() == reflect.Struct {
		clean(rv, valid)
	}
	return tmp
}

// clean zeroes char arrays after their first NUL and, when valid is set,
// pointer fields that do not pass it.
func clean(rv reflect.Value, valid AddressValidator) {
	walkTagged(rv, "", func(field reflect.Value, name string, tags map[string]string) error {
		switch tags["type"] {
		case "char_array":
			cleanCharArray(field)
		case "valid_pointer":
			if valid != nil && isPointerSized(field) && field.CanSet() {
				if ptr := field.Uint(); ptr != 0 && !valid(process.ProcessMemoryAddress(ptr)) {
					field.SetUint(0)
				}
			}
		}
		return nil
	})
}

// walkTagged calls fn for every field carrying a pod tag, descending into
// nested structs. Names are dotted paths.
func walkTagged(rv reflect.Value, prefix string, fn func(field reflect.Value, name string, tags map[string]string) error) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)
		name := prefix + sf.Name

		if field.Kind() == reflect.Struct {
			if err := walkTagged(field, name+".", fn); err != nil {
				return err
			}
			continue
		}
		if tag := sf.Tag.Get("pod"); tag != "" {
			if err := fn(field, name, parsePodTags(tag)); err != nil {
				return err
			}
		}
	}
	return nil
}

func isPointerSized(field reflect.Value) bool {
	switch field.Kind() {
	case reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func checkPOD[T any]() error {
	var t T
	rt := reflect.TypeOf(&t).Elem()
	if typeHasPointers(rt) {
		return fmt.Errorf("%w: %s", ErrNotPOD, rt)
	}
	return nil
}

func typeHasPointers(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Interface, reflect.Func, reflect.Map, reflect.Slice, reflect.String, reflect.Chan:
		return true
	case reflect.Array:
		return typeHasPointers(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if typeHasPointers(rt.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// bool, ints, uints, floats, complex, etc.
		return false
	}
}

// parsePodTags parses pod tag string into a map
func parsePodTags(tagStr string) map[string]string {
	tags := make(map[string]string)
	if tagStr == "" {
		return tags
	}

	parts := strings.Split(tagStr, ",")
	tags["type"] = parts[0]

	// Parse additional options like "required"
	for _, part := range parts[1:] {
		if part == "required" {
			tags["required"] = "true"
		} else if k, v, ok := strings.Cut(part, "="); ok {
			tags[k] = v
		}
	}

	return tags
}

// cleanCharArray ensures proper null termination
func cleanCharArray(field reflect.Value) {
	if field.Kind() != reflect.Array || field.Type().Elem().Kind() != reflect.Uint8 {
		return
	}

	foundNull := false
	for i := 0; i < field.Len(); i++ {
		if foundNull {
			// Zero out everything after first null
			if field.Index(i).CanSet() {
				field.Index(i).SetUint(0)
			}
		} else if field.Index(i).Uint() == 0 {
			foundNull = true
		}
	}
}

// CharArray returns the text of a NUL terminated byte array.
func CharArray(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
