package process_test

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"testing"

	"memtool/process"
)

func TestParseHexPatch(t *testing.T) {
	tests := []struct {
		in  string
		exp []byte
	}{
		{"90 90 90", []byte{0x90, 0x90, 0x90}},
		{"909090", []byte{0x90, 0x90, 0x90}},
		{"48 8b 05", []byte{0x48, 0x8B, 0x05}},
		{"48\t8B\n05 ", []byte{0x48, 0x8B, 0x05}},
		{"E 9", []byte{0xE9}},
		{"C3", []byte{0xC3}},
	}

	for _, tt := range tests {
		got, err := process.ParseHexPatch(tt.in)
		if err != nil {
			t.Fatalf("%q: expected no error - got %v", tt.in, err)
		}
		if !bytes.Equal(got, tt.exp) {
			t.Fatalf("%q: expected 0x%x - got 0x%x", tt.in, tt.exp, got)
		}
	}
}

func TestParseHexPatchInvalid(t *testing.T) {
	for _, in := range []string{"9", "90 9", "", "   ", "0x90", "GG", "90,90"} {
		if _, err := process.ParseHexPatch(in); !errors.Is(err, process.ErrInvalidHexPatch) {
			t.Fatalf("%q: expected ErrInvalidHexPatch - got %v", in, err)
		}
	}
}

func TestFormatHexRoundTrip(t *testing.T) {
	data := []byte{0x00, 0x0F, 0xA0, 0xFF}

	s := process.FormatHex(data)
	if s != "00 0F A0 FF" {
		t.Fatalf("expected \"00 0F A0 FF\" - got %q", s)
	}
	back, err := process.ParseHexPatch(s)
	if err != nil || !bytes.Equal(back, data) {
		t.Fatalf("expected 0x%x - got 0x%x, %v", data, back, err)
	}
}

func TestNopSled(t *testing.T) {
	sled, err := process.NopSled(3)
	if err != nil || !bytes.Equal(sled, []byte{0x90, 0x90, 0x90}) {
		t.Fatalf("expected three NOPs - got 0x%x, %v", sled, err)
	}
	if sled, err := process.NopSled(0); err != nil || len(sled) != 0 {
		t.Fatalf("expected an empty sled - got 0x%x, %v", sled, err)
	}
	if _, err := process.NopSled(-1); !errors.Is(err, process.ErrInvalidHexPatch) {
		t.Fatalf("expected a negative count to fail - got %v", err)
	}
}

func ExampleParseHexPatch() {
	// mov rax, [rip+0x10]
	patch, err := process.ParseHexPatch("48 8B 05 10 00 00 00")
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println(len(patch), process.FormatHex(patch))

	// Output: 7 48 8B 05 10 00 00 00
}

func ExampleFormatHex() {
	fmt.Println(process.FormatHex([]byte{0xeb, 0xfe}))

	// Output: EB FE
}
