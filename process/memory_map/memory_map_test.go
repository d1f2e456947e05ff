package memory_map

import "testing"

func TestProtectionAccess(t *testing.T) {
	tests := []struct {
		p           Protection
		r, w, x     bool
		perms, name string
	}{
		{PageNoAccess, false, false, false, "---p", "PAGE_NOACCESS"},
		{PageReadOnly, true, false, false, "r--p", "PAGE_READONLY"},
		{PageReadWrite, true, true, false, "rw-p", "PAGE_READWRITE"},
		{PageWriteCopy, true, true, false, "rw-c", "PAGE_WRITECOPY"},
		{PageExecute, false, false, true, "--xp", "PAGE_EXECUTE"},
		{PageExecuteRead, true, false, true, "r-xp", "PAGE_EXECUTE_READ"},
		{PageExecuteReadWrite, true, true, true, "rwxp", "PAGE_EXECUTE_READWRITE"},
		{PageReadWrite | PageGuard, false, true, false, "-w-g", "PAGE_READWRITE|PAGE_GUARD"},
	}

	for _, tt := range tests {
		if tt.p.IsReadable() != tt.r || tt.p.IsWritable() != tt.w || tt.p.IsExecutable() != tt.x {
			t.Fatalf("%s: expected r=%v w=%v x=%v", tt.p, tt.r, tt.w, tt.x)
		}
		if got := tt.p.Perms(); got != tt.perms {
			t.Fatalf("%s: expected perms %q - got %q", tt.p, tt.perms, got)
		}
		if got := tt.p.String(); got != tt.name {
			t.Fatalf("expected %q - got %q", tt.name, got)
		}
	}
}

func TestFindRegion(t *testing.T) {
	mm := []MemoryMapItem{
		NewMemoryMapItem(0x3000, 0x1000, PageReadOnly),
		NewMemoryMapItem(0x1000, 0x1000, PageReadWrite),
		NewMemoryMapItem(0x5000, 0x2000, PageNoAccess),
	}
	Sort(mm)

	if r := FindRegion(0x1FFF, mm); r == nil || r.Address != 0x1000 {
		t.Fatalf("expected region at 0x1000 - got %v", r)
	}
	if r := FindRegion(0x2000, mm); r != nil {
		t.Fatalf("expected no region in the gap - got %v", r)
	}
	if r := FindRegion(0x6FFF, mm); r == nil || r.Address != 0x5000 {
		t.Fatalf("expected region at 0x5000 - got %v", r)
	}
	if r := FindRegion(0x7000, mm); r != nil {
		t.Fatalf("expected nothing past the last region - got %v", r)
	}

	if !IsValidAddress(0x3010, mm) {
		t.Fatalf("expected 0x3010 to be readable")
	}
	if IsValidAddress(0x5010, mm) {
		t.Fatalf("expected a PAGE_NOACCESS region to be rejected")
	}
}

func TestMemoryMapItem(t *testing.T) {
	item := NewMemoryMapItem(0x7FF600000000, 0x1000, PageExecuteRead)

	if item.End() != 0x7FF600001000 {
		t.Fatalf("expected end 0x7FF600001000 - got 0x%x", item.End())
	}
	if !item.Contains(0x7FF600000FFF) || item.Contains(0x7FF600001000) {
		t.Fatalf("unexpected Contains bounds")
	}
	if !item.IsCommitted() || !item.IsReadable() || item.IsWritable() {
		t.Fatalf("unexpected access for %s", item)
	}

	reserved := item
	reserved.State = MemReserve
	if reserved.IsReadable() {
		t.Fatalf("reserved memory is never readable")
	}
}
