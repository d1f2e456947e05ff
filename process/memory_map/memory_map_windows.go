//go:build windows

package memory_map

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// QueryRegion describes the region containing addr.
func QueryRegion(handle windows.Handle, addr uint64) (MemoryMapItem, error) {
	var mbi windows.MemoryBasicInformation
	err := windows.VirtualQueryEx(handle, uintptr(addr), &mbi, unsafe.Sizeof(mbi))
	if err != nil {
		return MemoryMapItem{}, fmt.Errorf("VirtualQueryEx at 0x%x: %w", addr, err)
	}
	return fromBasicInformation(&mbi), nil
}

// ReadMemoryMap walks the address space of the process with VirtualQueryEx
// and returns the committed regions sorted by address.
func ReadMemoryMap(handle windows.Handle) ([]MemoryMapItem, error) {
	var (
		memoryMap []MemoryMapItem
		mbi       windows.MemoryBasicInformation
		addr      uintptr
	)

	for {
		err := windows.VirtualQueryEx(handle, addr, &mbi, unsafe.Sizeof(mbi))
		if err != nil {
			// ERROR_INVALID_PARAMETER marks the end of the user address space.
			if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
				break
			}
			return nil, fmt.Errorf("VirtualQueryEx at 0x%x: %w", addr, err)
		}

		if mbi.State == MemCommit {
			memoryMap = append(memoryMap, fromBasicInformation(&mbi))
		}

		next := mbi.BaseAddress + mbi.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}

	Sort(memoryMap)
	return memoryMap, nil
}

func fromBasicInformation(mbi *windows.MemoryBasicInformation) MemoryMapItem {
	protect := Protection(mbi.Protect)
	return MemoryMapItem{
		Address: uint64(mbi.BaseAddress),
		Size:    uint(mbi.RegionSize),
		Perms:   protect.Perms(),
		Protect: protect,
		State:   mbi.State,
		Type:    mbi.Type,
	}
}
