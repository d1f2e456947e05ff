package process_blob

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"memtool/process"
	"memtool/process/memory_map"
)

const (
	metadataFile  = "metadata.json"
	memoryMapFile = "process_memory_map.json"

	// MaxDumpRegion is the largest region SaveDump copies.
	MaxDumpRegion = 100 * 1024 * 1024
)

// DumpMetadata describes the process a dump was taken from.
type DumpMetadata struct {
	PID     process.ProcessID    `json:"pid"`
	Name    string               `json:"name"`
	Arch    string               `json:"arch"`
	Modules []process.ModuleInfo `json:"modules"`
}

// DumpStats counts what SaveDump did with each region.
type DumpStats struct {
	Saved              int
	SkippedNonReadable int
	SkippedTooLarge    int
	ReadErrors         int
	Bytes              uint64
}

func regionFile(dirname string, region memory_map.MemoryMapItem) string {
	return filepath.Join(dirname, fmt.Sprintf("blob_0x%x_%d.bin", region.Address, region.Size))
}

// SaveDump writes the metadata, the memory map and one file per readable
// region of mem to dirname. Regions that fail to read are counted and
// skipped; failing to write a file aborts.
func SaveDump(dirname string, mem process.Handle, meta DumpMetadata) (DumpStats, error) {
	var stats DumpStats

	if err := os.MkdirAll(dirname, 0755); err != nil {
		return stats, fmt.Errorf("failed to create directory: %w", err)
	}

	mm, err := mem.GetMemoryMap()
	if err != nil {
		return stats, fmt.Errorf("failed to read memory map: %w", err)
	}

	if err := writeJSON(filepath.Join(dirname, metadataFile), meta); err != nil {
		return stats, err
	}
	if err := writeJSON(filepath.Join(dirname, memoryMapFile), mm); err != nil {
		return stats, err
	}

	for _, region := range mm {
		if !region.IsReadable() {
			stats.SkippedNonReadable++
			continue
		}
		if region.Size > MaxDumpRegion {
			stats.SkippedTooLarge++
			continue
		}

		data, err := process.ReadBytes(mem, process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
		if err != nil {
			stats.ReadErrors++
			continue
		}
		if err := os.WriteFile(regionFile(dirname, region), data, 0644); err != nil {
			return stats, fmt.Errorf("failed to write memory file for region at 0x%x: %w", region.Address, err)
		}
		stats.Saved++
		stats.Bytes += uint64(len(data))
	}
	return stats, nil
}

// LoadDump rebuilds a ProcessBlob from a directory written by SaveDump.
// Regions without a data file are mapped zero-filled.
func LoadDump(dirname string) (*ProcessBlob, error) {
	var meta DumpMetadata
	if err := readJSON(filepath.Join(dirname, metadataFile), &meta); err != nil {
		return nil, err
	}
	var mm []memory_map.MemoryMapItem
	if err := readJSON(filepath.Join(dirname, memoryMapFile), &mm); err != nil {
		return nil, err
	}

	arch := process.ArchitectureAuto
	if meta.Arch != "" {
		var err error
		if arch, err = process.ParseArchitecture(meta.Arch); err != nil {
			return nil, fmt.Errorf("dump %s: %w", dirname, err)
		}
	}

	p := NewProcessBlob(meta.PID, meta.Name, arch)
	for _, region := range mm {
		p.Map(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size), region.Protect)

		data, err := os.ReadFile(regionFile(dirname, region))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read memory file for region at 0x%x: %w", region.Address, err)
		}
		if uint(len(data)) > region.Size {
			return nil, fmt.Errorf("memory file for region at 0x%x holds %d bytes, region has %d", region.Address, len(data), region.Size)
		}
		p.Poke(process.ProcessMemoryAddress(region.Address), data)
	}

	p.mu.Lock()
	p.modules = append(p.modules, meta.Modules...)
	p.mu.Unlock()
	return p, nil
}

func writeJSON(filename string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(filename), err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(filename), err)
	}
	return nil
}

func readJSON(filename string, v any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(filename), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(filename), err)
	}
	return nil
}
