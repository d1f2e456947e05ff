package engine

import (
	"memtool/process_blob"
)

// SaveDump snapshots the target into dirname: metadata, memory map and the
// contents of every readable region. process_blob.LoadDump reads it back as
// an offline target.
func (e *Engine) SaveDump(dirname string) (process_blob.DumpStats, error) {
	mem, err := e.mem()
	if err != nil {
		return process_blob.DumpStats{}, err
	}
	modules, err := e.Modules()
	if err != nil {
		return process_blob.DumpStats{}, err
	}

	e.log.Infoln("Saving pid", int(e.info.PID), "to", dirname)
	stats, err := process_blob.SaveDump(dirname, mem, process_blob.DumpMetadata{
		PID:     e.info.PID,
		Name:    e.info.Name,
		Arch:    e.arch.String(),
		Modules: modules,
	})
	if err != nil {
		return stats, err
	}
	e.log.Infoln("Saved", stats.Saved, "regions,", stats.Bytes, "bytes; skipped", stats.SkippedNonReadable, "unreadable,", stats.SkippedTooLarge, "too large,", stats.ReadErrors, "unreadable on read")
	return stats, nil
}
