// Package dwarfreader implements the DWARF collaborator spec.md §6
// names: a line_info(vma) lookup plus the SPEC_FULL.md §12 supplements
// (DIE-tree export, .debug_aranges duplicate-range handling).
//
// Grounded on stdlib debug/elf + debug/dwarf, the same pairing the
// reference tool's internal/elfx uses for ELF access, and on the
// dwarfutils.LoadCompileUnits pattern from the retrieved pack (which
// pairs debug/dwarf with github.com/go-delve/delve/pkg/dwarf's
// ReadUnitVersions to
// recover each compile unit's raw DWARF version — a detail debug/dwarf
// itself does not expose).
package dwarfreader

import (
	"debug/dwarf"
	"fmt"
	"sort"

	delvedwarf "github.com/go-delve/delve/pkg/dwarf"

	"bincfg/internal/bincfgerr"
	"bincfg/internal/elfx"
)

// CompileUnit mirrors the DWARF compile-unit metadata the exporters
// need: its low/high PC ranges and its raw debug_info entry for the
// DIE-tree export.
type CompileUnit struct {
	ID      int
	Version uint8
	Name    string
	Ranges  [][2]uint64
	Entry   *dwarf.Entry
}

// lineRow is one row of a compile unit's line number program, kept
// sorted by Address for LineInfo's nearest-row-<=-vma lookup.
type lineRow struct {
	Address   uint64
	File      string
	Line      int
	Column    int
	cuID      int
	seqLowPC  uint64
	seqHighPC uint64
}

// LineInfo is the result of a line_info(vma) lookup, per spec.md §6.
type LineInfo struct {
	CUID      int
	File      string
	Line      int
	Column    int
	LowPC     uint64
	HighPC    uint64
}

// Reader exposes the DWARF-derived views the generator's collaborators
// need: per-address line info and the compile-unit/DIE tree used by the
// --debug exporter.
type Reader struct {
	data  *dwarf.Data
	units []CompileUnit
	rows  []lineRow
	image *elfx.Image
}

// Open reads DWARF debug info from an ELF file at path, building the
// compile-unit list and a flattened, address-sorted line table. It
// also keeps the underlying elfx.Image open so Aranges can confirm a
// range actually lands in the binary's .text section.
func Open(path string) (*Reader, error) {
	img, err := elfx.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", bincfgerr.ErrIO, path, err)
	}

	data, err := img.File.DWARF()
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("%w: no DWARF data in %s: %v", bincfgerr.ErrMalformedInput, path, err)
	}

	var infoBytes []byte
	if sec := img.File.Section(".debug_info"); sec != nil {
		infoBytes, _ = sec.Data()
	}
	offsetToVersion := delvedwarf.ReadUnitVersions(infoBytes)

	r := &Reader{data: data, image: img}
	if err := r.loadCompileUnits(offsetToVersion); err != nil {
		img.Close()
		return nil, err
	}
	if err := r.loadLineTable(); err != nil {
		img.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the underlying memory-mapped ELF file.
func (r *Reader) Close() error {
	if r.image == nil {
		return nil
	}
	return r.image.Close()
}

func (r *Reader) loadCompileUnits(offsetToVersion map[dwarf.Offset]uint8) error {
	reader := r.data.Reader()
	id := 0
	for {
		entry, err := reader.Next()
		if err != nil {
			return fmt.Errorf("%w: reading compile units: %v", bincfgerr.ErrMalformedInput, err)
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			reader.SkipChildren()
			continue
		}

		cu := CompileUnit{ID: id, Entry: entry, Version: offsetToVersion[entry.Offset]}
		if name, ok := entry.Val(dwarf.AttrName).(string); ok {
			cu.Name = name
		}
		ranges, _ := r.data.Ranges(entry)
		cu.Ranges = ranges

		r.units = append(r.units, cu)
		id++
	}
	return nil
}

func (r *Reader) loadLineTable() error {
	for _, cu := range r.units {
		lr, err := r.data.LineReader(cu.Entry)
		if err != nil || lr == nil {
			continue
		}
		var le dwarf.LineEntry
		for {
			if err := lr.Next(&le); err != nil {
				break
			}
			r.rows = append(r.rows, lineRow{
				Address: le.Address,
				File:    fileName(le.File),
				Line:    le.Line,
				Column:  le.Column,
				cuID:    cu.ID,
			})
		}
	}
	sort.Slice(r.rows, func(i, j int) bool { return r.rows[i].Address < r.rows[j].Address })
	return nil
}

func fileName(f *dwarf.LineFile) string {
	if f == nil {
		return ""
	}
	return f.Name
}

// LineInfo returns the line-table row whose address is the greatest
// address <= vma, per spec.md §6's line_info(vma) contract.
func (r *Reader) LineInfo(vma uint64) (LineInfo, bool) {
	i := sort.Search(len(r.rows), func(i int) bool { return r.rows[i].Address > vma })
	if i == 0 {
		return LineInfo{}, false
	}
	row := r.rows[i-1]
	info := LineInfo{CUID: row.cuID, File: row.File, Line: row.Line, Column: row.Column, LowPC: row.Address}
	if i < len(r.rows) {
		info.HighPC = r.rows[i].Address
	}
	return info, true
}

// CompileUnits returns every compile unit discovered in the binary.
func (r *Reader) CompileUnits() []CompileUnit { return r.units }

// Aranges returns every address range across all compile units,
// dropping (and warning the caller about, via the onDuplicate
// callback, which may be nil) any range that overlaps a previously
// accepted one — SPEC_FULL.md §12's explicit .debug_aranges policy. A
// range whose low PC falls outside every loaded .text section (per the
// elfx.Image opened alongside the DWARF data) is dropped silently,
// without calling onDuplicate, since it cannot correspond to a real
// disassembled block.
func (r *Reader) Aranges(onDuplicate func(low, high uint64)) [][2]uint64 {
	var all [][2]uint64
	for _, cu := range r.units {
		for _, rng := range cu.Ranges {
			if r.image != nil && !r.image.InText(rng[0]) {
				continue
			}
			all = append(all, rng)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i][0] < all[j][0] })

	var accepted [][2]uint64
	var lastHigh uint64
	first := true
	for _, rng := range all {
		if !first && rng[0] < lastHigh {
			if onDuplicate != nil {
				onDuplicate(rng[0], rng[1])
			}
			continue
		}
		accepted = append(accepted, rng)
		lastHigh = rng[1]
		first = false
	}
	return accepted
}
