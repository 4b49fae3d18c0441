// Package elfx provides helpers for opening ELF binaries, locating
// sections, and mapping virtual addresses to file offsets. It backs
// the --debug flag's DWARF access (internal/dwarfreader), which uses it
// to confirm that a .debug_aranges range actually falls inside a real
// loaded .text section of the target binary.
package elfx

import (
	"debug/elf"
	"fmt"
	"os"
	"syscall"
)

// Image is a memory-mapped ELF file plus the section/segment metadata
// needed for virtual-address resolution.
type Image struct {
	Path   string
	File   *elf.File
	All    []byte
	Loads  []Seg
	Text   Section
	Rodata Section
	Data   Section

	Dynsyms []DynSym
	Syms    []DynSym

	f *os.File
}

// Seg is one PT_LOAD program header.
type Seg struct {
	Vaddr, Off, Filesz uint64
	Flags              elf.ProgFlag
}

// Section is a named ELF section's virtual address, file offset, and size.
type Section struct {
	Name          string
	VA, Off, Size uint64
}

// DynSym is a symbol-table entry from .dynsym or .symtab.
type DynSym struct {
	Name string
	Addr uint64
}

// Open memory-maps path and indexes its PT_LOAD segments, the
// .text/.rodata/.data sections, and both symbol tables.
func Open(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}

	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open file: %w", err)
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	all, err := syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		of.Close()
		f.Close()
		return nil, fmt.Errorf("mmap file: %w", err)
	}

	im := &Image{Path: path, File: f, All: all, f: of}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  uint64(p.Vaddr),
			Off:    uint64(p.Off),
			Filesz: uint64(p.Filesz),
			Flags:  p.Flags,
		})
	}

	for _, s := range f.Sections {
		switch s.Name {
		case ".text":
			im.Text = Section{s.Name, s.Addr, s.Offset, s.Size}
		case ".rodata":
			im.Rodata = Section{s.Name, s.Addr, s.Offset, s.Size}
		case ".data":
			im.Data = Section{s.Name, s.Addr, s.Offset, s.Size}
		}
	}

	im.loadDynamicSymbols()
	im.loadStaticSymbols()

	if im.Text.Size == 0 {
		for _, l := range im.Loads {
			if l.Flags&elf.PF_X != 0 && l.Filesz > 0 {
				im.Text = Section{"LOAD(exec)", l.Vaddr, l.Off, l.Filesz}
				break
			}
		}
	}
	if im.Rodata.Size == 0 {
		for _, l := range im.Loads {
			if (l.Flags&elf.PF_R != 0) && (l.Flags&elf.PF_W == 0) && l.Filesz > 0 {
				im.Rodata = Section{"LOAD(ro)", l.Vaddr, l.Off, l.Filesz}
				break
			}
		}
	}
	return im, nil
}

// Close unmaps the memory and closes the underlying files.
func (im *Image) Close() error {
	var err1, err2 error
	if im.All != nil {
		err1 = syscall.Munmap(im.All)
		im.All = nil
	}
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	if im.File != nil {
		if err3 := im.File.Close(); err3 != nil && err2 == nil {
			err2 = err3
		}
		im.File = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// VA2Off translates a virtual address into a file offset using
// PT_LOAD segments. It returns false if va is unmapped.
func (im *Image) VA2Off(va uint64) (uint64, bool) {
	for _, l := range im.Loads {
		if va >= l.Vaddr && va < l.Vaddr+l.Filesz {
			return l.Off + (va - l.Vaddr), true
		}
	}
	return 0, false
}

// SliceVA returns the mapped file bytes for [va, va+size).
func (im *Image) SliceVA(va uint64, size uint64) ([]byte, bool) {
	off, ok := im.VA2Off(va)
	if !ok {
		return nil, false
	}
	if size == 0 {
		return []byte{}, true
	}
	end := off + size
	if end > uint64(len(im.All)) {
		return nil, false
	}
	return im.All[off:end], true
}

// ReadBytesVA reads exactly size bytes at va.
func (im *Image) ReadBytesVA(va uint64, size int) ([]byte, bool) {
	if size <= 0 {
		return []byte{}, true
	}
	return im.SliceVA(va, uint64(size))
}

// InRodata reports whether va lies within .rodata.
func (im *Image) InRodata(va uint64) bool {
	return im.Rodata.Size != 0 && va >= im.Rodata.VA && va < im.Rodata.VA+im.Rodata.Size
}

// InData reports whether va lies within .data.
func (im *Image) InData(va uint64) bool {
	return im.Data.Size != 0 && va >= im.Data.VA && va < im.Data.VA+im.Data.Size
}

// InText reports whether va lies within .text, the region spec.md's
// --debug aranges check validates DWARF ranges against.
func (im *Image) InText(va uint64) bool {
	return im.Text.Size != 0 && va >= im.Text.VA && va < im.Text.VA+im.Text.Size
}

func (im *Image) loadDynamicSymbols() {
	if im.File == nil {
		return
	}
	dynsyms, err := im.File.DynamicSymbols()
	if err != nil {
		return
	}
	for _, sym := range dynsyms {
		if sym.Value == 0 {
			continue
		}
		im.Dynsyms = append(im.Dynsyms, DynSym{Name: sym.Name, Addr: sym.Value})
	}
}

func (im *Image) loadStaticSymbols() {
	if im.File == nil {
		return
	}
	syms, err := im.File.Symbols()
	if err != nil {
		return
	}
	for _, sym := range syms {
		if sym.Value == 0 {
			continue
		}
		im.Syms = append(im.Syms, DynSym{Name: sym.Name, Addr: sym.Value})
	}
}

// FindFunctionByName searches both symbol tables for name.
func (im *Image) FindFunctionByName(name string) (uint64, bool) {
	for _, sym := range im.Dynsyms {
		if sym.Name == name {
			return sym.Addr, true
		}
	}
	for _, sym := range im.Syms {
		if sym.Name == name {
			return sym.Addr, true
		}
	}
	return 0, false
}
