package linker

import "debug/elf"

// SharedFile is a minimal ET_DYN reader: enough to resolve exported
// symbols a relocatable object references and to recover DT_SONAME
// for DT_NEEDED, without acting as a full dynamic-symbol provider.
type SharedFile struct {
	InputFile
	Soname    string
	Versyms   []uint16
	IsNeeded  bool
}

func NewSharedFile(file *File) *SharedFile {
	f := &SharedFile{InputFile: *NewInputFile(file)}
	f.IsAlive = false
	return f
}

func (f *SharedFile) Parse(ctx *Context) {
	f.Soname = f.File.Name

	dynsymSec := f.FindSection(uint32(elf.SHT_DYNSYM))
	if dynsymSec == nil {
		return
	}

	f.FirstGlobal = int64(dynsymSec.Info)
	f.FillUpElfSyms(dynsymSec)
	f.SymbolStrtab = f.GetBytesFromIdx(int64(dynsymSec.Link))

	dynSec := f.FindSection(uint32(elf.SHT_DYNAMIC))
	if dynSec == nil {
		return
	}

	bs := f.GetBytesFromShdr(dynSec)
	strtab := f.SymbolStrtab
	for len(bs) >= 16 {
		tag := elf.DynTag(leUint64(bs))
		val := leUint64(bs[8:])
		bs = bs[16:]

		if tag == elf.DT_SONAME && val < uint64(len(strtab)) {
			f.Soname = getName(strtab, uint32(val))
		}
		if tag == elf.DT_NULL {
			break
		}
	}
}

func (f *SharedFile) GetGlobalSymbolNames() []string {
	names := make([]string, 0, len(f.ElfSyms))
	for i := f.FirstGlobal; i < int64(len(f.ElfSyms)); i++ {
		if f.ElfSyms[i].IsUndef() {
			continue
		}
		names = append(names, getName(f.SymbolStrtab, f.ElfSyms[i].Name))
	}
	return names
}

func leUint64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
