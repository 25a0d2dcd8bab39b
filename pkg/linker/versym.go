package linker

import (
	"debug/elf"
	"github.com/ksco/x64ld/pkg/utils"
)

// VersymSection is .gnu.version: one uint16 version index per .dynsym
// entry. Without per-symbol version requirements this degenerates to
// VER_NDX_GLOBAL for every defined symbol and VER_NDX_LOCAL for the
// null entry, but the section is still emitted because .dynamic's
// DT_VERSYM always points at it when .gnu.version_r exists.
type VersymSection struct {
	Chunk
	Contents []uint16
}

const VER_NDX_GLOBAL uint16 = 1

func NewVersymSection() *VersymSection {
	v := &VersymSection{Chunk: NewChunk()}
	v.Name = ".gnu.version"
	v.Shdr.Type = uint32(elf.SHT_GNU_VERSYM)
	v.Shdr.Flags = uint64(elf.SHF_ALLOC)
	v.Shdr.AddrAlign = 2
	v.Shdr.EntSize = 2
	return v
}

func (v *VersymSection) UpdateShdr(ctx *Context) {
	v.Contents = make([]uint16, len(ctx.Dynsym.Symbols)+1)
	for _, sym := range ctx.Dynsym.Symbols {
		if sym.VerIdx == VER_NDX_LOCAL {
			v.Contents[sym.DynsymIdx] = VER_NDX_GLOBAL
		} else {
			v.Contents[sym.DynsymIdx] = sym.VerIdx
		}
	}
	v.Shdr.Size = uint64(len(v.Contents)) * 2
	v.Shdr.Link = uint32(ctx.Dynsym.Shndx)
}

func (v *VersymSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[v.Shdr.Offset:]
	for i, ver := range v.Contents {
		utils.Write[uint16](buf[i*2:], ver)
	}
}
