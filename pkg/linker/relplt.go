package linker

import (
	"debug/elf"
	"github.com/ksco/x64ld/pkg/utils"
)

// RelPltSection is .rela.plt, one ElfRela per lazily-bound PLT entry.
type RelPltSection struct {
	Chunk
}

func NewRelPltSection() *RelPltSection {
	r := &RelPltSection{Chunk: NewChunk()}
	r.Name = ".rela.plt"
	r.Shdr.Type = uint32(elf.SHT_RELA)
	r.Shdr.Flags = uint64(elf.SHF_ALLOC)
	r.Shdr.AddrAlign = 8
	r.Shdr.EntSize = RelaSize
	return r
}

func (r *RelPltSection) UpdateShdr(ctx *Context) {
	r.Shdr.Link = uint32(ctx.Dynsym.Shndx)
}

func (r *RelPltSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[r.Shdr.Offset:]
	for i := uint64(0); i < r.Shdr.Size; i++ {
		buf[i] = 0
	}

	idx := int32(0)
	for _, sym := range ctx.Plt.Symbols {
		if sym.GotPltIdx == -1 {
			continue
		}

		rel := Rela{
			Sym:    uint32(sym.DynsymIdx),
			Offset: sym.GetGotPltAddr(ctx),
		}

		if sym.File != nil && sym.ElfSym().Type() == uint8(STT_GNU_IFUNC) {
			rel.Type = uint32(elf.R_X86_64_IRELATIVE)
			rel.Addend = int64(sym.GetAddr(ctx))
		} else {
			rel.Type = uint32(elf.R_X86_64_JMP_SLOT)
		}

		utils.Write[Rela](buf[idx*int32(RelaSize):], rel)
		idx++
	}
}
