package linker

import (
	"debug/elf"
	"github.com/ksco/x64ld/pkg/utils"
)

// RelDynSection is .rela.dyn: all non-PLT runtime relocations the
// dynamic linker must apply at load time. Entry order is fixed so
// update_shdr's size computation and copy_buf's emission agree:
// GOT syms, TLSGD pairs, TLSLD, GOTTPOFF, Copyrel, then per-object
// reserved ranges for ordinary data relocations against imports.
type RelDynSection struct {
	Chunk
}

func NewRelDynSection() *RelDynSection {
	r := &RelDynSection{Chunk: NewChunk()}
	r.Name = ".rela.dyn"
	r.Shdr.Type = uint32(elf.SHT_RELA)
	r.Shdr.Flags = uint64(elf.SHF_ALLOC)
	r.Shdr.AddrAlign = 8
	r.Shdr.EntSize = RelaSize
	return r
}

func (r *RelDynSection) UpdateShdr(ctx *Context) {
	r.Shdr.Link = uint32(ctx.Dynsym.Shndx)

	n := int64(0)
	for _, sym := range ctx.Got.GotSyms {
		if sym.IsImported || ctx.Arg.Pie {
			n++
		}
	}

	n += int64(len(ctx.Got.TlsGdSyms)) * 2

	for _, sym := range ctx.Got.GotTpOffSyms {
		if sym.IsImported {
			n++
		}
	}

	n += int64(len(ctx.Copyrel.Symbols))

	if ctx.Got.TlsLdIdx != -1 {
		n++
	}

	for _, file := range ctx.Objs {
		file.RelDynOffset = n * int64(RelaSize)
		n += int64(file.NumDynRel)
	}

	r.Shdr.Size = uint64(n) * RelaSize
}

func (r *RelDynSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[r.Shdr.Offset:]
	rels := make([]Rela, 0, r.Shdr.Size/RelaSize)

	for _, sym := range ctx.Got.GotSyms {
		if sym.IsImported {
			rels = append(rels, Rela{
				Offset: sym.GetGotAddr(ctx),
				Type:   uint32(elf.R_X86_64_GLOB_DAT),
				Sym:    uint32(sym.DynsymIdx),
			})
		} else if ctx.Arg.Pie {
			rels = append(rels, Rela{
				Offset: sym.GetGotAddr(ctx),
				Type:   uint32(elf.R_X86_64_RELATIVE),
				Addend: int64(sym.GetAddr(ctx)),
			})
		}
	}

	for _, sym := range ctx.Got.TlsGdSyms {
		rels = append(rels,
			Rela{Offset: sym.GetTlsGdAddr(ctx), Type: uint32(elf.R_X86_64_DTPMOD64), Sym: uint32(sym.DynsymIdx)},
			Rela{Offset: sym.GetTlsGdAddr(ctx) + GotSize, Type: uint32(elf.R_X86_64_DTPOFF64), Sym: uint32(sym.DynsymIdx)})
	}

	if ctx.Got.TlsLdIdx != -1 {
		rels = append(rels, Rela{Offset: ctx.Got.GetTlsLdAddr(ctx), Type: uint32(elf.R_X86_64_DTPMOD64)})
	}

	for _, sym := range ctx.Got.GotTpOffSyms {
		if sym.IsImported {
			rels = append(rels, Rela{
				Offset: sym.GetGotTpOffAddr(ctx),
				Type:   uint32(elf.R_X86_64_TPOFF32),
				Sym:    uint32(sym.DynsymIdx),
			})
		}
	}

	for _, sym := range ctx.Copyrel.Symbols {
		rels = append(rels, Rela{
			Offset: sym.GetAddr(ctx),
			Type:   uint32(elf.R_X86_64_COPY),
			Sym:    uint32(sym.DynsymIdx),
		})
	}

	for i := range rels {
		utils.Write[Rela](buf[i*int(RelaSize):], rels[i])
	}

	for _, file := range ctx.Objs {
		file.WriteDynRel(ctx, buf[file.RelDynOffset:])
	}
}
