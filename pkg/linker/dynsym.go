package linker

import (
	"debug/elf"
	"github.com/ksco/x64ld/pkg/utils"
)

// DynsymSection is .dynsym, the runtime symbol table consulted by the
// dynamic linker for relocation and symbol-versioning lookups.
type DynsymSection struct {
	Chunk
	Symbols      []*Symbol
	NameIndices  []uint32
}

func NewDynsymSection() *DynsymSection {
	d := &DynsymSection{Chunk: NewChunk()}
	d.Name = ".dynsym"
	d.Shdr.Type = uint32(elf.SHT_DYNSYM)
	d.Shdr.Flags = uint64(elf.SHF_ALLOC)
	d.Shdr.AddrAlign = 8
	d.Shdr.EntSize = uint64(SymSize)
	return d
}

func (d *DynsymSection) AddSymbol(ctx *Context, sym *Symbol) {
	if sym.DynsymIdx != -1 {
		return
	}
	sym.DynsymIdx = -2
	d.Symbols = append(d.Symbols, sym)
	d.NameIndices = append(d.NameIndices, ctx.Dynstr.AddString(sym.Name))
}

// SortSymbols stable-partitions local-binding symbols ahead of global
// ones, as required by sh_info/DT_HASH bucketing, then assigns the
// final indices.
func (d *DynsymSection) SortSymbols() {
	locals := make([]*Symbol, 0, len(d.Symbols))
	globals := make([]*Symbol, 0, len(d.Symbols))
	for _, sym := range d.Symbols {
		if sym.ElfSym().Bind() == uint8(elf.STB_LOCAL) {
			locals = append(locals, sym)
		} else {
			globals = append(globals, sym)
		}
	}

	d.Shdr.Info = uint32(len(locals)) + 1

	d.Symbols = append(locals, globals...)
	for i, sym := range d.Symbols {
		sym.DynsymIdx = int32(i) + 1
	}
}

func (d *DynsymSection) UpdateShdr(ctx *Context) {
	d.Shdr.Link = uint32(ctx.Dynstr.Shndx)
	d.Shdr.Size = uint64(SymSize) * uint64(len(d.Symbols)+1)
}

func (d *DynsymSection) CopyBuf(ctx *Context) {
	base := ctx.Buf[d.Shdr.Offset:]
	utils.Write[Sym](base, Sym{})

	for i, sym := range d.Symbols {
		esym := Sym{
			Name: d.NameIndices[i],
			Size: sym.ElfSym().Size,
		}
		esym.SetType(sym.ElfSym().Type())
		esym.SetBind(sym.ElfSym().Bind())

		switch {
		case sym.HasCopyrel:
			esym.Shndx = uint16(ctx.Copyrel.Shndx)
			esym.Val = sym.GetAddr(ctx)
		case sym.IsImported || sym.ElfSym().IsUndef():
			esym.Shndx = uint16(elf.SHN_UNDEF)
		case sym.InputSection == nil:
			esym.Shndx = uint16(elf.SHN_ABS)
			esym.Val = sym.GetAddr(ctx)
		case sym.ElfSym().Type() == uint8(elf.STT_TLS):
			esym.Shndx = uint16(sym.InputSection.OutputSection.Shndx)
			esym.Val = sym.GetAddr(ctx) - ctx.TlsBegin
		default:
			esym.Shndx = uint16(sym.InputSection.OutputSection.Shndx)
			esym.Val = sym.GetAddr(ctx)
		}

		utils.Write[Sym](base[sym.DynsymIdx*int32(SymSize):], esym)
	}
}
