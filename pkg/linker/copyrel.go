package linker

import (
	"debug/elf"
	"github.com/ksco/x64ld/pkg/utils"
)

// CopyrelSection is .bss.rel.ro-adjacent storage for imported data
// symbols (R_X86_64_COPY targets): space the loader copies the DSO's
// initial value into at startup, referenced by a RelDyn COPY entry.
type CopyrelSection struct {
	Chunk
	Symbols []*Symbol
}

func NewCopyrelSection() *CopyrelSection {
	c := &CopyrelSection{Chunk: NewChunk()}
	c.Name = ".bss.rel.ro"
	c.Shdr.Type = uint32(elf.SHT_NOBITS)
	c.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	c.Shdr.AddrAlign = 32
	return c
}

func (c *CopyrelSection) AddSymbol(ctx *Context, sym *Symbol) {
	utils.Assert(sym.IsImported)
	if sym.HasCopyrel {
		return
	}

	c.Shdr.Size = utils.AlignTo(c.Shdr.Size, c.Shdr.AddrAlign)
	sym.Value = c.Shdr.Size
	sym.HasCopyrel = true
	c.Shdr.Size += sym.ElfSym().Size
	c.Symbols = append(c.Symbols, sym)
	ctx.Dynsym.AddSymbol(ctx, sym)
}

func (c *CopyrelSection) UpdateShdr(ctx *Context) {}

func (c *CopyrelSection) CopyBuf(ctx *Context) {}
