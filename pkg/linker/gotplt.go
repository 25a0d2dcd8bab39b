package linker

import (
	"debug/elf"
	"github.com/ksco/x64ld/pkg/utils"
)

// GotPltSection is .got.plt, the lazy-binding trampoline table PLT
// stubs jump through. Slots [0,3) are reserved for the dynamic linker.
type GotPltSection struct {
	Chunk
}

func NewGotPltSection() *GotPltSection {
	g := &GotPltSection{Chunk: NewChunk()}
	g.Name = ".got.plt"
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.AddrAlign = 8
	g.Shdr.Size = GotSize * 3
	return g
}

func (g *GotPltSection) UpdateShdr(ctx *Context) {}

func (g *GotPltSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[g.Shdr.Offset:]
	for i := uint64(0); i < g.Shdr.Size; i++ {
		buf[i] = 0
	}

	if ctx.Dynamic != nil {
		utils.Write[uint64](buf, ctx.Dynamic.Shdr.Addr)
	}

	for _, sym := range ctx.Plt.Symbols {
		if sym.GotPltIdx != -1 {
			utils.Write[uint64](buf[sym.GotPltIdx*int32(GotSize):], sym.GetPltAddr(ctx)+6)
		}
	}
}
