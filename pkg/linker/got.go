package linker

import (
	"debug/elf"
	"github.com/ksco/x64ld/pkg/utils"
)

// GotSection is .got. Entries for imported symbols and TLSGD/TLSLD
// blocks are left zero here and are instead populated at load time via
// RelDyn (GLOB_DAT/DTPMOD64/DTPOFF64); non-imported entries hold their
// link-time address (or TP offset), which a PIE output additionally
// covers with a RELATIVE entry; see reldyn.go.
type GotSection struct {
	Chunk

	GotSyms      []*Symbol
	GotTpOffSyms []*Symbol
	TlsGdSyms    []*Symbol
	TlsLdIdx     int32
}

func NewGotSection() *GotSection {
	g := &GotSection{Chunk: NewChunk(), TlsLdIdx: -1}
	g.Name = ".got"
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.AddrAlign = 8
	return g
}

// AddGotSymbol asserts single-allocation (GotIdx == -1): a symbol is
// never added to .got twice.
func (g *GotSection) AddGotSymbol(ctx *Context, sym *Symbol) {
	utils.Assert(sym.GotIdx == -1)
	sym.GotIdx = int32(g.Shdr.Size / GotSize)
	g.Shdr.Size += GotSize
	g.GotSyms = append(g.GotSyms, sym)
}

// AddGotTpOffSymbol asserts single-allocation (GotTpOffIdx == -1).
func (g *GotSection) AddGotTpOffSymbol(ctx *Context, sym *Symbol) {
	utils.Assert(sym.GotTpOffIdx == -1)
	sym.GotTpOffIdx = int32(g.Shdr.Size / GotSize)
	g.Shdr.Size += GotSize
	g.GotTpOffSyms = append(g.GotTpOffSyms, sym)
}

// AddTlsGdSymbol asserts single-allocation (TlsGdIdx == -1).
func (g *GotSection) AddTlsGdSymbol(ctx *Context, sym *Symbol) {
	utils.Assert(sym.TlsGdIdx == -1)
	sym.TlsGdIdx = int32(g.Shdr.Size / GotSize)
	g.Shdr.Size += GotSize * 2
	g.TlsGdSyms = append(g.TlsGdSyms, sym)
}

func (g *GotSection) AddTlsLd(ctx *Context) {
	if g.TlsLdIdx != -1 {
		return
	}
	g.TlsLdIdx = int32(g.Shdr.Size / GotSize)
	g.Shdr.Size += GotSize * 2
}

func (g *GotSection) GetTlsLdAddr(ctx *Context) uint64 {
	return g.Shdr.Addr + uint64(g.TlsLdIdx)*GotSize
}

func (g *GotSection) UpdateShdr(ctx *Context) {}

func (g *GotSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[g.Shdr.Offset:]
	for i := uint64(0); i < g.Shdr.Size; i++ {
		buf[i] = 0
	}

	for _, sym := range g.GotSyms {
		if !sym.IsImported {
			utils.Write[uint64](buf[sym.GotIdx*int32(GotSize):], sym.GetAddr(ctx))
		}
	}

	for _, sym := range g.GotTpOffSyms {
		if !sym.IsImported {
			utils.Write[uint64](buf[sym.GotTpOffIdx*int32(GotSize):], sym.GetAddr(ctx)-ctx.TlsEnd)
		}
	}
}
