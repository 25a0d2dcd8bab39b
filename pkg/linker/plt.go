package linker

import (
	"debug/elf"
	"encoding/binary"
	"github.com/ksco/x64ld/pkg/utils"
)

// PltSection is .plt. PLT[0] is the shared resolver stub; each
// following PLT_SIZE-byte entry either indirects through .got.plt
// (lazy binding) or jumps straight through a GOT slot already
// resolved by RelDyn (IRELATIVE / already-bound imports).
type PltSection struct {
	Chunk
	Symbols []*Symbol
}

func NewPltSection() *PltSection {
	p := &PltSection{Chunk: NewChunk()}
	p.Name = ".plt"
	p.Shdr.Type = uint32(elf.SHT_PROGBITS)
	p.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
	p.Shdr.AddrAlign = 16
	p.Shdr.Size = PltSize
	return p
}

// AddSymbol asserts single-allocation (PltIdx == -1): a symbol is
// never added to .plt twice.
func (p *PltSection) AddSymbol(ctx *Context, sym *Symbol) {
	utils.Assert(sym.PltIdx == -1)
	sym.PltIdx = int32(p.Shdr.Size / PltSize)
	p.Shdr.Size += PltSize
	p.Symbols = append(p.Symbols, sym)

	if sym.GotIdx == -1 {
		sym.GotPltIdx = int32(ctx.GotPlt.Shdr.Size / GotSize)
		ctx.GotPlt.Shdr.Size += GotSize

		ctx.RelPlt.Shdr.Size += RelaSize

		ctx.Dynsym.AddSymbol(ctx, sym)
	}
}

func (p *PltSection) UpdateShdr(ctx *Context) {}

func (p *PltSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[p.Shdr.Offset:]

	plt0 := []byte{
		0xff, 0x35, 0, 0, 0, 0, // pushq GOTPLT+8(%rip)
		0xff, 0x25, 0, 0, 0, 0, // jmp *GOTPLT+16(%rip)
		0x0f, 0x1f, 0x40, 0x00, // nop
	}
	copy(buf, plt0)
	binary.LittleEndian.PutUint32(buf[2:], uint32(ctx.GotPlt.Shdr.Addr-p.Shdr.Addr+2))
	binary.LittleEndian.PutUint32(buf[8:], uint32(ctx.GotPlt.Shdr.Addr-p.Shdr.Addr+4))

	relPltIdx := int32(0)

	for _, sym := range p.Symbols {
		ent := buf[sym.PltIdx*int32(PltSize):]

		if sym.GotPltIdx != -1 {
			data := []byte{
				0xff, 0x25, 0, 0, 0, 0, // jmp *foo@GOTPLT
				0x68, 0, 0, 0, 0, // push $index_in_relplt
				0xe9, 0, 0, 0, 0, // jmp PLT[0]
			}
			copy(ent, data)
			binary.LittleEndian.PutUint32(ent[2:], uint32(sym.GetGotPltAddr(ctx)-sym.GetPltAddr(ctx)-6))
			binary.LittleEndian.PutUint32(ent[7:], uint32(relPltIdx))
			relPltIdx++
			binary.LittleEndian.PutUint32(ent[12:], uint32(p.Shdr.Addr-sym.GetPltAddr(ctx)-16))
		} else {
			data := []byte{
				0xff, 0x25, 0, 0, 0, 0, // jmp *foo@GOT
				0x66, 0x66, 0x0f, 0x1f, 0x84, 0, 0, 0, 0, 0, // nop
			}
			copy(ent, data)
			binary.LittleEndian.PutUint32(ent[2:], uint32(sym.GetGotAddr(ctx)-sym.GetPltAddr(ctx)-6))
		}
	}
}
