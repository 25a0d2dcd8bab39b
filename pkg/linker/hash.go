package linker

import (
	"debug/elf"
	"encoding/binary"
)

// HashSection is .hash, the SysV-style symbol hash table.
type HashSection struct {
	Chunk
}

func NewHashSection() *HashSection {
	h := &HashSection{Chunk: NewChunk()}
	h.Name = ".hash"
	h.Shdr.Type = uint32(elf.SHT_HASH)
	h.Shdr.Flags = uint64(elf.SHF_ALLOC)
	h.Shdr.AddrAlign = 8
	h.Shdr.EntSize = 4
	return h
}

func elfHash(name string) uint32 {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = (h << 4) + uint32(name[i])
		if g := h & 0xf0000000; g != 0 {
			h ^= g >> 24
			h &= ^g
		}
	}
	return h
}

func (h *HashSection) UpdateShdr(ctx *Context) {
	headerSize := 8
	numSlots := len(ctx.Dynsym.Symbols) + 1
	h.Shdr.Size = uint64(headerSize + numSlots*8)
	h.Shdr.Link = uint32(ctx.Dynsym.Shndx)
}

func (h *HashSection) CopyBuf(ctx *Context) {
	base := ctx.Buf[h.Shdr.Offset:]
	for i := uint64(0); i < h.Shdr.Size; i++ {
		base[i] = 0
	}

	numSlots := uint32(len(ctx.Dynsym.Symbols) + 1)
	binary.LittleEndian.PutUint32(base, numSlots)
	binary.LittleEndian.PutUint32(base[4:], numSlots)

	buckets := base[8:]
	chains := buckets[numSlots*4:]

	for _, sym := range ctx.Dynsym.Symbols {
		i := elfHash(sym.Name) % numSlots
		bucket := binary.LittleEndian.Uint32(buckets[i*4:])
		binary.LittleEndian.PutUint32(chains[sym.DynsymIdx*4:], bucket)
		binary.LittleEndian.PutUint32(buckets[i*4:], uint32(sym.DynsymIdx))
	}
}
