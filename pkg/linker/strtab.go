package linker

import "debug/elf"

// StrtabSection is .strtab, backing the regular (non-dynamic) symbol
// table. Layout mirrors SymtabSection: each object reserves a
// contiguous range sized by its own local+global name bytes.
type StrtabSection struct {
	Chunk
}

func NewStrtabSection() *StrtabSection {
	s := &StrtabSection{Chunk: NewChunk()}
	s.Name = ".strtab"
	s.Shdr.Type = uint32(elf.SHT_STRTAB)
	s.Shdr.AddrAlign = 1
	return s
}

func (s *StrtabSection) UpdateShdr(ctx *Context) {
	s.Shdr.Size = 1
	for _, file := range ctx.Objs {
		file.StrtabOffset = int64(s.Shdr.Size)
		s.Shdr.Size += uint64(file.StrtabSize)
	}
}

func (s *StrtabSection) CopyBuf(ctx *Context) {
	ctx.Buf[s.Shdr.Offset] = 0
}
