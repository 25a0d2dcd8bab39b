package linker

import "debug/elf"

// ShstrtabSection is .shstrtab, the section-name string table
// referenced by Ehdr.ShStrndx.
type ShstrtabSection struct {
	Chunk
}

func NewShstrtabSection() *ShstrtabSection {
	s := &ShstrtabSection{Chunk: NewChunk()}
	s.Name = ".shstrtab"
	s.Shdr.Type = uint32(elf.SHT_STRTAB)
	s.Shdr.AddrAlign = 1
	return s
}

func (s *ShstrtabSection) UpdateShdr(ctx *Context) {
	s.Shdr.Size = 1
	for _, chunk := range ctx.Chunks {
		if chunk.GetName() != "" {
			chunk.GetShdr().Name = uint32(s.Shdr.Size)
			s.Shdr.Size += uint64(len(chunk.GetName())) + 1
		}
	}
}

func (s *ShstrtabSection) CopyBuf(ctx *Context) {
	base := ctx.Buf[s.Shdr.Offset:]
	base[0] = 0

	i := 1
	for _, chunk := range ctx.Chunks {
		if chunk.GetName() != "" {
			writeString(base[i:], chunk.GetName())
			i += len(chunk.GetName()) + 1
		}
	}
}
