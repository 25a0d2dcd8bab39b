package linker

import (
	"debug/elf"
	"github.com/ksco/x64ld/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// SymtabSection is .symtab, the non-loadable local-then-global symbol
// table. Per-file offsets are computed serially in UpdateShdr so the
// parallel write pass in CopyBuf can fill disjoint ranges without a
// shared mutex.
type SymtabSection struct {
	Chunk
}

func NewSymtabSection() *SymtabSection {
	s := &SymtabSection{Chunk: NewChunk()}
	s.Name = ".symtab"
	s.Shdr.Type = uint32(elf.SHT_SYMTAB)
	s.Shdr.AddrAlign = 8
	s.Shdr.EntSize = uint64(SymSize)
	return s
}

func (s *SymtabSection) UpdateShdr(ctx *Context) {
	size := uint64(SymSize)
	for _, file := range ctx.Objs {
		file.LocalSymtabOffset = int64(size)
		size += uint64(file.LocalSymtabSize)
	}
	for _, file := range ctx.Objs {
		file.GlobalSymtabOffset = int64(size)
		size += uint64(file.GlobalSymtabSize)
	}

	s.Shdr.Size = size
	if len(ctx.Objs) > 0 {
		s.Shdr.Info = uint32(ctx.Objs[0].GlobalSymtabOffset) / uint32(SymSize)
	}
	s.Shdr.Link = uint32(ctx.Strtab.Shndx)
}

func (s *SymtabSection) CopyBuf(ctx *Context) {
	utils.Write[Sym](ctx.Buf[s.Shdr.Offset:], Sym{})
	ctx.Buf[ctx.Strtab.Shdr.Offset] = 0

	var eg errgroup.Group
	for _, file := range ctx.Objs {
		file := file
		eg.Go(func() error {
			file.WriteSymtab(ctx)
			return nil
		})
	}
	_ = eg.Wait()
}
