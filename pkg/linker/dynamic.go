package linker

import (
	"debug/elf"
	"github.com/ksco/x64ld/pkg/utils"
)

// DynamicSection is .dynamic, the DT_* tag/value array the dynamic
// linker reads before anything else.
type DynamicSection struct {
	Chunk
}

func NewDynamicSection() *DynamicSection {
	d := &DynamicSection{Chunk: NewChunk()}
	d.Name = ".dynamic"
	d.Shdr.Type = uint32(elf.SHT_DYNAMIC)
	d.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	d.Shdr.AddrAlign = 8
	d.Shdr.EntSize = 16
	return d
}

func findChunkByName(ctx *Context, name string) Chunker {
	for _, chunk := range ctx.Chunks {
		if chunk.GetName() == name {
			return chunk
		}
	}
	return nil
}

// joinRpaths joins -rpath arguments with ':', the form DT_RUNPATH
// expects. Registered into .dynstr by ResolveDsoSymbols, alongside the
// DSO sonames, before any chunk's UpdateShdr runs.
func joinRpaths(ctx *Context) string {
	rpath := ""
	for i, p := range ctx.Arg.Rpaths {
		if i > 0 {
			rpath += ":"
		}
		rpath += p
	}
	return rpath
}

func createDynamicTags(ctx *Context) []uint64 {
	vec := make([]uint64, 0)
	define := func(tag, val uint64) {
		vec = append(vec, tag, val)
	}

	for _, dso := range ctx.DsoObjs {
		define(uint64(elf.DT_NEEDED), uint64(ctx.Dynstr.FindString(dso.Soname)))
	}

	if len(ctx.Arg.Rpaths) > 0 {
		define(uint64(elf.DT_RUNPATH), uint64(ctx.Dynstr.FindString(joinRpaths(ctx))))
	}

	define(uint64(elf.DT_RELA), ctx.RelDyn.Shdr.Addr)
	define(uint64(elf.DT_RELASZ), ctx.RelDyn.Shdr.Size)
	define(uint64(elf.DT_RELAENT), RelaSize)

	if ctx.RelPlt.Shdr.Size > 0 {
		define(uint64(elf.DT_JMPREL), ctx.RelPlt.Shdr.Addr)
		define(uint64(elf.DT_PLTRELSZ), ctx.RelPlt.Shdr.Size)
		define(uint64(elf.DT_PLTGOT), ctx.GotPlt.Shdr.Addr)
		define(uint64(elf.DT_PLTREL), uint64(elf.DT_RELA))
	}

	define(uint64(elf.DT_SYMTAB), ctx.Dynsym.Shdr.Addr)
	define(uint64(elf.DT_SYMENT), uint64(SymSize))
	define(uint64(elf.DT_STRTAB), ctx.Dynstr.Shdr.Addr)
	define(uint64(elf.DT_STRSZ), ctx.Dynstr.Shdr.Size)
	define(uint64(elf.DT_HASH), ctx.Hash.Shdr.Addr)

	if ctx.__InitArrayStart != nil {
		define(uint64(elf.DT_INIT_ARRAY), ctx.__InitArrayStart.Value)
		define(uint64(elf.DT_INIT_ARRAYSZ), ctx.__InitArrayEnd.Value-ctx.__InitArrayStart.Value)
	}
	if ctx.__FiniArrayStart != nil {
		define(uint64(elf.DT_FINI_ARRAY), ctx.__FiniArrayStart.Value)
		define(uint64(elf.DT_FINI_ARRAYSZ), ctx.__FiniArrayEnd.Value-ctx.__FiniArrayStart.Value)
	}

	define(uint64(elf.DT_VERSYM), ctx.Versym.Shdr.Addr)
	define(uint64(elf.DT_VERNEED), ctx.Verneed.Shdr.Addr)
	define(uint64(elf.DT_VERNEEDNUM), uint64(ctx.Verneed.Shdr.Info))
	define(uint64(elf.DT_DEBUG), 0)

	if chunk := findChunkByName(ctx, ".init"); chunk != nil {
		define(uint64(elf.DT_INIT), chunk.GetShdr().Addr)
	}
	if chunk := findChunkByName(ctx, ".fini"); chunk != nil {
		define(uint64(elf.DT_FINI), chunk.GetShdr().Addr)
	}

	var flags, flags1 uint64
	if ctx.Arg.Pie {
		flags1 |= DF_1_PIE
	}
	if ctx.Arg.ZNow {
		flags |= uint64(elf.DF_BIND_NOW)
		flags1 |= DF_1_NOW
	}

	if flags != 0 {
		define(uint64(elf.DT_FLAGS), flags)
	}
	if flags1 != 0 {
		define(uint64(elf.DT_FLAGS_1), flags1)
	}

	define(uint64(elf.DT_NULL), 0)
	return vec
}

func (d *DynamicSection) UpdateShdr(ctx *Context) {
	d.Shdr.Size = uint64(len(createDynamicTags(ctx))) * 8
	d.Shdr.Link = uint32(ctx.Dynstr.Shndx)
}

func (d *DynamicSection) CopyBuf(ctx *Context) {
	tags := createDynamicTags(ctx)
	buf := ctx.Buf[d.Shdr.Offset:]
	for i, v := range tags {
		utils.Write[uint64](buf[i*8:], v)
	}
}
