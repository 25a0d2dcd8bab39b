package linker

import "debug/elf"

// InterpSection is .interp, naming the dynamic linker to invoke.
type InterpSection struct {
	Chunk
}

func NewInterpSection(path string) *InterpSection {
	i := &InterpSection{Chunk: NewChunk()}
	i.Name = ".interp"
	i.Shdr.Type = uint32(elf.SHT_PROGBITS)
	i.Shdr.Flags = uint64(elf.SHF_ALLOC)
	i.Shdr.AddrAlign = 1
	i.Shdr.Size = uint64(len(path)) + 1
	return i
}

func (i *InterpSection) UpdateShdr(ctx *Context) {}

func (i *InterpSection) CopyBuf(ctx *Context) {
	writeString(ctx.Buf[i.Shdr.Offset:], ctx.Arg.DynamicLinker)
}
