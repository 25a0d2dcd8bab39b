package linker

import "debug/elf"

// VerneedSection is .gnu.version_r. Since this linker does not parse
// per-symbol version requirements out of input DSOs, it stays empty;
// DynamicSection still wires DT_VERNEED/DT_VERNEEDNUM to it so the
// layout matches a fully-versioned output.
type VerneedSection struct {
	Chunk
}

func NewVerneedSection() *VerneedSection {
	v := &VerneedSection{Chunk: NewChunk()}
	v.Name = ".gnu.version_r"
	v.Shdr.Type = uint32(elf.SHT_GNU_VERNEED)
	v.Shdr.Flags = uint64(elf.SHF_ALLOC)
	v.Shdr.AddrAlign = 8
	return v
}

func (v *VerneedSection) UpdateShdr(ctx *Context) {
	v.Shdr.Link = uint32(ctx.Dynstr.Shndx)
}

func (v *VerneedSection) CopyBuf(ctx *Context) {}
