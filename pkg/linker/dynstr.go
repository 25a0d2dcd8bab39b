package linker

import "debug/elf"

// DynstrSection is .dynstr. Offset 0 is always the empty string.
type DynstrSection struct {
	Chunk
	Contents []string
}

func NewDynstrSection() *DynstrSection {
	d := &DynstrSection{Chunk: NewChunk()}
	d.Name = ".dynstr"
	d.Shdr.Type = uint32(elf.SHT_STRTAB)
	d.Shdr.Flags = uint64(elf.SHF_ALLOC)
	d.Shdr.AddrAlign = 1
	d.Shdr.Size = 1
	return d
}

func (d *DynstrSection) AddString(str string) uint32 {
	ret := uint32(d.Shdr.Size)
	d.Shdr.Size += uint64(len(str)) + 1
	d.Contents = append(d.Contents, str)
	return ret
}

// FindString performs a linear scan. .dynstr stays small (exported
// symbol names plus a handful of DT_NEEDED/soname/rpath strings), so
// an O(n) lookup is fine here.
func (d *DynstrSection) FindString(str string) uint32 {
	i := uint32(1)
	for _, s := range d.Contents {
		if s == str {
			return i
		}
		i += uint32(len(s)) + 1
	}
	return 0
}

func (d *DynstrSection) UpdateShdr(ctx *Context) {}

func (d *DynstrSection) CopyBuf(ctx *Context) {
	base := ctx.Buf[d.Shdr.Offset:]
	base[0] = 0

	i := 1
	for _, s := range d.Contents {
		writeString(base[i:], s)
		i += len(s) + 1
	}
}
