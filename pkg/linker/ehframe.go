package linker

import (
	"debug/elf"
	"fmt"
	"github.com/ksco/x64ld/pkg/utils"
)

// EhFrameSection is .eh_frame. Input .eh_frame sections are excluded
// from ordinary output-section binning (ObjectFile.skipEhframeSections)
// and collected here instead, since unwind records need CIE/FDE-aware
// merging rather than a flat concatenation.
//
// This does not currently deduplicate identical CIEs or patch
// FDE-to-CIE backlinks across inputs; each input's .eh_frame bytes are
// concatenated as-is and its relocations are reapplied against this
// chunk's own final address, rather than against the (unused) per-input
// .eh_frame output section a real CIE/FDE merge would need. A full
// implementation would parse CIE/FDE records to merge common CIEs, as
// mold does.
type EhFrameSection struct {
	Chunk
	Members       []*InputSection
	Contents      [][]byte
	MemberOffsets []uint64
}

func NewEhFrameSection() *EhFrameSection {
	e := &EhFrameSection{Chunk: NewChunk()}
	e.Name = ".eh_frame"
	e.Shdr.Type = uint32(elf.SHT_PROGBITS)
	e.Shdr.Flags = uint64(elf.SHF_ALLOC)
	e.Shdr.AddrAlign = 8
	return e
}

func (e *EhFrameSection) AddInputSection(isec *InputSection) {
	e.Members = append(e.Members, isec)
}

// FinalizeContents copies every member's raw bytes (without applying
// relocations yet, since final addresses aren't known until layout is
// done) and sizes the chunk. Must run before the first UpdateShdr pass
// so the chunk isn't dropped as zero-sized.
func (e *EhFrameSection) FinalizeContents(ctx *Context) {
	e.Contents = make([][]byte, len(e.Members))
	e.MemberOffsets = make([]uint64, len(e.Members))

	offset := uint64(0)
	for i, isec := range e.Members {
		if isec.Shdr().Type == uint32(elf.SHT_NOBITS) || isec.ShSize == 0 {
			continue
		}

		buf := make([]byte, isec.ShSize)
		isec.CopyContents(ctx, buf)
		e.Contents[i] = buf
		e.MemberOffsets[i] = offset
		offset += uint64(len(buf))
	}

	e.Shdr.Size = offset
}

func (e *EhFrameSection) UpdateShdr(ctx *Context) {}

// CopyBuf advances the write cursor by each buffer's own length (the
// offsets FinalizeContents already computed), then reapplies each
// member's relocations against this chunk's final address. mold's C++
// implementation instead advances the cursor by contents.size() (the
// member count) rather than the buffer length, which only produces a
// correct layout when every .eh_frame input happens to be the same
// size; that bug is not reproduced here.
func (e *EhFrameSection) CopyBuf(ctx *Context) {
	base := ctx.Buf[e.Shdr.Offset:]
	for i, buf := range e.Contents {
		copy(base[e.MemberOffsets[i]:], buf)
	}

	for i, isec := range e.Members {
		if e.Contents[i] == nil {
			continue
		}
		e.applyRelocs(ctx, isec, base[e.MemberOffsets[i]:], e.Shdr.Addr+e.MemberOffsets[i])
	}
}

func (e *EhFrameSection) applyRelocs(ctx *Context, s *InputSection, loc []byte, addr uint64) {
	rels := s.GetRels()
	for i := 0; i < len(rels); i++ {
		rel := rels[i]
		if rel.Type == uint32(elf.R_X86_64_NONE) {
			continue
		}

		sym := s.File.Symbols[rel.Sym]
		if sym.File == nil {
			utils.Fatal(fmt.Sprintf("undefined symbol: %s", sym.Name))
		}

		S := sym.GetAddr(ctx)
		A := uint64(rel.Addend)
		P := addr + rel.Offset
		dst := loc[rel.Offset:]

		switch elf.R_X86_64(rel.Type) {
		case elf.R_X86_64_8:
			utils.Write[uint8](dst, uint8(S+A))
		case elf.R_X86_64_16:
			utils.Write[uint16](dst, uint16(S+A))
		case elf.R_X86_64_32, elf.R_X86_64_32S:
			utils.Write[uint32](dst, uint32(S+A))
		case elf.R_X86_64_64:
			utils.Write[uint64](dst, S+A)
		case elf.R_X86_64_PC32:
			utils.Write[uint32](dst, uint32(S+A-P))
		case elf.R_X86_64_PC64:
			utils.Write[uint64](dst, S+A-P)
		default:
			utils.Fatal("unsupported .eh_frame relocation")
		}
	}
}
