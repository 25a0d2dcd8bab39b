package linker

import (
	"debug/elf"
	"fmt"
	"github.com/ksco/x64ld/pkg/utils"
	"math"
	"unsafe"
)

type InputSection struct {
	File          *ObjectFile
	OutputSection *OutputSection
	Contents      []byte
	Offset        uint32
	Shndx         uint32
	RelsecIdx     uint32
	ShSize        uint32
	IsAlive       bool
	P2Align       uint8
	Rels          []Rela
}

func NewInputSection(
	ctx *Context, file *ObjectFile, name string, shndx int64,
) *InputSection {
	s := &InputSection{
		Offset:    math.MaxUint32,
		Shndx:     math.MaxUint32,
		RelsecIdx: math.MaxUint32,
		ShSize:    math.MaxUint32,
		IsAlive:   true,
	}
	s.File = file
	s.Shndx = uint32(shndx)

	shdr := s.Shdr()
	if shndx < int64(len(file.ElfSections)) {
		s.Contents = file.File.Contents[shdr.Offset : shdr.Offset+shdr.Size]
	}

	toP2Align := func(alignment uint64) int64 {
		if alignment == 0 {
			return 0
		}
		return int64(utils.CountrZero[uint64](alignment))
	}

	if shdr.Flags&uint64(elf.SHF_COMPRESSED) != 0 {
		chdr := s.Chdr()
		s.ShSize = uint32(chdr.Size)
		s.P2Align = uint8(toP2Align(chdr.AddrAlign))
	} else {
		s.ShSize = uint32(shdr.Size)
		s.P2Align = uint8(toP2Align(shdr.AddrAlign))
	}

	s.OutputSection =
		GetOutputSectionInstance(ctx, name, uint64(shdr.Type), shdr.Flags)

	return s
}

func (s *InputSection) Shdr() *Shdr {
	if s.Shndx < uint32(len(s.File.ElfSections)) {
		return &s.File.ElfSections[s.Shndx]
	}

	utils.Fatal("unreachable")
	return nil
}

func (s *InputSection) Chdr() Chdr {
	return utils.Read[Chdr](s.Contents)
}

func (s *InputSection) GetAddr() uint64 {
	return s.OutputSection.Shdr.Addr + uint64(s.Offset)
}

func (s *InputSection) Name() string {
	if uint32(len(s.File.ElfSections)) <= s.Shndx {
		return ".common"
	}
	return getName(s.File.ShStrtab, s.File.ElfSections[s.Shndx].Name)
}

func (s *InputSection) GetRels() []Rela {
	if s.RelsecIdx == math.MaxUint32 || s.Rels != nil {
		return s.Rels
	}

	bs := s.File.GetBytesFromShdr(&s.File.InputFile.ElfSections[s.RelsecIdx])
	nums := len(bs) / int(unsafe.Sizeof(Rela{}))
	s.Rels = make([]Rela, 0)
	for nums > 0 {
		s.Rels = append(s.Rels, utils.Read[Rela](bs))
		bs = bs[unsafe.Sizeof(Rela{}):]
		nums--
	}

	return s.Rels
}

// needsDynRel reports whether writing S+A directly into this
// (writable, allocated) section requires the dynamic linker to patch
// it at load time: either the symbol is resolved in another DSO, or
// the output is a PIE and the value is load-address-dependent.
func needsDynRel(ctx *Context, sym *Symbol) bool {
	return sym.IsImported || ctx.Arg.Pie
}

func (s *InputSection) ScanRelocations(ctx *Context) {
	utils.Assert(s.Shdr().Flags&uint64(elf.SHF_ALLOC) != 0)

	writable := s.Shdr().Flags&uint64(elf.SHF_WRITE) != 0

	rels := s.GetRels()
	for i := 0; i < len(rels); i++ {
		rel := &rels[i]
		if rel.Type == uint32(elf.R_X86_64_NONE) {
			continue
		}

		sym := s.File.Symbols[rel.Sym]
		if sym.File == nil {
			utils.Fatal(fmt.Sprintf("undefined symbol: %s", sym.Name))
		}

		switch elf.R_X86_64(rel.Type) {
		case elf.R_X86_64_GOT32, elf.R_X86_64_GOTPCREL, elf.R_X86_64_GOTPCRELX,
			elf.R_X86_64_REX_GOTPCRELX:
			sym.Flags |= NEEDS_GOT
		case elf.R_X86_64_PLT32:
			if sym.IsImported {
				sym.Flags |= NEEDS_PLT
			}
		case elf.R_X86_64_GOTTPOFF:
			sym.Flags |= NEEDS_GOTTPOFF
		case elf.R_X86_64_TLSGD:
			sym.Flags |= NEEDS_TLSGD
		case elf.R_X86_64_TLSLD:
			ctx.NeedsTlsdesc = true
		case elf.R_X86_64_64, elf.R_X86_64_32, elf.R_X86_64_32S:
			if sym.IsImported && writable {
				sym.Flags |= NEEDS_COPYREL
			}
			if needsDynRel(ctx, sym) && writable {
				s.File.NumDynRel++
			}
		case elf.R_X86_64_NONE, elf.R_X86_64_PC8, elf.R_X86_64_PC16,
			elf.R_X86_64_PC32, elf.R_X86_64_8, elf.R_X86_64_16,
			elf.R_X86_64_COPY, elf.R_X86_64_GLOB_DAT, elf.R_X86_64_JMP_SLOT,
			elf.R_X86_64_RELATIVE, elf.R_X86_64_TPOFF32, elf.R_X86_64_TPOFF64,
			elf.R_X86_64_DTPOFF32, elf.R_X86_64_DTPOFF64, elf.R_X86_64_SIZE32,
			elf.R_X86_64_SIZE64, elf.R_X86_64_IRELATIVE:
			// Do nothing; resolved directly at link time or handled by
			// the caller that requested this relocation (e.g. TLSGD/PLT).
		default:
			utils.Fatal("unknown relocation")
		}
	}
}

func (s *InputSection) GetPriority() int64 {
	return (int64(s.File.Priority) << 32) | int64(s.Shndx)
}

func (s *InputSection) WriteTo(ctx *Context, buf []byte) {
	if s.Shdr().Type == uint32(elf.SHT_NOBITS) || s.ShSize == 0 {
		return
	}

	s.CopyContents(ctx, buf)

	if s.Shdr().Flags&uint64(elf.SHF_ALLOC) != 0 {
		s.ApplyRelocAlloc(ctx, buf)
	}
}

func (s *InputSection) CopyContents(ctx *Context, buf []byte) {
	copy(buf, s.Contents)
}

func (s *InputSection) ApplyRelocAlloc(ctx *Context, base []byte) {
	rels := s.GetRels()
	writable := s.Shdr().Flags&uint64(elf.SHF_WRITE) != 0

	for i := 0; i < len(rels); i++ {
		rel := rels[i]
		if rel.Type == uint32(elf.R_X86_64_NONE) {
			continue
		}

		sym := s.File.Symbols[rel.Sym]
		offset := rel.Offset
		loc := base[offset:]

		if sym.File == nil {
			utils.Fatal(fmt.Sprintf("undefined symbol: %s", sym.Name))
		}

		S := sym.GetAddr(ctx)
		A := uint64(rel.Addend)
		P := s.GetAddr() + offset

		switch elf.R_X86_64(rel.Type) {
		case elf.R_X86_64_8:
			utils.Write[uint8](loc, uint8(S+A))
		case elf.R_X86_64_16:
			utils.Write[uint16](loc, uint16(S+A))
		case elf.R_X86_64_32, elf.R_X86_64_32S:
			utils.Write[uint32](loc, uint32(S+A))
		case elf.R_X86_64_64:
			if needsDynRel(ctx, sym) && writable {
				utils.Write[uint64](loc, A)
			} else {
				utils.Write[uint64](loc, S+A)
			}
		case elf.R_X86_64_PC8:
			utils.Write[uint8](loc, uint8(S+A-P))
		case elf.R_X86_64_PC16:
			utils.Write[uint16](loc, uint16(S+A-P))
		case elf.R_X86_64_PC32:
			utils.Write[uint32](loc, uint32(S+A-P))
		case elf.R_X86_64_PLT32:
			if sym.PltIdx != -1 {
				S = sym.GetPltAddr(ctx)
			}
			utils.Write[uint32](loc, uint32(S+A-P))
		case elf.R_X86_64_GOT32, elf.R_X86_64_GOTPCREL, elf.R_X86_64_GOTPCRELX,
			elf.R_X86_64_REX_GOTPCRELX:
			G := sym.GetGotAddr(ctx)
			utils.Write[uint32](loc, uint32(G+A-P))
		case elf.R_X86_64_GOTTPOFF:
			utils.Write[uint32](loc, uint32(sym.GetGotTpOffAddr(ctx)+A-P))
		case elf.R_X86_64_TLSGD:
			utils.Write[uint32](loc, uint32(sym.GetTlsGdAddr(ctx)+A-P))
		case elf.R_X86_64_TLSLD:
			utils.Write[uint32](loc, uint32(ctx.Got.GetTlsLdAddr(ctx)+A-P))
		case elf.R_X86_64_DTPOFF32:
			utils.Write[uint32](loc, uint32(S+A-ctx.TlsBegin))
		case elf.R_X86_64_DTPOFF64:
			utils.Write[uint64](loc, S+A-ctx.TlsBegin)
		case elf.R_X86_64_TPOFF32:
			utils.Write[uint32](loc, uint32(S+A-ctx.TlsEnd))
		case elf.R_X86_64_TPOFF64:
			utils.Write[uint64](loc, S+A-ctx.TlsEnd)
		case elf.R_X86_64_SIZE32:
			utils.Write[uint32](loc, uint32(sym.ElfSym().Size+uint64(rel.Addend)))
		case elf.R_X86_64_SIZE64:
			utils.Write[uint64](loc, sym.ElfSym().Size+uint64(rel.Addend))
		default:
			utils.Fatal("unknown relocation")
		}
	}
}

func (s *InputSection) GetFragment(rel *Rela) (*SectionFragment, uint32) {
	esym := &s.File.ElfSyms[rel.Sym]
	if esym.Type() == uint8(elf.STT_SECTION) {
		m := s.File.MergeableSections[s.File.GetShndx(esym, int64(rel.Sym))]
		return m.GetFragment(uint32(esym.Val) + uint32(rel.Addend))
	}
	return nil, 0
}
