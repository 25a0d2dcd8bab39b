package linker

import (
	"debug/elf"
)

const (
	NEEDS_GOT      uint32 = 1 << 0
	NEEDS_PLT      uint32 = 1 << 1
	NEEDS_GOTTPOFF uint32 = 1 << 2
	NEEDS_TLSGD    uint32 = 1 << 3
	NEEDS_COPYREL  uint32 = 1 << 4
)

// Symbol holds one resolved name's final binding. Unlike the teacher's
// SymbolsAux indirection table, every synthetic-section index lives
// directly on the symbol, mirroring mold's Symbol fields.
type Symbol struct {
	File *ObjectFile

	InputSection    *InputSection
	OutputSection   Chunker
	SectionFragment *SectionFragment

	Value uint64
	Name  string

	SymIdx int32
	VerIdx uint16

	DynsymIdx   int32
	GotIdx      int32
	GotPltIdx   int32
	GotTpOffIdx int32
	TlsGdIdx    int32
	PltIdx      int32

	Flags      uint32
	Visibility uint8

	IsWeak       bool
	IsExported   bool
	IsImported   bool
	HasCopyrel   bool
}

func NewSymbol(name string) *Symbol {
	s := &Symbol{
		Name:        name,
		SymIdx:      -1,
		DynsymIdx:   -1,
		GotIdx:      -1,
		GotPltIdx:   -1,
		GotTpOffIdx: -1,
		TlsGdIdx:    -1,
		PltIdx:      -1,
		Visibility:  uint8(elf.STV_DEFAULT),
	}
	return s
}

func GetSymbolByName(ctx *Context, name string) *Symbol {
	if sym, ok := ctx.SymbolMap[name]; ok {
		return sym
	}
	ctx.SymbolMap[name] = NewSymbol(name)
	return ctx.SymbolMap[name]
}

func (s *Symbol) SetInputSection(isec *InputSection) {
	s.InputSection = isec
	s.OutputSection = nil
	s.SectionFragment = nil
}
func (s *Symbol) SetOutputSection(osec Chunker) {
	s.InputSection = nil
	s.OutputSection = osec
	s.SectionFragment = nil
}
func (s *Symbol) SetSectionFragment(frag *SectionFragment) {
	s.InputSection = nil
	s.OutputSection = nil
	s.SectionFragment = frag
}

func (s *Symbol) ElfSym() *Sym {
	return &s.File.ElfSyms[s.SymIdx]
}

func (s *Symbol) GetAddr(ctx *Context) uint64 {
	if s.SectionFragment != nil {
		if !s.SectionFragment.IsAlive {
			return 0
		}
		return s.SectionFragment.GetAddr() + s.Value
	}

	if s.HasCopyrel {
		return ctx.Copyrel.Shdr.Addr + uint64(s.Value)
	}

	if s.InputSection == nil {
		return s.Value
	}

	if !s.InputSection.IsAlive {
		return 0
	}

	return s.InputSection.GetAddr() + s.Value
}

func (s *Symbol) GetGotAddr(ctx *Context) uint64 {
	return ctx.Got.Shdr.Addr + uint64(s.GotIdx)*GotSize
}

func (s *Symbol) GetGotPltAddr(ctx *Context) uint64 {
	return ctx.GotPlt.Shdr.Addr + uint64(s.GotPltIdx)*GotSize
}

func (s *Symbol) GetPltAddr(ctx *Context) uint64 {
	if s.PltIdx == -1 {
		return 0
	}
	if s.GotPltIdx != -1 {
		return ctx.Plt.Shdr.Addr + uint64(s.PltIdx)*PltSize
	}
	return ctx.Plt.Shdr.Addr + uint64(s.PltIdx)*PltSize
}

func (s *Symbol) GetGotTpOffAddr(ctx *Context) uint64 {
	return ctx.Got.Shdr.Addr + uint64(s.GotTpOffIdx)*GotSize
}

func (s *Symbol) GetTlsGdAddr(ctx *Context) uint64 {
	return ctx.Got.Shdr.Addr + uint64(s.TlsGdIdx)*GotSize
}

func (s *Symbol) GetTpOff(ctx *Context) uint64 {
	return s.GetAddr(ctx) - ctx.TlsEnd
}

func (s *Symbol) Clear() {
	s.File = nil
	s.SectionFragment = nil
	s.OutputSection = nil
	s.InputSection = nil
	s.SymIdx = -1
	s.VerIdx = 0
	s.IsWeak = false
	s.IsExported = false
	s.IsImported = false
	s.HasCopyrel = false
	s.Flags = 0
}

func (s *Symbol) GetRank() uint64 {
	if s.File == nil {
		return 7 << 24
	}
	return GetRank(s.File, s.ElfSym(), !s.File.IsAlive)
}
