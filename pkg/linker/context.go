package linker

import "github.com/ksco/x64ld/pkg/utils"

type ContextArg struct {
	Output    string
	Emulation MachineType

	LibraryPaths []string

	// Static forces archive-only library resolution and omits the
	// dynamic-linking chunks (Interp/Dynamic/Dynsym/...) from the output.
	Static bool

	// Pie selects ET_DYN output (position-independent executable) over
	// ET_EXEC.
	Pie bool

	Entry string

	DynamicLinker string

	Rpaths []string

	// ZNow sets DF_1_NOW / DT_FLAGS BIND_NOW, disabling lazy PLT binding.
	ZNow bool
}

type Context struct {
	Arg ContextArg

	SymbolMap map[string]*Symbol

	Ehdr *OutputEhdr
	Shdr *OutputShdr
	Phdr *OutputPhdr

	Interp    *InterpSection
	Got       *GotSection
	GotPlt    *GotPltSection
	Plt       *PltSection
	RelDyn    *RelDynSection
	RelPlt    *RelPltSection
	Dynsym    *DynsymSection
	Dynstr    *DynstrSection
	Hash      *HashSection
	Dynamic   *DynamicSection
	Strtab    *StrtabSection
	Symtab    *SymtabSection
	Shstrtab  *ShstrtabSection
	Copyrel   *CopyrelSection
	Versym    *VersymSection
	Verneed   *VerneedSection
	BuildId   *BuildIdSection
	EhFrame   *EhFrameSection

	Buf []byte

	FilePriority int64
	Visited      utils.MapSet[string]

	Objs        []*ObjectFile
	DsoObjs     []*SharedFile

	InternalObj   *ObjectFile
	InternalEsyms []Sym

	Chunks []Chunker

	MergedSections []*MergedSection
	OutputSections []*OutputSection

	DefaultVersion uint16

	// TlsBegin/TlsEnd bound the PT_TLS segment once laid out; used when
	// resolving TPOFF-relative relocations.
	TlsBegin uint64
	TlsEnd   uint64

	NeedsTlsdesc bool

	__InitArrayStart    *Symbol
	__InitArrayEnd      *Symbol
	__FiniArrayStart    *Symbol
	__FiniArrayEnd      *Symbol
	__PreinitArrayStart *Symbol
	__PreinitArrayEnd   *Symbol
}

func NewContext() *Context {
	return &Context{
		Arg: ContextArg{
			Emulation: MachineTypeNone,
			Output:    "a.out",
			Entry:     "_start",
		},
		SymbolMap:      make(map[string]*Symbol),
		Visited:        utils.NewMapSet[string](),
		FilePriority:   10000,
		DefaultVersion: VER_NDX_LOCAL,
	}
}
