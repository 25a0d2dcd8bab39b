package linker

import (
	"debug/elf"
	"github.com/ksco/x64ld/pkg/utils"
	"math"
	"sort"
	"strings"
)

func CreateInternalFile(ctx *Context) {
	obj := &ObjectFile{}
	ctx.InternalObj = obj
	ctx.Objs = append(ctx.Objs, obj)

	ctx.InternalEsyms = make([]Sym, 1)
	obj.Symbols = append(obj.Symbols, NewSymbol(""))
	obj.FirstGlobal = 1
	obj.IsAlive = true
	obj.Priority = 1

	obj.ElfSyms = ctx.InternalEsyms
}

func ResolveSymbols(ctx *Context) {
	for _, file := range ctx.Objs {
		file.ResolveSymbols(ctx)
	}

	MarkLiveObjects(ctx)

	for _, file := range ctx.Objs {
		if !file.IsAlive {
			file.ClearSymbols()
		}
	}

	for _, file := range ctx.Objs {
		if file.IsAlive {
			file.ResolveSymbols(ctx)
		}
	}

	ctx.Objs = utils.RemoveIf[*ObjectFile](ctx.Objs, func(file *ObjectFile) bool {
		return !file.IsAlive
	})
}

func MarkLiveObjects(ctx *Context) {
	roots := make([]*ObjectFile, 0)
	for _, file := range ctx.Objs {
		if file.IsAlive {
			roots = append(roots, file)
		}
	}

	utils.Assert(len(roots) > 0)

	for len(roots) > 0 {
		file := roots[0]
		if !file.IsAlive {
			continue
		}
		file.MarkLiveObjects(ctx, func(o *ObjectFile) {
			roots = append(roots, o)
		})

		roots = roots[1:]
	}
}

func RegisterSectionPieces(ctx *Context) {
	for _, file := range ctx.Objs {
		file.RegisterSectionPieces()
	}
}

func ComputeImportExport(ctx *Context) {
	for _, file := range ctx.Objs {
		file.ComputeImportExport()
	}
}

func ComputeMergedSectionSizes(ctx *Context) {
	for _, file := range ctx.Objs {
		for _, m := range file.MergeableSections {
			if m == nil {
				continue
			}
			for _, frag := range m.Fragments {
				frag.IsAlive = true
			}
		}
	}

	for _, sec := range ctx.MergedSections {
		sec.AssignOffsets()
	}
}

// CreateSyntheticSections pushes every chunk this linker might emit.
// Chunks meaningless in static-link mode (Interp/Dynsym/.../BuildId's
// dynamic-section peers) are only pushed when the output isn't static;
// the rest of the driver relies on the corresponding ctx.* field being
// nil to skip that machinery entirely.
func CreateSyntheticSections(ctx *Context) {
	push := func(chunk Chunker) Chunker {
		ctx.Chunks = append(ctx.Chunks, chunk)
		return chunk
	}

	ctx.Ehdr = push(NewOutputEhdr()).(*OutputEhdr)
	ctx.Phdr = push(NewOutputPhdr()).(*OutputPhdr)
	ctx.Shdr = push(NewOutputShdr()).(*OutputShdr)

	ctx.Got = push(NewGotSection()).(*GotSection)
	ctx.EhFrame = push(NewEhFrameSection()).(*EhFrameSection)

	if !ctx.Arg.Static {
		ctx.Interp = push(NewInterpSection(ctx.Arg.DynamicLinker)).(*InterpSection)
		ctx.GotPlt = push(NewGotPltSection()).(*GotPltSection)
		ctx.Plt = push(NewPltSection()).(*PltSection)
		ctx.RelDyn = push(NewRelDynSection()).(*RelDynSection)
		ctx.RelPlt = push(NewRelPltSection()).(*RelPltSection)
		ctx.Dynstr = push(NewDynstrSection()).(*DynstrSection)
		ctx.Dynsym = push(NewDynsymSection()).(*DynsymSection)
		ctx.Hash = push(NewHashSection()).(*HashSection)
		ctx.Dynamic = push(NewDynamicSection()).(*DynamicSection)
		ctx.Copyrel = push(NewCopyrelSection()).(*CopyrelSection)
		ctx.Versym = push(NewVersymSection()).(*VersymSection)
		ctx.Verneed = push(NewVerneedSection()).(*VerneedSection)
	}

	ctx.Strtab = push(NewStrtabSection()).(*StrtabSection)
	ctx.Symtab = push(NewSymtabSection()).(*SymtabSection)
	ctx.Shstrtab = push(NewShstrtabSection()).(*ShstrtabSection)
	ctx.BuildId = push(NewBuildIdSection()).(*BuildIdSection)
}

func BinSections(ctx *Context) {
	group := make([][]*InputSection, len(ctx.OutputSections))
	for _, file := range ctx.Objs {
		for _, isec := range file.Sections {
			if isec == nil || !isec.IsAlive {
				continue
			}

			idx := isec.OutputSection.Idx
			group[idx] = append(group[idx], isec)
		}
	}

	for i, osec := range ctx.OutputSections {
		osec.Members = group[i]
	}
}

// CollectEhFrameSections gathers the .eh_frame input sections every
// ObjectFile excluded from ordinary binning and hands them to the
// single output .eh_frame chunk.
func CollectEhFrameSections(ctx *Context) {
	for _, file := range ctx.Objs {
		for _, isec := range file.Sections {
			if isec != nil && isec.Name() == ".eh_frame" {
				ctx.EhFrame.AddInputSection(isec)
			}
		}
	}
}

func CollectOutputSections(ctx *Context) []Chunker {
	osecs := make([]Chunker, 0)
	for _, osec := range ctx.OutputSections {
		if len(osec.Members) != 0 {
			osecs = append(osecs, osec)
		}
	}
	for _, osec := range ctx.MergedSections {
		if osec.Shdr.Size > 0 {
			osecs = append(osecs, osec)
		}
	}

	sort.SliceStable(osecs, func(i, j int) bool {
		return osecs[i].GetName() < osecs[j].GetName()
	})
	return osecs
}

func AddSyntheticSymbols(ctx *Context) {
	obj := ctx.InternalObj

	add := func(name string) *Symbol {
		esym := Sym{
			Info:  uint8(elf.STB_GLOBAL)<<4 | uint8(elf.STT_NOTYPE)&0xf,
			Shndx: uint16(elf.SHN_ABS),
			Other: uint8(elf.STV_HIDDEN),
		}
		ctx.InternalEsyms = append(ctx.InternalEsyms, esym)
		sym := GetSymbolByName(ctx, name)
		sym.Value = 0xdeadbeef
		obj.Symbols = append(obj.Symbols, sym)
		return sym
	}

	ctx.__InitArrayStart = add("__init_array_start")
	ctx.__InitArrayEnd = add("__init_array_end")
	ctx.__FiniArrayStart = add("__fini_array_start")
	ctx.__FiniArrayEnd = add("__fini_array_end")
	ctx.__PreinitArrayStart = add("__preinit_array_start")
	ctx.__PreinitArrayEnd = add("__preinit_array_end")

	obj.ElfSyms = ctx.InternalEsyms

	obj.ResolveSymbols(ctx)
}

func ClaimUnresolvedSymbols(ctx *Context) {
	for _, file := range ctx.Objs {
		file.ClaimUnresolvedSymbols(ctx)
	}
}

// ResolveDsoSymbols matches every still-undefined strong symbol
// against the export lists of linked shared objects, marking the
// winner IsImported so ScanRels routes it to the PLT/GOT/COPYREL
// machinery instead of failing the link. Runs after
// ClaimUnresolvedSymbols (which only claims undefined-weak symbols)
// and before ScanRels.
func ResolveDsoSymbols(ctx *Context) {
	if ctx.Dynstr == nil {
		return
	}

	for _, dso := range ctx.DsoObjs {
		ctx.Dynstr.AddString(dso.Soname)
	}
	if len(ctx.Arg.Rpaths) > 0 {
		ctx.Dynstr.AddString(joinRpaths(ctx))
	}

	exporters := make(map[string]*SharedFile)
	for _, dso := range ctx.DsoObjs {
		for _, name := range dso.GetGlobalSymbolNames() {
			if _, ok := exporters[name]; !ok {
				exporters[name] = dso
			}
		}
	}

	for _, file := range ctx.Objs {
		if !file.IsAlive {
			continue
		}

		for i := file.FirstGlobal; i < int64(len(file.ElfSyms)); i++ {
			esym := &file.ElfSyms[i]
			if !esym.IsUndef() {
				continue
			}

			sym := file.Symbols[i]
			if sym.File != nil {
				continue
			}

			if _, ok := exporters[sym.Name]; !ok {
				continue
			}

			sym.File = file
			sym.SymIdx = int32(i)
			sym.IsImported = true
			sym.IsWeak = esym.IsWeak()
			sym.VerIdx = ctx.DefaultVersion
		}
	}
}

// ScanRels walks every live relocation to flag which symbols need a
// GOT/PLT/TLS slot or a copy-relocation, then reserves those slots
// symbol by symbol (GOT, TLSGD, GOTTPOFF, PLT, copy-reloc), followed by
// the single TLSLD block. Static links reserve GOT slots only.
func ScanRels(ctx *Context) {
	for _, file := range ctx.Objs {
		file.ScanRelocations(ctx)
	}

	syms := make([]*Symbol, 0)
	for _, file := range ctx.Objs {
		for _, sym := range file.Symbols {
			if sym.File == file && sym.Flags != 0 {
				syms = append(syms, sym)
			}
		}
	}

	for _, sym := range syms {
		if sym.Flags&NEEDS_GOT != 0 {
			ctx.Got.AddGotSymbol(ctx, sym)
		}

		if ctx.Arg.Static {
			sym.Flags = 0
			continue
		}

		if sym.Flags&NEEDS_TLSGD != 0 {
			ctx.Got.AddTlsGdSymbol(ctx, sym)
		}

		if sym.Flags&NEEDS_GOTTPOFF != 0 {
			ctx.Got.AddGotTpOffSymbol(ctx, sym)
		}

		if sym.Flags&NEEDS_PLT != 0 {
			ctx.Plt.AddSymbol(ctx, sym)
		}

		if sym.Flags&NEEDS_COPYREL != 0 {
			ctx.Copyrel.AddSymbol(ctx, sym)
		}

		sym.Flags = 0
	}

	if ctx.NeedsTlsdesc && ctx.Got != nil {
		ctx.Got.AddTlsLd(ctx)
	}
}

func ComputeSectionSizes(ctx *Context) {
	for _, osec := range ctx.OutputSections {
		offset := uint64(0)
		p2align := int64(0)

		for _, isec := range osec.Members {
			offset = utils.AlignTo(offset, 1<<isec.P2Align)
			isec.Offset = uint32(offset)
			offset += uint64(isec.ShSize)
			p2align = int64(math.Max(float64(p2align), float64(isec.P2Align)))
		}

		osec.Shdr.Size = offset
		osec.Shdr.AddrAlign = 1 << p2align
	}
}

// ComputeSymtabSizes sizes every object's .strtab/.symtab reservation
// up front so StrtabSection and SymtabSection can each lay out
// per-file offsets independently without depending on the other's
// pass having already run.
func ComputeSymtabSizes(ctx *Context) {
	for _, file := range ctx.Objs {
		file.ComputeSymtabSize(ctx)
	}
}

func SortOutputSections(ctx *Context) {
	getRank1 := func(chunk Chunker) int32 {
		typ := chunk.GetShdr().Type
		flags := chunk.GetShdr().Flags

		if flags&uint64(elf.SHF_ALLOC) == 0 {
			return math.MaxInt32 - 1
		}
		if chunk == ctx.Shdr {
			return math.MaxInt32
		}

		if chunk == ctx.Ehdr {
			return 0
		}
		if chunk == ctx.Phdr {
			return 1
		}
		if chunk == ctx.Interp {
			return 2
		}
		if typ == uint32(elf.SHT_NOTE) {
			return 3
		}

		b2i := func(b bool) int {
			if b {
				return 1
			}
			return 0
		}

		writeable := b2i(flags&uint64(elf.SHF_WRITE) != 0)
		notExec := b2i(flags&uint64(elf.SHF_EXECINSTR) == 0)
		notTls := b2i(flags&uint64(elf.SHF_TLS) == 0)
		notRelro := b2i(!isRelro(ctx, chunk))
		isBss := b2i(typ == uint32(elf.SHT_NOBITS))

		return int32((1 << 10) | writeable<<9 | notExec<<8 | notTls<<7 | notRelro<<6 | isBss<<5)
	}
	getRank2 := func(chunk Chunker) int32 {
		if chunk.GetShdr().Type == uint32(elf.SHT_NOTE) {
			return -int32(chunk.GetShdr().AddrAlign)
		}

		if chunk == ctx.Got {
			return 1
		}
		return 0
	}

	sort.SliceStable(ctx.Chunks, func(i, j int) bool {
		x := getRank1(ctx.Chunks[i])
		y := getRank1(ctx.Chunks[j])
		if x != y {
			return x < y
		}

		return getRank2(ctx.Chunks[i]) < getRank2(ctx.Chunks[j])
	})
}

func doSetOsecOffsets(ctx *Context) uint64 {
	alignment := func(chunk Chunker) uint64 {
		return uint64(math.Max(float64(chunk.GetExtraAddrAlign()),
			float64(chunk.GetShdr().AddrAlign)))
	}

	addr := ImageBase
	for _, chunk := range ctx.Chunks {
		if chunk.GetShdr().Flags&uint64(elf.SHF_ALLOC) == 0 {
			continue
		}

		if isTbss(chunk) {
			chunk.GetShdr().Addr = addr
			continue
		}

		addr = utils.AlignTo(addr, alignment(chunk))
		chunk.GetShdr().Addr = addr

		addr += chunk.GetShdr().Size
	}

	for i := 0; i < len(ctx.Chunks); {
		if isTbss(ctx.Chunks[i]) {
			addr := ctx.Chunks[i].GetShdr().Addr
			for ; i < len(ctx.Chunks) && isTbss(ctx.Chunks[i]); i++ {
				addr = utils.AlignTo(addr, alignment(ctx.Chunks[i]))
				ctx.Chunks[i].GetShdr().Addr = addr
				addr += ctx.Chunks[i].GetShdr().Size
			}
		} else {
			i++
		}
	}

	fileoff := uint64(0)
	i := 0
	for i < len(ctx.Chunks) && ctx.Chunks[i].GetShdr().Flags&uint64(elf.SHF_ALLOC) != 0 {
		first := ctx.Chunks[i]
		utils.Assert(first.GetShdr().Type != uint32(elf.SHT_NOBITS))

		fileoff = utils.AlignTo(fileoff, alignment(first))

		for {
			ctx.Chunks[i].GetShdr().Offset = fileoff + ctx.Chunks[i].GetShdr().Addr - first.GetShdr().Addr
			i++

			if i >= len(ctx.Chunks) ||
				ctx.Chunks[i].GetShdr().Flags&uint64(elf.SHF_ALLOC) == 0 ||
				ctx.Chunks[i].GetShdr().Type == uint32(elf.SHT_NOBITS) {
				break
			}

			if ctx.Chunks[i].GetShdr().Addr < first.GetShdr().Addr {
				break
			}

			gapSize := ctx.Chunks[i].GetShdr().Addr - ctx.Chunks[i-1].GetShdr().Addr - ctx.Chunks[i-1].GetShdr().Size

			if gapSize >= PageSize {
				break
			}
		}

		fileoff = ctx.Chunks[i-1].GetShdr().Offset + ctx.Chunks[i-1].GetShdr().Size

		for i < len(ctx.Chunks) &&
			ctx.Chunks[i].GetShdr().Flags&uint64(elf.SHF_ALLOC) != 0 &&
			ctx.Chunks[i].GetShdr().Type == uint32(elf.SHT_NOBITS) {
			i++
		}
	}

	for ; i < len(ctx.Chunks); i++ {
		fileoff = utils.AlignTo(fileoff, ctx.Chunks[i].GetShdr().AddrAlign)
		ctx.Chunks[i].GetShdr().Offset = fileoff
		fileoff += ctx.Chunks[i].GetShdr().Size
	}
	return fileoff
}

func SetOsecOffsets(ctx *Context) uint64 {
	for {
		fileoff := doSetOsecOffsets(ctx)

		if ctx.Phdr == nil {
			return fileoff
		}

		size := ctx.Phdr.Shdr.Size
		ctx.Phdr.UpdateShdr(ctx)

		if size == ctx.Phdr.Shdr.Size {
			return fileoff
		}
	}
}

func FixSyntheticSymbols(ctx *Context) {
	start := func(sym *Symbol, chunk Chunker) {
		if sym != nil && chunk != nil {
			sym.SetOutputSection(chunk)
			sym.Value = chunk.GetShdr().Addr
		}
	}

	stop := func(sym *Symbol, chunk Chunker) {
		if sym != nil && chunk != nil {
			sym.SetOutputSection(chunk)
			sym.Value = chunk.GetShdr().Addr + chunk.GetShdr().Size
		}
	}

	outputSections := make([]Chunker, 0)
	for _, chunk := range ctx.Chunks {
		if chunk.Kind() != ChunkKindHeader {
			outputSections = append(outputSections, chunk)
		}
	}

	for _, chunk := range outputSections {
		switch chunk.GetShdr().Type {
		case uint32(elf.SHT_INIT_ARRAY):
			start(ctx.__InitArrayStart, chunk)
			stop(ctx.__InitArrayEnd, chunk)
		case uint32(elf.SHT_PREINIT_ARRAY):
			start(ctx.__PreinitArrayStart, chunk)
			stop(ctx.__PreinitArrayEnd, chunk)
		case uint32(elf.SHT_FINI_ARRAY):
			start(ctx.__FiniArrayStart, chunk)
			stop(ctx.__FiniArrayEnd, chunk)
		}
	}

	// No SHT_INIT_ARRAY/FINI_ARRAY section exists when the input has no
	// global constructors; reset the bracketing symbols from their
	// placeholder value (0xdeadbeef) to 0 rather than fail the link.
	if ctx.__InitArrayStart.OutputSection == nil {
		ctx.__InitArrayStart.Value = 0
		ctx.__InitArrayEnd.Value = 0
	}
	if ctx.__FiniArrayStart.OutputSection == nil {
		ctx.__FiniArrayStart.Value = 0
		ctx.__FiniArrayEnd.Value = 0
	}
}

func isRelro(ctx *Context, chunk Chunker) bool {
	flags := chunk.GetShdr().Flags
	typ := chunk.GetShdr().Type

	if flags&uint64(elf.SHF_WRITE) != 0 {
		return (flags&uint64(elf.SHF_TLS) != 0) || typ == uint32(elf.SHT_INIT_ARRAY) ||
			typ == uint32(elf.SHT_FINI_ARRAY) || typ == uint32(elf.SHT_PREINIT_ARRAY) ||
			chunk == ctx.Got || strings.HasSuffix(chunk.GetName(), "rel.ro")
	}
	return false
}

func isTbss(chunk Chunker) bool {
	return chunk.GetShdr().Type == uint32(elf.SHT_NOBITS) && chunk.GetShdr().Flags&uint64(elf.SHF_TLS) != 0
}
