package linker

import (
	"debug/elf"
	"github.com/ksco/x64ld/pkg/utils"
)

// ComputeSymtabSize sizes this file's reservations in .strtab and
// .symtab. .strtab gets one contiguous range per file (local symbol
// names, then names of the global symbols the file defines); .symtab
// gets two, one in the all-locals block and one in the all-globals
// block, so the parallel write pass in SymtabSection.CopyBuf never
// races.
func (o *ObjectFile) ComputeSymtabSize(ctx *Context) {
	o.StrtabSize = 1
	o.LocalSymtabSize = 0
	o.GlobalSymtabSize = 0

	for i := int64(1); i < o.FirstGlobal; i++ {
		sym := &o.LocalSyms[i]
		if sym.Name == "" {
			continue
		}
		o.LocalSymtabSize += int64(SymSize)
		o.StrtabSize += int64(len(sym.Name)) + 1
	}

	for _, sym := range o.GetGlobalSyms() {
		if sym.File != o || sym.Name == "" {
			continue
		}
		o.GlobalSymtabSize += int64(SymSize)
		o.StrtabSize += int64(len(sym.Name)) + 1
	}
}

// WriteSymtab emits this file's local and global symbols into the
// ranges SymtabSection.UpdateShdr already reserved for it.
func (o *ObjectFile) WriteSymtab(ctx *Context) {
	strtab := ctx.Buf[ctx.Strtab.Shdr.Offset+uint64(o.StrtabOffset):]
	strtabOff := int64(1)

	localBuf := ctx.Buf[ctx.Symtab.Shdr.Offset+uint64(o.LocalSymtabOffset):]
	localIdx := int64(0)

	for i := int64(1); i < o.FirstGlobal; i++ {
		sym := &o.LocalSyms[i]
		if sym.Name == "" {
			continue
		}

		esym := Sym{Name: uint32(o.StrtabOffset + strtabOff)}
		esym.SetType(o.ElfSyms[i].Type())
		esym.SetBind(uint8(elf.STB_LOCAL))
		esym.Val = sym.GetAddr(ctx)
		esym.Size = o.ElfSyms[i].Size
		if sym.InputSection != nil {
			esym.Shndx = uint16(sym.InputSection.OutputSection.Shndx)
		} else {
			esym.Shndx = uint16(elf.SHN_ABS)
		}

		utils.Write[Sym](localBuf[localIdx*int64(SymSize):], esym)
		localIdx++

		writeString(strtab[strtabOff:], sym.Name)
		strtabOff += int64(len(sym.Name)) + 1
	}

	globalBuf := ctx.Buf[ctx.Symtab.Shdr.Offset+uint64(o.GlobalSymtabOffset):]
	globalIdx := int64(0)

	for _, sym := range o.GetGlobalSyms() {
		if sym.File != o || sym.Name == "" {
			continue
		}

		esym := Sym{Name: uint32(o.StrtabOffset + strtabOff)}
		esym.SetType(sym.ElfSym().Type())
		esym.SetBind(sym.ElfSym().Bind())
		esym.Val = sym.GetAddr(ctx)
		esym.Size = sym.ElfSym().Size
		if sym.InputSection != nil {
			esym.Shndx = uint16(sym.InputSection.OutputSection.Shndx)
		} else if sym.File == o {
			esym.Shndx = uint16(elf.SHN_ABS)
		} else {
			esym.Shndx = uint16(elf.SHN_UNDEF)
		}

		utils.Write[Sym](globalBuf[globalIdx*int64(SymSize):], esym)
		globalIdx++

		writeString(strtab[strtabOff:], sym.Name)
		strtabOff += int64(len(sym.Name)) + 1
	}
}

// WriteDynRel emits this file's direct-address writable relocations
// against imported/PIE-relocatable symbols into its reserved range of
// .rela.dyn.
func (o *ObjectFile) WriteDynRel(ctx *Context, buf []byte) {
	idx := 0
	for _, isec := range o.Sections {
		if isec == nil || !isec.IsAlive || isec.Shdr().Flags&uint64(elf.SHF_ALLOC) == 0 ||
			isec.Shdr().Flags&uint64(elf.SHF_WRITE) == 0 {
			continue
		}

		for _, rel := range isec.GetRels() {
			switch elf.R_X86_64(rel.Type) {
			case elf.R_X86_64_64, elf.R_X86_64_32, elf.R_X86_64_32S:
			default:
				continue
			}

			sym := o.Symbols[rel.Sym]
			if !needsDynRel(ctx, sym) {
				continue
			}

			r := Rela{Offset: isec.GetAddr() + rel.Offset}
			if sym.IsImported {
				r.Type = uint32(elf.R_X86_64_64)
				r.Sym = uint32(sym.DynsymIdx)
				r.Addend = rel.Addend
			} else {
				r.Type = uint32(elf.R_X86_64_RELATIVE)
				r.Addend = int64(sym.GetAddr(ctx)) + rel.Addend
			}

			utils.Write[Rela](buf[idx*int(RelaSize):], r)
			idx++
		}
	}
}
