package linker

import (
	"debug/elf"
	"testing"
)

func TestGetRankOrdering(t *testing.T) {
	strong := &Sym{}
	strong.SetBind(uint8(elf.STB_GLOBAL))

	weak := &Sym{}
	weak.SetBind(uint8(elf.STB_WEAK))

	common := &Sym{Shndx: uint16(elf.SHN_COMMON)}

	file := &ObjectFile{InputFile: InputFile{Priority: 1}}

	strongRank := GetRank(file, strong, false)
	weakRank := GetRank(file, weak, false)
	lazyStrongRank := GetRank(file, strong, true)
	lazyWeakRank := GetRank(file, weak, true)
	commonRank := GetRank(file, common, false)
	lazyCommonRank := GetRank(file, common, true)

	if !(strongRank < weakRank) {
		t.Errorf("a defined strong symbol should outrank a defined weak one: %d vs %d", strongRank, weakRank)
	}
	if !(weakRank < lazyStrongRank) {
		t.Errorf("any definition should outrank a lazy (archive) symbol: %d vs %d", weakRank, lazyStrongRank)
	}
	if !(lazyStrongRank < lazyWeakRank) {
		t.Errorf("a lazy strong symbol should outrank a lazy weak one: %d vs %d", lazyStrongRank, lazyWeakRank)
	}
	if !(lazyWeakRank < commonRank) {
		t.Errorf("a definition or lazy symbol should outrank a common symbol: %d vs %d", lazyWeakRank, commonRank)
	}
	if !(commonRank < lazyCommonRank) {
		t.Errorf("a resolved common symbol should outrank a lazy one: %d vs %d", commonRank, lazyCommonRank)
	}
}

func TestGetRankBreaksTiesByFilePriority(t *testing.T) {
	sym := &Sym{}
	sym.SetBind(uint8(elf.STB_GLOBAL))

	earlier := &ObjectFile{InputFile: InputFile{Priority: 1}}
	later := &ObjectFile{InputFile: InputFile{Priority: 2}}

	if got := GetRank(earlier, sym, false); got >= GetRank(later, sym, false) {
		t.Errorf("GetRank should prefer the lower file priority: %d vs %d", got, GetRank(later, sym, false))
	}
}
