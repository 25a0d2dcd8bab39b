package linker

import (
	"debug/elf"
	"testing"
)

func TestSymBindTypeRoundTrip(t *testing.T) {
	var s Sym
	s.SetBind(uint8(elf.STB_GLOBAL))
	s.SetType(uint8(elf.STT_FUNC))

	if got := s.Bind(); got != uint8(elf.STB_GLOBAL) {
		t.Errorf("Bind() = %d, want %d", got, elf.STB_GLOBAL)
	}
	if got := s.Type(); got != uint8(elf.STT_FUNC) {
		t.Errorf("Type() = %d, want %d", got, elf.STT_FUNC)
	}
}

func TestSymSetBindPreservesType(t *testing.T) {
	var s Sym
	s.SetType(uint8(elf.STT_OBJECT))
	s.SetBind(uint8(elf.STB_WEAK))

	if got := s.Type(); got != uint8(elf.STT_OBJECT) {
		t.Errorf("Type() after SetBind = %d, want %d", got, elf.STT_OBJECT)
	}
	if got := s.Bind(); got != uint8(elf.STB_WEAK) {
		t.Errorf("Bind() = %d, want %d", got, elf.STB_WEAK)
	}
}

func TestSymSetTypePreservesBind(t *testing.T) {
	var s Sym
	s.SetBind(uint8(elf.STB_LOCAL))
	s.SetType(uint8(elf.STT_SECTION))

	if got := s.Bind(); got != uint8(elf.STB_LOCAL) {
		t.Errorf("Bind() after SetType = %d, want %d", got, elf.STB_LOCAL)
	}
}

func TestSymVisibilityRoundTrip(t *testing.T) {
	var s Sym
	s.SetBind(uint8(elf.STB_GLOBAL))
	s.SetVisibility(uint8(elf.STV_HIDDEN))

	if got := s.StVisibility(); got != uint8(elf.STV_HIDDEN) {
		t.Errorf("StVisibility() = %d, want %d", got, elf.STV_HIDDEN)
	}
	if got := s.Bind(); got != uint8(elf.STB_GLOBAL) {
		t.Errorf("Bind() after SetVisibility = %d, want %d", got, elf.STB_GLOBAL)
	}
}

func TestSymIsUndefIsCommonIsAbs(t *testing.T) {
	undef := Sym{Shndx: uint16(elf.SHN_UNDEF)}
	if !undef.IsUndef() || undef.IsDefined() {
		t.Error("SHN_UNDEF symbol should be undefined")
	}

	common := Sym{Shndx: uint16(elf.SHN_COMMON)}
	if !common.IsCommon() {
		t.Error("SHN_COMMON symbol should report IsCommon")
	}

	abs := Sym{Shndx: uint16(elf.SHN_ABS)}
	if !abs.IsAbs() {
		t.Error("SHN_ABS symbol should report IsAbs")
	}
}

func TestSymIsUndefWeak(t *testing.T) {
	var s Sym
	s.Shndx = uint16(elf.SHN_UNDEF)
	s.SetBind(uint8(elf.STB_WEAK))

	if !s.IsUndefWeak() {
		t.Error("undefined weak symbol should report IsUndefWeak")
	}

	s.SetBind(uint8(elf.STB_GLOBAL))
	if s.IsUndefWeak() {
		t.Error("undefined global symbol should not report IsUndefWeak")
	}
}
