package linker

import (
	"debug/elf"
	"testing"
)

func TestGetOutputNameMergesNumberedSections(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{".text.foo", ".text"},
		{".data.rel.ro.bar", ".data.rel.ro"},
		{".init_array.00100", ".init_array"},
		{".random_section", ".random_section"},
	}
	for _, c := range cases {
		if got := GetOutputName(c.name, 0); got != c.want {
			t.Errorf("GetOutputName(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestGetOutputNameSplitsMergeableRodata(t *testing.T) {
	strFlags := uint64(elf.SHF_MERGE) | uint64(elf.SHF_STRINGS)
	if got, want := GetOutputName(".rodata.str1.1", strFlags), ".rodata.str"; got != want {
		t.Errorf("GetOutputName(str) = %q, want %q", got, want)
	}

	cstFlags := uint64(elf.SHF_MERGE)
	if got, want := GetOutputName(".rodata.cst4", cstFlags), ".rodata.cst"; got != want {
		t.Errorf("GetOutputName(cst) = %q, want %q", got, want)
	}

	if got, want := GetOutputName(".rodata.foo", 0), ".rodata"; got != want {
		t.Errorf("GetOutputName(plain) = %q, want %q", got, want)
	}
}

func TestCanonicalizeTypeRewritesInitFiniArrays(t *testing.T) {
	progbits := uint64(elf.SHT_PROGBITS)

	if got := CanonicalizeType(".init_array.00100", progbits); got != uint64(elf.SHT_INIT_ARRAY) {
		t.Errorf("CanonicalizeType(.init_array.00100) = %d, want SHT_INIT_ARRAY", got)
	}
	if got := CanonicalizeType(".fini_array", progbits); got != uint64(elf.SHT_FINI_ARRAY) {
		t.Errorf("CanonicalizeType(.fini_array) = %d, want SHT_FINI_ARRAY", got)
	}
	if got := CanonicalizeType(".text", progbits); got != progbits {
		t.Errorf("CanonicalizeType(.text) = %d, want unchanged SHT_PROGBITS", got)
	}
}
