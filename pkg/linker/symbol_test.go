package linker

import "testing"

func TestSymbolGetAddrSectionFragment(t *testing.T) {
	m := NewMergedSection(".rodata.str", 0, 0)
	m.Shdr.Addr = 0x1000
	frag := NewSectionFragment(m)
	frag.Offset = 0x10
	frag.IsAlive = true

	sym := NewSymbol("str")
	sym.SetSectionFragment(frag)
	sym.Value = 4

	ctx := NewContext()
	if got, want := sym.GetAddr(ctx), uint64(0x1014); got != want {
		t.Errorf("GetAddr() = %#x, want %#x", got, want)
	}
}

func TestSymbolGetAddrDeadFragment(t *testing.T) {
	m := NewMergedSection(".rodata.str", 0, 0)
	frag := NewSectionFragment(m)
	frag.IsAlive = false

	sym := NewSymbol("dead")
	sym.SetSectionFragment(frag)

	ctx := NewContext()
	if got := sym.GetAddr(ctx); got != 0 {
		t.Errorf("GetAddr() on a dead fragment = %#x, want 0", got)
	}
}

func TestSymbolGetAddrCopyrel(t *testing.T) {
	ctx := NewContext()
	ctx.Copyrel = NewCopyrelSection()
	ctx.Copyrel.Shdr.Addr = 0x4000

	sym := NewSymbol("errno")
	sym.HasCopyrel = true
	sym.Value = 8

	if got, want := sym.GetAddr(ctx), uint64(0x4008); got != want {
		t.Errorf("GetAddr() = %#x, want %#x", got, want)
	}
}

func TestSymbolGotAddresses(t *testing.T) {
	ctx := NewContext()
	ctx.Got = NewGotSection()
	ctx.Got.Shdr.Addr = 0x2000
	ctx.GotPlt = NewGotPltSection()
	ctx.GotPlt.Shdr.Addr = 0x3000
	ctx.Plt = NewPltSection()
	ctx.Plt.Shdr.Addr = 0x5000

	sym := NewSymbol("fn")
	sym.GotIdx = 2
	sym.GotPltIdx = 1
	sym.PltIdx = 3

	if got, want := sym.GetGotAddr(ctx), uint64(0x2000+2*GotSize); got != want {
		t.Errorf("GetGotAddr() = %#x, want %#x", got, want)
	}
	if got, want := sym.GetGotPltAddr(ctx), uint64(0x3000+1*GotSize); got != want {
		t.Errorf("GetGotPltAddr() = %#x, want %#x", got, want)
	}
	if got, want := sym.GetPltAddr(ctx), uint64(0x5000+3*PltSize); got != want {
		t.Errorf("GetPltAddr() = %#x, want %#x", got, want)
	}
}

func TestSymbolGetTpOff(t *testing.T) {
	ctx := NewContext()
	ctx.TlsEnd = 0x100

	sym := NewSymbol("tls_var")
	sym.Value = 0x120

	if got, want := sym.GetTpOff(ctx), uint64(0x20); got != want {
		t.Errorf("GetTpOff() = %#x, want %#x", got, want)
	}
}

func TestNewSymbolDefaultsIndicesToMinusOne(t *testing.T) {
	sym := NewSymbol("foo")
	indices := []int32{
		sym.SymIdx, sym.DynsymIdx, sym.GotIdx, sym.GotPltIdx,
		sym.GotTpOffIdx, sym.TlsGdIdx, sym.PltIdx,
	}
	for i, idx := range indices {
		if idx != -1 {
			t.Errorf("index field %d = %d, want -1", i, idx)
		}
	}
}

func TestSymbolClearResetsImportAndCopyrelState(t *testing.T) {
	sym := NewSymbol("foo")
	sym.IsImported = true
	sym.HasCopyrel = true
	sym.Flags = NEEDS_GOT | NEEDS_PLT

	sym.Clear()

	if sym.IsImported || sym.HasCopyrel || sym.Flags != 0 {
		t.Errorf("Clear() left stale state: %+v", sym)
	}
}
