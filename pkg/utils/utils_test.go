package utils

import "testing"

func TestAlignTo(t *testing.T) {
	cases := []struct {
		val, align, want uint64
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 4, 8},
		{0x1001, 0x1000, 0x2000},
		{10, 0, 10},
	}
	for _, c := range cases {
		if got := AlignTo(c.val, c.align); got != c.want {
			t.Errorf("AlignTo(%d, %d) = %d, want %d", c.val, c.align, got, c.want)
		}
	}
}

func TestBitCeil(t *testing.T) {
	cases := []struct {
		val, want uint64
	}{
		{1, 1},
		{2, 2},
		{3, 4},
		{5, 8},
		{16, 16},
		{17, 32},
	}
	for _, c := range cases {
		if got := BitCeil(c.val); got != c.want {
			t.Errorf("BitCeil(%d) = %d, want %d", c.val, got, c.want)
		}
	}
}

func TestAllZeros(t *testing.T) {
	if !AllZeros([]byte{0, 0, 0}) {
		t.Error("AllZeros should be true for an all-zero slice")
	}
	if !AllZeros(nil) {
		t.Error("AllZeros should be true for an empty slice")
	}
	if AllZeros([]byte{0, 0, 1}) {
		t.Error("AllZeros should be false when any byte is nonzero")
	}
}

func TestBitAndBits(t *testing.T) {
	var v uint32 = 0b1011_0100
	if got := Bit(v, 2); got != 1 {
		t.Errorf("Bit(v, 2) = %d, want 1", got)
	}
	if got := Bit(v, 0); got != 0 {
		t.Errorf("Bit(v, 0) = %d, want 0", got)
	}
	if got := Bits(v, uint32(7), uint32(4)); got != 0b1011 {
		t.Errorf("Bits(v, 7, 4) = %#b, want %#b", got, 0b1011)
	}
}

func TestRemoveIf(t *testing.T) {
	elems := []int{1, 2, 3, 4, 5, 6}
	got := RemoveIf(elems, func(v int) bool { return v%2 == 0 })

	want := []int{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("RemoveIf result length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RemoveIf result[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRemovePrefix(t *testing.T) {
	if s, ok := RemovePrefix("libfoo.a", "lib"); !ok || s != "foo.a" {
		t.Errorf("RemovePrefix(libfoo.a, lib) = (%q, %v), want (foo.a, true)", s, ok)
	}
	if s, ok := RemovePrefix("foo.a", "lib"); ok || s != "foo.a" {
		t.Errorf("RemovePrefix(foo.a, lib) = (%q, %v), want (foo.a, false)", s, ok)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	Write[uint64](buf, 0x0102030405060708)
	if got := Read[uint64](buf); got != 0x0102030405060708 {
		t.Errorf("Read after Write = %#x, want %#x", got, 0x0102030405060708)
	}
}

func TestMapSet(t *testing.T) {
	s := NewMapSet[string]()
	if s.Contains("a") {
		t.Error("new MapSet should not contain anything")
	}
	s.Add("a")
	if !s.Contains("a") {
		t.Error("MapSet should contain an added element")
	}
	if s.Contains("b") {
		t.Error("MapSet should not contain an element never added")
	}
}
