package linker

import "testing"

// elfHash follows the SysV ABI hash function; these values were taken
// from the System V ABI spec's worked examples.
func TestElfHashKnownValues(t *testing.T) {
	cases := []struct {
		name string
		want uint32
	}{
		{"", 0},
		{"printf", 0x77905a6},
		{"exit", 0x6cf04},
		{"main", 0x737fe},
	}

	for _, c := range cases {
		if got := elfHash(c.name); got != c.want {
			t.Errorf("elfHash(%q) = %#x, want %#x", c.name, got, c.want)
		}
	}
}

func TestElfHashDiffersOnDifferentNames(t *testing.T) {
	if elfHash("foo") == elfHash("bar") {
		t.Error("elfHash(\"foo\") == elfHash(\"bar\"), want distinct hashes")
	}
}
