package match

import "testing"

func ipv4Field() []Field {
	return []Field{{Offset: 0, Size: 4, Kind: FieldExact}}
}

func TestDeriveMatchType(t *testing.T) {
	cases := []struct {
		name   string
		fields []Field
		want   MatchType
	}{
		{"no fields", nil, Exact},
		{"all exact", []Field{{Kind: FieldExact}, {Kind: FieldExact}}, Exact},
		{"trailing lpm", []Field{{Kind: FieldExact}, {Kind: FieldLPM}}, LPM},
		{"leading lpm", []Field{{Kind: FieldLPM}, {Kind: FieldExact}}, Wildcard},
		{"any wildcard", []Field{{Kind: FieldExact}, {Kind: FieldWildcard}}, Wildcard},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DeriveMatchType(c.fields); got != c.want {
				t.Errorf("DeriveMatchType(%v) = %v, want %v", c.fields, got, c.want)
			}
		})
	}
}

func TestKeyExtentAndMask0(t *testing.T) {
	fields := []Field{
		{Offset: 4, Size: 4, Kind: FieldExact},
		{Offset: 10, Size: 2, Kind: FieldExact},
	}
	offset, size := KeyExtent(fields)
	if offset != 4 || size != 8 {
		t.Fatalf("KeyExtent = (%d, %d), want (4, 8)", offset, size)
	}
	mask := KeyMask0(fields)
	want := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0xFF, 0xFF}
	if string(mask) != string(want) {
		t.Fatalf("KeyMask0 = %x, want %x", mask, want)
	}
}

func TestEqualIgnoresPriority(t *testing.T) {
	km0 := KeyMask0(ipv4Field())
	e0 := &Entry{Key: []byte{10, 0, 0, 1}, KeyPriority: 1}
	e1 := &Entry{Key: []byte{10, 0, 0, 1}, KeyPriority: 99}
	if !Equal(e0, e1, km0) {
		t.Fatal("expected equal keys regardless of priority")
	}
}

func TestEqualRespectsEntryMask(t *testing.T) {
	km0 := KeyMask0(ipv4Field())
	e0 := &Entry{Key: []byte{10, 0, 0, 1}, KeyMask: []byte{0xFF, 0xFF, 0xFF, 0x00}}
	e1 := &Entry{Key: []byte{10, 0, 0, 2}, KeyMask: []byte{0xFF, 0xFF, 0xFF, 0x00}}
	if !Equal(e0, e1, km0) {
		t.Fatal("expected equal: both masked-off in last byte")
	}

	e2 := &Entry{Key: []byte{10, 0, 0, 2}}
	if Equal(e0, e2, km0) {
		t.Fatal("expected unequal: e2 carries no mask so last byte participates")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	e := &Entry{Key: []byte{1, 2, 3}, ActionData: []byte{9}, KeySignature: 42}
	c := Clone(e)
	c.Key[0] = 0xFF
	c.ActionData[0] = 0xFF
	if e.Key[0] == 0xFF || e.ActionData[0] == 0xFF {
		t.Fatal("clone aliases original entry's slices")
	}
	if c.KeySignature != 42 {
		t.Fatal("clone did not preserve key signature")
	}
}

func TestSignatureStableAndDistinguishing(t *testing.T) {
	a := Signature([]byte{1, 2, 3})
	b := Signature([]byte{1, 2, 3})
	c := Signature([]byte{1, 2, 4})
	if a != b {
		t.Fatal("signature not stable for identical input")
	}
	if a == c {
		t.Fatal("signature collided on distinguishable input (statistically implausible)")
	}
}
