// Package match defines the canonical match-action table entry and the
// key-equality rule entries are compared under.
package match

// MatchType classifies a table's match fields, derived from how its
// fields are declared: all exact fields yield Exact, all exact except a
// trailing longest-prefix field yields LPM, anything else is Wildcard.
type MatchType int

const (
	Exact MatchType = iota
	LPM
	Wildcard
)

func (t MatchType) String() string {
	switch t {
	case Exact:
		return "exact"
	case LPM:
		return "lpm"
	case Wildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// FieldKind distinguishes how a match field participates in MatchType
// derivation.
type FieldKind int

const (
	FieldExact FieldKind = iota
	FieldLPM
	FieldWildcard
)

// Field describes one match field of a table: its byte extent within the
// key and how it participates in matching.
type Field struct {
	Offset int
	Size   int
	Kind   FieldKind
}

// DeriveMatchType implements spec §3: all-exact fields is Exact; all
// exact fields with a trailing LPM field is LPM; anything else (any
// wildcard field, or an LPM field that is not last) is Wildcard.
func DeriveMatchType(fields []Field) MatchType {
	if len(fields) == 0 {
		return Exact
	}
	for i, f := range fields {
		switch f.Kind {
		case FieldExact:
			continue
		case FieldLPM:
			if i == len(fields)-1 {
				continue
			}
			return Wildcard
		default:
			return Wildcard
		}
	}
	for _, f := range fields {
		if f.Kind == FieldLPM {
			return LPM
		}
	}
	return Exact
}

// KeyExtent returns the byte offset of the first field and the total key
// size spanning from that offset to the end of the last field.
func KeyExtent(fields []Field) (offset, size int) {
	if len(fields) == 0 {
		return 0, 0
	}
	offset = fields[0].Offset
	last := fields[len(fields)-1]
	size = (last.Offset + last.Size) - offset
	return offset, size
}

// KeyMask0 builds the table-wide mask: 0xFF bytes covering each field's
// extent (relative to KeyExtent's offset), zero elsewhere.
func KeyMask0(fields []Field) []byte {
	offset, size := KeyExtent(fields)
	mask := make([]byte, size)
	for _, f := range fields {
		start := f.Offset - offset
		for i := start; i < start+f.Size; i++ {
			mask[i] = 0xFF
		}
	}
	return mask
}

// Entry is a canonical match-action rule.
type Entry struct {
	Key          []byte // present iff the table has match fields
	KeyMask      []byte // optional per-entry mask; nil means all-ones
	KeySignature uint64 // opaque precomputed hash, preserved on duplication
	KeyPriority  uint32 // tie-break for wildcard/LPM
	ActionID     int    // index into the pipeline's action table
	ActionData   []byte // sized to the table's action_data_size
}

// Clone duplicates an entry, including its byte slices, so the copy has
// no aliasing with the original. Used whenever ownership must transfer
// without the source continuing to exist (e.g. entries ∪ pending_* for a
// non-incremental backend's create()).
func Clone(e *Entry) *Entry {
	if e == nil {
		return nil
	}
	c := &Entry{
		KeySignature: e.KeySignature,
		KeyPriority:  e.KeyPriority,
		ActionID:     e.ActionID,
	}
	if e.Key != nil {
		c.Key = append([]byte(nil), e.Key...)
	}
	if e.KeyMask != nil {
		c.KeyMask = append([]byte(nil), e.KeyMask...)
	}
	if e.ActionData != nil {
		c.ActionData = append([]byte(nil), e.ActionData...)
	}
	return c
}

// effectiveMaskByte returns km[i] if km covers byte i, else 0xFF (a
// missing per-entry mask is treated as all-ones).
func effectiveMaskByte(km []byte, i int) byte {
	if i < len(km) {
		return km[i]
	}
	return 0xFF
}

// Equal reports whether e0 and e1 are the same key identity under the
// table-wide mask keyMask0, per spec §3: for every byte i,
//
//	(e0.mask[i] & km0[i]) == (e1.mask[i] & km0[i]), and
//	(e0.key[i] & e0.mask[i] & km0[i]) == (e1.key[i] & e1.mask[i] & km0[i])
//
// Priority is never part of key identity.
func Equal(e0, e1 *Entry, keyMask0 []byte) bool {
	if len(e0.Key) != len(e1.Key) {
		return false
	}
	for i := range keyMask0 {
		km0 := keyMask0[i]
		m0 := effectiveMaskByte(e0.KeyMask, i) & km0
		m1 := effectiveMaskByte(e1.KeyMask, i) & km0
		if m0 != m1 {
			return false
		}
		var k0, k1 byte
		if i < len(e0.Key) {
			k0 = e0.Key[i] & m0
		}
		if i < len(e1.Key) {
			k1 = e1.Key[i] & m1
		}
		if k0 != k1 {
			return false
		}
	}
	return true
}
