package match

import "github.com/dgryski/go-farm"

// Signature computes a key's opaque precomputed hash. The value is
// preserved across duplication (Clone copies KeySignature verbatim) and
// is never part of key identity — Equal ignores it entirely — but lets
// callers short-circuit an obviously-different key before paying for the
// byte-wise mask comparison in Equal.
func Signature(key []byte) uint64 {
	return farm.Hash64(key)
}

// MaybeEqual is a cheap pre-filter: if both entries carry a signature,
// neither carries a per-entry mask, and the signatures differ, the keys
// differ and Equal need not be called. Entries with a per-entry mask
// always pass, since masked-off key bytes feed the signature but not
// Equal. It never produces a false negative on its own — callers still
// must confirm with Equal before treating two entries as the same key
// identity, since two different keys can collide.
func MaybeEqual(e0, e1 *Entry) bool {
	if e0.KeySignature == 0 || e1.KeySignature == 0 {
		return true
	}
	if e0.KeyMask != nil || e1.KeyMask != nil {
		return true
	}
	return e0.KeySignature == e1.KeySignature
}
