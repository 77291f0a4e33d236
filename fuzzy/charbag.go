package fuzzy

import "unicode"

// CharBag is a compact, case-folded summary of which characters occur in a
// string. Letters occupy two bits each holding a saturating occurrence count
// (one, then two-or-more); digits, '-' and '/' occupy a single presence bit
// each. Characters outside this alphabet are not tracked.
//
// Bags serve as an O(1) rejection test before the full matching algorithm
// runs: a candidate can only match a query if the candidate's bag contains
// the query's bag. The test can report false positives (counts saturate) but
// never false negatives.
type CharBag uint64

// MakeCharBag builds a bag from the characters of s, folding to lowercase.
func MakeCharBag(s string) CharBag {
	var bag CharBag
	for _, r := range s {
		bag.insert(r)
	}
	return bag
}

// CharBagFromRunes builds a bag from a rune sequence, folding to lowercase.
func CharBagFromRunes(rs []rune) CharBag {
	var bag CharBag
	for _, r := range rs {
		bag.insert(r)
	}
	return bag
}

// Contains reports whether every character count recorded in other is also
// present in b.
func (b CharBag) Contains(other CharBag) bool {
	return b&other == other
}

func (b *CharBag) insert(r rune) {
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	} else if r > unicode.MaxASCII {
		// Some non-ASCII letters lowercase into the tracked alphabet
		// (U+0130 folds to 'i'); they must be recorded or the bag filter
		// could reject a candidate the full algorithm accepts.
		r = unicode.ToLower(r)
	}
	switch {
	case r >= 'a' && r <= 'z':
		// Counts are encoded in unary (00 -> 01 -> 11) so that the superset
		// test stays a single AND.
		shift := uint(r-'a') * 2
		count := ((uint64(*b)>>shift)&3)<<1 | 1
		if count > 3 {
			count = 3
		}
		*b |= CharBag(count << shift)
	case r >= '0' && r <= '9':
		*b |= 1 << (52 + uint(r-'0'))
	case r == '-':
		*b |= 1 << 62
	case r == '/':
		*b |= 1 << 63
	}
}
