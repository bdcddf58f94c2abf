// Package bisect provides a generic binary search over an abstract
// ordered range addressed by index.
package bisect

// Compare is a three-way comparator for the element at index i against
// a target held by the caller: zero means match, negative means the
// element orders before the target, positive means after.
type Compare func(i int) (int, error)

// Search bisects the inclusive range [lo, hi] and returns the index of
// a matching element. When several consecutive elements match, the
// returned index is not guaranteed to be the first or last of the run;
// callers expand from it. The boolean is false when nothing matches. A
// comparator error aborts the search.
func Search(lo, hi int, cmp Compare) (int, bool, error) {
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		c, err := cmp(mid)
		if err != nil {
			return 0, false, err
		}
		switch {
		case c == 0:
			return mid, true, nil
		case c < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0, false, nil
}
