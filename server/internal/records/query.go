package records

import (
	"fmt"
	"slices"
	"time"
)

// All returns every record in file order.
func All(set Set) Set { return set }

// Latest returns the n records with the most recent timestamps, ordered
// oldest to newest. n must be positive; fewer records are returned when the
// set is smaller than n.
//
// Records are stably sorted by timestamp, newest first, before truncation, so
// records with equal timestamps keep their file order up to the final
// reversal. A timestamp that does not parse counts as earlier than any valid
// one.
func Latest(set Set, n int) (Set, error) {
	if n <= 0 {
		return nil, fmt.Errorf("records: latest: count %d must be positive: %w", n, ErrInvalidArgument)
	}

	type keyed struct {
		rec   Record
		at    time.Time
		valid bool
	}
	ks := make([]keyed, len(set))
	for i, r := range set {
		at, ok := ParseTimestamp(r.Timestamp())
		ks[i] = keyed{rec: r, at: at, valid: ok}
	}

	slices.SortStableFunc(ks, func(a, b keyed) int {
		switch {
		case a.valid && b.valid:
			return b.at.Compare(a.at)
		case a.valid:
			return -1
		case b.valid:
			return 1
		default:
			return 0
		}
	})

	if n > len(ks) {
		n = len(ks)
	}
	out := make(Set, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = ks[i].rec
	}
	return out, nil
}
