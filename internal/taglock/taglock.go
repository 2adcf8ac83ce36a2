// Package taglock serializes writers that resolve the same tag keys.
//
// Locks are taken in sorted key order so two submissions sharing several
// tags cannot deadlock. The database uniqueness constraint stays the
// correctness guarantee; a lock only keeps concurrent writers off the same
// tag row.
package taglock

import (
	"context"
	"sort"
)

type Locker interface {
	Lock(ctx context.Context, keys []string) (unlock func(), err error)
}

func sortedUnique(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
