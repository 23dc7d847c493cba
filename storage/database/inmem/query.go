package inmemdb

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/trezcool/dojo/core"
)

// comparers maps an ordering column to the comparison it sorts by.
type comparers[T any] map[string]func(a, b T) int

// sortItems applies the orderings in turn, unknown columns are ignored. Ties fall back to tiebreak.
func sortItems[T any](items []T, orderings []core.DBOrdering, cmps comparers[T], tiebreak func(a, b T) int) {
	slices.SortStableFunc(items, func(a, b T) int {
		for _, ord := range orderings {
			fn, ok := cmps[ord.Field]
			if !ok {
				continue
			}
			if c := fn(a, b); c != 0 {
				if ord.Ascending {
					return c
				}
				return -c
			}
		}
		return tiebreak(a, b)
	})
}

// paginate returns the requested page of items. A zero PageSize returns everything.
func paginate[T any](items []T, page core.Pagination) []T {
	if page.PageSize <= 0 {
		return items
	}
	start, end := page.Bounds(len(items))
	return items[start:end]
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func compareTime(a, b time.Time) int { return a.Compare(b) }

func compareDate(a, b core.Date) int { return a.Time.Compare(b.Time) }

func compareFold(a, b string) int { return cmp.Compare(strings.ToLower(a), strings.ToLower(b)) }

// inRange reports whether d is within [from, to]. Zero bounds are open.
func inRange(d, from, to core.Date) bool {
	if from.Valid() && d.Before(from.Time) {
		return false
	}
	if to.Valid() && d.After(to.Time) {
		return false
	}
	return true
}
