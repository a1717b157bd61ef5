package game

import "sort"

// SortNewestFirst orders records by CreatedAt descending. Ties keep id order
// so listings are stable across calls.
func SortNewestFirst(list []Record) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
