package database

import (
	"cmp"
	"fmt"
	"slices"
)

// sortByOrder sorts widgets by their position in order. An empty order keeps
// the given order, which callers load as creation order.
func sortByOrder(widgets []DashboardWidget, order []uint) ([]DashboardWidget, error) {
	if len(order) == 0 {
		return widgets, nil
	}

	pos := make(map[uint]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, w := range widgets {
		if _, ok := pos[w.ID]; !ok {
			return nil, fmt.Errorf("%w: widget %d is missing from dashboard %d order", ErrOrderInconsistent, w.ID, w.DashboardID)
		}
	}

	sorted := slices.Clone(widgets)
	slices.SortStableFunc(sorted, func(a, b DashboardWidget) int {
		return cmp.Compare(pos[a.ID], pos[b.ID])
	})
	return sorted, nil
}

// removeID returns order without the first occurrence of id.
func removeID(order []uint, id uint) []uint {
	i := slices.Index(order, id)
	if i == -1 {
		return order
	}
	return slices.Delete(slices.Clone(order), i, i+1)
}

// shiftLeft moves id one position towards the front. The first element wraps
// around to the end.
func shiftLeft(order []uint, id uint) ([]uint, error) {
	i := slices.Index(order, id)
	if i == -1 {
		return nil, fmt.Errorf("%w: %d", ErrWidgetNotFound, id)
	}

	out := slices.Delete(slices.Clone(order), i, i+1)
	if i == 0 {
		return append(out, id), nil
	}
	return slices.Insert(out, i-1, id), nil
}

// shiftRight is shiftLeft on the reversed order, so the last element wraps
// around to the front.
func shiftRight(order []uint, id uint) ([]uint, error) {
	reversed := slices.Clone(order)
	slices.Reverse(reversed)
	out, err := shiftLeft(reversed, id)
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}
