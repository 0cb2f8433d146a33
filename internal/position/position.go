// Package position keeps sibling orderings densely packed: after any
// insert, delete or move the positions of a sibling set are exactly
// 1..N with no gaps and no duplicates.
package position

import (
	"sort"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
)

// Direction of a single-step move within an ordering.
type Direction string

const (
	Up   Direction = "UP"
	Down Direction = "DOWN"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", apperr.BadRequest("direction must be UP or DOWN")
}

// Item is one positioned sibling. ID is opaque to this package.
type Item struct {
	ID       string
	Position int
}

// Next returns the position a newly appended sibling should take.
func Next(items []Item) int {
	maxPos := 0
	for _, item := range items {
		if item.Position > maxPos {
			maxPos = item.Position
		}
	}
	return maxPos + 1
}

// Reflow renumbers items to 1..N preserving their current relative
// order. The input is not mutated.
func Reflow(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}

// Remove drops the sibling with the given id and reflows the rest.
func Remove(items []Item, id string) []Item {
	kept := make([]Item, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	return Reflow(kept)
}

// Move swaps the identified sibling with its immediate neighbor.
// Moving the first item up or the last item down is an invalid state,
// not a no-op.
func Move(items []Item, id string, dir Direction) ([]Item, error) {
	ordered := Reflow(items)
	idx := -1
	for i, item := range ordered {
		if item.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperr.NotFound("block not found in this note")
	}
	switch dir {
	case Up:
		if idx == 0 {
			return nil, apperr.InvalidState("block is already at the top")
		}
		ordered[idx-1], ordered[idx] = ordered[idx], ordered[idx-1]
	case Down:
		if idx == len(ordered)-1 {
			return nil, apperr.InvalidState("block is already at the bottom")
		}
		ordered[idx], ordered[idx+1] = ordered[idx+1], ordered[idx]
	default:
		return nil, apperr.BadRequest("direction must be UP or DOWN")
	}
	for i := range ordered {
		ordered[i].Position = i + 1
	}
	return ordered, nil
}

// InsertAt places item at the given 1-based index, clamped to
// [1, N+1], and reflows. Any existing entry with the same ID is
// replaced, which makes cross-column card moves a single call on the
// target ordering.
func InsertAt(items []Item, item Item, index int) []Item {
	ordered := Reflow(items)
	kept := make([]Item, 0, len(ordered)+1)
	for _, existing := range ordered {
		if existing.ID != item.ID {
			kept = append(kept, existing)
		}
	}
	if index < 1 {
		index = 1
	}
	if index > len(kept)+1 {
		index = len(kept) + 1
	}
	out := make([]Item, 0, len(kept)+1)
	out = append(out, kept[:index-1]...)
	out = append(out, item)
	out = append(out, kept[index-1:]...)
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}
