package position

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
)

func items(positions ...int) []Item {
	out := make([]Item, len(positions))
	for i, p := range positions {
		out[i] = Item{ID: fmt.Sprintf("item-%d", i), Position: p}
	}
	return out
}

func assertDense(t *testing.T, got []Item) {
	t.Helper()
	seen := map[int]bool{}
	for _, item := range got {
		seen[item.Position] = true
	}
	for i := 1; i <= len(got); i++ {
		assert.True(t, seen[i], "missing position %d", i)
	}
}

func TestNext(t *testing.T) {
	assert.Equal(t, 1, Next(nil))
	assert.Equal(t, 4, Next(items(1, 2, 3)))
	// Gaps do not confuse append; it goes past the max.
	assert.Equal(t, 8, Next(items(2, 7)))
}

func TestReflowClosesGaps(t *testing.T) {
	in := []Item{{ID: "a", Position: 4}, {ID: "b", Position: 9}, {ID: "c", Position: 1}}
	out := Reflow(in)

	require.Len(t, out, 3)
	assert.Equal(t, []Item{{ID: "c", Position: 1}, {ID: "a", Position: 2}, {ID: "b", Position: 3}}, out)
	// Input untouched.
	assert.Equal(t, 4, in[0].Position)
}

func TestRemoveKeepsDense(t *testing.T) {
	in := []Item{{ID: "a", Position: 1}, {ID: "b", Position: 2}, {ID: "c", Position: 3}}
	out := Remove(in, "b")

	require.Len(t, out, 2)
	assertDense(t, out)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
}

func TestMoveBoundaries(t *testing.T) {
	in := []Item{{ID: "a", Position: 1}, {ID: "b", Position: 2}, {ID: "c", Position: 3}}

	_, err := Move(in, "a", Up)
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidState, appErr.Code)

	_, err = Move(in, "c", Down)
	require.Error(t, err)
	appErr, ok = apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidState, appErr.Code)

	_, err = Move(in, "nope", Up)
	appErr, ok = apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func TestMoveSwapsWithNeighbor(t *testing.T) {
	in := []Item{{ID: "a", Position: 1}, {ID: "b", Position: 2}, {ID: "c", Position: 3}}

	out, err := Move(in, "b", Up)
	require.NoError(t, err)
	assert.Equal(t, []Item{{ID: "b", Position: 1}, {ID: "a", Position: 2}, {ID: "c", Position: 3}}, out)

	out, err = Move(in, "b", Down)
	require.NoError(t, err)
	assert.Equal(t, []Item{{ID: "a", Position: 1}, {ID: "c", Position: 2}, {ID: "b", Position: 3}}, out)
	assertDense(t, out)
}

func TestInsertAtClamps(t *testing.T) {
	in := []Item{{ID: "a", Position: 1}, {ID: "b", Position: 2}}

	out := InsertAt(in, Item{ID: "x"}, 0)
	assert.Equal(t, "x", out[0].ID)
	assertDense(t, out)

	out = InsertAt(in, Item{ID: "x"}, 99)
	assert.Equal(t, "x", out[2].ID)
	assertDense(t, out)

	out = InsertAt(in, Item{ID: "x"}, 2)
	assert.Equal(t, []string{"a", "x", "b"}, []string{out[0].ID, out[1].ID, out[2].ID})
}

func TestInsertAtReplacesExisting(t *testing.T) {
	in := []Item{{ID: "a", Position: 1}, {ID: "b", Position: 2}, {ID: "c", Position: 3}}
	out := InsertAt(in, Item{ID: "c"}, 1)

	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].ID)
	assertDense(t, out)
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("note-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	unlockA := km.Lock("a")

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("b")
		unlockB()
		close(done)
	}()

	// Key "b" must not wait on key "a".
	<-done
	unlockA()
}
