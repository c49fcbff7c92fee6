package vm

import (
	"errors"

	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// MaxStackSize is the maximum number of items (counting every element of
// every compound item reachable from any execution stack) an engine may
// hold at once (§4.2).
const MaxStackSize = 2048

// MaxItemSize bounds the byte length of a single Buffer/ByteString item
// (§4.2).
const MaxItemSize = 1024 * 1024

// ErrStackTooBig is returned when an operation would push the engine's
// tracked item count past MaxStackSize.
var ErrStackTooBig = errors.New("vm: stack size limit exceeded")

// RefCounter tracks the total number of items live across every
// execution context's stacks and slots, rejecting operations that would
// create unbounded growth. It does not need full cycle detection because
// the engine never lets a compound item's construction reference an
// item still under construction — items are only linked together after
// both already exist, which bounds the reachable graph to the counted
// set itself.
type RefCounter struct {
	count int
}

// NewRefCounter returns a fresh, empty RefCounter.
func NewRefCounter() *RefCounter {
	return &RefCounter{}
}

// Count returns the current tracked item count.
func (r *RefCounter) Count() int { return r.count }

// Add accounts for it (and, recursively, the compound items it
// references) entering a tracked stack, returning ErrStackTooBig if the
// new total would exceed MaxStackSize.
func (r *RefCounter) Add(it stackitem.Item) error {
	n := countItems(it)
	if r.count+n > MaxStackSize {
		return ErrStackTooBig
	}
	r.count += n
	return nil
}

// Remove accounts for it leaving a tracked stack.
func (r *RefCounter) Remove(it stackitem.Item) {
	n := countItems(it)
	if r.count >= n {
		r.count -= n
	} else {
		r.count = 0
	}
}

func countItems(it stackitem.Item) int {
	switch v := it.(type) {
	case *stackitem.Array:
		n := 1
		for _, e := range v.Value().([]stackitem.Item) {
			n += countItems(e)
		}
		return n
	case *stackitem.Struct:
		n := 1
		for _, e := range v.Value().([]stackitem.Item) {
			n += countItems(e)
		}
		return n
	case *stackitem.Map:
		n := 1
		for _, e := range v.Value().([]stackitem.MapElement) {
			n += countItems(e.Key) + countItems(e.Value)
		}
		return n
	default:
		return 1
	}
}
