package vm

import "github.com/n3-go/n3node/pkg/vm/stackitem"

// Stack is a simple LIFO of stack items with positional access (PICK,
// ROLL, …), shared between the evaluation stack and the alt-stack of
// each execution context.
type Stack struct {
	items []stackitem.Item
}

// NewStack returns an empty Stack.
func NewStack() *Stack { return &Stack{} }

// Len returns the number of items on the stack.
func (s *Stack) Len() int { return len(s.items) }

// Push pushes it onto the top of the stack.
func (s *Stack) Push(it stackitem.Item) {
	s.items = append(s.items, it)
}

// Pop removes and returns the top item.
func (s *Stack) Pop() stackitem.Item {
	it := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return it
}

// Peek returns the item n from the top (0 = top) without removing it.
func (s *Stack) Peek(n int) stackitem.Item {
	return s.items[len(s.items)-1-n]
}

// RemoveAt removes and returns the item n from the top.
func (s *Stack) RemoveAt(n int) stackitem.Item {
	idx := len(s.items) - 1 - n
	it := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return it
}

// InsertAt inserts it so that it becomes item n from the top.
func (s *Stack) InsertAt(it stackitem.Item, n int) {
	idx := len(s.items) - n
	s.items = append(s.items, nil)
	copy(s.items[idx+1:], s.items[idx:])
	s.items[idx] = it
}

// Clear empties the stack.
func (s *Stack) Clear() {
	s.items = nil
}

// All returns the stack's items, bottom first.
func (s *Stack) All() []stackitem.Item {
	return s.items
}
