// Copyright 2026 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chainmap

import "github.com/cockroachdb/errors"

// link holds the intrusive chain state for one arena slot. next and prev are
// slot handles. gen is bumped every time the slot's node is destroyed, which
// is what invalidates outstanding cursors to it.
type link struct {
	next int32
	prev int32
	gen  uint32
}

// Cursor is a non-owning reference to a node in a List. It is a stable
// integer handle plus the generation the node had when the cursor was
// created: erasing the node bumps the slot generation, so a stale cursor is
// detected on the next dereference or advance and fails with
// ErrInvalidCursor rather than silently observing reused memory. Cursors to
// other nodes are unaffected by insertions and erasures elsewhere in the
// list.
//
// The zero Cursor is the end cursor: a valid limit marker that is never
// dereferenceable. Cursors are comparable with ==.
type Cursor struct {
	idx int32
	gen uint32
}

// IsEnd reports whether c is the end cursor.
func (c Cursor) IsEnd() bool { return c.idx == 0 }

// List is a doubly-linked list whose nodes live in a growable arena rather
// than in individually allocated heap objects. Slot 0 of the arena is the
// sentinel of a circular chain: Begin is the sentinel's successor and End is
// the sentinel itself, so the chain is never empty of its sentinel and
// unlinking a node repairs its neighbors in O(1). Erased slots go on a free
// list and are reused by later insertions.
//
// Element storage is an Array[T] (handles survive relocation; element
// pointers returned by Get/Front/Back are only valid until the next
// mutation). The chain bookkeeping lives in a parallel Array[link].
//
// The zero value is an empty list ready for use. A List is NOT
// goroutine-safe.
type List[T any] struct {
	elems    Array[T]
	links    Array[link]
	freeHead int32 // -1 when the free list is empty
	n        int
}

// NewList constructs an empty List.
func NewList[T any]() *List[T] {
	return &List[T]{freeHead: -1}
}

// inited reports whether the sentinel slot exists yet. The zero List defers
// arena setup until the first insertion.
func (l *List[T]) inited() bool { return l.links.Len() != 0 }

func (l *List[T]) init() error {
	if l.inited() {
		return nil
	}
	var zero T
	if err := l.elems.PushBack(zero); err != nil {
		return err
	}
	if err := l.links.PushBack(link{}); err != nil {
		l.elems.PopBack()
		return err
	}
	l.freeHead = -1
	return nil
}

func (l *List[T]) linkAt(idx int32) *link { return l.links.ref(int(idx)) }
func (l *List[T]) elemAt(idx int32) *T    { return l.elems.ref(int(idx)) }

// cursorOf builds a cursor for a live slot, capturing its current
// generation.
func (l *List[T]) cursorOf(idx int32) Cursor {
	return Cursor{idx: idx, gen: l.linkAt(idx).gen}
}

// check validates that c still refers to a live node or the sentinel.
func (l *List[T]) check(c Cursor) error {
	if c == (Cursor{}) {
		return nil
	}
	if c.idx < 0 || int(c.idx) >= l.links.Len() {
		return errors.Wrapf(ErrInvalidCursor, "list: cursor handle %d out of range", c.idx)
	}
	if l.links.Get(int(c.idx)).gen != c.gen {
		return errors.Wrapf(ErrInvalidCursor, "list: cursor to erased node %d", c.idx)
	}
	return nil
}

// checkDeref is check plus the requirement that c is dereferenceable.
func (l *List[T]) checkDeref(c Cursor) error {
	if err := l.check(c); err != nil {
		return err
	}
	if c.idx == 0 {
		return errors.Wrap(ErrInvalidCursor, "list: end cursor is not dereferenceable")
	}
	return nil
}

// Len returns the number of nodes.
func (l *List[T]) Len() int { return l.n }

// Empty reports whether the list holds no nodes.
func (l *List[T]) Empty() bool { return l.n == 0 }

// Begin returns a cursor to the first node, or the end cursor when the list
// is empty.
func (l *List[T]) Begin() Cursor {
	if !l.inited() {
		return Cursor{}
	}
	return l.cursorOf(l.linkAt(0).next)
}

// End returns the end cursor.
func (l *List[T]) End() Cursor { return Cursor{} }

// Next returns the cursor following c. Advancing past the last node yields
// the end cursor; advancing the end cursor wraps to the first node.
func (l *List[T]) Next(c Cursor) (Cursor, error) {
	if err := l.check(c); err != nil {
		return Cursor{}, err
	}
	if !l.inited() {
		return Cursor{}, nil
	}
	return l.cursorOf(l.linkAt(c.idx).next), nil
}

// Prev returns the cursor preceding c. The end cursor's predecessor is the
// last node.
func (l *List[T]) Prev(c Cursor) (Cursor, error) {
	if err := l.check(c); err != nil {
		return Cursor{}, err
	}
	if !l.inited() {
		return Cursor{}, nil
	}
	return l.cursorOf(l.linkAt(c.idx).prev), nil
}

// Get returns a pointer to the element at c. The pointer is valid until the
// next mutation of the list. Fails with ErrInvalidCursor for the end cursor
// or a cursor whose node has been erased.
func (l *List[T]) Get(c Cursor) (*T, error) {
	if err := l.checkDeref(c); err != nil {
		return nil, err
	}
	return l.elemAt(c.idx), nil
}

// allocNode takes a slot off the free list or grows the arena, stores v in
// it, and returns its handle. A reused slot keeps the generation it was
// given at free time, so cursors from its previous life stay invalid.
func (l *List[T]) allocNode(v T) (int32, error) {
	if err := l.init(); err != nil {
		return 0, err
	}
	if l.freeHead >= 0 {
		idx := l.freeHead
		lk := l.linkAt(idx)
		l.freeHead = lk.next
		*l.elemAt(idx) = v
		return idx, nil
	}
	if err := l.elems.PushBack(v); err != nil {
		return 0, err
	}
	if err := l.links.PushBack(link{}); err != nil {
		// Keep the two arrays in lockstep so the arena stays consistent.
		l.elems.PopBack()
		return 0, err
	}
	return int32(l.elems.Len() - 1), nil
}

// Insert constructs a new node holding v immediately before pos and returns
// a cursor to it. O(1). pos may be the end cursor, in which case the node is
// appended.
func (l *List[T]) Insert(pos Cursor, v T) (Cursor, error) {
	if err := l.init(); err != nil {
		return Cursor{}, err
	}
	if err := l.check(pos); err != nil {
		return Cursor{}, err
	}
	idx, err := l.allocNode(v)
	if err != nil {
		return Cursor{}, err
	}
	at := l.linkAt(pos.idx)
	prev := at.prev
	nl := l.linkAt(idx)
	nl.prev = prev
	nl.next = pos.idx
	l.linkAt(prev).next = idx
	at.prev = idx
	l.n++
	return l.cursorOf(idx), nil
}

// PushBack appends v and returns its cursor.
func (l *List[T]) PushBack(v T) (Cursor, error) {
	return l.Insert(Cursor{}, v)
}

// PushFront prepends v and returns its cursor.
func (l *List[T]) PushFront(v T) (Cursor, error) {
	return l.Insert(l.Begin(), v)
}

// Erase unlinks and destroys the node at pos, returning a cursor to its
// former successor. Erasing the end cursor is a no-op that returns the end
// cursor. Every outstanding cursor to the erased node becomes invalid.
func (l *List[T]) Erase(pos Cursor) (Cursor, error) {
	if err := l.check(pos); err != nil {
		return Cursor{}, err
	}
	if pos.idx == 0 {
		return Cursor{}, nil
	}
	lk := l.linkAt(pos.idx)
	next := lk.next
	l.linkAt(lk.prev).next = lk.next
	l.linkAt(lk.next).prev = lk.prev
	lk.gen++
	lk.next = l.freeHead
	lk.prev = -1
	l.freeHead = pos.idx
	var zero T
	*l.elemAt(pos.idx) = zero
	l.n--
	return l.cursorOf(next), nil
}

// PopBack removes the last node, failing with ErrEmptyContainer on an empty
// list.
func (l *List[T]) PopBack() error {
	if l.n == 0 {
		return errors.Wrap(ErrEmptyContainer, "list: pop back")
	}
	_, err := l.Erase(l.cursorOf(l.linkAt(0).prev))
	return err
}

// PopFront removes the first node, failing with ErrEmptyContainer on an
// empty list.
func (l *List[T]) PopFront() error {
	if l.n == 0 {
		return errors.Wrap(ErrEmptyContainer, "list: pop front")
	}
	_, err := l.Erase(l.Begin())
	return err
}

// Front returns a pointer to the first element, failing with
// ErrEmptyContainer on an empty list.
func (l *List[T]) Front() (*T, error) {
	if l.n == 0 {
		return nil, errors.Wrap(ErrEmptyContainer, "list: front")
	}
	return l.elemAt(l.linkAt(0).next), nil
}

// Back returns a pointer to the last element, failing with
// ErrEmptyContainer on an empty list.
func (l *List[T]) Back() (*T, error) {
	if l.n == 0 {
		return nil, errors.Wrap(ErrEmptyContainer, "list: back")
	}
	return l.elemAt(l.linkAt(0).prev), nil
}

// Clear destroys every node, invalidating all outstanding cursors. Arena
// capacity is kept for reuse.
func (l *List[T]) Clear() {
	if !l.inited() || l.n == 0 {
		return
	}
	var zero T
	idx := l.linkAt(0).next
	for idx != 0 {
		lk := l.linkAt(idx)
		next := lk.next
		lk.gen++
		lk.next = l.freeHead
		lk.prev = -1
		l.freeHead = idx
		*l.elemAt(idx) = zero
		idx = next
	}
	s := l.linkAt(0)
	s.next, s.prev = 0, 0
	l.n = 0
}

// Clone returns an independent deep copy: every node is copied in order into
// a fresh arena. Cursors into the source do not refer into the clone.
func (l *List[T]) Clone() (*List[T], error) {
	out := &List[T]{freeHead: -1}
	out.elems.setPolicy(l.elems.alloc, l.elems.free)
	if !l.inited() {
		return out, nil
	}
	for idx := l.linkAt(0).next; idx != 0; idx = l.linkAt(idx).next {
		if _, err := out.PushBack(*l.elemAt(idx)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Move transfers the list's storage to a new List in O(1) and leaves the
// receiver as a valid empty list. Cursors into the old contents remain valid
// against the returned list.
func (l *List[T]) Move() *List[T] {
	out := &List[T]{}
	*out = *l
	alloc, free := l.elems.alloc, l.elems.free
	*l = List[T]{freeHead: -1}
	l.elems.setPolicy(alloc, free)
	return out
}

// Swap exchanges the contents of two lists in O(1).
func (l *List[T]) Swap(other *List[T]) {
	*l, *other = *other, *l
}

// close releases the arena through the element storage policy.
func (l *List[T]) close() {
	l.elems.close()
	l.links.close()
	l.freeHead = -1
	l.n = 0
}
