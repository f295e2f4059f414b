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

// Array is a contiguous, resizable sequence of elements with amortized O(1)
// append. It is the storage primitive underneath Map's bucket index and the
// List arena; it is also usable on its own.
//
// The zero value is an empty array ready for use. Get and Set are unchecked
// and panic on an out-of-range index the way a Go slice does; At and SetAt
// are the checked variants and fail with ErrIndexOutOfRange.
//
// Storage is acquired through an optional alloc/free pair (see
// Map's Allocator for how a memory policy is plumbed through). Every
// operation that relocates storage allocates the new block, copies, and only
// then releases the old block, so a failed allocation leaves the array
// unchanged.
//
// An Array is NOT goroutine-safe.
type Array[T any] struct {
	data []T // len(data) is the capacity
	n    int
	// alloc and free provide storage when set; otherwise make() is used and
	// the GC reclaims memory.
	alloc func(n int) ([]T, error)
	free  func(v []T)
}

// NewArray constructs an empty Array with zero capacity.
func NewArray[T any]() *Array[T] {
	return &Array[T]{}
}

// NewArrayFilled constructs an Array of n copies of fill.
func NewArrayFilled[T any](n int, fill T) (*Array[T], error) {
	a := &Array[T]{}
	if err := a.Assign(n, fill); err != nil {
		return nil, err
	}
	return a, nil
}

// setPolicy installs an alloc/free pair. Used by Map to route the bucket
// index through its memory policy; must be called before any storage is
// acquired.
func (a *Array[T]) setPolicy(alloc func(int) ([]T, error), free func([]T)) {
	a.alloc = alloc
	a.free = free
}

func (a *Array[T]) acquire(n int) ([]T, error) {
	if a.alloc == nil {
		return make([]T, n), nil
	}
	data, err := a.alloc(n)
	if err != nil {
		return nil, errors.Wrapf(ErrAllocFailed, "array: acquiring %d elements: %v", n, err)
	}
	return data, nil
}

func (a *Array[T]) release(v []T) {
	if a.free != nil && v != nil {
		a.free(v)
	}
}

// Len returns the number of elements.
func (a *Array[T]) Len() int { return a.n }

// Cap returns the current capacity.
func (a *Array[T]) Cap() int { return len(a.data) }

// Empty reports whether the array holds no elements.
func (a *Array[T]) Empty() bool { return a.n == 0 }

// Get returns the element at index i. Unchecked: i must be in [0, Len).
func (a *Array[T]) Get(i int) T { return a.data[i] }

// Set overwrites the element at index i. Unchecked: i must be in [0, Len).
func (a *Array[T]) Set(i int, v T) { a.data[i] = v }

// ref returns a pointer to the element at index i. The pointer is valid
// until the next relocating mutation.
func (a *Array[T]) ref(i int) *T { return &a.data[i] }

// At returns the element at index i, failing with ErrIndexOutOfRange when
// i is not in [0, Len).
func (a *Array[T]) At(i int) (T, error) {
	if i < 0 || i >= a.n {
		var zero T
		return zero, errors.Wrapf(ErrIndexOutOfRange, "array: index %d, size %d", i, a.n)
	}
	return a.data[i], nil
}

// SetAt overwrites the element at index i, failing with ErrIndexOutOfRange
// when i is not in [0, Len).
func (a *Array[T]) SetAt(i int, v T) error {
	if i < 0 || i >= a.n {
		return errors.Wrapf(ErrIndexOutOfRange, "array: index %d, size %d", i, a.n)
	}
	a.data[i] = v
	return nil
}

// grow relocates storage to hold at least minCap elements, at minimum
// doubling the current capacity. Doubling is what makes PushBack amortized
// O(1): n appends perform at most O(log n) relocations.
func (a *Array[T]) grow(minCap int) error {
	newCap := len(a.data) * 2
	if newCap == 0 {
		newCap = 1
	}
	if newCap < minCap {
		newCap = minCap
	}
	data, err := a.acquire(newCap)
	if err != nil {
		return err
	}
	copy(data, a.data[:a.n])
	a.release(a.data)
	a.data = data
	return nil
}

// PushBack appends v, doubling capacity when full.
func (a *Array[T]) PushBack(v T) error {
	if a.n == len(a.data) {
		if err := a.grow(a.n + 1); err != nil {
			return err
		}
	}
	a.data[a.n] = v
	a.n++
	return nil
}

// PopBack removes the last element. No-op on an empty array.
func (a *Array[T]) PopBack() {
	if a.n == 0 {
		return
	}
	a.n--
	var zero T
	a.data[a.n] = zero
}

// Reserve grows capacity to at least c without changing the length or the
// order of the existing elements.
func (a *Array[T]) Reserve(c int) error {
	if c <= len(a.data) {
		return nil
	}
	return a.grow(c)
}

// Resize changes the length to n. New trailing elements are
// zero-initialized; removed trailing elements are released so they no
// longer pin referenced memory.
func (a *Array[T]) Resize(n int) error {
	switch {
	case n < a.n:
		var zero T
		for i := n; i < a.n; i++ {
			a.data[i] = zero
		}
	case n > a.n:
		if n > len(a.data) {
			if err := a.grow(n); err != nil {
				return err
			}
		}
		var zero T
		for i := a.n; i < n; i++ {
			a.data[i] = zero
		}
	}
	a.n = n
	return nil
}

// Insert places v at index i, shifting the suffix one slot to the right.
// i == Len appends. O(n).
func (a *Array[T]) Insert(i int, v T) error {
	if i < 0 || i > a.n {
		return errors.Wrapf(ErrIndexOutOfRange, "array: insert at %d, size %d", i, a.n)
	}
	if a.n == len(a.data) {
		if err := a.grow(a.n + 1); err != nil {
			return err
		}
	}
	copy(a.data[i+1:a.n+1], a.data[i:a.n])
	a.data[i] = v
	a.n++
	return nil
}

// Erase removes the element at index i, shifting the suffix one slot to the
// left. O(n).
func (a *Array[T]) Erase(i int) error {
	if i < 0 || i >= a.n {
		return errors.Wrapf(ErrIndexOutOfRange, "array: erase at %d, size %d", i, a.n)
	}
	copy(a.data[i:a.n-1], a.data[i+1:a.n])
	a.n--
	var zero T
	a.data[a.n] = zero
	return nil
}

// Assign replaces the contents with n copies of fill.
func (a *Array[T]) Assign(n int, fill T) error {
	if n > len(a.data) {
		if err := a.grow(n); err != nil {
			return err
		}
	}
	for i := 0; i < n; i++ {
		a.data[i] = fill
	}
	var zero T
	for i := n; i < a.n; i++ {
		a.data[i] = zero
	}
	a.n = n
	return nil
}

// Clear removes all elements, keeping capacity.
func (a *Array[T]) Clear() {
	var zero T
	for i := 0; i < a.n; i++ {
		a.data[i] = zero
	}
	a.n = 0
}

// Swap exchanges the contents of two arrays in O(1).
func (a *Array[T]) Swap(other *Array[T]) {
	*a, *other = *other, *a
}

// Clone returns an independent copy with the same elements and policy.
func (a *Array[T]) Clone() (*Array[T], error) {
	out := &Array[T]{alloc: a.alloc, free: a.free}
	if a.n == 0 {
		return out, nil
	}
	data, err := out.acquire(a.n)
	if err != nil {
		return nil, err
	}
	copy(data, a.data[:a.n])
	out.data = data
	out.n = a.n
	return out, nil
}

// close releases the backing storage through the policy. The array is empty
// and reusable afterwards.
func (a *Array[T]) close() {
	a.release(a.data)
	a.data = nil
	a.n = 0
}
