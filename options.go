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

import "hash/maphash"

// option provides an interface to do work on a Map while it is being
// created.
type option[K comparable, V any] interface {
	apply(m *Map[K, V])
}

type hashOption[K comparable, V any] struct {
	hash func(seed maphash.Seed, key K) uint64
}

func (op hashOption[K, V]) apply(m *Map[K, V]) {
	m.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a Map[K,V].
// The function must be deterministic for the lifetime of the map: a key's
// hash is computed once at insertion and cached for all later bucket
// computations. By default maphash.Comparable is used.
func WithHash[K comparable, V any](hash func(seed maphash.Seed, key K) uint64) option[K, V] {
	return hashOption[K, V]{hash}
}

type keyEqualOption[K comparable, V any] struct {
	equal func(a, b K) bool
}

func (op keyEqualOption[K, V]) apply(m *Map[K, V]) {
	m.equal = op.equal
}

// WithKeyEqual is an option to specify the key equality function for a
// Map[K,V]. Keys that compare equal must hash identically under the map's
// hash function. By default == is used.
func WithKeyEqual[K comparable, V any](equal func(a, b K) bool) option[K, V] {
	return keyEqualOption[K, V]{equal}
}

// Allocator specifies an interface for allocating and releasing the memory
// used by a Map: the slot arena backing the element list and the bucket
// index array. The default allocator utilizes Go's builtin make() and allows
// the GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that slots and
// buckets be freed then Map.Close must be called in order to ensure
// FreeSlots and FreeBuckets are called.
type Allocator[K comparable, V any] interface {
	// AllocSlots should return a slice equivalent to make([]Slot[K,V], n),
	// or an error if storage cannot be acquired.
	AllocSlots(n int) ([]Slot[K, V], error)

	// AllocBuckets should return a slice equivalent to make([]Cursor, n),
	// or an error if storage cannot be acquired.
	AllocBuckets(n int) ([]Cursor, error)

	// FreeSlots can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by
	// AllocSlots.
	FreeSlots(v []Slot[K, V])

	// FreeBuckets can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by
	// AllocBuckets.
	FreeBuckets(v []Cursor)
}

type defaultAllocator[K comparable, V any] struct{}

func (defaultAllocator[K, V]) AllocSlots(n int) ([]Slot[K, V], error) {
	return make([]Slot[K, V], n), nil
}

func (defaultAllocator[K, V]) AllocBuckets(n int) ([]Cursor, error) {
	return make([]Cursor, n), nil
}

func (defaultAllocator[K, V]) FreeSlots(v []Slot[K, V]) {
}

func (defaultAllocator[K, V]) FreeBuckets(v []Cursor) {
}

type allocatorOption[K comparable, V any] struct {
	allocator Allocator[K, V]
}

func (op allocatorOption[K, V]) apply(m *Map[K, V]) {
	m.alloc = op.allocator
}

// WithAllocator is an option to specify the Allocator to use for a Map[K,V].
func WithAllocator[K comparable, V any](allocator Allocator[K, V]) option[K, V] {
	return allocatorOption[K, V]{allocator}
}
