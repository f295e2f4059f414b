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

// Package chainmap is a from-scratch associative container: a chained hash
// table built on two hand-written primitives, a growable contiguous array
// (Array) and an arena-backed intrusive doubly-linked list (List), rather
// than on Go's builtin map.
//
// # Layout
//
// Every key/value pair lives as a node in a single backing List, ordered so
// that all nodes belonging to one bucket occupy one unbroken run. The bucket
// index is an Array of bucket_count cursors: slot b holds a cursor to the
// first node, in list order, whose cached hash reduces to b, or the end
// cursor when bucket b is empty. Each node caches the 64-bit hash of its key
// at insertion time; the hash is never recomputed for the node's lifetime.
//
// Every operation derives hash(key), reduces it modulo bucket_count to a
// bucket b, reads the bucket's head cursor, and walks forward through the
// list only while each visited node's cached hash still reduces to b. New
// elements of a bucket always land at the tail of that bucket's run (or at
// the end of the list when the bucket was empty), which is what keeps the
// bucket-contiguity invariant intact without touching other buckets.
//
// Compared to open-addressing designs, chaining through a node list gives
// stable cursors: erasing an element invalidates cursors to that element
// only, and rehashing moves no node storage, so cursors survive growth.
//
// # Cursors
//
// List nodes live in a growable arena and are addressed by stable integer
// handles, not pointers. A Cursor pairs a handle with the generation the
// slot had when the cursor was created; erasing a node bumps the slot's
// generation, so dereferencing or advancing a stale cursor fails with
// ErrInvalidCursor instead of observing reused memory. See List.
//
// # Growth
//
// The table maintains load_factor = size/bucket_count <= 0.8. An insertion
// that would cross floor(bucket_count*0.8) first grows bucket_count to the
// smallest prime >= 2*bucket_count (primality by trial division: growth
// happens only O(log n) times, and a prime count spreads weak hash
// functions uniformly) and rehashes. Rehashing physically regroups the
// backing list: nodes are distributed into per-bucket chains for the new
// bucket count and relinked in ascending bucket order, so contiguity holds
// for the new modulus. Node handles and generations are untouched, hence
// cursors remain valid across a rehash.
//
// # Errors
//
// Checked operations return errors wrapping the sentinels in errors.go
// (ErrKeyNotFound, ErrInvalidCursor, ...). Allocation failures from a
// configured Allocator are propagated, with one deliberate exception: if a
// load-triggered rehash fails to allocate but the current bucket count can
// still index one more element (size < bucket_count), the insert proceeds
// without growing.
//
// A Map is NOT goroutine-safe: concurrent use requires external
// synchronization.
package chainmap

import (
	"fmt"
	"hash/maphash"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	debug      = false
	invariants = false

	// minBucketCount is the bucket count of an empty table; bucket counts
	// never shrink below it.
	minBucketCount = 7
	// maxLoadFactor is the size/bucket_count bound that triggers growth.
	maxLoadFactor = 0.8
)

// Slot holds a key, a value, and the key's cached hash. Slots are the
// elements of the Map's backing list; the type is exported only so that a
// custom Allocator can provide their storage.
type Slot[K comparable, V any] struct {
	key   K
	value V
	hash  uint64
}

// Pair is a key/value pair for bulk construction and insertion.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// Map is an associative container from keys to values with stable,
// explicitly invalidated cursors, per-bucket iteration, and a pluggable
// hash function, key equality, and memory policy. The zero value is not
// usable; construct with New, NewFromPairs, or Init.
type Map[K comparable, V any] struct {
	hash  func(seed maphash.Seed, key K) uint64
	seed  maphash.Seed
	equal func(a, b K) bool
	// The memory policy for the slot arena and the bucket index.
	alloc Allocator[K, V]
	// elems is the single backing store for every key/value pair, ordered
	// so that elements of the same bucket are contiguous.
	elems List[Slot[K, V]]
	// table is the bucket index: bucket -> cursor to the first node of the
	// bucket's run, or the end cursor when the bucket is empty. Its length
	// always equals bucketCount.
	table Array[Cursor]
	// used is the number of elements; it always equals elems.Len().
	used            int
	bucketCount     int
	rehashThreshold int // floor(bucketCount * maxLoadFactor)
}

// New constructs a Map with at least bucketCount buckets (minimum 7).
func New[K comparable, V any](bucketCount int, options ...option[K, V]) (*Map[K, V], error) {
	m := &Map[K, V]{}
	if err := m.Init(bucketCount, options...); err != nil {
		return nil, err
	}
	return m, nil
}

// NewFromPairs constructs a Map holding the given pairs. Later duplicates
// of a key are ignored, matching Insert semantics.
func NewFromPairs[K comparable, V any](pairs []Pair[K, V], options ...option[K, V]) (*Map[K, V], error) {
	m, err := New[K, V](0, options...)
	if err != nil {
		return nil, err
	}
	if err := m.InsertPairs(pairs...); err != nil {
		return nil, err
	}
	return m, nil
}

// Init initializes (or reinitializes) a Map in place, discarding any
// previous contents without returning their memory; use Close first if a
// manual allocator requires it.
func (m *Map[K, V]) Init(bucketCount int, options ...option[K, V]) error {
	*m = Map[K, V]{
		hash: func(seed maphash.Seed, key K) uint64 {
			return maphash.Comparable(seed, key)
		},
		seed:  maphash.MakeSeed(),
		equal: func(a, b K) bool { return a == b },
		alloc: defaultAllocator[K, V]{},
	}
	for _, op := range options {
		op.apply(m)
	}
	m.elems.freeHead = -1
	m.elems.elems.setPolicy(m.alloc.AllocSlots, m.alloc.FreeSlots)
	m.table.setPolicy(m.alloc.AllocBuckets, m.alloc.FreeBuckets)
	if bucketCount < minBucketCount {
		bucketCount = minBucketCount
	}
	if err := m.table.Assign(bucketCount, Cursor{}); err != nil {
		return err
	}
	m.bucketCount = bucketCount
	m.rehashThreshold = int(float64(bucketCount) * maxLoadFactor)
	m.checkInvariants()
	return nil
}

// Close releases the slot arena and the bucket index back to the configured
// allocator. It is unnecessary to close a map using the default allocator.
// It is invalid to use a Map after it has been closed, though Close itself
// is idempotent.
func (m *Map[K, V]) Close() {
	m.elems.close()
	m.table.close()
	m.used = 0
	m.bucketCount = 0
	m.rehashThreshold = 0
}

// bucketOf reduces a cached hash to a bucket index under the current bucket
// count.
func (m *Map[K, V]) bucketOf(h uint64) int {
	return int(h % uint64(m.bucketCount))
}

// next returns the cursor following c. Internal: c must be valid.
func (m *Map[K, V]) next(c Cursor) Cursor {
	return m.elems.cursorOf(m.elems.linkAt(c.idx).next)
}

// slotAt returns the slot at c. Internal: c must be valid and not the end
// cursor.
func (m *Map[K, V]) slotAt(c Cursor) *Slot[K, V] {
	return m.elems.elemAt(c.idx)
}

// findInBucket scans bucket b's contiguous run for key, returning the end
// cursor if absent.
func (m *Map[K, V]) findInBucket(key K, b int) Cursor {
	for c := m.table.Get(b); !c.IsEnd(); c = m.next(c) {
		s := m.slotAt(c)
		if m.bucketOf(s.hash) != b {
			break
		}
		if m.equal(s.key, key) {
			return c
		}
	}
	return Cursor{}
}

// runEnd returns the cursor just past bucket b's contiguous run: the first
// node belonging to another bucket, or the end cursor. For an empty bucket
// this is the end cursor.
func (m *Map[K, V]) runEnd(b int) Cursor {
	c := m.table.Get(b)
	for !c.IsEnd() && m.bucketOf(m.slotAt(c).hash) == b {
		c = m.next(c)
	}
	return c
}

// Find returns a cursor to the element with the given key, or the end
// cursor if the key is absent. O(1) average, O(bucket size) worst case.
func (m *Map[K, V]) Find(key K) Cursor {
	if m.used == 0 {
		return Cursor{}
	}
	h := m.hash(m.seed, key)
	return m.findInBucket(key, m.bucketOf(h))
}

// Contains reports whether the key is present.
func (m *Map[K, V]) Contains(key K) bool {
	return !m.Find(key).IsEnd()
}

// Get retrieves the value for the given key, returning ok=false if the key
// is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	c := m.Find(key)
	if c.IsEnd() {
		return value, false
	}
	return m.slotAt(c).value, true
}

// At returns the value for the given key, failing with ErrKeyNotFound if
// the key is absent. This is the checked, non-vivifying lookup.
func (m *Map[K, V]) At(key K) (V, error) {
	c := m.Find(key)
	if c.IsEnd() {
		var zero V
		return zero, errors.Wrapf(ErrKeyNotFound, "map: key %v", key)
	}
	return m.slotAt(c).value, nil
}

// Insert inserts a new element, returning a cursor to it and true. If an
// element with an equal key already exists the map is not mutated and the
// existing element's cursor and false are returned.
func (m *Map[K, V]) Insert(key K, value V) (Cursor, bool, error) {
	h := m.hash(m.seed, key)
	b := m.bucketOf(h)
	if c := m.findInBucket(key, b); !c.IsEnd() {
		return c, false, nil
	}

	if m.used+1 > m.rehashThreshold {
		if err := m.Rehash(nextPrime(2 * m.bucketCount)); err != nil {
			// An allocation failure here is tolerable only while the
			// current bucket count can still index one more element.
			if m.used >= m.bucketCount {
				return Cursor{}, false, err
			}
		}
		b = m.bucketOf(h)
	}

	// Insert at the tail of the bucket's run; for an empty bucket runEnd is
	// the end cursor, so the node is appended to the list and becomes the
	// bucket's head.
	pos := m.runEnd(b)
	emptyBucket := m.table.Get(b).IsEnd()
	c, err := m.elems.Insert(pos, Slot[K, V]{key: key, value: value, hash: h})
	if err != nil {
		return Cursor{}, false, err
	}
	if emptyBucket {
		m.table.Set(b, c)
	}
	m.used++
	if debug {
		fmt.Printf("insert(%v): bucket=%d used=%d buckets=%d\n", key, b, m.used, m.bucketCount)
	}
	m.checkInvariants()
	return c, true, nil
}

// TryEmplace inserts a new element with a lazily constructed value: mk is
// invoked only if the key is absent. A nil mk inserts the zero value.
func (m *Map[K, V]) TryEmplace(key K, mk func() V) (Cursor, bool, error) {
	if c := m.Find(key); !c.IsEnd() {
		return c, false, nil
	}
	var value V
	if mk != nil {
		value = mk()
	}
	return m.Insert(key, value)
}

// InsertPairs inserts each pair in order, ignoring keys already present.
func (m *Map[K, V]) InsertPairs(pairs ...Pair[K, V]) error {
	for _, p := range pairs {
		if _, _, err := m.Insert(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// Put sets the value for a key, overwriting the existing value if an
// element with the same key is already present.
func (m *Map[K, V]) Put(key K, value V) error {
	if c := m.Find(key); !c.IsEnd() {
		m.slotAt(c).value = value
		return nil
	}
	_, _, err := m.Insert(key, value)
	return err
}

// GetOrInsert returns a pointer to the value for the given key, inserting a
// zero value first if the key is absent. The pointer is valid until the
// next mutation of the map.
func (m *Map[K, V]) GetOrInsert(key K) (*V, error) {
	c := m.Find(key)
	if c.IsEnd() {
		var zero V
		var err error
		if c, _, err = m.Insert(key, zero); err != nil {
			return nil, err
		}
	}
	return &m.slotAt(c).value, nil
}

// Erase removes the element at c and returns a cursor to its former
// successor in the list. Erasing the end cursor is a no-op; a stale cursor
// fails with ErrInvalidCursor. Cursors to other elements remain valid.
func (m *Map[K, V]) Erase(c Cursor) (Cursor, error) {
	if err := m.elems.check(c); err != nil {
		return Cursor{}, err
	}
	if c.IsEnd() {
		return Cursor{}, nil
	}

	// If the node is its bucket's recorded head, the head moves to the next
	// node of the same run, or the bucket becomes empty.
	b := m.bucketOf(m.slotAt(c).hash)
	if m.table.Get(b) == c {
		probe := m.next(c)
		if !probe.IsEnd() && m.bucketOf(m.slotAt(probe).hash) == b {
			m.table.Set(b, probe)
		} else {
			m.table.Set(b, Cursor{})
		}
	}

	next, err := m.elems.Erase(c)
	if err != nil {
		return Cursor{}, err
	}
	m.used--
	if debug {
		fmt.Printf("erase: bucket=%d used=%d\n", b, m.used)
	}
	m.checkInvariants()
	return next, nil
}

// Delete removes the element with the given key, reporting whether an
// element was removed. It is a noop to delete a non-existent key.
func (m *Map[K, V]) Delete(key K) bool {
	c := m.Find(key)
	if c.IsEnd() {
		return false
	}
	_, _ = m.Erase(c) // cannot fail: c was just found
	return true
}

// EraseRange removes the half-open cursor range [first, last) by repeated
// single erase.
func (m *Map[K, V]) EraseRange(first, last Cursor) error {
	if err := m.elems.check(last); err != nil {
		return err
	}
	c := first
	for c != last {
		if c.IsEnd() {
			break
		}
		var err error
		if c, err = m.Erase(c); err != nil {
			return err
		}
	}
	return nil
}

// EraseIf removes every element satisfying pred and returns the number
// removed.
func (m *Map[K, V]) EraseIf(pred func(key K, value V) bool) int {
	count := 0
	for c := m.Begin(); !c.IsEnd(); {
		s := m.slotAt(c)
		if pred(s.key, s.value) {
			c, _ = m.Erase(c)
			count++
		} else {
			c = m.next(c)
		}
	}
	return count
}

// Clear removes every element and resets the bucket index to the minimum
// bucket count. All outstanding cursors become invalid.
func (m *Map[K, V]) Clear() error {
	m.elems.Clear()
	m.used = 0
	if m.bucketCount == minBucketCount {
		// Same length: reuses the existing storage, cannot fail.
		_ = m.table.Assign(minBucketCount, Cursor{})
		m.checkInvariants()
		return nil
	}
	var nt Array[Cursor]
	nt.setPolicy(m.table.alloc, m.table.free)
	if err := nt.Assign(minBucketCount, Cursor{}); err != nil {
		// Keep the current bucket count; the table is still valid and
		// empty.
		_ = m.table.Assign(m.bucketCount, Cursor{})
		return err
	}
	m.table.close()
	m.table = nt
	m.bucketCount = minBucketCount
	m.rehashThreshold = int(float64(m.bucketCount) * maxLoadFactor)
	m.checkInvariants()
	return nil
}

// Reserve grows the bucket index so that it has at least bucketCount
// buckets. Shrinking is not performed.
func (m *Map[K, V]) Reserve(bucketCount int) error {
	if bucketCount <= m.bucketCount {
		return nil
	}
	return m.Rehash(bucketCount)
}

// Rehash rebuilds the bucket index for a new bucket count of at least
// max(target, minBucketCount, ceil(size/maxLoadFactor)). It is a no-op if
// the resulting count equals the current one.
//
// The backing list is physically regrouped: nodes are distributed into
// per-bucket chains under the new modulus and relinked in ascending bucket
// order, restoring bucket contiguity. No node is created, destroyed, or
// moved in the arena, so size is unchanged and cursors remain valid;
// relative order of nodes within one bucket's run is the prior list order.
func (m *Map[K, V]) Rehash(target int) error {
	count := target
	if count < minBucketCount {
		count = minBucketCount
	}
	if need := int(math.Ceil(float64(m.used) / maxLoadFactor)); count < need {
		count = need
	}
	if count == m.bucketCount {
		return nil
	}
	if debug {
		fmt.Printf("rehash: buckets=%d->%d used=%d\n", m.bucketCount, count, m.used)
	}

	var nt Array[Cursor]
	nt.setPolicy(m.table.alloc, m.table.free)
	if err := nt.Assign(count, Cursor{}); err != nil {
		return err
	}

	if m.used > 0 {
		l := &m.elems
		// First pass: peel every node off the chain into per-bucket
		// sub-chains, threaded through the nodes' own next links. prev
		// links are left stale and repaired in the second pass.
		heads := make([]int32, count)
		tails := make([]int32, count)
		for i := range heads {
			heads[i] = -1
		}
		idx := l.linkAt(0).next
		for idx != 0 {
			nextIdx := l.linkAt(idx).next
			b := int(l.elemAt(idx).hash % uint64(count))
			if heads[b] < 0 {
				heads[b] = idx
			} else {
				l.linkAt(tails[b]).next = idx
			}
			tails[b] = idx
			idx = nextIdx
		}
		// Second pass: splice the sub-chains back onto the sentinel in
		// ascending bucket order, recording each bucket's head cursor.
		cur := int32(0)
		for b := 0; b < count; b++ {
			if heads[b] < 0 {
				continue
			}
			nt.Set(b, l.cursorOf(heads[b]))
			i := heads[b]
			for {
				l.linkAt(i).prev = cur
				l.linkAt(cur).next = i
				cur = i
				if i == tails[b] {
					break
				}
				i = l.linkAt(i).next
			}
		}
		l.linkAt(cur).next = 0
		l.linkAt(0).prev = cur
	}

	m.table.close()
	m.table = nt
	m.bucketCount = count
	m.rehashThreshold = int(float64(count) * maxLoadFactor)
	m.checkInvariants()
	return nil
}

// Swap exchanges the entire contents and configuration of two maps in O(1).
func (m *Map[K, V]) Swap(other *Map[K, V]) {
	*m, *other = *other, *m
}

// Clone returns an independent copy: both maps are separately mutable and
// share no storage. Elements are re-inserted in iteration order.
func (m *Map[K, V]) Clone() (*Map[K, V], error) {
	out := &Map[K, V]{
		hash:  m.hash,
		seed:  m.seed,
		equal: m.equal,
		alloc: m.alloc,
	}
	out.elems.freeHead = -1
	out.elems.elems.setPolicy(out.alloc.AllocSlots, out.alloc.FreeSlots)
	out.table.setPolicy(out.alloc.AllocBuckets, out.alloc.FreeBuckets)
	if err := out.table.Assign(m.bucketCount, Cursor{}); err != nil {
		return nil, err
	}
	out.bucketCount = m.bucketCount
	out.rehashThreshold = m.rehashThreshold
	var err error
	m.All(func(key K, value V) bool {
		_, _, err = out.Insert(key, value)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Move transfers the map's storage to a new Map in O(1) and resets the
// receiver to an empty minimum-bucket table with the same configuration.
// The receiver remains usable; cursors into the old contents remain valid
// against the returned map.
func (m *Map[K, V]) Move() (*Map[K, V], error) {
	out := &Map[K, V]{}
	*out = *m
	m.elems = List[Slot[K, V]]{freeHead: -1}
	m.elems.elems.setPolicy(m.alloc.AllocSlots, m.alloc.FreeSlots)
	m.table = Array[Cursor]{}
	m.table.setPolicy(m.alloc.AllocBuckets, m.alloc.FreeBuckets)
	m.used = 0
	m.bucketCount = minBucketCount
	m.rehashThreshold = int(float64(m.bucketCount) * maxLoadFactor)
	if err := m.table.Assign(minBucketCount, Cursor{}); err != nil {
		return nil, err
	}
	return out, nil
}

// Len returns the number of elements in the map.
func (m *Map[K, V]) Len() int { return m.used }

// Empty reports whether the map holds no elements.
func (m *Map[K, V]) Empty() bool { return m.used == 0 }

// BucketCount returns the current number of buckets.
func (m *Map[K, V]) BucketCount() int { return m.bucketCount }

// LoadFactor returns size divided by bucket count.
func (m *Map[K, V]) LoadFactor() float64 {
	if m.bucketCount == 0 {
		return 0
	}
	return float64(m.used) / float64(m.bucketCount)
}

// MaxLoadFactor returns the fixed growth threshold.
func (m *Map[K, V]) MaxLoadFactor() float64 { return maxLoadFactor }

// Bucket returns the bucket index the given key reduces to. It fails with
// ErrEmptyContainer when the table holds no elements.
func (m *Map[K, V]) Bucket(key K) (int, error) {
	if m.used == 0 {
		return 0, errors.Wrap(ErrEmptyContainer, "map: bucket query on empty table")
	}
	return m.bucketOf(m.hash(m.seed, key)), nil
}

// BucketSize returns the number of elements in bucket b.
func (m *Map[K, V]) BucketSize(b int) (int, error) {
	if b < 0 || b >= m.bucketCount {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "map: bucket %d, bucket count %d", b, m.bucketCount)
	}
	n := 0
	for c := m.table.Get(b); !c.IsEnd() && m.bucketOf(m.slotAt(c).hash) == b; c = m.next(c) {
		n++
	}
	return n, nil
}

// BucketBegin returns a cursor to the first element of bucket b, or the end
// cursor when the bucket is empty.
func (m *Map[K, V]) BucketBegin(b int) (Cursor, error) {
	if b < 0 || b >= m.bucketCount {
		return Cursor{}, errors.Wrapf(ErrIndexOutOfRange, "map: bucket %d, bucket count %d", b, m.bucketCount)
	}
	return m.table.Get(b), nil
}

// BucketEnd returns the limit cursor for iterating bucket b: the head of
// the next non-empty bucket after b, or the end cursor if none exists.
func (m *Map[K, V]) BucketEnd(b int) (Cursor, error) {
	if b < 0 || b >= m.bucketCount {
		return Cursor{}, errors.Wrapf(ErrIndexOutOfRange, "map: bucket %d, bucket count %d", b, m.bucketCount)
	}
	for nb := b + 1; nb < m.bucketCount; nb++ {
		if head := m.table.Get(nb); !head.IsEnd() {
			return head, nil
		}
	}
	return Cursor{}, nil
}

// Begin returns a cursor to the first element in list order, or the end
// cursor when the map is empty.
func (m *Map[K, V]) Begin() Cursor { return m.elems.Begin() }

// End returns the end cursor.
func (m *Map[K, V]) End() Cursor { return Cursor{} }

// Next returns the cursor following c, failing with ErrInvalidCursor if c's
// element has been erased.
func (m *Map[K, V]) Next(c Cursor) (Cursor, error) {
	return m.elems.Next(c)
}

// KeyAt returns the key of the element at c.
func (m *Map[K, V]) KeyAt(c Cursor) (K, error) {
	s, err := m.elems.Get(c)
	if err != nil {
		var zero K
		return zero, err
	}
	return s.key, nil
}

// ValueAt returns a pointer to the value of the element at c. The pointer
// is valid until the next mutation of the map; the cursor itself stays
// valid until the element is erased.
func (m *Map[K, V]) ValueAt(c Cursor) (*V, error) {
	s, err := m.elems.Get(c)
	if err != nil {
		return nil, err
	}
	return &s.value, nil
}

// All calls yield sequentially for each key and value present in the map,
// in list order (bucket runs are visited whole). If yield returns false,
// iteration stops. The map must not be mutated during iteration.
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	if !m.elems.inited() {
		return
	}
	for idx := m.elems.linkAt(0).next; idx != 0; idx = m.elems.linkAt(idx).next {
		s := m.elems.elemAt(idx)
		if !yield(s.key, s.value) {
			return
		}
	}
}

// isPrime reports primality by 6k±1 trial division up to sqrt(n).
func isPrime(n int) bool {
	if n <= 1 {
		return false
	}
	if n <= 3 {
		return true
	}
	if n%2 == 0 || n%3 == 0 {
		return false
	}
	for i := 5; i*i <= n; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}
	return true
}

// nextPrime returns the smallest prime not less than n.
func nextPrime(n int) int {
	if n <= 2 {
		return 2
	}
	for !isPrime(n) {
		n++
	}
	return n
}

func (m *Map[K, V]) checkInvariants() {
	if invariants {
		if m.used != m.elems.Len() {
			panic(fmt.Sprintf("invariant failed: used=%d but list holds %d nodes\n%s",
				m.used, m.elems.Len(), m.debugString()))
		}
		if m.table.Len() != m.bucketCount {
			panic(fmt.Sprintf("invariant failed: bucket index length %d != bucket count %d",
				m.table.Len(), m.bucketCount))
		}

		// Count elements per bucket by walking the list, verifying
		// contiguity: a bucket's nodes must form a single run.
		counts := make(map[int]int)
		runs := make(map[int]int)
		prev := -1
		m.allBuckets(func(b int) {
			counts[b]++
			if b != prev {
				runs[b]++
				prev = b
			}
		})
		for b, r := range runs {
			if r != 1 {
				panic(fmt.Sprintf("invariant failed: bucket %d split into %d runs\n%s",
					b, r, m.debugString()))
			}
		}

		// Every recorded head starts a run of exactly the bucket's count;
		// every empty head slot has no elements.
		for b := 0; b < m.bucketCount; b++ {
			head := m.table.Get(b)
			if head.IsEnd() {
				if counts[b] != 0 {
					panic(fmt.Sprintf("invariant failed: bucket %d has %d elements but no head\n%s",
						b, counts[b], m.debugString()))
				}
				continue
			}
			if err := m.elems.checkDeref(head); err != nil {
				panic(fmt.Sprintf("invariant failed: bucket %d head is stale: %v", b, err))
			}
			n := 0
			for c := head; !c.IsEnd() && m.bucketOf(m.slotAt(c).hash) == b; c = m.next(c) {
				n++
			}
			if n != counts[b] {
				panic(fmt.Sprintf("invariant failed: bucket %d run holds %d of %d elements\n%s",
					b, n, counts[b], m.debugString()))
			}
		}
	}
}

// allBuckets walks the list in order, yielding each node's bucket index.
func (m *Map[K, V]) allBuckets(yield func(b int)) {
	if !m.elems.inited() {
		return
	}
	for idx := m.elems.linkAt(0).next; idx != 0; idx = m.elems.linkAt(idx).next {
		yield(m.bucketOf(m.elems.elemAt(idx).hash))
	}
}

func (m *Map[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "used=%d  buckets=%d  threshold=%d\n", m.used, m.bucketCount, m.rehashThreshold)
	for b := 0; b < m.bucketCount; b++ {
		head := m.table.Get(b)
		if head.IsEnd() {
			continue
		}
		fmt.Fprintf(&buf, "  %4d:", b)
		for c := head; !c.IsEnd() && m.bucketOf(m.slotAt(c).hash) == b; c = m.next(c) {
			fmt.Fprintf(&buf, " %v", m.slotAt(c).key)
		}
		fmt.Fprintf(&buf, "\n")
	}
	return buf.String()
}
